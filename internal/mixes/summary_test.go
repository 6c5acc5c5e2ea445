package mixes

import (
	"context"
	"testing"
	"time"

	"pinturas-backend/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMixSummaryByBranchAndBucket(t *testing.T) {
	f := newSQLiteFixture(t)
	ctx := context.Background()

	at := func(ts string) {
		created, err := time.Parse(time.RFC3339, ts)
		require.NoError(t, err)
		f.svc.now = func() time.Time { return created }
	}

	at("2026-10-01T09:00:00Z")
	f.create(t, f.b1.ID, item("RED01", "1"))
	f.create(t, f.b2.ID, item("RED01", "1"))
	at("2026-10-01T18:00:00Z")
	f.create(t, f.b1.ID, item("BLU02", "2"))
	at("2026-10-03T23:30:00Z")
	f.create(t, f.b1.ID, item("BLU02", "2"))
	at("2026-10-04T00:00:00Z")
	f.create(t, f.b2.ID, item("RED01", "1"))

	res, err := f.svc.MixSummary(ctx, SummaryInput{From: "2026-10-01", To: "2026-10-03"})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, GroupDay, res.Group)
	assert.Equal(t, []BranchTotal{
		{BranchID: f.b1.ID, BranchName: "Centro", Count: 3},
		{BranchID: f.b2.ID, BranchName: "Norte", Count: 1},
	}, res.TotalsByBranch)

	require.Len(t, res.Series, 2)
	assert.Equal(t, "2026-10-01", res.Series[0].Label)
	assert.Equal(t, 3, res.Series[0].Total)
	assert.Equal(t, map[string]int{f.b1.ID.String(): 2, f.b2.ID.String(): 1}, res.Series[0].ByBranch)
	assert.Equal(t, "2026-10-03", res.Series[1].Label)
	assert.Equal(t, map[string]int{f.b1.ID.String(): 1}, res.Series[1].ByBranch)

	only, err := f.svc.MixSummary(ctx, SummaryInput{BranchID: &f.b2.ID, From: "2026-10-01", To: "2026-10-04", Group: "MONTH"})
	require.NoError(t, err)
	assert.Equal(t, 2, only.Total)
	require.Len(t, only.TotalsByBranch, 1)
	assert.Equal(t, "Norte", only.TotalsByBranch[0].BranchName)
	require.Len(t, only.Series, 1)
	assert.Equal(t, "2026-10", only.Series[0].Label)
	assert.Equal(t, 2, only.Series[0].Total)
}

func TestMixSummaryEmptyRange(t *testing.T) {
	svc, _ := newMemService(t)

	res, err := svc.MixSummary(context.Background(), SummaryInput{From: "2026-10-01", To: "2026-10-01", Group: GroupWeek})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.NotNil(t, res.TotalsByBranch)
	assert.NotNil(t, res.Series)
}

func TestMixSummaryValidation(t *testing.T) {
	svc, _ := newMemService(t)

	cases := map[string]struct {
		in    SummaryInput
		field string
	}{
		"missing from":  {SummaryInput{To: "2026-10-01"}, "from"},
		"missing to":    {SummaryInput{From: "2026-10-01"}, "to"},
		"bad group":     {SummaryInput{From: "2026-10-01", To: "2026-10-02", Group: "year"}, "group"},
		"bad date":      {SummaryInput{From: "01/10/2026", To: "2026-10-02"}, "from"},
		"reversed days": {SummaryInput{From: "2026-10-05", To: "2026-10-01"}, "to"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.MixSummary(context.Background(), tc.in)
			var verr *validation.Error
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
}
