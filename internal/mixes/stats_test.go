package mixes

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mxLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)
	return loc
}

func TestStartOfWeekIsMonday(t *testing.T) {
	loc := mxLoc(t)
	sunday := time.Date(2026, 10, 18, 15, 0, 0, 0, loc)
	monday := time.Date(2026, 10, 12, 0, 0, 0, 0, loc)

	assert.Equal(t, monday, startOfWeek(sunday))
	assert.Equal(t, monday, startOfWeek(monday))
	assert.Equal(t, monday, startOfWeek(time.Date(2026, 10, 14, 23, 59, 0, 0, loc)))
}

func TestStatsRangePresets(t *testing.T) {
	loc := mxLoc(t)
	now := time.Date(2026, 10, 15, 13, 30, 0, 0, loc) // jueves

	from, to, err := statsRange(PresetToday, "", "", now, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, loc), from)
	assert.Equal(t, time.Date(2026, 10, 15, 23, 59, 59, int(999*time.Millisecond), loc), to)

	from, to, err = statsRange(PresetWeek, "", "", now, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, loc), from)
	assert.Equal(t, 18, to.Day())

	from, to, err = statsRange(PresetMonth, "", "", now, loc)
	require.NoError(t, err)
	assert.Equal(t, 1, from.Day())
	assert.Equal(t, 31, to.Day())

	from, to, err = statsRange(PresetCustom, "2026-10-09", "2026-10-01", now, loc)
	require.NoError(t, err)
	assert.Equal(t, 1, from.Day())
	assert.Equal(t, 9, to.Day())

	_, _, err = statsRange(PresetCustom, "2026-10-01", "", now, loc)
	assert.Error(t, err)
}

func TestPreviousRangeHasSameLength(t *testing.T) {
	loc := mxLoc(t)
	from, to := clampRange(time.Date(2026, 10, 12, 0, 0, 0, 0, loc), time.Date(2026, 10, 18, 0, 0, 0, 0, loc))

	pf, pt := previousRange(from, to)
	assert.Equal(t, time.Date(2026, 10, 5, 0, 0, 0, 0, loc), pf)
	assert.Equal(t, 11, pt.Day())
	assert.Equal(t, daysInclusive(from, to), daysInclusive(pf, pt))
	assert.Equal(t, 7, daysInclusive(from, to))
}

func TestBucketizeLabels(t *testing.T) {
	loc := mxLoc(t)
	times := []time.Time{
		time.Date(2026, 10, 13, 18, 0, 0, 0, time.UTC), // martes 12:00 local
		time.Date(2026, 10, 13, 5, 0, 0, 0, time.UTC),  // lunes 23:00 local
		time.Date(2026, 10, 20, 16, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, []StatsBucket{
		{Label: "2026-10-12", Count: 1},
		{Label: "2026-10-13", Count: 1},
		{Label: "2026-10-20", Count: 1},
	}, bucketize(times, GroupDay, loc))

	assert.Equal(t, []StatsBucket{
		{Label: "Semana 2026-10-12", Count: 2},
		{Label: "Semana 2026-10-19", Count: 1},
	}, bucketize(times, GroupWeek, loc))

	assert.Equal(t, []StatsBucket{{Label: "2026-10", Count: 3}}, bucketize(times, GroupMonth, loc))
}

func TestBuildMetrics(t *testing.T) {
	m := buildMetrics([]StatsBucket{{"a", 2}, {"b", 5}, {"c", 5}}, 12, 8, 7)
	assert.Equal(t, 7, m.Days)
	assert.Equal(t, 1.71, m.AvgPerDay)
	assert.Equal(t, "b", m.PeakLabel)
	assert.Equal(t, 5, m.PeakCount)
	assert.Equal(t, 4, m.Delta)
	require.NotNil(t, m.DeltaPct)
	assert.Equal(t, 50.0, *m.DeltaPct)

	empty := buildMetrics(nil, 0, 0, 1)
	assert.Equal(t, "-", empty.PeakLabel)
	assert.Zero(t, empty.PeakCount)
	assert.Nil(t, empty.DeltaPct)
	assert.Zero(t, empty.AvgPerDay)
}

func TestMixStatsComparesWithPreviousPeriod(t *testing.T) {
	svc, store := newMemService(t)
	loc := mxLoc(t)
	svc.now = func() time.Time { return time.Date(2026, 10, 15, 10, 0, 0, 0, loc) }
	branch := uuid.New()
	other := uuid.New()

	// semana actual (12-18 oct): 3 en la sucursal, 1 en otra
	store.seed(branch, 1, time.Date(2026, 10, 12, 15, 0, 0, 0, loc).UTC())
	store.seed(branch, 2, time.Date(2026, 10, 14, 9, 0, 0, 0, loc).UTC())
	store.seed(branch, 3, time.Date(2026, 10, 14, 17, 0, 0, 0, loc).UTC())
	store.seed(other, 1, time.Date(2026, 10, 14, 17, 0, 0, 0, loc).UTC())
	// semana anterior: 2
	store.seed(branch, 4, time.Date(2026, 10, 6, 12, 0, 0, 0, loc).UTC())
	store.seed(branch, 5, time.Date(2026, 10, 11, 23, 0, 0, 0, loc).UTC())

	res, err := svc.MixStats(context.Background(), StatsInput{BranchID: &branch, Preset: "week", Group: "day"})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, []StatsBucket{{"2026-10-12", 1}, {"2026-10-14", 2}}, res.Series)
	assert.Equal(t, 7, res.Metrics.Days)
	assert.Equal(t, 0.43, res.Metrics.AvgPerDay)
	assert.Equal(t, "2026-10-14", res.Metrics.PeakLabel)
	assert.Equal(t, 2, res.Metrics.PrevTotal)
	assert.Equal(t, 1, res.Metrics.Delta)
	require.NotNil(t, res.Metrics.DeltaPct)
	assert.Equal(t, 50.0, *res.Metrics.DeltaPct)

	all, err := svc.MixStats(context.Background(), StatsInput{Preset: "week", Group: "week"})
	require.NoError(t, err)
	assert.Equal(t, 4, all.Total)
	assert.Equal(t, []StatsBucket{{"Semana 2026-10-12", 4}}, all.Series)
}
