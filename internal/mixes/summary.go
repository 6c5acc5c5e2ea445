package mixes

import (
	"context"
	"sort"
	"strings"

	"pinturas-backend/internal/validation"

	"github.com/google/uuid"
)

type SummaryInput struct {
	BranchID *uuid.UUID // nil: all branches
	From     string     // YYYY-MM-DD, required
	To       string     // YYYY-MM-DD, required, inclusive
	Group    string
}

type BranchTotal struct {
	BranchID   uuid.UUID `json:"branch_id"`
	BranchName string    `json:"branch_name"`
	Count      int       `json:"count"`
}

type SummaryBucket struct {
	Label    string         `json:"label"`
	Total    int            `json:"total"`
	ByBranch map[string]int `json:"by_branch"`
}

type SummaryResult struct {
	From           string          `json:"from"`
	To             string          `json:"to"`
	Group          string          `json:"group"`
	BranchID       *uuid.UUID      `json:"branch_id"`
	Total          int             `json:"total"`
	TotalsByBranch []BranchTotal   `json:"totals_by_branch"`
	Series         []SummaryBucket `json:"series"`
}

// MixSummary counts mixes per branch and per bucket over the calendar days
// [from, to] in the branch timezone.
func (s *Service) MixSummary(ctx context.Context, in SummaryInput) (*SummaryResult, error) {
	fromQ := strings.TrimSpace(in.From)
	toQ := strings.TrimSpace(in.To)
	if fromQ == "" {
		return nil, validation.Invalid("from", "required")
	}
	if toQ == "" {
		return nil, validation.Invalid("to", "required")
	}

	group := strings.ToLower(strings.TrimSpace(in.Group))
	if group == "" {
		group = GroupDay
	}
	if group != GroupDay && group != GroupWeek && group != GroupMonth {
		return nil, validation.Invalid("group", "oneof")
	}

	start, err := parseDay(fromQ, s.loc)
	if err != nil {
		return nil, validation.Invalid("from", "datetime")
	}
	end, err := parseDay(toQ, s.loc)
	if err != nil {
		return nil, validation.Invalid("to", "datetime")
	}
	if end.Before(start) {
		return nil, validation.Invalid("to", "gtefield")
	}

	stamps, err := s.store.Stamps(ctx, in.BranchID, start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	totals := map[uuid.UUID]*BranchTotal{}
	buckets := map[int64]*SummaryBucket{}
	var keys []int64
	for _, st := range stamps {
		bt, ok := totals[st.BranchID]
		if !ok {
			name := st.BranchName
			if name == "" {
				name = st.BranchID.String()
			}
			bt = &BranchTotal{BranchID: st.BranchID, BranchName: name}
			totals[st.BranchID] = bt
		}
		bt.Count++

		key := bucketStart(st.CreatedAt, group, s.loc)
		b, ok := buckets[key.Unix()]
		if !ok {
			b = &SummaryBucket{Label: bucketLabel(group, key), ByBranch: map[string]int{}}
			buckets[key.Unix()] = b
			keys = append(keys, key.Unix())
		}
		b.Total++
		b.ByBranch[st.BranchID.String()]++
	}

	res := &SummaryResult{
		From:           fromQ,
		To:             toQ,
		Group:          group,
		BranchID:       in.BranchID,
		Total:          len(stamps),
		TotalsByBranch: make([]BranchTotal, 0, len(totals)),
		Series:         make([]SummaryBucket, 0, len(keys)),
	}

	for _, bt := range totals {
		res.TotalsByBranch = append(res.TotalsByBranch, *bt)
	}
	sort.Slice(res.TotalsByBranch, func(i, j int) bool {
		return res.TotalsByBranch[i].BranchName < res.TotalsByBranch[j].BranchName
	})

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		res.Series = append(res.Series, *buckets[k])
	}
	return res, nil
}
