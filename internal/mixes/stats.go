package mixes

import (
	"context"
	"sort"
	"strings"
	"time"

	"pinturas-backend/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PresetToday  = "today"
	PresetWeek   = "week"
	PresetMonth  = "month"
	PresetCustom = "custom"

	GroupDay   = "day"
	GroupWeek  = "week"
	GroupMonth = "month"
)

type StatsInput struct {
	BranchID *uuid.UUID // nil: all branches
	Preset   string
	Group    string
	From     string // YYYY-MM-DD, custom only
	To       string
}

type StatsBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type StatsMetrics struct {
	Days      int      `json:"days"`
	AvgPerDay float64  `json:"avg_per_day"`
	PeakLabel string   `json:"peak_label"`
	PeakCount int      `json:"peak_count"`
	PrevTotal int      `json:"prev_total"`
	Delta     int      `json:"delta"`
	DeltaPct  *float64 `json:"delta_pct"`
}

type StatsResult struct {
	Total    int           `json:"total"`
	From     time.Time     `json:"from"`
	To       time.Time     `json:"to"`
	Group    string        `json:"group"`
	BranchID *uuid.UUID    `json:"branch_id"`
	Series   []StatsBucket `json:"series"`
	Metrics  StatsMetrics  `json:"metrics"`
}

// MixStats counts mixes per bucket over a preset or custom calendar range and
// compares the total with the range of equal length right before it.
func (s *Service) MixStats(ctx context.Context, in StatsInput) (*StatsResult, error) {
	preset := strings.ToLower(strings.TrimSpace(in.Preset))
	if preset == "" {
		preset = PresetToday
	}
	group := strings.ToLower(strings.TrimSpace(in.Group))
	if group != GroupWeek && group != GroupMonth {
		group = GroupDay
	}

	from, to, err := statsRange(preset, in.From, in.To, s.now().In(s.loc), s.loc)
	if err != nil {
		return nil, err
	}
	prevFrom, prevTo := previousRange(from, to)

	times, err := s.store.CreatedTimes(ctx, in.BranchID, from, to)
	if err != nil {
		return nil, err
	}
	prevTimes, err := s.store.CreatedTimes(ctx, in.BranchID, prevFrom, prevTo)
	if err != nil {
		return nil, err
	}

	series := bucketize(times, group, s.loc)
	total := len(times)
	days := daysInclusive(from, to)

	res := &StatsResult{
		Total:    total,
		From:     from.UTC(),
		To:       to.UTC(),
		Group:    group,
		BranchID: in.BranchID,
		Series:   series,
		Metrics:  buildMetrics(series, total, len(prevTimes), days),
	}
	return res, nil
}

// statsRange resolves the preset into [first day 00:00, last day 23:59:59.999]
// in loc. Unknown presets mean today.
func statsRange(preset, fromQ, toQ string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	var from, to time.Time

	switch preset {
	case PresetWeek:
		from = startOfWeek(now)
		to = from.AddDate(0, 0, 6)
	case PresetMonth:
		from = startOfMonth(now)
		to = from.AddDate(0, 1, -1)
	case PresetCustom:
		if strings.TrimSpace(fromQ) == "" || strings.TrimSpace(toQ) == "" {
			return time.Time{}, time.Time{}, validation.Invalid("from", "required_with_custom")
		}
		var err error
		if from, err = parseDay(strings.TrimSpace(fromQ), loc); err != nil {
			return time.Time{}, time.Time{}, validation.Invalid("from", "datetime")
		}
		if to, err = parseDay(strings.TrimSpace(toQ), loc); err != nil {
			return time.Time{}, time.Time{}, validation.Invalid("to", "datetime")
		}
	default:
		from, to = now, now
	}

	from, to = clampRange(from, to)
	return from, to, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek: semanas de lunes a domingo.
func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Millisecond)
}

func clampRange(from, to time.Time) (time.Time, time.Time) {
	if startOfDay(to).Before(startOfDay(from)) {
		from, to = to, from
	}
	return startOfDay(from), endOfDay(to)
}

func previousRange(from, to time.Time) (time.Time, time.Time) {
	n := daysInclusive(from, to)
	prevTo := startOfDay(from).AddDate(0, 0, -1)
	prevFrom := prevTo.AddDate(0, 0, -(n - 1))
	return clampRange(prevFrom, prevTo)
}

// daysInclusive counts calendar days between the dates of from and to,
// ignoring DST shifts. Never less than 1.
func daysInclusive(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	days := int(b.Sub(a).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

func bucketLabel(group string, key time.Time) string {
	switch group {
	case GroupWeek:
		return "Semana " + key.Format("2006-01-02")
	case GroupMonth:
		return key.Format("2006-01")
	default:
		return key.Format("2006-01-02")
	}
}

// bucketStart is the local start of the day, week or month holding t.
func bucketStart(t time.Time, group string, loc *time.Location) time.Time {
	local := t.In(loc)
	switch group {
	case GroupWeek:
		return startOfWeek(local)
	case GroupMonth:
		return startOfMonth(local)
	default:
		return startOfDay(local)
	}
}

func bucketize(times []time.Time, group string, loc *time.Location) []StatsBucket {
	counts := make(map[time.Time]int)
	for _, t := range times {
		counts[bucketStart(t, group, loc)]++
	}

	keys := make([]time.Time, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	series := make([]StatsBucket, 0, len(keys))
	for _, k := range keys {
		series = append(series, StatsBucket{Label: bucketLabel(group, k), Count: counts[k]})
	}
	return series
}

func buildMetrics(series []StatsBucket, total, prevTotal, days int) StatsMetrics {
	m := StatsMetrics{
		Days:      days,
		PeakLabel: "-",
		PrevTotal: prevTotal,
		Delta:     total - prevTotal,
	}

	avg := decimal.NewFromInt(int64(total)).DivRound(decimal.NewFromInt(int64(days)), 2)
	m.AvgPerDay = avg.InexactFloat64()

	// first bucket wins ties
	for _, b := range series {
		if b.Count > m.PeakCount {
			m.PeakLabel = b.Label
			m.PeakCount = b.Count
		}
	}

	if prevTotal > 0 {
		pct := decimal.NewFromInt(int64(m.Delta)).
			Mul(decimal.NewFromInt(100)).
			DivRound(decimal.NewFromInt(int64(prevTotal)), 1).
			InexactFloat64()
		m.DeltaPct = &pct
	}
	return m
}
