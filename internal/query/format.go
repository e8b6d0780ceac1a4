package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
)

const (
	NoResults   = "No matching records found for your query."
	displayDate = "2 Jan 2006"
)

// Format renders records as a Slack mrkdwn reply.
func Format(p Params, records []attendance.Record) string {
	if len(records) == 0 {
		return NoResults
	}
	switch p.QueryType {
	case TypeCount:
		return formatCount(p, records)
	case TypeSummary:
		return formatSummary(p, records)
	case TypeTrend:
		return formatTrend(p, records)
	default:
		return formatList(p, records)
	}
}

// TimeFrameText describes tf for headers.
func TimeFrameText(tf TimeFrame) string {
	if tf.IsRange() {
		return tf.Start.Format(attendance.DateLayout) + " to " + tf.End.Format(attendance.DateLayout)
	}
	switch tf.Preset {
	case FrameDay:
		return "Today"
	case FrameWeek:
		return "This Week"
	case FrameMonth:
		return "This Month"
	case FrameQuarter:
		return "This Quarter"
	default:
		return "Selected Period"
	}
}

func categoryTitle(category string) string {
	if category == "" || category == CategoryAll {
		return "ATTENDANCE"
	}
	return strings.ToUpper(attendance.Category(category).Pretty())
}

type bucket struct {
	key   string
	count int
}

// tally counts records by key, most frequent first, ties by key.
func tally(records []attendance.Record, key func(attendance.Record) string) []bucket {
	counts := map[string]int{}
	for _, r := range records {
		counts[key(r)]++
	}
	out := make([]bucket, 0, len(counts))
	for k, n := range counts {
		out = append(out, bucket{k, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func formatCount(p Params, records []attendance.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d matching records.", len(records))
	if p.GroupBy != GroupByUser {
		return b.String()
	}

	top := p.Limit
	if top <= 0 {
		top = 5
	}
	users := tally(records, attendance.Record.DisplayName)
	if len(users) > top {
		users = users[:top]
	}

	fmt.Fprintf(&b, "\n\n*%s Summary for %s*\n", categoryTitle(p.Category), TimeFrameText(p.TimeFrame))
	for i, u := range users {
		fmt.Fprintf(&b, "%d. %s: %d %s\n", i+1, u.key, u.count, plural(u.count, "time", "times"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSummary(p Params, records []attendance.Record) string {
	key := attendance.Record.DisplayName
	switch p.GroupBy {
	case GroupByCategory:
		key = func(r attendance.Record) string { return r.Category.Pretty() }
	case GroupByDay:
		key = func(r attendance.Record) string { return r.StartDate.Format(attendance.DateLayout) }
	}

	lines := []string{"*Summary Report:*"}
	for _, g := range tally(records, key) {
		lines = append(lines, fmt.Sprintf("• %s: %d %s", g.key, g.count, plural(g.count, "record", "records")))
	}
	return strings.Join(lines, "\n")
}

func formatTrend(p Params, records []attendance.Record) string {
	days := map[string]int{}
	peak := 0
	for _, r := range records {
		d := r.StartDate.Format(attendance.DateLayout)
		days[d]++
		if days[d] > peak {
			peak = days[d]
		}
	}
	keys := make([]string, 0, len(days))
	for d := range days {
		keys = append(keys, d)
	}
	sort.Strings(keys)

	scale := 1.0
	if peak > 10 {
		scale = 10 / float64(peak)
	}

	lines := []string{fmt.Sprintf("*%s Trend for %s*", categoryTitle(p.Category), TimeFrameText(p.TimeFrame)), ""}
	for _, d := range keys {
		n := days[d]
		width := int(float64(n) * scale)
		if float64(width) < float64(n)*scale {
			width++
		}
		lines = append(lines, fmt.Sprintf("%s: %s (%d)", d, strings.Repeat("█", width), n))
	}
	return strings.Join(lines, "\n")
}

func formatList(p Params, records []attendance.Record) string {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	shown := records
	if len(shown) > limit {
		shown = shown[:limit]
	}

	blocks := make([]string, 0, len(shown)+1)
	for _, r := range shown {
		msg := strings.TrimSpace(r.Message)
		if msg == "" {
			msg = "No message provided"
		}
		blocks = append(blocks, fmt.Sprintf("👤 *%s*\n  📅 Dates: %s - %s\n  🏷️ Type: %s\n  📝 %s",
			r.DisplayName(),
			r.StartDate.Format(displayDate),
			r.EndDate.Format(displayDate),
			r.Category.Pretty(),
			msg,
		))
	}
	switch extra := len(records) - len(shown); {
	case len(records) > MaxLimit:
		blocks = append(blocks, fmt.Sprintf("_...and %d+ more records_", MaxLimit-len(shown)))
	case extra > 0:
		blocks = append(blocks, fmt.Sprintf("_...and %d more records_", extra))
	}
	return strings.Join(blocks, "\n\n")
}
