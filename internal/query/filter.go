package query

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
)

// aliases maps legacy column names onto current ones.
var aliases = map[string]string{
	"is_leave_early": attendance.ColIsLeavingEarly,
}

// TimeRange resolves tf to an instant range ending at now.
func TimeRange(tf TimeFrame, now time.Time, loc *time.Location) (time.Time, time.Time) {
	if tf.IsRange() {
		return tf.Start, tf.End
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	switch tf.Preset {
	case FrameDay:
		y, m, d := local.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), now
	case FrameWeek:
		return local.AddDate(0, 0, -7), now
	case FrameMonth:
		return local.AddDate(0, -1, 0), now
	case FrameQuarter:
		return local.AddDate(0, -3, 0), now
	default:
		return local.AddDate(0, 0, -7), now
	}
}

// BuildFilter turns p into a store Filter. It also returns the filter keys
// it ignored, sorted.
func BuildFilter(p Params, now time.Time, loc *time.Location) (attendance.Filter, []string) {
	f := attendance.Filter{Bools: map[string]bool{}}
	var dropped []string

	if p.Category != "" && p.Category != CategoryAll {
		f.Category = attendance.Category(p.Category)
	}

	dateFiltered := false
	for key, raw := range p.Filters {
		col := key
		if alias, ok := aliases[key]; ok {
			col = alias
		}

		switch {
		case attendance.BoolColumns[col]:
			b, ok := asBool(raw)
			if !ok {
				dropped = append(dropped, key)
				continue
			}
			f.Bools[col] = b

		case col == attendance.ColUserName:
			s, ok := raw.(string)
			if !ok || strings.TrimSpace(s) == "" {
				dropped = append(dropped, key)
				continue
			}
			f.UserNameLike = strings.TrimSpace(s)

		case col == attendance.ColUserID:
			s, ok := raw.(string)
			if !ok || s == "" {
				dropped = append(dropped, key)
				continue
			}
			f.UserID = s

		case col == attendance.ColCategory:
			s, _ := raw.(string)
			c := attendance.MapLabel(s)
			if !c.Valid() {
				dropped = append(dropped, key)
				continue
			}
			if f.Category == "" {
				f.Category = c
			}

		case attendance.RangeColumns[col]:
			preds := rangePredicates(col, raw)
			if len(preds) == 0 {
				dropped = append(dropped, key)
				continue
			}
			f.Ranges = append(f.Ranges, preds...)
			if col != attendance.ColTimestamp {
				dateFiltered = true
			}

		default:
			dropped = append(dropped, key)
		}
	}
	sort.Strings(dropped)
	sort.Slice(f.Ranges, func(i, j int) bool {
		if f.Ranges[i].Column != f.Ranges[j].Column {
			return f.Ranges[i].Column < f.Ranges[j].Column
		}
		return f.Ranges[i].Op < f.Ranges[j].Op
	})

	switch {
	case p.TimeFrame.IsRange():
		f.Overlap = &attendance.DateRange{
			Start: attendance.DateOf(p.TimeFrame.Start, nil),
			End:   attendance.DateOf(p.TimeFrame.End, nil),
		}
	case !dateFiltered:
		start, end := TimeRange(p.TimeFrame, now, loc)
		f.Overlap = &attendance.DateRange{
			Start: attendance.DateOf(start, loc),
			End:   attendance.DateOf(end, loc),
		}
	}

	// list replies show p.Limit rows and mention the remainder; the extra
	// row tells Format the remainder was cut off. Aggregates need every row.
	if p.QueryType == TypeList {
		f.Limit = MaxLimit + 1
	}
	return f, dropped
}

func asBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	default:
		return false, false
	}
}

func rangePredicates(col string, raw any) []attendance.RangePredicate {
	obj, ok := raw.(map[string]any)
	if !ok {
		// a bare value means equality
		s, isStr := raw.(string)
		if !isStr {
			return nil
		}
		obj = map[string]any{string(attendance.OpEQ): s}
	}

	var preds []attendance.RangePredicate
	for _, op := range []attendance.RangeOp{attendance.OpGTE, attendance.OpLTE, attendance.OpEQ} {
		s, ok := obj[string(op)].(string)
		if !ok || s == "" {
			continue
		}
		t, err := ParseValue(s)
		if err != nil {
			continue
		}
		if col != attendance.ColTimestamp {
			t = attendance.DateOf(t, nil)
		} else if op == attendance.OpLTE && len(strings.TrimSpace(s)) == len(attendance.DateLayout) {
			t = t.Add(24*time.Hour - time.Microsecond)
		}
		preds = append(preds, attendance.RangePredicate{Column: col, Op: op, Value: t})
	}
	return preds
}
