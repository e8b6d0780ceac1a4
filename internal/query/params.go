// Package query answers natural-language questions about attendance records.
package query

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
)

type Type string

const (
	TypeList    Type = "list"
	TypeCount   Type = "count"
	TypeTrend   Type = "trend"
	TypeSummary Type = "summary"
)

type GroupBy string

const (
	GroupByUser     GroupBy = "user"
	GroupByDay      GroupBy = "day"
	GroupByCategory GroupBy = "category"
)

// Preset time frames.
const (
	FrameDay     = "day"
	FrameWeek    = "week"
	FrameMonth   = "month"
	FrameQuarter = "quarter"
)

// CategoryAll disables the category filter.
const CategoryAll = "all"

const (
	DefaultLimit = 10
	MaxLimit     = 200
	// DefaultTopUsers is the default length of a per-user count ranking.
	DefaultTopUsers = 5
)

// TimeFrame is either a preset or an explicit inclusive range.
type TimeFrame struct {
	Preset string
	Start  time.Time
	End    time.Time
}

// IsRange reports whether tf carries explicit bounds.
func (tf TimeFrame) IsRange() bool {
	return !tf.Start.IsZero() && !tf.End.IsZero()
}

type rangeJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (tf *TimeFrame) UnmarshalJSON(b []byte) error {
	*tf = TimeFrame{}
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null" || s == "":
		return nil
	case strings.HasPrefix(s, `"`):
		var preset string
		if err := json.Unmarshal(b, &preset); err != nil {
			return err
		}
		tf.Preset = strings.ToLower(strings.TrimSpace(preset))
		return nil
	case strings.HasPrefix(s, "{"):
		var r rangeJSON
		if err := json.Unmarshal(b, &r); err != nil {
			return err
		}
		start, err1 := ParseValue(r.Start)
		end, err2 := ParseValue(r.End)
		if err1 == nil && err2 == nil {
			tf.Start, tf.End = start, end
		}
		return nil
	default:
		return fmt.Errorf("unsupported timeFrame %s", s)
	}
}

func (tf TimeFrame) MarshalJSON() ([]byte, error) {
	if tf.IsRange() {
		return json.Marshal(rangeJSON{
			Start: tf.Start.Format(attendance.DateLayout),
			End:   tf.End.Format(attendance.DateLayout),
		})
	}
	return json.Marshal(tf.Preset)
}

// Params is the structured form of a question.
type Params struct {
	QueryType Type      `json:"queryType"`
	Category  string    `json:"category"`
	TimeFrame TimeFrame `json:"timeFrame"`
	GroupBy   GroupBy   `json:"groupBy"`
	Limit     int       `json:"limit"`
	// Filters maps a column to a bool, a string or a {gte,lte,eq} object.
	Filters map[string]any `json:"filters"`
}

// ParseValue reads a filter value written as a date or an RFC 3339 timestamp.
func ParseValue(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}
	return attendance.ParseDate(s)
}

// validate fills defaults and coerces unknown values.
func validate(p Params) Params {
	switch p.QueryType {
	case TypeList, TypeCount, TypeTrend, TypeSummary:
	default:
		p.QueryType = TypeList
	}

	cat := strings.TrimSpace(p.Category)
	if cat == "" || strings.EqualFold(cat, CategoryAll) {
		p.Category = CategoryAll
	} else if c := attendance.MapLabel(cat); c.Valid() {
		p.Category = string(c)
	} else {
		p.Category = CategoryAll
	}

	if !p.TimeFrame.IsRange() {
		switch p.TimeFrame.Preset {
		case FrameDay, FrameWeek, FrameMonth, FrameQuarter:
		default:
			p.TimeFrame = TimeFrame{Preset: FrameDay}
		}
	}

	switch p.GroupBy {
	case GroupByUser, GroupByDay, GroupByCategory:
	default:
		p.GroupBy = GroupByUser
	}

	switch {
	case p.Limit <= 0 && p.QueryType == TypeCount:
		p.Limit = DefaultTopUsers
	case p.Limit <= 0:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}

	if p.Filters == nil {
		p.Filters = map[string]any{}
	}
	return p
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var categoryFlag = map[attendance.Category]string{
	attendance.CategoryWFH:        attendance.ColIsWorkingFromHome,
	attendance.CategoryFullLeave:  attendance.ColIsLeaveRequested,
	attendance.CategoryComeLate:   attendance.ColIsComingLate,
	attendance.CategoryLeaveEarly: attendance.ColIsLeavingEarly,
}

// Fallback derives Params from keywords in text.
func Fallback(text string) Params {
	t := strings.ToLower(text)
	p := Params{Filters: map[string]any{}}

	switch {
	case containsAny(t, "count", "how many"):
		p.QueryType = TypeCount
	case containsAny(t, "trend", "over time"):
		p.QueryType = TypeTrend
	case containsAny(t, "summary", "report"):
		p.QueryType = TypeSummary
	default:
		p.QueryType = TypeList
	}

	var cat attendance.Category
	switch {
	case containsAny(t, "wfh", "work from home"):
		cat = attendance.CategoryWFH
	case strings.Contains(t, "half day"):
		cat = attendance.CategoryHalfLeave
	case containsAny(t, "leave", "off"):
		cat = attendance.CategoryFullLeave
	case strings.Contains(t, "late"):
		cat = attendance.CategoryComeLate
	case strings.Contains(t, "early"):
		cat = attendance.CategoryLeaveEarly
	}
	if cat == "" {
		p.Category = CategoryAll
	} else {
		p.Category = string(cat)
		if col, ok := categoryFlag[cat]; ok {
			p.Filters[col] = true
		}
	}

	switch {
	case strings.Contains(t, "week"):
		p.TimeFrame = TimeFrame{Preset: FrameWeek}
	case strings.Contains(t, "month"):
		p.TimeFrame = TimeFrame{Preset: FrameMonth}
	case strings.Contains(t, "quarter"):
		p.TimeFrame = TimeFrame{Preset: FrameQuarter}
	default:
		p.TimeFrame = TimeFrame{Preset: FrameDay}
	}

	return validate(p)
}
