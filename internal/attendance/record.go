package attendance

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// UnknownUser is stored when the Slack profile cannot be resolved.
const UnknownUser = "Unknown User"

// Source records which path produced a classification or extraction.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceText     Source = "text"
	SourceFallback Source = "fallback"
)

// Classification is the result of categorising a message.
type Classification struct {
	Label      string   `json:"label"`
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Source     Source   `json:"source"`
}

// Details carries the structured facts pulled out of a message.
// StartDate and EndDate are calendar dates at midnight UTC.
type Details struct {
	IsWorkingFromHome bool      `json:"isWorkingFromHome"`
	IsLeaveRequest    bool      `json:"isLeaveRequest"`
	IsRunningLate     bool      `json:"isRunningLate"`
	IsLeavingEarly    bool      `json:"isLeavingEarly"`
	Reason            *string   `json:"reason"`
	StartDate         time.Time `json:"startDate"`
	EndDate           time.Time `json:"endDate"`
	DurationDays      float64   `json:"durationDays"`
	OriginalMessage   string    `json:"originalMessage"`
	ExtractedAt       time.Time `json:"extractedAt"`
	Source            Source    `json:"source"`
}

// Profile is the subset of a Slack user profile kept on each record.
type Profile struct {
	UserID    string
	RealName  string
	FirstName string
	LastName  string
	Email     string
}

// Message is an incoming chat message, independent of the transport.
type Message struct {
	UserID    string
	ChannelID string
	Text      string
	TS        string
	// OriginalTS is the ts of the message an edit replaces.
	OriginalTS string
	IsEdit     bool
}

// Record is one row of the attendance table.
type Record struct {
	ID                int64     `json:"id"`
	UserID            string    `json:"user_id"`
	UserName          string    `json:"user_name"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Email             string    `json:"email"`
	Timestamp         time.Time `json:"timestamp"`
	Message           string    `json:"message"`
	Category          Category  `json:"category"`
	IsWorkingFromHome bool      `json:"is_working_from_home"`
	IsLeaveRequested  bool      `json:"is_leave_requested"`
	IsComingLate      bool      `json:"is_coming_late"`
	IsLeavingEarly    bool      `json:"is_leaving_early"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	Reason            *string   `json:"reason,omitempty"`
	DurationDays      float64   `json:"duration_days"`
	Confidence        float64   `json:"confidence"`
	ChannelID         string    `json:"channel_id"`
	MessageTS         string    `json:"message_ts"`
}

// DisplayName prefers the stored real name, then first and last name.
func (r Record) DisplayName() string {
	if r.UserName != "" && r.UserName != UnknownUser {
		return r.UserName
	}
	if full := strings.TrimSpace(r.FirstName + " " + r.LastName); full != "" {
		return full
	}
	if r.UserName != "" {
		return r.UserName
	}
	return UnknownUser
}

// ParseSlackTS converts a Slack ts ("1712345678.000200") to a UTC time with
// microsecond precision.
func ParseSlackTS(ts string) (time.Time, error) {
	secPart, fracPart, _ := strings.Cut(strings.TrimSpace(ts), ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slack ts %q: %w", ts, err)
	}
	var micros int64
	if fracPart != "" {
		if len(fracPart) > 6 {
			fracPart = fracPart[:6]
		}
		fracPart += strings.Repeat("0", 6-len(fracPart))
		if micros, err = strconv.ParseInt(fracPart, 10, 64); err != nil {
			return time.Time{}, fmt.Errorf("invalid slack ts %q: %w", ts, err)
		}
	}
	return time.Unix(sec, micros*int64(time.Microsecond)).UTC(), nil
}

// DateOf truncates t to its calendar date in loc and returns it as midnight UTC.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// NewRecord assembles the row persisted for msg.
func NewRecord(msg Message, p Profile, c Classification, d Details) (Record, error) {
	ts, err := ParseSlackTS(msg.TS)
	if err != nil {
		return Record{}, err
	}

	name := p.RealName
	if name == "" {
		name = UnknownUser
	}

	start, end := d.StartDate, d.EndDate
	if end.Before(start) {
		end = start
	}

	return Record{
		UserID:            msg.UserID,
		UserName:          name,
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		Email:             p.Email,
		Timestamp:         ts,
		Message:           msg.Text,
		Category:          c.Category,
		IsWorkingFromHome: d.IsWorkingFromHome,
		IsLeaveRequested:  d.IsLeaveRequest,
		IsComingLate:      d.IsRunningLate,
		IsLeavingEarly:    d.IsLeavingEarly,
		StartDate:         start,
		EndDate:           end,
		Reason:            d.Reason,
		DurationDays:      d.DurationDays,
		Confidence:        c.Confidence,
		ChannelID:         msg.ChannelID,
		MessageTS:         msg.TS,
	}, nil
}
