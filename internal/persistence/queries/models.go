package queries

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type AttendanceRecord struct {
	ID                int64              `json:"id"`
	UserID            string             `json:"user_id"`
	UserName          string             `json:"user_name"`
	FirstName         string             `json:"first_name"`
	LastName          string             `json:"last_name"`
	Email             string             `json:"email"`
	Timestamp         pgtype.Timestamptz `json:"timestamp"`
	Message           string             `json:"message"`
	Category          string             `json:"category"`
	IsWorkingFromHome bool               `json:"is_working_from_home"`
	IsLeaveRequested  bool               `json:"is_leave_requested"`
	IsComingLate      bool               `json:"is_coming_late"`
	IsLeavingEarly    bool               `json:"is_leaving_early"`
	StartDate         pgtype.Date        `json:"start_date"`
	EndDate           pgtype.Date        `json:"end_date"`
	Reason            pgtype.Text        `json:"reason"`
	DurationDays      float64            `json:"duration_days"`
	Confidence        float64            `json:"confidence"`
	ChannelID         string             `json:"channel_id"`
	MessageTs         string             `json:"message_ts"`
}
