package queries

import (
	"github.com/jackc/pgx/v5"
)

// ScanRecord reads one row selected with the full attendance column list.
func ScanRecord(row pgx.Row) (AttendanceRecord, error) {
	var i AttendanceRecord
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.UserName,
		&i.FirstName,
		&i.LastName,
		&i.Email,
		&i.Timestamp,
		&i.Message,
		&i.Category,
		&i.IsWorkingFromHome,
		&i.IsLeaveRequested,
		&i.IsComingLate,
		&i.IsLeavingEarly,
		&i.StartDate,
		&i.EndDate,
		&i.Reason,
		&i.DurationDays,
		&i.Confidence,
		&i.ChannelID,
		&i.MessageTs,
	)
	return i, err
}
