// Package sqlfilter renders an attendance.Filter as a parameterised SELECT.
// Column names are only ever taken from the attendance whitelists.
package sqlfilter

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
)

// Table is the attendance table name.
const Table = "attendance_records"

// Columns is the column list every record query selects, in scan order.
const Columns = "id, user_id, user_name, first_name, last_name, email, timestamp, message, category, " +
	"is_working_from_home, is_leave_requested, is_coming_late, is_leaving_early, " +
	"start_date, end_date, reason, duration_days, confidence, channel_id, message_ts"

// Dialect adapts the builder to a SQL engine.
type Dialect struct {
	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// Like is the case-insensitive match operator.
	Like string
	// Value converts a time bound for the given column.
	Value func(column string, t time.Time) any
}

// Postgres binds $n parameters and passes times through to pgx.
var Postgres = Dialect{
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	Like:        "ILIKE",
	Value:       func(_ string, t time.Time) any { return t },
}

var ops = map[attendance.RangeOp]string{
	attendance.OpGTE: ">=",
	attendance.OpLTE: "<=",
	attendance.OpEQ:  "=",
}

type builder struct {
	d     Dialect
	where []string
	args  []any
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

func (b *builder) add(cond string) {
	b.where = append(b.where, cond)
}

// EscapeLike escapes LIKE wildcards with a backslash.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Build returns the query text and its arguments.
func Build(f attendance.Filter, d Dialect) (string, []any) {
	b := &builder{d: d}

	if f.UserID != "" {
		b.add(attendance.ColUserID + " = " + b.bind(f.UserID))
	}
	if f.Category != "" {
		b.add(attendance.ColCategory + " = " + b.bind(string(f.Category)))
	}

	cols := make([]string, 0, len(f.Bools))
	for col := range f.Bools {
		if attendance.BoolColumns[col] {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)
	for _, col := range cols {
		b.add(col + " = " + b.bind(f.Bools[col]))
	}

	if f.UserNameLike != "" {
		b.add(attendance.ColUserName + " " + d.Like + " " + b.bind("%"+EscapeLike(f.UserNameLike)+"%") + ` ESCAPE '\'`)
	}

	for _, p := range f.Ranges {
		op, ok := ops[p.Op]
		if !ok || !attendance.RangeColumns[p.Column] {
			continue
		}
		b.add(p.Column + " " + op + " " + b.bind(d.Value(p.Column, p.Value)))
	}

	if f.Overlap != nil {
		b.add(attendance.ColStartDate + " <= " + b.bind(d.Value(attendance.ColStartDate, f.Overlap.End)))
		b.add(attendance.ColEndDate + " >= " + b.bind(d.Value(attendance.ColEndDate, f.Overlap.Start)))
	}

	var q strings.Builder
	q.WriteString("SELECT " + Columns + " FROM " + Table)
	if len(b.where) > 0 {
		q.WriteString(" WHERE " + strings.Join(b.where, " AND "))
	}
	q.WriteString(" ORDER BY timestamp DESC, id DESC")
	if f.Limit > 0 {
		q.WriteString(" LIMIT " + strconv.Itoa(f.Limit))
	}
	return q.String(), b.args
}
