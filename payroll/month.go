package payroll

import (
	"fmt"
	"time"
)

// =============================================================================
// MONTH - The grain every payroll computation runs at
// =============================================================================

// Month identifies one calendar month. It is the key of a PayrollCycle and
// the unit the backfill generator iterates over.
type Month struct {
	Year  int
	Month time.Month
}

func NewMonth(year int, month time.Month) Month {
	return Month{Year: year, Month: month}
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// CurrentMonth returns the month containing now (UTC).
func CurrentMonth() Month {
	return MonthOf(time.Now().UTC())
}

// Start returns midnight UTC on the first day of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns midnight UTC on the last day of the month.
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0).AddDate(0, 0, -1)
}

// Days returns the number of calendar days in the month. Every month has at
// least 28 days, so callers never divide by zero when prorating.
func (m Month) Days() int {
	return m.End().Day()
}

func (m Month) Next() Month     { return MonthOf(m.Start().AddDate(0, 1, 0)) }
func (m Month) Previous() Month { return MonthOf(m.Start().AddDate(0, -1, 0)) }

// Comparison
func (m Month) Equal(o Month) bool { return m.Year == o.Year && m.Month == o.Month }
func (m Month) Before(o Month) bool {
	return m.Year < o.Year || (m.Year == o.Year && m.Month < o.Month)
}
func (m Month) After(o Month) bool { return o.Before(m) }

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

// MonthsBetween returns every month in [from, to), oldest first. Each element
// is an independent unit of work: the backfill loop treats the slice as a
// generator whose iterations are individually idempotent, so a crash between
// months leaves nothing to repair beyond re-reading.
func MonthsBetween(from, to Month) []Month {
	var months []Month
	for current := from; current.Before(to); current = current.Next() {
		months = append(months, current)
	}
	return months
}
