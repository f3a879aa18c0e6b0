// internal/domain/calendar/date_range.go
package calendar

import (
	"fmt"
	"iter"
	"time"
)

// DateLayout is the wire and CSV format for calendar dates.
const DateLayout = "2006-01-02"

// DateRange is an inclusive, day-granularity interval [Start, End].
// A range with Start after End is valid and simply contains no days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange normalizes both endpoints to midnight UTC.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: Truncate(start), End: Truncate(end)}
}

// Year returns the range covering Jan 1 to Dec 31 of the given year.
func Year(year int) DateRange {
	return DateRange{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// Truncate drops the time-of-day, keeping the calendar date as seen in t's location.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextDay returns the calendar day after d.
func NextDay(d time.Time) time.Time {
	return d.AddDate(0, 0, 1)
}

// Len returns the number of days in the range.
func (r DateRange) Len() int {
	if r.Start.After(r.End) {
		return 0
	}
	return int(dayNumber(r.End)-dayNumber(r.Start)) + 1
}

// dayNumber counts whole days since the Unix epoch, flooring before 1970.
func dayNumber(d time.Time) int64 {
	const secondsPerDay = 24 * 60 * 60
	u := d.Unix()
	n := u / secondsPerDay
	if u%secondsPerDay < 0 {
		n-- // floor for dates before 1970
	}
	return n
}

// Days yields every date in the range in ascending order.
// Each call starts a fresh iteration.
func (r DateRange) Days() iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for d := r.Start; !d.After(r.End); d = NextDay(d) {
			if !yield(d) {
				return
			}
		}
	}
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format(DateLayout), r.End.Format(DateLayout))
}
