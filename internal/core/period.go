package core

import (
	"iter"
	"strconv"
	"strings"
	"time"
)

// Dated is implemented by records that can be placed on the calendar.
// An empty RecordDate means the record has no date.
type Dated interface {
	RecordDate() Date
}

// Period is an inclusive date range. Either bound may be open; the zero Period
// matches everything, including undated records.
type Period struct {
	Start Date
	End   Date
}

// ParseDate parses YYYY-MM-DD. A day past the end of its month is clamped to
// the month's last day, so 2025-04-31 becomes 2025-04-30.
func ParseDate(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return Date{}, ErrInvalidDate
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return Date{}, ErrInvalidDate
		}
		n[i] = v
	}
	year, month, day := n[0], n[1], n[2]
	if year < 1 || month < 1 || month > 12 || day < 1 {
		return Date{}, ErrInvalidDate
	}
	if last := LastDayOfMonth(year, time.Month(month)); day > last {
		day = last
	}
	return NewDate(year, month, day), nil
}

// LastDayOfMonth returns the number of days in the given month.
func LastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NewPeriod builds a Period from optional YYYY-MM-DD strings. Empty strings
// leave the corresponding bound open.
func NewPeriod(start, end string) (Period, error) {
	var p Period
	var err error
	if strings.TrimSpace(start) != "" {
		if p.Start, err = ParseDate(start); err != nil {
			return Period{}, &ValidationError{Field: "data_inicio", Err: err}
		}
	}
	if strings.TrimSpace(end) != "" {
		if p.End, err = ParseDate(end); err != nil {
			return Period{}, &ValidationError{Field: "data_fim", Err: err}
		}
	}
	if !p.Start.IsEmpty() && !p.End.IsEmpty() && p.Start.After(p.End.Time) {
		return Period{}, &ValidationError{Field: "data_inicio", Err: ErrInvertedPeriod}
	}
	return p, nil
}

// MonthPeriod covers a whole calendar month.
func MonthPeriod(year int, month time.Month) Period {
	return Period{
		Start: NewDate(year, int(month), 1),
		End:   NewDate(year, int(month), LastDayOfMonth(year, month)),
	}
}

// Bounded reports whether at least one bound is set.
func (p Period) Bounded() bool {
	return !p.Start.IsEmpty() || !p.End.IsEmpty()
}

// Contains reports whether d falls within the period. Undated values only
// belong to an unbounded period.
func (p Period) Contains(d Date) bool {
	if !p.Bounded() {
		return true
	}
	if d.IsEmpty() {
		return false
	}
	if !p.Start.IsEmpty() && d.Before(p.Start.Time) {
		return false
	}
	if !p.End.IsEmpty() && d.After(p.End.Time) {
		return false
	}
	return true
}

// Key identifies the period in caches and logs.
func (p Period) Key() string {
	return p.Start.String() + ".." + p.End.String()
}

// Filter lazily yields the records inside p, preserving their order.
func Filter[T Dated](records []T, p Period) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, r := range records {
			if !p.Contains(r.RecordDate()) {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}
