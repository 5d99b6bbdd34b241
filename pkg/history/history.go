// Package history models the sparse lines-of-code time series of a repository.
//
// A History holds one Record per size transition: a record exists only when its
// line count differs from the record immediately before it, and records are
// kept in non-decreasing date order. The last known value holds until the next
// record, which makes a steps-post rendering of the series exact.
package history

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Sentinel validation errors.
var (
	ErrInvalidDate = errors.New("invalid date")
	ErrUnordered   = errors.New("history records out of date order")
	ErrRedundant   = errors.New("consecutive history records share a line count")
	ErrNegative    = errors.New("negative line count")
)

// Date is a calendar day in YYYY-MM-DD form. The zero value means "no date".
// Lexical order of valid dates equals chronological order.
type Date string

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return Date(t.Format(time.DateOnly))
}

// ParseDate validates a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	_, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	return Date(s), nil
}

// IsZero reports whether d is the empty date.
func (d Date) IsZero() bool {
	return d == ""
}

// Time returns midnight UTC of d. It returns the zero time for invalid dates.
func (d Date) Time() time.Time {
	t, err := time.Parse(time.DateOnly, string(d))
	if err != nil {
		return time.Time{}
	}

	return t
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d < other
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d > other
}

// String implements fmt.Stringer.
func (d Date) String() string {
	return string(d)
}

// Record is one stored point of a history.
type Record struct {
	Date  Date `json:"date"  yaml:"date"`
	Lines int  `json:"lines" yaml:"lines"`
}

// History is the ordered, sparse sequence of records of one repository.
type History []Record

// Last returns the most recent record.
func (h History) Last() (Record, bool) {
	if len(h) == 0 {
		return Record{}, false
	}

	return h[len(h)-1], true
}

// LastDate returns the date of the most recent record or the zero Date.
func (h History) LastDate() Date {
	last, ok := h.Last()
	if !ok {
		return ""
	}

	return last.Date
}

// LastLines returns the line count of the most recent record, or 0 for an
// empty history.
func (h History) LastLines() int {
	last, ok := h.Last()
	if !ok {
		return 0
	}

	return last.Lines
}

// Observe folds one measurement into the history. When lines differs from
// LastLines a new history with the appended record is returned together with
// true; otherwise h itself is returned unchanged with false.
// The receiver is never mutated, so callers may keep the previous value.
func (h History) Observe(date Date, lines int) (History, bool) {
	if lines == h.LastLines() {
		return h, false
	}

	return append(slices.Clip(h), Record{Date: date, Lines: lines}), true
}

// Clone returns an independent copy of h.
func (h History) Clone() History {
	if h == nil {
		return nil
	}

	return slices.Clone(h)
}

// Validate checks date format, date ordering, non-negative counts and the
// no-equal-neighbours encoding.
func (h History) Validate() error {
	for i, rec := range h {
		_, err := ParseDate(string(rec.Date))
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}

		if rec.Lines < 0 {
			return fmt.Errorf("record %d: %w: %d", i, ErrNegative, rec.Lines)
		}

		if i == 0 {
			continue
		}

		prev := h[i-1]

		if rec.Date.Before(prev.Date) {
			return fmt.Errorf("record %d: %w: %s after %s", i, ErrUnordered, rec.Date, prev.Date)
		}

		if rec.Lines == prev.Lines {
			return fmt.Errorf("record %d: %w: %d", i, ErrRedundant, rec.Lines)
		}
	}

	return nil
}

// Dates returns the record dates as times, for charting.
func (h History) Dates() []time.Time {
	dates := make([]time.Time, len(h))

	for i, rec := range h {
		dates[i] = rec.Date.Time()
	}

	return dates
}

// Values returns the record line counts, for charting.
func (h History) Values() []int {
	values := make([]int, len(h))

	for i, rec := range h {
		values[i] = rec.Lines
	}

	return values
}
