package calendar

import (
	"errors"
	"fmt"
	"time"
)

// Layout is the canonical textual form of a Date.
const Layout = "2006-01-02"

// ExcludedSentinel is the far-future date stored on candidates that have
// graduated out of active review. It is never due.
const ExcludedSentinel Date = "9999-12-31"

// ErrInvalidDate is returned when a string is not a valid YYYY-MM-DD date.
var ErrInvalidDate = errors.New("invalid calendar date")

// Date is a calendar day in YYYY-MM-DD form.
// The zero value is the empty string and is not a valid date.
type Date string

// Parse validates s and returns it as a Date.
func Parse(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date(t.Format(Layout)), nil
}

// MustParse is like Parse but panics on invalid input. Intended for tests and constants.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		// ALLOW-PANIC: only used with literal dates
		panic(err)
	}
	return d
}

// FromTime returns the calendar day of t in loc. A nil loc means UTC.
func FromTime(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return Date(t.In(loc).Format(Layout))
}

// FromStoredTime converts a DATE column value (midnight UTC) back into a Date.
func FromStoredTime(t time.Time) Date {
	return Date(t.UTC().Format(Layout))
}

// Time returns midnight UTC of d.
func (d Date) Time() (time.Time, error) {
	t, err := time.Parse(Layout, string(d))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, string(d))
	}
	return t, nil
}

// AddDays returns d shifted by n calendar days.
func (d Date) AddDays(n int) (Date, error) {
	t, err := d.Time()
	if err != nil {
		return "", err
	}
	return Date(t.AddDate(0, 0, n).Format(Layout)), nil
}

// Valid reports whether d is a well-formed date.
func (d Date) Valid() bool {
	_, err := d.Time()
	return err == nil
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d < other }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d > other }

// IsSentinel reports whether d is the graduation sentinel.
func (d Date) IsSentinel() bool { return d == ExcludedSentinel }

// String implements fmt.Stringer.
func (d Date) String() string { return string(d) }
