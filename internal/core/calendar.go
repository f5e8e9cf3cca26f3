package core

import (
	"fmt"
	"regexp"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

// Date is a civil calendar date in the canonical (proleptic Gregorian)
// calendar. Storage and arithmetic always use this representation; the
// Jalali notation exists only at the input/display boundary.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

var (
	gregorianRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	jalaliRe    = regexp.MustCompile(`^(\d{4})/(\d{2})/(\d{2})$`)
)

// NewDate builds a Date without validation; use ParseDate for user input.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf truncates a time.Time to its civil date in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current date in the given location.
func Today(loc *time.Location) Date {
	return DateOf(time.Now().In(loc))
}

// ParseDate accepts either calendar notation: Gregorian YYYY-MM-DD or
// Jalali YYYY/MM/DD. The result is always canonical.
func ParseDate(s string) (Date, error) {
	if gregorianRe.MatchString(s) {
		return ParseGregorian(s)
	}
	if jalaliRe.MatchString(s) {
		return ParseJalali(s)
	}
	return Date{}, ErrInvalidDate
}

// ParseGregorian parses the strict YYYY-MM-DD notation and rejects
// impossible dates such as 2026-02-30.
func ParseGregorian(s string) (Date, error) {
	m := gregorianRe.FindStringSubmatch(s)
	if m == nil {
		return Date{}, ErrInvalidDate
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

// ParseJalali parses the strict YYYY/MM/DD Jalali notation and converts
// it to the canonical calendar.
func ParseJalali(s string) (Date, error) {
	m := jalaliRe.FindStringSubmatch(s)
	if m == nil {
		return Date{}, ErrInvalidDate
	}
	jy := atoi(m[1])
	jm := atoi(m[2])
	jd := atoi(m[3])
	if jm < 1 || jm > 12 || jd < 1 || jd > 31 {
		return Date{}, ErrInvalidDate
	}
	pt := ptime.Date(jy, ptime.Month(jm), jd, 12, 0, 0, 0, ptime.Iran())
	// ptime normalizes out-of-range days instead of failing, so an exact
	// round-trip check is the validity test.
	if pt.Year() != jy || int(pt.Month()) != jm || pt.Day() != jd {
		return Date{}, ErrInvalidDate
	}
	return DateOf(pt.Time()), nil
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// String renders the canonical YYYY-MM-DD notation used for storage.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Jalali renders the secondary YYYY/MM/DD notation for display.
func (d Date) Jalali() string {
	pt := ptime.New(time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, ptime.Iran()))
	return fmt.Sprintf("%04d/%02d/%02d", pt.Year(), int(pt.Month()), pt.Day())
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns midnight UTC of the date, for arithmetic.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.String() < other.String()
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return other.Before(d)
}

// MonthRange returns the inclusive [first, last] dates of a calendar
// month, month-length and leap-year aware.
func MonthRange(year int, month time.Month) (Date, Date) {
	first := NewDate(year, month, 1)
	last := DateOf(first.Time().AddDate(0, 1, -1))
	return first, last
}
