package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseGregorian(t *testing.T) {
	d, err := ParseGregorian("2024-02-29")
	if err != nil {
		t.Fatalf("leap day should parse: %v", err)
	}
	if d != NewDate(2024, time.February, 29) {
		t.Fatalf("unexpected date: %v", d)
	}

	for _, bad := range []string{"2023-02-29", "2024-13-01", "2024-00-10", "2024-1-5", "24-01-05", "hello"} {
		if _, err := ParseGregorian(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q: expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestParseJalaliKnownAnchor(t *testing.T) {
	// Nowruz 1400 fell on 2021-03-21.
	d, err := ParseJalali("1400/01/01")
	if err != nil {
		t.Fatalf("parse jalali: %v", err)
	}
	if d != NewDate(2021, time.March, 21) {
		t.Fatalf("expected 2021-03-21, got %s", d)
	}
}

func TestParseJalaliInvalid(t *testing.T) {
	for _, bad := range []string{"1400/13/01", "1400/01/32", "1400/07/31", "1400-01-01", "1400/1/1"} {
		if _, err := ParseJalali(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q: expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestJalaliRoundTrip(t *testing.T) {
	// Every day of a Gregorian year converts to Jalali notation and back
	// to the same canonical date.
	d := NewDate(2025, time.January, 1)
	for i := 0; i < 365; i++ {
		j := d.Jalali()
		back, err := ParseJalali(j)
		if err != nil {
			t.Fatalf("%s -> %q failed to parse back: %v", d, j, err)
		}
		if back != d {
			t.Fatalf("round trip mismatch: %s -> %q -> %s", d, j, back)
		}
		d = d.AddDays(1)
	}
}

func TestParseDateBothNotations(t *testing.T) {
	g, err := ParseDate("2025-08-26")
	if err != nil {
		t.Fatalf("gregorian notation: %v", err)
	}
	j, err := ParseDate(g.Jalali())
	if err != nil {
		t.Fatalf("jalali notation: %v", err)
	}
	if g != j {
		t.Fatalf("notations disagree: %s vs %s", g, j)
	}
	if _, err := ParseDate("26/08/2025 extra"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestMonthRange(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		last  int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{2025, time.April, 30},
		{2025, time.December, 31},
	}
	for _, tc := range cases {
		first, last := MonthRange(tc.year, tc.month)
		if first.Day != 1 || first.Month != tc.month || first.Year != tc.year {
			t.Fatalf("%d-%d: bad first %s", tc.year, tc.month, first)
		}
		if last.Day != tc.last {
			t.Fatalf("%d-%d: expected last day %d, got %s", tc.year, tc.month, tc.last, last)
		}
	}
}

func TestDateOrdering(t *testing.T) {
	a := NewDate(2025, time.September, 30)
	b := NewDate(2025, time.October, 1)
	if !a.Before(b) || b.Before(a) || !b.After(a) {
		t.Fatal("date ordering broken across month boundary")
	}
}
