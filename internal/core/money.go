package core

import (
	"strconv"
	"strings"
)

// ParseAmount converts user input to an amount in the smallest currency
// unit. Amounts are whole units only; there is no fractional part.
//
// Thousands separators (comma, underscore, space, Arabic thousands mark)
// are stripped before validation, and Persian/Arabic-Indic digits are
// normalized to ASCII, so "۱۲۵٬۰۰۰" and "125,000" both parse to 125000.
// Anything else, including negative values, is ErrInvalidAmount.
func ParseAmount(s string) (int64, error) {
	s = normalizeDigits(strings.TrimSpace(s))
	if s == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// normalizeDigits maps Persian (U+06F0..U+06F9) and Arabic-Indic
// (U+0660..U+0669) digits to ASCII and drops common grouping separators.
func normalizeDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '۰' && r <= '۹':
			b.WriteRune('0' + (r - '۰'))
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		case r == ',' || r == '_' || r == ' ' || r == '٬' || r == '،':
			// grouping separator, skip
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatAmount renders an amount with comma separators for display.
func FormatAmount(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}
