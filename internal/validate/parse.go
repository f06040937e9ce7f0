package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Int parses a form value already checked by a days or id tag.
// An empty value yields fallback.
func Int(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

// ID parses an optional id form value. Empty or invalid yields nil.
func ID(s string) *int64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// Cents parses a money form value such as "125.5" into cents.
// An empty value yields nil.
func Cents(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	whole, frac, _ := strings.Cut(s, ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	var f int64
	switch len(frac) {
	case 0:
	case 1:
		f, err = strconv.ParseInt(frac, 10, 64)
		f *= 10
	case 2:
		f, err = strconv.ParseInt(frac, 10, 64)
	default:
		return nil, fmt.Errorf("amount %q has more than two decimals", s)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if w > (math.MaxInt64-f)/100 {
		return nil, fmt.Errorf("amount %q is too large", s)
	}
	c := w*100 + f
	return &c, nil
}

// FormatCents renders cents as a decimal amount, "" for nil.
func FormatCents(c *int64) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%d.%02d", *c/100, *c%100)
}
