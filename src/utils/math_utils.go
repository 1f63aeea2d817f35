package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAmount converts a statement amount field to a float. DEGIRO exports
// use a comma as the decimal separator in some locales, so both forms are
// accepted.
func ParseAmount(s string) (float64, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if normalized == "" {
		return 0, fmt.Errorf("empty amount")
	}
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return value, nil
}

// AbsFloat returns the absolute value of a float64.
func AbsFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
