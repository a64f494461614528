package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseAmount reads a decimal amount as typed in the UI: "1234.50", "1 234,50",
// "1,234.50" and a trailing "€" are all accepted.
func ParseAmount(s string) (float64, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '€':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if clean == "" {
		return 0, fmt.Errorf("empty amount")
	}
	switch {
	case strings.Contains(clean, ".") && strings.Contains(clean, ","):
		clean = strings.ReplaceAll(clean, ",", "")
	case strings.Count(clean, ",") == 1:
		clean = strings.Replace(clean, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}
