// Package tabular detects year columns in spreadsheet grids, projects grids onto
// chosen years and turns them into chart series and summary statistics.
//
// Every function is pure: inputs are never modified and results are freshly
// allocated, so they may be called concurrently on shared grids.
package tabular

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	leadingFloat = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
	bareYear     = regexp.MustCompile(`^\d{4}$`)
	nonNumeric   = regexp.MustCompile(`[^\d.-]`)
)

// parseLeadingFloat parses the longest numeric prefix of s, ignoring
// surrounding whitespace. "12.5%" yields 12.5, "abc" fails.
func parseLeadingFloat(s string) (float64, bool) {
	m := leadingFloat.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		// exponent overflow and the like
		return 0, false
	}
	return f, true
}

// parseLeadingInt parses the integer prefix of s, so "2021 (r)" yields 2021.
func parseLeadingInt(s string) (int, bool) {
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isBareYear(s string) bool {
	return bareYear.MatchString(strings.TrimSpace(s))
}

// cell returns row[i], or "" when the row is too short.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
