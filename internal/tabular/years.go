package tabular

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nconklindev/yearview/internal/types"
)

const (
	// ScanRowLimit is how many leading rows of a grid are scanned for years
	// unless a full scan is requested.
	ScanRowLimit = 5

	// MinYear is the earliest plausible year.
	MinYear = 1990
	// FutureYears is how far past the current year a value may still be a year.
	FutureYears = 5
	// FallbackSpan is the length of the default range used when nothing is detected.
	FallbackSpan = 15
)

var embeddedYear = regexp.MustCompile(`\b\d{4}\b`)

// YearRange is an inclusive range of plausible years.
type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DefaultYearRange returns MinYear through now+FutureYears.
func DefaultYearRange(now time.Time) YearRange {
	return YearRange{Min: MinYear, Max: now.Year() + FutureYears}
}

func (r YearRange) Contains(y int) bool {
	return y >= r.Min && y <= r.Max
}

func (r YearRange) isZero() bool { return r.Min == 0 && r.Max == 0 }

type DetectOptions struct {
	// Range bounds accepted years. Zero means DefaultYearRange(time.Now()).
	Range YearRange
	// ScanRows limits the scan to the leading rows of each grid. Zero means ScanRowLimit.
	ScanRows int
	// FullScan scans every row, ignoring ScanRows.
	FullScan bool
}

// DetectYears collects the years found in the leading rows of every grid,
// either as a cell starting with a whole number or as a 4-digit token inside text such as
// "Tahun 2020". The result is ascending and de-duplicated; ok is false when
// no year was found at all.
func DetectYears(grids []types.Grid, opts DetectOptions) (years []int, ok bool) {
	rng := opts.Range
	if rng.isZero() {
		rng = DefaultYearRange(time.Now())
	}
	limit := opts.ScanRows
	if limit <= 0 {
		limit = ScanRowLimit
	}

	found := make(map[int]struct{})
	for _, g := range grids {
		n := len(g)
		if !opts.FullScan && n > limit {
			n = limit
		}
		for _, row := range g[:n] {
			for _, c := range row {
				for _, y := range yearsInCell(c, rng) {
					found[y] = struct{}{}
				}
			}
		}
	}
	if len(found) == 0 {
		return nil, false
	}

	years = make([]int, 0, len(found))
	for y := range found {
		years = append(years, y)
	}
	slices.Sort(years)
	return years, true
}

// yearsInCell returns the years a single cell represents within rng.
func yearsInCell(c string, rng YearRange) []int {
	s := strings.TrimSpace(c)
	if s == "" {
		return nil
	}
	var out []int
	if f, ok := parseLeadingFloat(s); ok && f == math.Trunc(f) && !math.IsInf(f, 0) {
		if y := int(f); rng.Contains(y) {
			out = append(out, y)
		}
	}
	for _, m := range embeddedYear.FindAllString(s, -1) {
		y, _ := strconv.Atoi(m)
		if rng.Contains(y) {
			out = append(out, y)
		}
	}
	return out
}

// FallbackYears returns the span years ending with the current year, used when
// a workbook holds no recognizable year.
func FallbackYears(now time.Time, span int) []int {
	if span <= 0 {
		span = FallbackSpan
	}
	last := now.Year()
	years := make([]int, span)
	for i := range years {
		years[i] = last - span + 1 + i
	}
	return years
}
