package tabular

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nconklindev/yearview/internal/types"
)

// NoYear tells BuildSeries that no year was selected.
const NoYear = 0

var seriesYear = regexp.MustCompile(`(?:19|20)\d{2}`)

// SeriesName derives a series name from a header cell: a bare year is kept,
// a year inside text ("Tahun 2021", "FY2021") is extracted, anything else is
// used as is.
func SeriesName(header string, col int) string {
	s := strings.TrimSpace(header)
	switch {
	case s == "":
		return fmt.Sprintf("Column %d", col)
	case isBareYear(s):
		return s
	}
	if m := seriesYear.FindString(s); m != "" {
		return m
	}
	return s
}

// chartValue parses a cell for drawing. Everything except digits, '.' and '-'
// is dropped first; anything unparsable becomes 0 so a chart always has a bar.
func chartValue(c string) float64 {
	v, ok := parseLeadingFloat(nonNumeric.ReplaceAllString(c, ""))
	if !ok {
		return 0
	}
	return v
}

// matchesYear is the single-series column test: numeric equality first, then
// string equality or containment in either direction for headers that do not
// parse cleanly.
func matchesYear(name string, year int) bool {
	want := strconv.Itoa(year)
	if n, ok := parseLeadingInt(name); ok && n == year {
		return true
	}
	return name == want ||
		strings.Contains(name, want) ||
		strings.Contains(want, name)
}

// BuildSeries decomposes grid into chart labels and value series.
//
// In MultiSeries mode there is one series per column after the first. In
// SingleSeries mode exactly one column is used: the one matching selectedYear,
// otherwise column 1. A grid without rows or without data columns yields an
// empty SeriesSet.
func BuildSeries(grid types.Grid, mode types.ChartMode, selectedYear int) types.SeriesSet {
	if len(grid) < 2 {
		return types.SeriesSet{}
	}

	info := ResolveHeader(grid)
	rows := info.DataRows

	labels := make([]string, len(rows))
	for i, row := range rows {
		label := strings.TrimSpace(cell(row, 0))
		if label == "" {
			label = fmt.Sprintf("Item %d", i+1)
		}
		labels[i] = label
	}

	column := func(i int) types.Series {
		values := make([]float64, len(rows))
		for r, row := range rows {
			values[r] = chartValue(cell(row, i))
		}
		return types.Series{Name: SeriesName(cell(info.Headers, i), i), Values: values}
	}

	if mode == types.SingleSeries {
		if len(info.Headers) < 2 {
			return types.SeriesSet{}
		}
		return types.SeriesSet{
			Labels: labels,
			Series: []types.Series{column(singleSeriesColumn(info.Headers, selectedYear))},
		}
	}

	set := types.SeriesSet{Labels: labels}
	for i := 1; i < len(info.Headers); i++ {
		set.Series = append(set.Series, column(i))
	}
	return set
}

// singleSeriesColumn picks the column drawn by a pie or doughnut chart.
func singleSeriesColumn(headers []string, selectedYear int) int {
	if selectedYear != NoYear {
		for i := 1; i < len(headers); i++ {
			if matchesYear(SeriesName(headers[i], i), selectedYear) {
				return i
			}
		}
	}
	return 1
}
