package tabular

import (
	"slices"

	"github.com/nconklindev/yearview/internal/types"
)

// MatchYearColumns returns the column indices kept when filtering a table
// with the given headers: always 0, then every column whose header starts
// with one of years.
func MatchYearColumns(headers []string, years []int) []int {
	if len(headers) == 0 {
		return nil
	}
	indices := []int{0}
	for i := 1; i < len(headers); i++ {
		y, ok := parseLeadingInt(headers[i])
		if ok && slices.Contains(years, y) {
			indices = append(indices, i)
		}
	}
	return indices
}

// FilterByYears projects every row of grid onto the identifier column and the
// columns whose header is one of years.
//
// When no year column matches, grid itself is returned unchanged so the table
// never shrinks below an identifier plus data. Callers detect that case by
// comparing widths or with MatchYearColumns.
func FilterByYears(grid types.Grid, years []int) types.Grid {
	if len(grid) == 0 || len(years) == 0 {
		return grid
	}

	info := ResolveHeader(grid)
	indices := MatchYearColumns(info.Headers, years)
	if len(indices) < 2 {
		return grid
	}

	out := make(types.Grid, len(grid))
	for r, row := range grid {
		projected := make([]string, len(indices))
		for j, c := range indices {
			projected[j] = cell(row, c)
		}
		out[r] = projected
	}
	return out
}
