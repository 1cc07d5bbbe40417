package tabular

import (
	"slices"
	"strings"

	"github.com/nconklindev/yearview/internal/types"
)

// headerRule maps the "all years" state of rows 0 and 1 to the header row.
//
// Both-true and both-false default to row 0. That default is a heuristic:
// neither row is clearly the header in those cases.
type headerRule struct {
	row0AllYears bool
	row1AllYears bool
	headerRow    int
}

var headerRules = []headerRule{
	{row0AllYears: true, row1AllYears: false, headerRow: 0},
	{row0AllYears: false, row1AllYears: true, headerRow: 1},
	{row0AllYears: true, row1AllYears: true, headerRow: 0},
	{row0AllYears: false, row1AllYears: false, headerRow: 0},
}

func pickHeaderRow(row0AllYears, row1AllYears bool) int {
	for _, r := range headerRules {
		if r.row0AllYears == row0AllYears && r.row1AllYears == row1AllYears {
			return r.headerRow
		}
	}
	return 0
}

// allYears reports whether every cell after the first is blank or a bare
// 4-digit number.
func allYears(row []string) bool {
	for i := 1; i < len(row); i++ {
		s := strings.TrimSpace(row[i])
		if s != "" && !isBareYear(s) {
			return false
		}
	}
	return true
}

// IsHeaderLikeRow reports whether a row's leading cell looks like a header
// (mentions "tahun" or "year", is a bare year) or is blank. Such rows are
// never treated as data.
func IsHeaderLikeRow(row []string) bool {
	first := strings.TrimSpace(cell(row, 0))
	if first == "" {
		return true
	}
	lower := strings.ToLower(first)
	return strings.Contains(lower, "tahun") ||
		strings.Contains(lower, "year") ||
		isBareYear(first)
}

// ResolveHeader decides whether row 0 or row 1 holds the column headers and
// splits the grid accordingly. When row 1 is the header, row 0 is kept as the
// first data row. Header-like rows are dropped from the data rows.
func ResolveHeader(grid types.Grid) types.HeaderInfo {
	if len(grid) == 0 {
		return types.HeaderInfo{}
	}

	headerRow := 0
	if len(grid) >= 2 {
		headerRow = pickHeaderRow(allYears(grid[0]), allYears(grid[1]))
	}

	var rest [][]string
	if headerRow == 1 {
		rest = append(rest, grid[0])
		rest = append(rest, grid[2:]...)
	} else {
		rest = grid[1:]
	}

	data := make([][]string, 0, len(rest))
	for _, row := range rest {
		if IsHeaderLikeRow(row) {
			continue
		}
		data = append(data, slices.Clone(row))
	}

	return types.HeaderInfo{
		HeaderRowIndex: headerRow,
		Headers:        slices.Clone(grid[headerRow]),
		DataRows:       data,
	}
}
