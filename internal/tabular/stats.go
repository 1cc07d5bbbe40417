package tabular

import (
	"github.com/nconklindev/yearview/internal/types"
)

// Summarize computes count, min, max and mean over the numeric cells of grid,
// skipping the header row chosen by ResolveHeader and the identifier column. It returns nil when the
// grid has no data rows.
//
// Unlike BuildSeries, cells that do not parse are left out rather than
// counted as zero, so they cannot drag the mean down.
func Summarize(grid types.Grid) *types.Statistics {
	if len(grid) < 2 {
		return nil
	}

	cols := grid.Columns()
	stats := &types.Statistics{
		Rows:    len(grid) - 1,
		Columns: max(cols-1, 0),
	}
	stats.DataPoints = stats.Rows * stats.Columns

	header := ResolveHeader(grid).HeaderRowIndex

	var sum float64
	for r, row := range grid {
		if r == header {
			continue
		}
		for i := 1; i < len(row); i++ {
			v, ok := parseLeadingFloat(row[i])
			if !ok {
				continue
			}
			if stats.Count == 0 || v < stats.Min {
				stats.Min = v
			}
			if stats.Count == 0 || v > stats.Max {
				stats.Max = v
			}
			sum += v
			stats.Count++
		}
	}
	if stats.Count > 0 {
		stats.Mean = sum / float64(stats.Count)
	}
	return stats
}
