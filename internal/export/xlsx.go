package export

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const summarySheet = "Summary"

func (e *Exporter) writeXLSX(ctx context.Context, w io.Writer, d Data, p *progressReporter) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return err
	}
	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E6E6E6"}},
	})
	if err != nil {
		return err
	}

	s := Summarize(d)
	summary := [][]any{
		{"Data Visualization Summary"},
		nil,
		{"Total tables:", s.Tables},
		{"Selected years:", JoinYears(d.SelectedYears)},
		{"Total data points:", s.DataPoints},
		nil,
		{"Tables:"},
		{"ID", "Name", "Years", "Rows"},
	}
	for _, t := range d.Tables {
		summary = append(summary, []any{t.ID, t.Name, len(t.Years), dataRows(t.Grid)})
	}
	for i, row := range summary {
		if row == nil {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}
	f.SetCellStyle(summarySheet, "A1", "A1", titleStyle)
	f.SetCellStyle(summarySheet, "A8", "D8", headerStyle)
	f.SetColWidth(summarySheet, "A", "A", 24)
	f.SetColWidth(summarySheet, "B", "B", 40)

	for i, t := range d.Tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := fmt.Sprintf("Table_%d", i+1)
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := f.SetCellValue(name, "A1", TableTitle(t, d.SelectedYears)); err != nil {
			return err
		}
		f.SetCellStyle(name, "A1", "A1", titleStyle)

		// title, blank row, then the grid
		for r, row := range t.Grid {
			cell, _ := excelize.CoordinatesToCellName(1, r+3)
			values := cellValues(row, r == 0)
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				return err
			}
			p.step()
		}
		if cols := t.Grid.Columns(); cols > 0 {
			last, _ := excelize.CoordinatesToCellName(cols, 3)
			f.SetCellStyle(name, "A3", last, headerStyle)
			f.SetColWidth(name, "A", "A", 28)
		}
	}

	_, err = f.WriteTo(w)
	return err
}

// cellValues converts numeric cells so spreadsheets treat them as numbers.
// Header cells stay text.
func cellValues(row []string, header bool) []any {
	out := make([]any, len(row))
	for i, c := range row {
		out[i] = c
		if header || i == 0 {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(c), 64); err == nil {
			out[i] = v
		}
	}
	return out
}
