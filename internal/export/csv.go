package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

func (e *Exporter) writeCSV(ctx context.Context, w io.Writer, d Data, p *progressReporter) error {
	writer := csv.NewWriter(w)

	s := Summarize(d)
	records := [][]string{
		{"Data Visualization Summary"},
		{},
		{"Total tables", strconv.Itoa(s.Tables)},
		{"Selected years", JoinYears(d.SelectedYears)},
		{"Total data points", strconv.Itoa(s.DataPoints)},
		{},
	}
	if err := writer.WriteAll(records); err != nil {
		return err
	}

	for i, t := range d.Tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writer.Write([]string{fmt.Sprintf("Table %d: %s", i+1, TableTitle(t, d.SelectedYears))}); err != nil {
			return err
		}
		if err := writer.Write(nil); err != nil {
			return err
		}
		for _, row := range t.Grid {
			if err := writer.Write(row); err != nil {
				return err
			}
			p.step()
		}
		if err := writer.Write(nil); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
