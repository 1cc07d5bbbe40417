package cli

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/nconklindev/yearview/internal/api"
	"github.com/nconklindev/yearview/internal/export"
	"github.com/nconklindev/yearview/internal/selection"
	"github.com/nconklindev/yearview/internal/tabular"
	"github.com/nconklindev/yearview/internal/types"
)

var errUsage = errors.New("missing arguments, see -h")

func (a *app) yearsCommand() *ffcli.Command {
	fs := flag.NewFlagSet("yearview years", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	full := fs.Bool("full", false, "scan every row instead of the leading rows")

	return &ffcli.Command{
		Name:       "years",
		ShortUsage: "yearview years [-full] FILE...",
		ShortHelp:  "Print the years found in the workbooks.",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return errUsage
			}
			if err := a.setup(false); err != nil {
				return err
			}

			var grids []types.Grid
			for _, path := range args {
				sheets, err := a.readSheets(path)
				if err != nil {
					return err
				}
				for _, s := range sheets {
					grids = append(grids, s.Grid)
				}
			}

			now := a.now()
			years, ok := tabular.DetectYears(grids, a.cfg.Years.DetectOptions(now, *full))
			if !ok {
				years = tabular.FallbackYears(now, a.cfg.Years.FallbackSpan)
				fmt.Fprintln(a.stderr, "no years detected, showing the fallback range")
			}
			_, err := fmt.Fprintln(a.stdout, joinYears(years))
			return err
		},
	}
}

func (a *app) filterCommand() *ffcli.Command {
	fs := flag.NewFlagSet("yearview filter", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	flagYears := fs.String("years", "", "comma separated years to keep (required)")
	flagSheet := fs.String("sheet", "", "sheet name (default: first sheet)")

	return &ffcli.Command{
		Name:       "filter",
		ShortUsage: "yearview filter -years 2020,2021 [-sheet NAME] FILE",
		ShortHelp:  "Print a sheet as CSV, keeping only the chosen year columns.",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 || *flagYears == "" {
				return errUsage
			}
			years, err := parseYears(*flagYears)
			if err != nil {
				return err
			}
			if err := a.setup(false); err != nil {
				return err
			}
			sheets, err := a.readSheets(args[0])
			if err != nil {
				return err
			}
			sheet, err := pickSheet(sheets, *flagSheet)
			if err != nil {
				return err
			}

			info := tabular.ResolveHeader(sheet.Grid)
			if len(tabular.MatchYearColumns(info.Headers, years)) < 2 {
				fmt.Fprintf(a.stderr, "no column of %q matches %s, printing it unchanged\n", sheet.Name, joinYears(years))
			}

			w := csv.NewWriter(a.stdout)
			if err := w.WriteAll(tabular.FilterByYears(sheet.Grid, years)); err != nil {
				return fmt.Errorf("failed to write csv: %w", err)
			}
			return nil
		},
	}
}

func (a *app) chartCommand() *ffcli.Command {
	fs := flag.NewFlagSet("yearview chart", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	flagType := fs.String("type", string(types.ChartBar), "bar, line, pie or doughnut")
	flagYear := fs.Int("year", tabular.NoYear, "year drawn by pie and doughnut charts")
	flagYears := fs.String("years", "", "comma separated years to keep")
	flagSheet := fs.String("sheet", "", "sheet name (default: first sheet)")
	flagOut := fs.String("o", "", "output PNG (default: chart_<time>.png)")

	return &ffcli.Command{
		Name:       "chart",
		ShortUsage: "yearview chart [-type bar] [-year Y] [-years ...] [-o out.png] FILE",
		ShortHelp:  "Render a sheet as a PNG chart.",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return errUsage
			}
			ct, err := parseChartType(*flagType)
			if err != nil {
				return err
			}
			years, err := parseYears(*flagYears)
			if err != nil {
				return err
			}
			if err := a.setup(false); err != nil {
				return err
			}
			sheets, err := a.readSheets(args[0])
			if err != nil {
				return err
			}
			sheet, err := pickSheet(sheets, *flagSheet)
			if err != nil {
				return err
			}

			grid := tabular.FilterByYears(sheet.Grid, years)
			out := *flagOut
			if out == "" {
				out = export.FileName(export.FormatPNG, a.now())
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			err = export.RenderChart(f, grid, export.ChartSpec{
				Title:  export.ChartTitle(sheet.Name, ct, years, *flagYear),
				Type:   ct,
				Year:   *flagYear,
				Width:  a.cfg.Export.ChartWidth,
				Height: a.cfg.Export.ChartHeight,
			})
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(out)
				return err
			}

			a.logger.Info("chart written", slog.String("file", out), slog.String("type", string(ct)))
			_, err = fmt.Fprintln(a.stdout, out)
			return err
		},
	}
}

func (a *app) summaryCommand() *ffcli.Command {
	fs := flag.NewFlagSet("yearview summary", flag.ContinueOnError)
	fs.SetOutput(a.stderr)

	return &ffcli.Command{
		Name:       "summary",
		ShortUsage: "yearview summary FILE",
		ShortHelp:  "Print count, min, max and mean of every sheet.",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return errUsage
			}
			if err := a.setup(false); err != nil {
				return err
			}
			sheets, err := a.readSheets(args[0])
			if err != nil {
				return err
			}

			opts := a.cfg.Years.DetectOptions(a.now(), false)
			t := ltable.New().
				Border(lipgloss.NormalBorder()).
				Headers("Sheet", "Years", "Rows", "Columns", "Values", "Min", "Max", "Mean")
			for _, s := range sheets {
				years, _ := tabular.DetectYears([]types.Grid{s.Grid}, opts)
				stats := tabular.Summarize(s.Grid)
				if stats == nil {
					t.Row(s.Name, joinYears(years), "0", "0", "0", "-", "-", "-")
					continue
				}
				t.Row(s.Name, joinYears(years),
					fmt.Sprint(stats.Rows),
					fmt.Sprint(stats.Columns),
					fmt.Sprintf("%d/%d", stats.Count, stats.DataPoints),
					fmt.Sprintf("%.2f", stats.Min),
					fmt.Sprintf("%.2f", stats.Max),
					fmt.Sprintf("%.2f", stats.Mean))
			}
			_, err = fmt.Fprintln(a.stdout, t.Render())
			return err
		},
	}
}

func (a *app) exportCommand() *ffcli.Command {
	fs := flag.NewFlagSet("yearview export", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	flagFormat := fs.String("format", string(export.FormatXLSX), "xlsx, csv, pdf or png")
	flagYears := fs.String("years", "", "comma separated years to keep (required)")
	flagSheets := fs.String("sheets", "", "comma separated sheet names (default: the first two)")
	flagChart := fs.String("chart", string(types.ChartBar), "chart type for pdf and png")
	flagOut := fs.String("o", "", "output directory (default: export.dir from the config)")

	return &ffcli.Command{
		Name:       "export",
		ShortUsage: "yearview export -years 2020,2021 [-format xlsx] [-sheets A,B] [-o DIR] FILE",
		ShortHelp:  "Export year-filtered sheets to xlsx, csv, pdf or png.",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 || *flagYears == "" {
				return errUsage
			}
			format, err := export.ParseFormat(*flagFormat)
			if err != nil {
				return err
			}
			ct, err := parseChartType(*flagChart)
			if err != nil {
				return err
			}
			years, err := parseYears(*flagYears)
			if err != nil {
				return err
			}
			if err := a.setup(false); err != nil {
				return err
			}
			sheets, err := a.readSheets(args[0])
			if err != nil {
				return err
			}

			ids, err := sheetIDs(sheets, *flagSheets)
			if err != nil {
				return err
			}
			now := a.now()
			catalog := selection.NewCatalog(sheets, selection.Options{
				Detect:   a.cfg.Years.DetectOptions(now, false),
				Fallback: tabular.FallbackYears(now, a.cfg.Years.FallbackSpan),
			})
			tables, err := catalog.Build(ctx, ids, years)
			if err != nil {
				return err
			}

			dir := *flagOut
			if dir == "" {
				dir = a.cfg.Export.Dir
			}
			ex := export.New(export.Options{
				Orientation:  a.cfg.Export.Orientation,
				FontSize:     a.cfg.Export.FontSize,
				ChartWidth:   a.cfg.Export.ChartWidth,
				ChartHeight:  a.cfg.Export.ChartHeight,
				Chart:        ct,
				IncludeChart: true,
			}, a.logger)
			res, err := ex.ExportFile(ctx, dir, format, export.Data{Tables: tables, SelectedYears: years}, nil)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.stdout, res.OutputFile)
			return err
		},
	}
}

// sheetIDs maps comma separated sheet names to catalog ids. Without names the
// first MaxTables sheets are used.
func sheetIDs(sheets []types.Sheet, names string) ([]string, error) {
	if names == "" {
		ids := make([]string, 0, selection.MaxTables)
		for i := range min(len(sheets), selection.MaxTables) {
			ids = append(ids, selection.SheetID(i))
		}
		return ids, nil
	}

	var ids []string
	for _, name := range splitList(names) {
		found := false
		for i, s := range sheets {
			if s.Name == name {
				ids = append(ids, selection.SheetID(i))
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("sheet %q not found", name)
		}
	}
	return ids, nil
}

func (a *app) serveCommand() *ffcli.Command {
	fs := flag.NewFlagSet("yearview serve", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	flagAddr := fs.String("addr", "", "listen address (default: server.addr from the config)")

	return &ffcli.Command{
		Name:       "serve",
		ShortUsage: "yearview serve [-addr :8080]",
		ShortHelp:  "Serve the HTTP API.",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if err := a.setup(false); err != nil {
				return err
			}
			if *flagAddr != "" {
				a.cfg.Server.Addr = *flagAddr
			}
			return api.Serve(ctx, a.cfg, a.logger.With(slog.String("addr", a.cfg.Server.Addr)))
		},
	}
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
