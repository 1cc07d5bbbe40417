// Package cli wires the yearview command line: the wizard by default, plus
// scriptable subcommands over the same pipeline.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/nconklindev/yearview/internal/config"
	"github.com/nconklindev/yearview/internal/ingest"
	"github.com/nconklindev/yearview/internal/logging"
	"github.com/nconklindev/yearview/internal/session"
	"github.com/nconklindev/yearview/internal/types"
	"github.com/nconklindev/yearview/internal/ui"
)

// BuildInfo is stamped in at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

type app struct {
	stdout io.Writer
	stderr io.Writer
	build  BuildInfo
	now    func() time.Time

	configPath string
	verbose    bool
	version    bool

	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
}

// Run parses args (without the program name) and runs the selected command.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer, build BuildInfo) error {
	a := &app{stdout: stdout, stderr: stderr, build: build, now: time.Now}

	fs := flag.NewFlagSet("yearview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&a.configPath, "config", "", "YAML config file")
	fs.BoolVar(&a.verbose, "v", false, "debug logging")
	fs.BoolVar(&a.version, "version", false, "print version and exit")

	root := &ffcli.Command{
		Name:       "yearview",
		ShortUsage: "yearview [-config FILE] [-v] [<subcommand> [flags] [args...]]",
		ShortHelp:  "Filter spreadsheet tables by year and chart them.",
		LongHelp:   "Without a subcommand yearview starts the interactive wizard.",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix(config.EnvPrefix)},
		Subcommands: []*ffcli.Command{
			a.yearsCommand(),
			a.filterCommand(),
			a.chartCommand(),
			a.summaryCommand(),
			a.exportCommand(),
			a.serveCommand(),
		},
		Exec: a.runWizard,
	}

	if err := root.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if a.version {
		fmt.Fprintf(stdout, "yearview %s\ncommit: %s\nbuilt: %s\n", a.build.Version, a.build.Commit, a.build.Date)
		return nil
	}
	defer func() {
		if a.closer != nil {
			a.closer.Close()
		}
	}()
	return root.Run(ctx)
}

// setup loads the configuration and builds the logger. The wizard logs to
// the configured file; everything else logs to stderr.
func (a *app) setup(toFile bool) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logCfg := cfg.Logging
	if !toFile {
		logCfg.File = ""
	}
	if a.verbose {
		logCfg.Level = "debug"
	}

	fallback := a.stderr
	if toFile {
		// the wizard owns the terminal
		fallback = io.Discard
	}
	logger, closer, err := logging.New(logCfg, fallback)
	if err != nil {
		return err
	}
	a.cfg, a.logger, a.closer = cfg, logger, closer
	return nil
}

func (a *app) runWizard(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unknown command %q", args[0])
	}
	if err := a.setup(true); err != nil {
		return err
	}

	var store *session.Store
	if a.cfg.Session.Enabled {
		store = session.NewStore(a.cfg.Session.File, a.logger)
	}
	m := ui.NewModel(ui.Options{Config: a.cfg, Logger: a.logger, Session: store})

	a.logger.Info("starting wizard", slog.String("version", a.build.Version))
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// readSheets reads a workbook with the configured limits.
func (a *app) readSheets(path string) ([]types.Sheet, error) {
	sheets, err := ingest.ReadFile(path, ingest.Options{
		MaxFileSize: a.cfg.Ingest.MaxFileSize,
		Charset:     a.cfg.Ingest.Charset,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.logger.Debug("workbook read", slog.String("file", path), slog.Int("sheets", len(sheets)))
	return sheets, nil
}

// pickSheet returns the sheet called name, or the first sheet when name is
// empty.
func pickSheet(sheets []types.Sheet, name string) (types.Sheet, error) {
	if name == "" {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	names := make([]string, len(sheets))
	for i, s := range sheets {
		names[i] = s.Name
	}
	return types.Sheet{}, fmt.Errorf("sheet %q not found (have %s)", name, strings.Join(names, ", "))
}

// parseYears parses a comma separated year list into a sorted, de-duplicated
// slice.
func parseYears(s string) ([]int, error) {
	var years []int
	for _, part := range splitList(s) {
		y, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", part)
		}
		years = append(years, y)
	}
	slices.Sort(years)
	return slices.Compact(years), nil
}

func parseChartType(s string) (types.ChartType, error) {
	ct := types.ChartType(strings.ToLower(strings.TrimSpace(s)))
	if !ct.Valid() {
		return "", fmt.Errorf("unknown chart type %q (want bar, line, pie or doughnut)", s)
	}
	return ct, nil
}

func joinYears(years []int) string {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = strconv.Itoa(y)
	}
	return strings.Join(parts, ", ")
}
