// Package selection holds the wizard's table catalog: which tables can be
// picked, which years they offer and how a (tables x years) choice becomes a
// set of filtered TableSelections.
package selection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/nconklindev/yearview/internal/samples"
	"github.com/nconklindev/yearview/internal/tabular"
	"github.com/nconklindev/yearview/internal/types"
)

// MaxTables is the most tables a single analysis can combine.
const MaxTables = 2

const sheetPrefix = "sheet-"

var (
	ErrNoTables      = errors.New("select at least one table")
	ErrNoYears       = errors.New("select at least one year")
	ErrTooManyTables = fmt.Errorf("select at most %d tables", MaxTables)
	ErrNoUploads     = errors.New("no uploaded data to scan")
)

// UnavailableYearsError lists selected years none of the selected tables offer.
type UnavailableYearsError struct {
	Years []int
}

func (e *UnavailableYearsError) Error() string {
	return "selected years are not available in the selected tables: " + joinYears(e.Years)
}

// UnknownTableError reports a table id missing from the catalog.
type UnknownTableError struct {
	ID string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("table %q not found", e.ID)
}

// Table is one selectable table.
type Table struct {
	ID   string
	Name string
	Grid types.Grid
	// Years declared by a sample table. Uploaded sheets have none and are
	// detected instead.
	Years  []int
	Sample bool
}

type Options struct {
	Detect tabular.DetectOptions
	// Fallback is offered when nothing in the catalog looks like a year.
	Fallback []int
}

// Catalog lists uploaded sheets, or the sample tables when nothing was
// uploaded. It is safe for concurrent use.
type Catalog struct {
	tables []Table
	opts   Options
	// set by Refresh
	fullScan atomic.Bool
}

// NewCatalog builds a catalog over sheets. Sheet i gets the id "sheet-i".
func NewCatalog(sheets []types.Sheet, opts Options) *Catalog {
	c := &Catalog{opts: opts}
	if len(sheets) == 0 {
		for _, s := range samples.All() {
			c.tables = append(c.tables, Table{
				ID:     s.ID,
				Name:   s.Name,
				Grid:   s.Grid,
				Years:  s.Years,
				Sample: true,
			})
		}
		return c
	}
	for i, s := range sheets {
		c.tables = append(c.tables, Table{
			ID:   SheetID(i),
			Name: s.Name,
			Grid: s.Grid,
		})
	}
	return c
}

// SheetID returns the catalog id of the i-th uploaded sheet.
func SheetID(i int) string {
	return sheetPrefix + strconv.Itoa(i)
}

// Uploaded reports whether the catalog holds uploaded sheets.
func (c *Catalog) Uploaded() bool {
	return len(c.tables) > 0 && !c.tables[0].Sample
}

func (c *Catalog) Tables() []Table {
	return slices.Clone(c.tables)
}

func (c *Catalog) Len() int {
	return len(c.tables)
}

func (c *Catalog) Get(id string) (Table, bool) {
	for _, t := range c.tables {
		if t.ID == id {
			return t, true
		}
	}
	return Table{}, false
}

// Search returns the tables whose name contains query, ignoring case.
func (c *Catalog) Search(query string) []Table {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.Tables()
	}
	var out []Table
	for _, t := range c.tables {
		if strings.Contains(strings.ToLower(t.Name), q) {
			out = append(out, t)
		}
	}
	return out
}

// AvailableYears returns the years offered by the tables in ids, or by the
// whole catalog when ids is empty. Sample tables contribute their declared
// years; uploaded sheets are scanned, fully when full is set. The fallback
// years are returned when no year is found.
func (c *Catalog) AvailableYears(ids []string, full bool) []int {
	tables := c.tables
	if len(ids) > 0 {
		tables = nil
		for _, id := range ids {
			if t, ok := c.Get(id); ok {
				tables = append(tables, t)
			}
		}
	}

	found := make(map[int]struct{})
	var grids []types.Grid
	for _, t := range tables {
		if t.Sample {
			for _, y := range t.Years {
				found[y] = struct{}{}
			}
			continue
		}
		grids = append(grids, t.Grid)
	}
	if len(grids) > 0 {
		opts := c.opts.Detect
		opts.FullScan = opts.FullScan || full || c.fullScan.Load()
		detected, _ := tabular.DetectYears(grids, opts)
		for _, y := range detected {
			found[y] = struct{}{}
		}
	}

	if len(found) == 0 {
		return slices.Clone(c.opts.Fallback)
	}
	years := make([]int, 0, len(found))
	for y := range found {
		years = append(years, y)
	}
	slices.Sort(years)
	return years
}

// Refresh rescans every cell of every uploaded sheet. Later calls to
// AvailableYears and ValidateYears keep scanning whole grids.
func (c *Catalog) Refresh() ([]int, error) {
	if !c.Uploaded() {
		return nil, ErrNoUploads
	}
	c.fullScan.Store(true)
	return c.AvailableYears(nil, false), nil
}

// ToggleTable adds id to selected or removes it, keeping at most MaxTables.
func ToggleTable(selected []string, id string) ([]string, error) {
	if i := slices.Index(selected, id); i >= 0 {
		return slices.Delete(slices.Clone(selected), i, i+1), nil
	}
	if len(selected) >= MaxTables {
		return selected, ErrTooManyTables
	}
	return append(slices.Clone(selected), id), nil
}

// ToggleYear adds or removes year; the result is sorted.
func ToggleYear(selected []int, year int) []int {
	out := slices.Clone(selected)
	if i := slices.Index(out, year); i >= 0 {
		return slices.Delete(out, i, i+1)
	}
	out = append(out, year)
	slices.Sort(out)
	return out
}

// ToggleAllYears selects every available year, or clears the selection when
// all of them are already selected.
func ToggleAllYears(selected, available []int) []int {
	if len(selected) == len(available) {
		return nil
	}
	return slices.Clone(available)
}

// ValidateTables checks a table choice before years are picked.
func (c *Catalog) ValidateTables(ids []string) error {
	if len(ids) == 0 {
		return ErrNoTables
	}
	if len(ids) > MaxTables {
		return ErrTooManyTables
	}
	for _, id := range ids {
		if _, ok := c.Get(id); !ok {
			return &UnknownTableError{ID: id}
		}
	}
	return nil
}

// ValidateYears checks that years is non-empty and offered by the tables.
func (c *Catalog) ValidateYears(ids []string, years []int) error {
	if err := c.ValidateTables(ids); err != nil {
		return err
	}
	if len(years) == 0 {
		return ErrNoYears
	}
	available := c.AvailableYears(ids, false)
	var missing []int
	for _, y := range years {
		if !slices.Contains(available, y) {
			missing = append(missing, y)
		}
	}
	if len(missing) > 0 {
		return &UnavailableYearsError{Years: missing}
	}
	return nil
}

// Build validates the choice and filters every selected table down to the
// selected years. Tables are filtered concurrently; the result keeps the
// order of ids.
func (c *Catalog) Build(ctx context.Context, ids []string, years []int) ([]types.TableSelection, error) {
	if err := c.ValidateYears(ids, years); err != nil {
		return nil, err
	}
	sorted := slices.Clone(years)
	slices.Sort(sorted)

	out := make([]types.TableSelection, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		t, _ := c.Get(id)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sel := types.TableSelection{
				ID:    t.ID,
				Name:  t.Name,
				Years: slices.Clone(sorted),
				Grid:  tabular.FilterByYears(t.Grid, sorted),
			}
			if t.Sample {
				sel.Years = intersect(t.Years, sorted)
			}
			out[i] = sel
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Remove drops the table id from a built selection.
func Remove(tables []types.TableSelection, id string) []types.TableSelection {
	return slices.DeleteFunc(slices.Clone(tables), func(t types.TableSelection) bool {
		return t.ID == id
	})
}

func intersect(declared, selected []int) []int {
	out := []int{}
	for _, y := range declared {
		if slices.Contains(selected, y) {
			out = append(out, y)
		}
	}
	return out
}

func joinYears(years []int) string {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = strconv.Itoa(y)
	}
	return strings.Join(parts, ", ")
}
