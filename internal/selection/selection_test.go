package selection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/nconklindev/yearview/internal/tabular"
	"github.com/nconklindev/yearview/internal/types"
)

var testOptions = Options{
	Detect: tabular.DetectOptions{
		Range:    tabular.YearRange{Min: 1990, Max: 2030},
		ScanRows: 5,
	},
	Fallback: []int{2024, 2025, 2026},
}

func uploadedSheets() []types.Sheet {
	late := types.Grid{{"Wilayah", "Nilai"}}
	for range 6 {
		late = append(late, []string{"x", "1"})
	}
	late = append(late, []string{"Catatan 2018", ""})

	return []types.Sheet{
		{Name: "TPAK", Grid: types.Grid{
			{"Region", "2019", "2020", "2021"},
			{"A", "1", "2", "3"},
			{"B", "4", "5", "6"},
		}},
		{Name: "TPT", Grid: types.Grid{
			{"Wilayah", "Tahun 2022"},
			{"A", "7"},
		}},
		{Name: "Notes", Grid: late},
	}
}

func TestNewCatalog(t *testing.T) {
	t.Run("Samples when nothing uploaded", func(t *testing.T) {
		c := NewCatalog(nil, testOptions)
		assert.False(t, c.Uploaded())
		require.Equal(t, 3, c.Len())
		for _, tbl := range c.Tables() {
			assert.True(t, tbl.Sample)
		}
		_, ok := c.Get("tpak-2020-2023")
		assert.True(t, ok)
	})

	t.Run("Uploaded sheets replace samples", func(t *testing.T) {
		c := NewCatalog(uploadedSheets(), testOptions)
		assert.True(t, c.Uploaded())
		require.Equal(t, 3, c.Len())
		tbl, ok := c.Get("sheet-1")
		require.True(t, ok)
		assert.Equal(t, "TPT", tbl.Name)
		_, ok = c.Get("tpak-2020-2023")
		assert.False(t, ok)
	})
}

func TestSearch(t *testing.T) {
	c := NewCatalog(nil, testOptions)

	tests := []struct {
		query    string
		expected []string
	}{
		{"", []string{"tpak-2020-2023", "penduduk-kerja-2020-2023", "pengangguran-2020-2023"}},
		{"tpt", []string{"pengangguran-2020-2023"}},
		{"  PENDUDUK ", []string{"penduduk-kerja-2020-2023"}},
		{"tapanuli", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var ids []string
			for _, tbl := range c.Search(tt.query) {
				ids = append(ids, tbl.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestAvailableYears(t *testing.T) {
	uploaded := NewCatalog(uploadedSheets(), testOptions)
	samples := NewCatalog(nil, testOptions)

	tests := []struct {
		name     string
		catalog  *Catalog
		ids      []string
		full     bool
		expected []int
	}{
		{name: "Samples use declared years", catalog: samples, ids: []string{"tpak-2020-2023"}, expected: []int{2020, 2021, 2022, 2023}},
		{name: "All samples", catalog: samples, expected: []int{2020, 2021, 2022, 2023}},
		{name: "One sheet", catalog: uploaded, ids: []string{"sheet-0"}, expected: []int{2019, 2020, 2021}},
		{name: "Union of sheets", catalog: uploaded, ids: []string{"sheet-0", "sheet-1"}, expected: []int{2019, 2020, 2021, 2022}},
		{name: "Whole catalog", catalog: uploaded, expected: []int{2019, 2020, 2021, 2022}},
		{name: "Late year needs full scan", catalog: uploaded, ids: []string{"sheet-2"}, expected: []int{2024, 2025, 2026}},
		{name: "Full scan", catalog: uploaded, ids: []string{"sheet-2"}, full: true, expected: []int{2018}},
		{name: "Unknown ids fall back", catalog: uploaded, ids: []string{"sheet-9"}, expected: []int{2024, 2025, 2026}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.catalog.AvailableYears(tt.ids, tt.full))
		})
	}
}

func TestRefresh(t *testing.T) {
	_, err := NewCatalog(nil, testOptions).Refresh()
	assert.ErrorIs(t, err, ErrNoUploads)

	c := NewCatalog(uploadedSheets(), testOptions)
	years, err := c.Refresh()
	require.NoError(t, err)
	assert.Equal(t, []int{2018, 2019, 2020, 2021, 2022}, years)

	// years found by the rescan stay selectable
	assert.Equal(t, years, c.AvailableYears(nil, false))
}

func TestRefreshDuringBuild(t *testing.T) {
	c := NewCatalog(uploadedSheets(), testOptions)
	ids := []string{SheetID(0), SheetID(1)}

	var g errgroup.Group
	for range 4 {
		g.Go(func() error {
			_, err := c.Build(context.Background(), ids, []int{2020})
			return err
		})
		g.Go(func() error {
			_, err := c.Refresh()
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Contains(t, c.AvailableYears(nil, false), 2018)
}

func TestValidateYears(t *testing.T) {
	c := NewCatalog(nil, testOptions)

	tests := []struct {
		name  string
		ids   []string
		years []int
		check func(t *testing.T, err error)
	}{
		{
			name:  "No tables",
			years: []int{2020},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrNoTables) },
		},
		{
			name:  "Too many tables",
			ids:   []string{"tpak-2020-2023", "penduduk-kerja-2020-2023", "pengangguran-2020-2023"},
			years: []int{2020},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrTooManyTables) },
		},
		{
			name:  "Unknown table",
			ids:   []string{"sheet-0"},
			years: []int{2020},
			check: func(t *testing.T, err error) {
				var unknown *UnknownTableError
				require.ErrorAs(t, err, &unknown)
				assert.Equal(t, "sheet-0", unknown.ID)
			},
		},
		{
			name:  "No years",
			ids:   []string{"tpak-2020-2023"},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrNoYears) },
		},
		{
			name:  "Unavailable years",
			ids:   []string{"tpak-2020-2023"},
			years: []int{2019, 2020, 2031},
			check: func(t *testing.T, err error) {
				var unavailable *UnavailableYearsError
				require.ErrorAs(t, err, &unavailable)
				assert.Equal(t, []int{2019, 2031}, unavailable.Years)
				assert.Contains(t, err.Error(), "2019, 2031")
			},
		},
		{
			name:  "Valid",
			ids:   []string{"tpak-2020-2023", "pengangguran-2020-2023"},
			years: []int{2023, 2020},
			check: func(t *testing.T, err error) { assert.NoError(t, err) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, c.ValidateYears(tt.ids, tt.years))
		})
	}
}

func TestBuild(t *testing.T) {
	t.Run("Sample table", func(t *testing.T) {
		c := NewCatalog(nil, testOptions)
		got, err := c.Build(context.Background(), []string{"tpak-2020-2023"}, []int{2023, 2021})
		require.NoError(t, err)
		require.Len(t, got, 1)

		sel := got[0]
		assert.Equal(t, "tpak-2020-2023", sel.ID)
		assert.Equal(t, []int{2021, 2023}, sel.Years)
		assert.Equal(t, []string{"Kabupaten/Kota", "2021", "2023"}, sel.Grid[0])
		assert.Equal(t, []string{"SUMATERA UTARA", "67.20", "71.08"}, sel.Grid[1])
		assert.Len(t, sel.Grid, 6)
	})

	t.Run("Uploaded sheets keep id order", func(t *testing.T) {
		c := NewCatalog(uploadedSheets(), testOptions)
		got, err := c.Build(context.Background(), []string{"sheet-1", "sheet-0"}, []int{2021, 2019})
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, "sheet-1", got[0].ID)
		// one matching column only: the grid comes back unfiltered
		assert.Equal(t, types.Grid{{"Wilayah", "Tahun 2022"}, {"A", "7"}}, got[0].Grid)

		assert.Equal(t, "sheet-0", got[1].ID)
		assert.Equal(t, []int{2019, 2021}, got[1].Years)
		assert.Equal(t, types.Grid{
			{"Region", "2019", "2021"},
			{"A", "1", "3"},
			{"B", "4", "6"},
		}, got[1].Grid)
	})

	t.Run("Validation error", func(t *testing.T) {
		c := NewCatalog(nil, testOptions)
		_, err := c.Build(context.Background(), nil, []int{2020})
		assert.ErrorIs(t, err, ErrNoTables)
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := NewCatalog(nil, testOptions)
		_, err := c.Build(ctx, []string{"tpak-2020-2023"}, []int{2020})
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestToggleTable(t *testing.T) {
	sel, err := ToggleTable(nil, "a")
	require.NoError(t, err)
	sel, err = ToggleTable(sel, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, sel)

	_, err = ToggleTable(sel, "c")
	assert.ErrorIs(t, err, ErrTooManyTables)

	sel, err = ToggleTable(sel, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, sel)
}

func TestToggleYear(t *testing.T) {
	years := ToggleYear(nil, 2022)
	years = ToggleYear(years, 2020)
	assert.Equal(t, []int{2020, 2022}, years)
	assert.Equal(t, []int{2022}, ToggleYear(years, 2020))
	// input untouched
	assert.Equal(t, []int{2020, 2022}, years)
}

func TestToggleAllYears(t *testing.T) {
	available := []int{2020, 2021}
	assert.Equal(t, available, ToggleAllYears([]int{2020}, available))
	assert.Nil(t, ToggleAllYears([]int{2020, 2021}, available))
}

func TestRemove(t *testing.T) {
	tables := []types.TableSelection{{ID: "a"}, {ID: "b"}}
	assert.Equal(t, []types.TableSelection{{ID: "b"}}, Remove(tables, "a"))
	assert.Len(t, tables, 2)
}
