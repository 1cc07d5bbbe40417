// Package samples holds the demo tables offered next to uploaded sheets.
package samples

import (
	"slices"

	"github.com/nconklindev/yearview/internal/types"
)

type Table struct {
	ID    string
	Name  string
	Years []int
	Grid  types.Grid
}

var tables = []Table{
	{
		ID:    "tpak-2020-2023",
		Name:  "Tingkat Partisipasi Angkatan Kerja (TPAK)",
		Years: []int{2020, 2021, 2022, 2023},
		Grid: types.Grid{
			{"Kabupaten/Kota", "2020", "2021", "2022", "2023"},
			{"SUMATERA UTARA", "65.50", "67.20", "68.22", "71.08"},
			{"NIAS", "62.30", "63.50", "64.00", "69.69"},
			{"MANDAILING NATAL", "69.80", "70.45", "71.15", "63.07"},
			{"TAPANULI SELATAN", "66.20", "67.80", "68.90", "70.15"},
			{"TAPANULI TENGAH", "64.50", "65.90", "66.75", "68.20"},
		},
	},
	{
		ID:    "penduduk-kerja-2020-2023",
		Name:  "Penduduk Bekerja 15 Tahun ke Atas",
		Years: []int{2020, 2021, 2022, 2023},
		Grid: types.Grid{
			{"Kabupaten/Kota", "2020", "2021", "2022", "2023"},
			{"SUMATERA UTARA", "7000.5", "7150.2", "7284.1", "7456.2"},
			{"NIAS", "135.2", "138.5", "142.8", "145.6"},
			{"MANDAILING NATAL", "85.3", "87.2", "89.7", "92.1"},
			{"TAPANULI SELATAN", "420.5", "430.1", "438.9", "445.2"},
			{"TAPANULI TENGAH", "380.2", "388.5", "395.3", "402.1"},
		},
	},
	{
		ID:    "pengangguran-2020-2023",
		Name:  "Tingkat Pengangguran Terbuka (TPT)",
		Years: []int{2020, 2021, 2022, 2023},
		Grid: types.Grid{
			{"Kabupaten/Kota", "2020", "2021", "2022", "2023"},
			{"SUMATERA UTARA", "6.50", "6.20", "5.83", "5.42"},
			{"NIAS", "3.80", "3.50", "3.21", "3.08"},
			{"MANDAILING NATAL", "5.20", "4.95", "4.67", "4.23"},
			{"TAPANULI SELATAN", "4.80", "4.60", "4.35", "4.10"},
			{"TAPANULI TENGAH", "5.10", "4.85", "4.55", "4.25"},
		},
	},
}

// All returns copies of the sample tables.
func All() []Table {
	out := make([]Table, len(tables))
	for i, t := range tables {
		out[i] = t.clone()
	}
	return out
}

// Get returns the sample table with the given id.
func Get(id string) (Table, bool) {
	for _, t := range tables {
		if t.ID == id {
			return t.clone(), true
		}
	}
	return Table{}, false
}

func (t Table) clone() Table {
	g := make(types.Grid, len(t.Grid))
	for i, row := range t.Grid {
		g[i] = slices.Clone(row)
	}
	t.Grid = g
	t.Years = slices.Clone(t.Years)
	return t
}
