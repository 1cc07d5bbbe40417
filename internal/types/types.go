package types

// Grid is a rectangular block of spreadsheet cells. Column 0 always holds the
// row identifier.
type Grid [][]string

// Rows returns the number of rows.
func (g Grid) Rows() int { return len(g) }

// Columns returns the width of the first row.
func (g Grid) Columns() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

type Sheet struct {
	Name string `json:"name"`
	Grid Grid   `json:"grid"`
}

// TableSelection is a table restricted to the chosen years.
type TableSelection struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Years []int  `json:"years"`
	Grid  Grid   `json:"grid"`
}

type HeaderInfo struct {
	HeaderRowIndex int        `json:"headerRowIndex"`
	Headers        []string   `json:"headers"`
	DataRows       [][]string `json:"dataRows"`
}

type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

type SeriesSet struct {
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
}

// Empty reports whether there is nothing to draw.
func (s SeriesSet) Empty() bool {
	return len(s.Series) == 0
}

type Statistics struct {
	Count      int     `json:"count"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Mean       float64 `json:"mean"`
	Rows       int     `json:"rows"`
	Columns    int     `json:"columns"`
	DataPoints int     `json:"dataPoints"`
}

type ChartMode int

const (
	MultiSeries ChartMode = iota
	SingleSeries
)

type ChartType string

const (
	ChartBar      ChartType = "bar"
	ChartLine     ChartType = "line"
	ChartPie      ChartType = "pie"
	ChartDoughnut ChartType = "doughnut"
)

// ChartTypes lists the chart types in the order the dashboard cycles them.
var ChartTypes = []ChartType{ChartBar, ChartLine, ChartPie, ChartDoughnut}

// Mode returns the series shape a chart type draws.
func (c ChartType) Mode() ChartMode {
	if c == ChartPie || c == ChartDoughnut {
		return SingleSeries
	}
	return MultiSeries
}

// Valid reports whether c is a known chart type.
func (c ChartType) Valid() bool {
	for _, t := range ChartTypes {
		if c == t {
			return true
		}
	}
	return false
}

type ExportResult struct {
	OutputFile string
	Format     string
	Tables     int
	Rows       int
}
