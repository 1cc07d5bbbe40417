package export

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/nconklindev/yearview/internal/tabular"
	"github.com/nconklindev/yearview/internal/types"
)

// palette is cycled per series (bar/line) or per slice (pie/doughnut).
var palette = []drawing.Color{
	drawing.ColorFromHex("3b82f6"),
	drawing.ColorFromHex("10b981"),
	drawing.ColorFromHex("f59e0b"),
	drawing.ColorFromHex("ef4444"),
	drawing.ColorFromHex("8b5cf6"),
	drawing.ColorFromHex("06b6d4"),
	drawing.ColorFromHex("84cc16"),
	drawing.ColorFromHex("f97316"),
}

func paletteColor(i int) drawing.Color {
	return palette[i%len(palette)]
}

// ChartSpec describes one chart image.
type ChartSpec struct {
	Title  string
	Type   types.ChartType
	Year   int
	Width  int
	Height int
}

// RenderChart draws grid as a PNG. It returns ErrNoData when the grid yields
// nothing to draw.
func RenderChart(w io.Writer, grid types.Grid, spec ChartSpec) error {
	set := tabular.BuildSeries(grid, spec.Type.Mode(), spec.Year)
	if set.Empty() || len(set.Labels) == 0 {
		return ErrNoData
	}

	switch spec.Type {
	case types.ChartPie, types.ChartDoughnut:
		return renderPie(w, set, spec)
	case types.ChartLine:
		return renderLine(w, set, spec)
	case types.ChartBar, "":
		return renderBar(w, set, spec)
	default:
		return fmt.Errorf("unknown chart type %q", spec.Type)
	}
}

func renderBar(w io.Writer, set types.SeriesSet, spec ChartSpec) error {
	multi := len(set.Series) > 1
	var bars []chart.Value
	var all []float64
	for i, label := range set.Labels {
		for s, series := range set.Series {
			name := label
			if multi {
				name = label + " " + series.Name
			}
			v := series.Values[i]
			all = append(all, v)
			bars = append(bars, chart.Value{
				Label: name,
				Value: v,
				Style: chart.Style{
					FillColor:   paletteColor(s),
					StrokeColor: paletteColor(s),
					StrokeWidth: 0,
				},
			})
		}
	}

	bc := chart.BarChart{
		Title:      spec.Title,
		Width:      spec.Width,
		Height:     spec.Height,
		BarWidth:   barWidth(spec.Width, len(bars)),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.Style{FontSize: 8},
		YAxis: chart.YAxis{
			Range: valueRange(all),
		},
		Bars: bars,
	}
	return bc.Render(chart.PNG, w)
}

func renderLine(w io.Writer, set types.SeriesSet, spec ChartSpec) error {
	xs := make([]float64, len(set.Labels))
	ticks := make([]chart.Tick, len(set.Labels))
	for i, label := range set.Labels {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: label}
	}

	var series []chart.Series
	var all []float64
	for s, ss := range set.Series {
		all = append(all, ss.Values...)
		series = append(series, chart.ContinuousSeries{
			Name:    ss.Name,
			XValues: xs,
			YValues: ss.Values,
			Style: chart.Style{
				StrokeColor: paletteColor(s),
				StrokeWidth: 2,
				DotColor:    paletteColor(s),
				DotWidth:    3,
			},
		})
	}

	ch := chart.Chart{
		Title:      spec.Title,
		Width:      spec.Width,
		Height:     spec.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis: chart.XAxis{
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: -0.5, Max: float64(len(xs)) - 0.5},
		},
		YAxis:  chart.YAxis{Range: valueRange(all)},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(chart.PNG, w)
}

// renderPie draws the single series. Slices must be positive, so zero and
// negative values are left out.
func renderPie(w io.Writer, set types.SeriesSet, spec ChartSpec) error {
	values := set.Series[0].Values
	var slices []chart.Value
	for i, label := range set.Labels {
		if values[i] <= 0 {
			continue
		}
		slices = append(slices, chart.Value{
			Label: label,
			Value: values[i],
			Style: chart.Style{FillColor: paletteColor(i)},
		})
	}
	if len(slices) == 0 {
		return ErrNoData
	}

	if spec.Type == types.ChartDoughnut {
		dc := chart.DonutChart{
			Title:  spec.Title,
			Width:  spec.Width,
			Height: spec.Height,
			Values: slices,
		}
		return dc.Render(chart.PNG, w)
	}
	pc := chart.PieChart{
		Title:  spec.Title,
		Width:  spec.Width,
		Height: spec.Height,
		Values: slices,
	}
	return pc.Render(chart.PNG, w)
}

// valueRange spans 0 and every value, never collapsing to zero width.
func valueRange(values []float64) *chart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi + (hi-lo)*0.05}
}

func barWidth(width, bars int) int {
	if bars == 0 {
		return 0
	}
	return max(4, min(60, (width-100)/bars-4))
}

func (e *Exporter) chartSpec(title string) ChartSpec {
	return ChartSpec{
		Title:  title,
		Type:   e.opts.Chart,
		Year:   e.opts.ChartYear,
		Width:  e.opts.ChartWidth,
		Height: e.opts.ChartHeight,
	}
}

func (e *Exporter) writePNG(w io.Writer, d Data) error {
	i := e.opts.ChartTable
	if i < 0 || i >= len(d.Tables) {
		return fmt.Errorf("%w: no table %d", ErrNoData, i)
	}
	t := d.Tables[i]
	return RenderChart(w, t.Grid, e.chartSpec(ChartTitle(t.Name, e.opts.Chart, d.SelectedYears, e.opts.ChartYear)))
}

// chartPNG renders a table's chart into memory for embedding.
func (e *Exporter) chartPNG(t types.TableSelection, years []int) ([]byte, error) {
	var buf bytes.Buffer
	spec := e.chartSpec(ChartTitle(t.Name, e.opts.Chart, years, e.opts.ChartYear))
	if err := RenderChart(&buf, t.Grid, spec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
