package chart

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// missing is how ECharts expects a gap in a line.
const missing = "-"

// Options controls the rendered chart page.
type Options struct {
	Title  string
	Height string
}

type seriesSpec struct {
	name   string
	color  string
	width  float32
	dashed bool
	value  func(Point) *float64
}

var seriesSpecs = []seriesSpec{
	{name: "Actual Demand", color: "#0070f3", width: 2.5, value: func(p Point) *float64 { return p.Observed }},
	{name: "Forecasted Demand", color: "#ff9800", width: 2.5, dashed: true, value: func(p Point) *float64 { return p.Predicted }},
	{name: "Optimal Stock", color: "#16a34a", width: 2.2, value: func(p Point) *float64 { return p.OptimalStock }},
	{name: "Profit Band", color: "#9ca3af", width: 3, dashed: true, value: func(p Point) *float64 { return p.ProfitBand }},
}

// NewLineChart builds the demand chart for a series.
func NewLineChart(series Series, o Options) *charts.Line {
	if o.Title == "" {
		o.Title = "Demand Forecast & Optimization"
	}
	if o.Height == "" {
		o.Height = "480px"
	}

	subtitle := fmt.Sprintf("%d points", series.Len())
	if series.Sample {
		subtitle = "Sample data: upload your demand data to see AI-powered forecasts"
	}

	line := charts.NewLine()
	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: o.Title,
			Width:     "100%",
			Height:    o.Height,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    o.Title,
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Top:  "bottom",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Date",
			Type: "category",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "Units / Inventory",
			Type: "value",
		}),
	}
	if series.ShowZoom() {
		global = append(global, charts.WithDataZoomOpts(opts.DataZoom{
			Type:  "slider",
			Start: 0,
			End:   100,
		}))
	}
	line.SetGlobalOptions(global...)
	line.SetXAxis(series.Labels())

	for _, spec := range seriesSpecs {
		data := make([]opts.LineData, len(series.Points))
		for i, p := range series.Points {
			if v := spec.value(p); v != nil {
				data[i] = opts.LineData{Value: *v}
			} else {
				data[i] = opts.LineData{Value: missing}
			}
		}

		style := opts.LineStyle{Color: spec.color, Width: spec.width}
		if spec.dashed {
			style.Type = "dashed"
		}
		line.AddSeries(spec.name, data,
			charts.WithLineChartOpts(opts.LineChart{
				Smooth:     opts.Bool(true),
				ShowSymbol: opts.Bool(false),
			}),
			charts.WithLineStyleOpts(style),
		)
	}
	return line
}

// Render writes a standalone HTML page containing the chart.
func Render(w io.Writer, series Series, o Options) error {
	if err := NewLineChart(series, o).Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
