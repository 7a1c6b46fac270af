// Package chart shapes the cached forecast into a single plottable series and
// renders it as an interactive line chart.
package chart

import (
	"github.com/iwvelando/demand-dashboard/internal/forecast"
	"github.com/iwvelando/demand-dashboard/pkg/constants"
	"github.com/iwvelando/demand-dashboard/pkg/datetime"
)

// Point is one chart entry. Values that a record does not carry are nil.
type Point struct {
	Date         string   `json:"date"`
	Observed     *float64 `json:"observed_value"`
	Predicted    *float64 `json:"predicted_value"`
	Lower        *float64 `json:"lower_bound"`
	Upper        *float64 `json:"upper_bound"`
	OptimalStock *float64 `json:"optimal_stock"`
	ProfitBand   *float64 `json:"profit_band"`
}

// Series is the merged sequence of actual and forecast points.
type Series struct {
	Points []Point
	// Sample is set when the points come from the demo data rather than a
	// cached forecast.
	Sample bool
}

// Transform appends the forecast records after the actual records, keeping
// each series in its original order. Records are never merged by date: two
// records with the same date produce two points.
func Transform(result *forecast.Result) Series {
	sample := false
	if result == nil {
		result = fallbackResult()
		sample = true
	}

	points := make([]Point, 0, len(result.Actual)+len(result.Forecast))
	for _, a := range result.Actual {
		points = append(points, Point{
			Date:         a.Date,
			Observed:     a.Observed.FloatPtr(),
			OptimalStock: a.OptimalStock.FloatPtr(),
			ProfitBand:   a.ProfitBand.FloatPtr(),
		})
	}
	for _, f := range result.Forecast {
		points = append(points, Point{
			Date:         f.Date,
			Predicted:    f.Predicted.FloatPtr(),
			Lower:        f.Lower.FloatPtr(),
			Upper:        f.Upper.FloatPtr(),
			OptimalStock: f.OptimalStock.FloatPtr(),
			ProfitBand:   f.ProfitBand.FloatPtr(),
		})
	}
	return Series{Points: points, Sample: sample}
}

// Len returns the number of points.
func (s Series) Len() int {
	return len(s.Points)
}

// TickLayout picks the axis label layout for the series length.
func (s Series) TickLayout() string {
	if s.Len() > constants.CoarseTickThreshold {
		return datetime.MonthYearLabel
	}
	return datetime.MonthDayLabel
}

// TickLabel formats one date for the axis.
func (s Series) TickLabel(date string) string {
	return datetime.Label(date, s.TickLayout())
}

// Labels returns the axis label of every point.
func (s Series) Labels() []string {
	layout := s.TickLayout()
	labels := make([]string, len(s.Points))
	for i, p := range s.Points {
		labels[i] = datetime.Label(p.Date, layout)
	}
	return labels
}

// ShowZoom reports whether the chart needs a zoom slider.
func (s Series) ShowZoom() bool {
	return s.Len() > constants.ZoomThreshold
}

// fallbackResult is the demo data shown before anything has been uploaded.
func fallbackResult() *forecast.Result {
	p := forecast.Ptr
	return &forecast.Result{
		Actual: []forecast.ActualPoint{
			{Date: "2024-01-01", Observed: p(155), OptimalStock: p(176), ProfitBand: p(170.97)},
			{Date: "2024-01-02", Observed: p(149), OptimalStock: p(176), ProfitBand: p(158.36)},
			{Date: "2024-01-03", Observed: p(158), OptimalStock: p(176), ProfitBand: p(177.28)},
			{Date: "2024-01-04", Observed: p(168), OptimalStock: p(176), ProfitBand: p(198.29)},
		},
		Forecast: []forecast.ForecastPoint{
			{Date: "2025-01-01", Predicted: p(161.03), Lower: p(155.1), Upper: p(168.4), OptimalStock: p(176), ProfitBand: p(183.65)},
			{Date: "2025-01-02", Predicted: p(162.98), Lower: p(157.5), Upper: p(170.2), OptimalStock: p(176), ProfitBand: p(187.75)},
			{Date: "2025-01-03", Predicted: p(161.47), Lower: p(155.3), Upper: p(169.7), OptimalStock: p(176), ProfitBand: p(184.58)},
			{Date: "2025-01-04", Predicted: p(162.26), Lower: p(156.4), Upper: p(170.3), OptimalStock: p(176), ProfitBand: p(186.23)},
		},
	}
}
