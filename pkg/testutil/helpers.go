// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/demand-dashboard/internal/forecast"
	"github.com/iwvelando/demand-dashboard/pkg/constants"
	"github.com/iwvelando/demand-dashboard/pkg/datetime"
)

// SamplePayload is a complete prediction response as the backend returns it.
const SamplePayload = `{
  "average_demand": 157.5,
  "safety_stock": 22.36,
  "reorder_point": 180.25,
  "optimal_stock": 176,
  "previous_cost_per_day": 412.8,
  "optimized_cost_per_day": 351.114,
  "expected_savings": 61.686,
  "model_accuracy": 92.4,
  "confidence_level": 95,
  "actual": [
    {"ds": "2024-01-01", "y": 155, "optimal_stock": 176, "profit_band": 170.97},
    {"ds": "2024-01-02", "y": 149, "optimal_stock": 176, "profit_band": 158.36}
  ],
  "forecast": [
    {"ds": "2025-01-01", "yhat": 161.03, "yhat_lower": 155.1, "yhat_upper": 168.4, "optimal_stock": 176, "profit_band": 183.65}
  ]
}`

// SampleResult returns SamplePayload decoded. It panics if the payload is
// invalid, which would be a bug in the fixture.
func SampleResult() *forecast.Result {
	result, err := forecast.Decode([]byte(SamplePayload))
	if err != nil {
		panic(err)
	}
	return result
}

// SeriesResult builds a result with n actual and m forecast points on
// consecutive days starting 2024-01-01.
func SeriesResult(n, m int) *forecast.Result {
	result := &forecast.Result{}
	day := 0
	for i := 0; i < n; i++ {
		result.Actual = append(result.Actual, forecast.ActualPoint{
			Date:     dayString(day),
			Observed: forecast.Ptr(float64(100 + i)),
		})
		day++
	}
	for i := 0; i < m; i++ {
		result.Forecast = append(result.Forecast, forecast.ForecastPoint{
			Date:      dayString(day),
			Predicted: forecast.Ptr(float64(200 + i)),
		})
		day++
	}
	return result
}

// FindKey reports whether key is among the result's top-level keys.
func FindKey(result *forecast.Result, key string) bool {
	for _, k := range result.Keys() {
		if k == key {
			return true
		}
	}
	return false
}

func dayString(offset int) string {
	start := datetime.MustParseTime(constants.DateLayout, "2024-01-01")
	return start.AddDate(0, 0, offset).Format(constants.DateLayout)
}
