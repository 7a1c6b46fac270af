// Package metrics projects the cached forecast onto the dashboard's metric
// cards. It only reads and formats; nothing here fails on missing data.
package metrics

import (
	"github.com/iwvelando/demand-dashboard/internal/forecast"
	"github.com/iwvelando/demand-dashboard/pkg/constants"
	"github.com/iwvelando/demand-dashboard/pkg/format"
	"github.com/iwvelando/demand-dashboard/pkg/mathutil"
)

// Units shown next to card values.
const (
	UnitUnits  = "Units"
	UnitDollar = "$"
)

// Card is one rendered metric.
type Card struct {
	Field     string `json:"field"`
	Title     string `json:"title"`
	Value     string `json:"value"`
	Display   string `json:"display"`
	Unit      string `json:"unit,omitempty"`
	Trend     string `json:"trend,omitempty"`
	Highlight bool   `json:"highlight,omitempty"`
	Available bool   `json:"available"`
}

type cardSpec struct {
	field     string
	title     string
	unit      string
	trend     string
	highlight bool
}

var cardSpecs = []cardSpec{
	{field: forecast.FieldAverageDemand, title: "Average Demand", unit: UnitUnits},
	{field: forecast.FieldSafetyStock, title: "Safety Stock", unit: UnitUnits},
	{field: forecast.FieldReorderPoint, title: "Reorder Point", unit: UnitUnits},
	{field: forecast.FieldOptimalStock, title: "Optimal Stock", unit: UnitUnits},
	{field: forecast.FieldPreviousCostPerDay, title: "Previous Cost/Day", unit: UnitDollar},
	{field: forecast.FieldOptimizedCostPerDay, title: "Optimized Cost/Day", unit: UnitDollar},
	{field: forecast.FieldExpectedSavings, title: "Expected Savings", trend: "AI Optimization", highlight: true},
	{field: forecast.FieldModelAccuracy, title: "Model Accuracy", trend: "Forecast Precision"},
	{field: forecast.FieldConfidenceLevel, title: "Confidence Level", trend: "Prediction Reliability"},
}

// Project returns the metric cards in display order. A nil result yields
// every card marked unavailable.
func Project(result *forecast.Result) []Card {
	cards := make([]Card, 0, len(cardSpecs))
	for _, spec := range cardSpecs {
		card := Card{
			Field:     spec.field,
			Title:     spec.title,
			Unit:      spec.unit,
			Trend:     spec.trend,
			Highlight: spec.highlight,
			Value:     constants.Unavailable,
			Display:   constants.Unavailable,
		}
		if value, ok := result.Field(spec.field).Float(); ok {
			card.Available = true
			card.Value = format.Fixed(value)
			card.Display = display(value, spec.unit)
		}
		cards = append(cards, card)
	}
	return cards
}

// Unavailable returns the fields of the cards that could not be shown.
func Unavailable(cards []Card) []string {
	var fields []string
	for _, card := range cards {
		if !card.Available {
			fields = append(fields, card.Field)
		}
	}
	return fields
}

func display(value float64, unit string) string {
	switch unit {
	case UnitDollar:
		return format.Currency(value)
	case UnitUnits:
		return format.Grouped(value) + " " + UnitUnits
	default:
		return format.Grouped(value)
	}
}

// Accuracy returns the model accuracy reported by the backend, or the
// fallback accuracy when it is missing or not numeric.
func Accuracy(result *forecast.Result) float64 {
	if value, ok := result.Field(forecast.FieldModelAccuracy).Float(); ok && value != 0 {
		return value
	}
	return constants.FallbackAccuracy
}

// AccuracyCard summarizes the accuracy for the accuracy panel.
type AccuracyCard struct {
	Value   float64 `json:"value"`
	Display string  `json:"display"`
	Status  string  `json:"status"`
	Bar     float64 `json:"bar"`
}

// NewAccuracyCard builds the accuracy panel for a value.
func NewAccuracyCard(accuracy float64) AccuracyCard {
	return AccuracyCard{
		Value:   accuracy,
		Display: format.Percent(accuracy),
		Status:  AccuracyStatus(accuracy),
		Bar:     AccuracyBar(accuracy),
	}
}

// AccuracyStatus grades an accuracy percentage.
func AccuracyStatus(accuracy float64) string {
	switch {
	case accuracy >= 90:
		return "Excellent"
	case accuracy >= 80:
		return "Good"
	case accuracy >= 70:
		return "Fair"
	default:
		return "Needs Improvement"
	}
}

// AccuracyBar returns the progress bar width in percent, clamped to [0, 100].
func AccuracyBar(accuracy float64) float64 {
	return mathutil.Clamp(accuracy, 0, 100)
}
