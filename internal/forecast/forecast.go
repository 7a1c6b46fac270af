// Package forecast defines the data structures returned by the prediction
// backend and includes the tolerant JSON handling used to read them.
package forecast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/iwvelando/demand-dashboard/pkg/mathutil"
)

// Wire names of the recognized top-level fields.
const (
	FieldAverageDemand       = "average_demand"
	FieldSafetyStock         = "safety_stock"
	FieldReorderPoint        = "reorder_point"
	FieldOptimalStock        = "optimal_stock"
	FieldPreviousCostPerDay  = "previous_cost_per_day"
	FieldOptimizedCostPerDay = "optimized_cost_per_day"
	FieldExpectedSavings     = "expected_savings"
	FieldModelAccuracy       = "model_accuracy"
	FieldConfidenceLevel     = "confidence_level"
	FieldActual              = "actual"
	FieldForecast            = "forecast"
)

// Result holds the most recent prediction returned by the backend. Every
// field is optional. Keys the dashboard does not recognize are kept in Extra
// so that the record can be written back unchanged.
type Result struct {
	AverageDemand       *Measure
	SafetyStock         *Measure
	ReorderPoint        *Measure
	OptimalStock        *Measure
	PreviousCostPerDay  *Measure
	OptimizedCostPerDay *Measure
	ExpectedSavings     *Measure
	ModelAccuracy       *Measure
	ConfidenceLevel     *Measure

	Actual   []ActualPoint
	Forecast []ForecastPoint

	Extra map[string]json.RawMessage
}

// ActualPoint is one observed demand record.
type ActualPoint struct {
	Date         string   `json:"ds"`
	Observed     *Measure `json:"y,omitempty"`
	OptimalStock *Measure `json:"optimal_stock,omitempty"`
	ProfitBand   *Measure `json:"profit_band,omitempty"`

	// dateToken is a non-string ds as received, e.g. epoch milliseconds.
	dateToken json.RawMessage
}

// ForecastPoint is one predicted demand record with its confidence bounds.
type ForecastPoint struct {
	Date         string   `json:"ds"`
	Predicted    *Measure `json:"yhat,omitempty"`
	Lower        *Measure `json:"yhat_lower,omitempty"`
	Upper        *Measure `json:"yhat_upper,omitempty"`
	OptimalStock *Measure `json:"optimal_stock,omitempty"`
	ProfitBand   *Measure `json:"profit_band,omitempty"`

	dateToken json.RawMessage
}

// UnmarshalJSON accepts any JSON token as the date.
func (p *ActualPoint) UnmarshalJSON(data []byte) error {
	type plain ActualPoint
	var aux struct {
		plain
		Date json.RawMessage `json:"ds"`
	}
	if isNull(data) {
		return nil
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = ActualPoint(aux.plain)
	p.Date, p.dateToken = decodeDate(aux.Date)
	return nil
}

// MarshalJSON writes a non-string date back as it was received.
func (p ActualPoint) MarshalJSON() ([]byte, error) {
	type plain ActualPoint
	return json.Marshal(struct {
		plain
		Date json.RawMessage `json:"ds"`
	}{plain(p), encodeDate(p.Date, p.dateToken)})
}

// UnmarshalJSON accepts any JSON token as the date.
func (p *ForecastPoint) UnmarshalJSON(data []byte) error {
	type plain ForecastPoint
	var aux struct {
		plain
		Date json.RawMessage `json:"ds"`
	}
	if isNull(data) {
		return nil
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = ForecastPoint(aux.plain)
	p.Date, p.dateToken = decodeDate(aux.Date)
	return nil
}

// MarshalJSON writes a non-string date back as it was received.
func (p ForecastPoint) MarshalJSON() ([]byte, error) {
	type plain ForecastPoint
	return json.Marshal(struct {
		plain
		Date json.RawMessage `json:"ds"`
	}{plain(p), encodeDate(p.Date, p.dateToken)})
}

// decodeDate renders a ds token as text. Only non-string tokens are kept.
func decodeDate(raw json.RawMessage) (string, json.RawMessage) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isNull(raw) {
		return "", nil
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			return text, nil
		}
	}
	return string(raw), append(json.RawMessage(nil), raw...)
}

// encodeDate returns the original token unless the date has been changed.
func encodeDate(date string, token json.RawMessage) json.RawMessage {
	if token != nil && string(token) == date {
		return token
	}
	encoded, err := json.Marshal(date)
	if err != nil {
		return json.RawMessage(`""`)
	}
	return encoded
}

// decodeSeries decodes each element on its own so one bad entry does not
// cost the whole series. Elements that are not objects are skipped. ok is
// false when the value is not an array at all.
func decodeSeries[T any](raw json.RawMessage) (points []T, ok bool) {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil || elements == nil {
		return nil, false
	}
	points = make([]T, 0, len(elements))
	for _, element := range elements {
		trimmed := bytes.TrimSpace(element)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			continue
		}
		var point T
		if err := json.Unmarshal(trimmed, &point); err != nil {
			continue
		}
		points = append(points, point)
	}
	return points, true
}

// measureFields maps wire names to the scalar fields of a Result.
func (r *Result) measureFields() map[string]**Measure {
	return map[string]**Measure{
		FieldAverageDemand:       &r.AverageDemand,
		FieldSafetyStock:         &r.SafetyStock,
		FieldReorderPoint:        &r.ReorderPoint,
		FieldOptimalStock:        &r.OptimalStock,
		FieldPreviousCostPerDay:  &r.PreviousCostPerDay,
		FieldOptimizedCostPerDay: &r.OptimizedCostPerDay,
		FieldExpectedSavings:     &r.ExpectedSavings,
		FieldModelAccuracy:       &r.ModelAccuracy,
		FieldConfidenceLevel:     &r.ConfidenceLevel,
	}
}

// Field returns the scalar measure stored under the given wire name, or nil.
func (r *Result) Field(name string) *Measure {
	if r == nil {
		return nil
	}
	ptr, ok := r.measureFields()[name]
	if !ok {
		return nil
	}
	return *ptr
}

// UnmarshalJSON decodes a backend payload. A series that is not an array is
// kept in Extra as received rather than failing the whole record.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("forecast result must be a JSON object: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("forecast result must be a JSON object, got null")
	}

	*r = Result{}
	fields := r.measureFields()
	for key, value := range raw {
		if ptr, ok := fields[key]; ok {
			if isNull(value) {
				continue
			}
			m := NewRawMeasure(value)
			*ptr = &m
			continue
		}

		if (key == FieldActual || key == FieldForecast) && isNull(value) {
			continue
		}
		switch key {
		case FieldActual:
			if points, ok := decodeSeries[ActualPoint](value); ok {
				r.Actual = points
				continue
			}
		case FieldForecast:
			if points, ok := decodeSeries[ForecastPoint](value); ok {
				r.Forecast = points
				continue
			}
		}
		r.keep(key, value)
	}
	return nil
}

func (r *Result) keep(key string, value json.RawMessage) {
	if r.Extra == nil {
		r.Extra = make(map[string]json.RawMessage)
	}
	r.Extra[key] = append(json.RawMessage(nil), value...)
}

// MarshalJSON encodes the record using the backend's wire names.
func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Extra)+11)
	for key, value := range r.Extra {
		out[key] = value
	}
	for key, ptr := range r.measureFields() {
		if *ptr != nil {
			out[key] = *ptr
		}
	}
	if r.Actual != nil {
		out[FieldActual] = r.Actual
	}
	if r.Forecast != nil {
		out[FieldForecast] = r.Forecast
	}
	return json.Marshal(out)
}

// Decode parses a backend payload into a Result.
func Decode(data []byte) (*Result, error) {
	var result Result
	if err := json.Unmarshal(bytes.TrimSpace(data), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Keys returns the top-level keys present in the record, sorted.
func (r *Result) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.Extra)+11)
	for key, ptr := range r.measureFields() {
		if *ptr != nil {
			keys = append(keys, key)
		}
	}
	if r.Actual != nil {
		keys = append(keys, FieldActual)
	}
	if r.Forecast != nil {
		keys = append(keys, FieldForecast)
	}
	for key := range r.Extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Measure is a numeric value as reported by the backend. Backends are not
// consistent about sending numbers, so the raw JSON token is kept and
// interpreted on demand.
type Measure struct {
	raw json.RawMessage
}

// NewMeasure returns a Measure holding a JSON number.
func NewMeasure(value float64) Measure {
	return Measure{raw: json.RawMessage(strconv.FormatFloat(value, 'f', -1, 64))}
}

// NewRawMeasure wraps a raw JSON token.
func NewRawMeasure(raw json.RawMessage) Measure {
	return Measure{raw: append(json.RawMessage(nil), bytes.TrimSpace(raw)...)}
}

// Ptr is a convenience for building literal records.
func Ptr(value float64) *Measure {
	m := NewMeasure(value)
	return &m
}

// Float interprets the measure. Numbers are numeric; strings are numeric when
// they start with a decimal number ("92.5%" reads as 92.5). Anything else,
// including NaN and infinities, is reported as not numeric.
func (m *Measure) Float() (float64, bool) {
	if m == nil || len(m.raw) == 0 {
		return 0, false
	}

	var value float64
	switch m.raw[0] {
	case '"':
		var text string
		if err := json.Unmarshal(m.raw, &text); err != nil {
			return 0, false
		}
		parsed, ok := leadingFloat(text)
		if !ok {
			return 0, false
		}
		value = parsed
	case 'n', 't', 'f', '{', '[':
		return 0, false
	default:
		parsed, err := strconv.ParseFloat(string(m.raw), 64)
		if err != nil {
			return 0, false
		}
		value = parsed
	}

	if !mathutil.IsFinite(value) {
		return 0, false
	}
	return value, true
}

// FloatPtr returns the numeric value or nil.
func (m *Measure) FloatPtr() *float64 {
	value, ok := m.Float()
	if !ok {
		return nil
	}
	return &value
}

// Raw returns the JSON token as received.
func (m *Measure) Raw() json.RawMessage {
	if m == nil {
		return nil
	}
	return m.raw
}

// String returns the token as display text; strings lose their quotes.
func (m *Measure) String() string {
	if m == nil || len(m.raw) == 0 {
		return ""
	}
	if m.raw[0] == '"' {
		var text string
		if err := json.Unmarshal(m.raw, &text); err == nil {
			return text
		}
	}
	return string(m.raw)
}

// MarshalJSON writes the token back unchanged.
func (m Measure) MarshalJSON() ([]byte, error) {
	if len(m.raw) == 0 {
		return []byte("null"), nil
	}
	return m.raw, nil
}

// UnmarshalJSON keeps the token for later interpretation.
func (m *Measure) UnmarshalJSON(data []byte) error {
	m.raw = append(json.RawMessage(nil), bytes.TrimSpace(data)...)
	return nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// leadingFloat parses the longest decimal prefix of text, after leading
// whitespace, in the way a lenient form parser would.
func leadingFloat(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	end := 0
	seenDigit, seenDot, seenExp := false, false, false
scan:
	for end < len(s) {
		c := s[end]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case (c == '+' || c == '-') && (end == 0 || s[end-1] == 'e' || s[end-1] == 'E'):
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
		case (c == 'e' || c == 'E') && seenDigit && !seenExp:
			seenExp = true
		default:
			break scan
		}
		end++
	}
	for end > 0 {
		if value, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return value, true
		}
		end--
	}
	return 0, false
}
