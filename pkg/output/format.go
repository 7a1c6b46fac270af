// Package output provides utilities for exporting chart series.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/demand-dashboard/internal/chart"
)

// seriesColumns is the CSV header, one column per chart.Point field.
var seriesColumns = []string{
	"date",
	"observed_value",
	"predicted_value",
	"lower_bound",
	"upper_bound",
	"optimal_stock",
	"profit_band",
}

// SeriesCSV writes the merged chart series in comma-separated value format.
// Missing values are written as empty fields.
func SeriesCSV(w io.Writer, series chart.Series) error {
	for i, column := range seriesColumns {
		if i > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, `"%s"`, column); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	for _, p := range series.Points {
		if _, err := fmt.Fprintf(w, `"%s"`, escape(p.Date)); err != nil {
			return err
		}
		for _, v := range []*float64{p.Observed, p.Predicted, p.Lower, p.Upper, p.OptimalStock, p.ProfitBand} {
			if _, err := fmt.Fprintf(w, `,"%s"`, value(v)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func value(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

// escape doubles quotes so a date label cannot break the row.
func escape(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}
