package sweep

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/banshee-data/kappa/internal/kappa"
)

// PointHeaders are the column names of the point CSV.
var PointHeaders = []string{"t_med", "t_s", "c_kappa", "domain_error"}

// SummaryHeaders are the column names of the summary CSV.
var SummaryHeaders = []string{"t_med", "count", "domain_errors", "min", "max", "mean", "stddev"}

// CSVWriter wraps csv.Writer with methods for sweep output.
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter creates a CSVWriter on out.
func NewCSVWriter(out io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(out)}
}

// WritePoints writes the header and one row per point. Points with a domain
// error leave c_kappa empty and carry the error text.
func (c *CSVWriter) WritePoints(points []Point) error {
	if err := c.w.Write(PointHeaders); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{kappa.FormatValue(p.TMed), kappa.FormatValue(p.TS), "", ""}
		if p.OK() {
			row[2] = kappa.FormatValue(p.Kappa)
		} else {
			row[3] = p.Err.Error()
		}
		if err := c.w.Write(row); err != nil {
			return err
		}
	}
	return c.Flush()
}

// WriteSummaries writes the header and one row per summary.
func (c *CSVWriter) WriteSummaries(summaries []Summary) error {
	if err := c.w.Write(SummaryHeaders); err != nil {
		return err
	}
	for _, s := range summaries {
		row := []string{
			kappa.FormatValue(s.TMed),
			fmt.Sprintf("%d", s.Count),
			fmt.Sprintf("%d", s.DomainErrors),
			kappa.FormatValue(s.Min),
			kappa.FormatValue(s.Max),
			kappa.FormatValue(s.Mean),
			kappa.FormatValue(s.Stddev),
		}
		if err := c.w.Write(row); err != nil {
			return err
		}
	}
	return c.Flush()
}

// Flush flushes the underlying writer and reports any write error.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}
