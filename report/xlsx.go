package report

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/RyanBlaney/rdstat/analysis"
)

// Sheet names of the workbook.
const (
	SheetSummary  = "Summary"
	SheetClusters = "Clusters"
	SheetAlpha    = "AlphaPower"
	SheetERP      = "ERP"
)

// NewWorkbook lays a comparison out over the Summary, Clusters, AlphaPower
// and ERP sheets. Missing values are left as empty cells.
func NewWorkbook(cmp *analysis.Comparison, significance float64) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetClusters, SheetAlpha, SheetERP} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
	}

	w := &sheetWriter{f: f}
	w.summary(cmp)
	w.clusters(cmp, significance)
	w.alpha(cmp)
	w.erp(cmp)
	if w.err != nil {
		f.Close()
		return nil, w.err
	}
	return f, nil
}

// WriteXLSX writes the workbook to w.
func WriteXLSX(w io.Writer, cmp *analysis.Comparison, significance float64) error {
	f, err := NewWorkbook(cmp, significance)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveXLSX writes the workbook to path.
func SaveXLSX(path string, cmp *analysis.Comparison, significance float64) error {
	f, err := NewWorkbook(cmp, significance)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

// sheetWriter appends rows and keeps the first error.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (w *sheetWriter) row(sheet string, r int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err != nil {
		w.err = err
		return
	}
	for i, v := range values {
		values[i] = cellValue(v)
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("failed to write %s row %d: %w", sheet, r, err)
	}
}

// cellValue blanks non-finite numbers, which have no spreadsheet form.
func cellValue(v any) any {
	f, ok := v.(float64)
	if ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return ""
	}
	return v
}

func (w *sheetWriter) summary(cmp *analysis.Comparison) {
	a, b := cmp.A, cmp.B
	rows := [][]any{
		{"Run ID", cmp.ID},
		{"Created", cmp.CreatedAt.Format("2006-01-02 15:04:05 MST")},
		{"Channels", len(cmp.Channels)},
		{"Sampling rate (Hz)", cmp.SampleRate},
		{"Samples", len(cmp.Times)},
		{},
		{"Metric", a.Label, b.Label},
		{"Subjects", len(a.Subjects), len(b.Subjects)},
		{"Alpha power mean", float64(a.AlphaPowerMean), float64(b.AlphaPowerMean)},
		{"Alpha power SEM", float64(a.AlphaPowerSEM), float64(b.AlphaPowerSEM)},
		{"Peak alpha mean (Hz)", float64(a.PeakAlphaMean), float64(b.PeakAlphaMean)},
		{"Peak alpha SEM (Hz)", float64(a.PeakAlphaSEM), float64(b.PeakAlphaSEM)},
		{},
		{"Critical t", float64(cmp.Clusters.CriticalValue)},
		{"Degrees of freedom", cmp.Clusters.DegreesOfFreedom},
		{"Permutations", cmp.Clusters.Options.Permutations},
		{"Significant clusters", len(cmp.Significant)},
	}
	for i, r := range rows {
		w.row(SheetSummary, i+1, r...)
	}
}

func (w *sheetWriter) clusters(cmp *analysis.Comparison, significance float64) {
	w.row(SheetClusters, 1, "Channel", "Start (s)", "End (s)", "Start index", "End index", "Mass", "p-value", "Significant")
	r := 2
	for _, ch := range cmp.Clusters.Channels {
		for _, c := range ch.Clusters {
			w.row(SheetClusters, r,
				ch.Channel,
				at(cmp.Times, c.Start),
				at(cmp.Times, c.End-1),
				c.Start,
				c.End-1,
				c.Mass,
				c.PValue,
				c.PValue < significance,
			)
			r++
		}
	}
}

func (w *sheetWriter) alpha(cmp *analysis.Comparison) {
	w.row(SheetAlpha, 1, "Group", "Subject", "Alpha power", "Peak alpha (Hz)")
	r := 2
	for _, g := range []analysis.GroupSummary{cmp.A, cmp.B} {
		for s, subject := range g.Subjects {
			w.row(SheetAlpha, r, g.Label, subject, g.AlphaPower[s], g.PeakAlpha[s])
			r++
		}
	}
}

func (w *sheetWriter) erp(cmp *analysis.Comparison) {
	a, b := cmp.A, cmp.B
	w.row(SheetERP, 1, "Time (s)", a.Label+" mean", a.Label+" SE", b.Label+" mean", b.Label+" SE", "Significant")
	for i, t := range cmp.Times {
		w.row(SheetERP, i+2,
			t,
			at(a.ERP.Mean, i),
			at(a.ERP.SE, i),
			at(b.ERP.Mean, i),
			at(b.ERP.SE, i),
			i < len(cmp.SignificantMask) && cmp.SignificantMask[i],
		)
	}
}

func at(x []float64, i int) float64 {
	if i < 0 || i >= len(x) {
		return math.NaN()
	}
	return x[i]
}
