// Package export writes dashboard results to xlsx, CSV and GeoJSON.
package export

import (
	"io"
	"math"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/sld-insights/internal/aggregate"
	"github.com/sells-group/sld-insights/internal/dashboard"
	"github.com/sells-group/sld-insights/internal/model"
	"github.com/sells-group/sld-insights/internal/prepare"
)

// Workbook sheet names, in write order.
const (
	SheetCorrelation    = "correlation"
	SheetFlow           = "flow"
	SheetStates         = "states"
	SheetSustainability = "sustainability"
	SheetTopMetros      = "top_metros"
)

// WriteWorkbook writes every table of b as one xlsx workbook. Missing and
// NaN values become empty cells.
func WriteWorkbook(w io.Writer, b dashboard.Bundle) error {
	f := xlsx.NewFile()
	for _, s := range []struct {
		name string
		fill func(*xlsx.Sheet, dashboard.Bundle)
	}{
		{SheetCorrelation, correlationSheet},
		{SheetFlow, flowSheet},
		{SheetStates, statesSheet},
		{SheetSustainability, sustainabilitySheet},
		{SheetTopMetros, topMetrosSheet},
	} {
		sheet, err := f.AddSheet(s.name)
		if err != nil {
			return eris.Wrapf(err, "export: add sheet %s", s.name)
		}
		s.fill(sheet, b)
	}
	return eris.Wrap(f.Write(w), "export: write workbook")
}

func header(sheet *xlsx.Sheet, cols ...string) {
	row := sheet.AddRow()
	for _, c := range cols {
		row.AddCell().SetString(c)
	}
}

func addFloat(row *xlsx.Row, v float64) {
	cell := row.AddCell()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	cell.SetFloat(v)
}

func addValue(row *xlsx.Row, v model.Value) {
	if f, ok := v.Finite(); ok {
		row.AddCell().SetFloat(f)
		return
	}
	row.AddCell()
}

func correlationSheet(sheet *xlsx.Sheet, b dashboard.Bundle) {
	cols := []string{"metric"}
	for _, m := range b.Correlation.MetricLabels {
		cols = append(cols, string(m))
	}
	header(sheet, cols...)

	for i, m := range b.Correlation.MetricLabels {
		row := sheet.AddRow()
		row.AddCell().SetString(string(m))
		for j := range b.Correlation.MetricLabels {
			addFloat(row, float64(b.Correlation.At(i, j)))
		}
	}
}

func flowSheet(sheet *xlsx.Sheet, b dashboard.Bundle) {
	p := message.NewPrinter(language.English)
	header(sheet, "source", "target", "households", "share_of_source", "share_of_target", "label")

	g := b.Flow
	for i, l := range g.Links {
		src, dst := g.Nodes[l.Source].Name, g.Nodes[l.Target].Name
		ofSource, ofTarget := g.LinkShares(i)

		row := sheet.AddRow()
		row.AddCell().SetString(src)
		row.AddCell().SetString(dst)
		addFloat(row, l.Value)
		addFloat(row, ofSource)
		addFloat(row, ofTarget)
		row.AddCell().SetString(p.Sprintf("%s to %s: %.0f households", src, dst, l.Value))
	}
}

func statesSheet(sheet *xlsx.Sheet, b dashboard.Bundle) {
	header(sheet, "state_code", "state_name", "metric", "average", "count", "color")
	for _, r := range b.StateRows() {
		row := sheet.AddRow()
		row.AddCell().SetString(r.StateCode)
		row.AddCell().SetString(r.StateName)
		row.AddCell().SetString(r.Metric)
		addFloat(row, r.Average)
		row.AddCell().SetInt(r.Count)
		row.AddCell().SetString(b.States.Color(r.StateCode))
	}
}

func sustainabilitySheet(sheet *xlsx.Sheet, b dashboard.Bundle) {
	metrics := prepare.SustainabilityMetrics
	cols := []string{"Region", "SustainabilityLabel"}
	for _, m := range metrics {
		cols = append(cols, string(m))
	}
	for _, m := range metrics {
		cols = append(cols, string(m)+aggregate.NormSuffix)
	}
	header(sheet, cols...)

	for _, r := range b.Sustainability {
		row := sheet.AddRow()
		row.AddCell().SetString(r.RegionID)
		row.AddCell().SetString(r.SustainabilityLabel)
		for _, m := range metrics {
			addValue(row, r.Values[m])
		}
		for _, m := range metrics {
			addFloat(row, r.Norm[m])
		}
	}
}

func topMetrosSheet(sheet *xlsx.Sheet, b dashboard.Bundle) {
	header(sheet, "CBSA_Name", "NatWalkInd", "D4A", "Composite_VMT", "count")
	for _, s := range b.TopMetros {
		row := sheet.AddRow()
		row.AddCell().SetString(s.RegionID)
		addValue(row, s.Walkability)
		addValue(row, s.DistanceToTransit)
		addValue(row, s.CompositeVMT)
		row.AddCell().SetInt(s.Count)
	}
}
