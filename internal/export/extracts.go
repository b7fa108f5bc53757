package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sld-insights/internal/model"
)

// MetroSummaryColumns is the header of the metro summary extract.
var MetroSummaryColumns = []string{"CBSA_Name", "NatWalkInd", "D4A", "Composite_VMT", "count"}

// WriteMetroSummaryCSV writes the metro summary extract read back by the
// dashboard's top metros chart.
func WriteMetroSummaryCSV(w io.Writer, stats []model.MetroStat) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MetroSummaryColumns); err != nil {
		return eris.Wrap(err, "export: write metro summary header")
	}
	for _, s := range stats {
		row := []string{
			s.RegionID,
			formatValue(s.Walkability),
			formatValue(s.DistanceToTransit),
			formatValue(s.CompositeVMT),
			strconv.Itoa(s.Count),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "export: write metro summary row %s", s.RegionID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush metro summary")
}

// WriteRegionsJSON writes records as a JSON array of flat objects keyed
// Region, StateCode, SustainabilityLabel and one key per metric. Missing
// values are null. A nil metric list writes every metric present.
func WriteRegionsJSON(w io.Writer, records []model.RegionRecord, metrics []model.Metric) error {
	if metrics == nil {
		metrics = metricUnion(records)
	}

	rows := make([]map[string]any, 0, len(records))
	for _, r := range records {
		row := make(map[string]any, len(metrics)+3)
		row["Region"] = r.RegionID
		if r.StateCode != "" {
			row["STATEFP"] = r.StateCode
		}
		if r.SustainabilityLabel != "" {
			row["SustainabilityLabel"] = r.SustainabilityLabel
		}
		for _, m := range metrics {
			row[string(m)] = r.Metric(m)
		}
		rows = append(rows, row)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(rows), "export: encode regions json")
}
