package export

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sld-insights/internal/model"
)

// RecordColumns are the identity columns written before the metrics.
var RecordColumns = []string{"CBSA_Name", "CSA_Name", "STATEFP", "GEOID10", "Walkability_Category", "SustainabilityLabel"}

// WriteRecordsCSV writes records with the identity columns followed by
// metrics. A nil metric list writes every metric any record holds, sorted by
// name. Missing values are empty.
func WriteRecordsCSV(w io.Writer, records []model.RegionRecord, metrics []model.Metric) error {
	if metrics == nil {
		metrics = metricUnion(records)
	}

	cw := csv.NewWriter(w)
	head := append([]string{}, RecordColumns...)
	for _, m := range metrics {
		head = append(head, string(m))
	}
	if err := cw.Write(head); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}

	row := make([]string, len(head))
	for _, r := range records {
		row = row[:0]
		row = append(row, r.RegionID, r.CSA, r.StateCode, r.GeoID, r.WalkabilityCategory, r.SustainabilityLabel)
		for _, m := range metrics {
			row = append(row, formatValue(r.Metric(m)))
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", r.RegionID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

func formatValue(v model.Value) string {
	f, ok := v.Finite()
	if !ok {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func metricUnion(records []model.RegionRecord) []model.Metric {
	seen := make(map[model.Metric]bool)
	for _, r := range records {
		for m, v := range r.Metrics {
			if v.Valid {
				seen[m] = true
			}
		}
	}
	out := make([]model.Metric, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
