package aggregate

import (
	"encoding/json"
	"sort"

	"github.com/aclements/go-moremath/scale"
	"github.com/aclements/go-moremath/stats"

	"github.com/sells-group/sld-insights/internal/model"
)

// NormSuffix is appended to a metric name for its normalized field.
const NormSuffix = "_norm"

// NormalizedRecord is a record's source values and their 0..100 normalized form.
type NormalizedRecord struct {
	RegionID            string
	SustainabilityLabel string
	Values              map[model.Metric]model.Value
	Norm                map[model.Metric]float64
	// Missing marks metrics whose source value was absent. Their Norm is 0.
	Missing map[model.Metric]bool
}

// MarshalJSON flattens the record into Region, SustainabilityLabel,
// <metric>, <metric>_norm and a sorted missing list.
func (n NormalizedRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 3+2*len(n.Norm))
	out["Region"] = n.RegionID
	if n.SustainabilityLabel != "" {
		out["SustainabilityLabel"] = n.SustainabilityLabel
	}
	for m, v := range n.Values {
		out[string(m)] = v
	}
	for m, v := range n.Norm {
		out[string(m)+NormSuffix] = v
	}
	if len(n.Missing) > 0 {
		missing := make([]string, 0, len(n.Missing))
		for m := range n.Missing {
			missing = append(missing, string(m))
		}
		sort.Strings(missing)
		out["missing"] = missing
	}
	return json.Marshal(out)
}

// Range is the min/max of a metric's present values.
type Range struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// MetricRange returns the bounds of metric over records' finite values.
// Count is 0 when no record has the metric.
func MetricRange(records []model.RegionRecord, metric model.Metric) Range {
	xs := finiteValues(records, metric)
	if len(xs) == 0 {
		return Range{}
	}
	lo, hi := stats.Bounds(xs)
	return Range{Min: lo, Max: hi, Count: len(xs)}
}

// Normalize min-max scales each metric into [0,100] across records. A flat
// range maps every present value to 50. A missing value normalizes to 0 and
// is flagged in Missing.
func Normalize(records []model.RegionRecord, metrics []model.Metric) []NormalizedRecord {
	scales := make(map[model.Metric]scale.Linear, len(metrics))
	for _, m := range metrics {
		r := MetricRange(records, m)
		scales[m] = scale.Linear{Min: r.Min, Max: r.Max}
	}

	out := make([]NormalizedRecord, len(records))
	for i, r := range records {
		nr := NormalizedRecord{
			RegionID:            r.RegionID,
			SustainabilityLabel: r.SustainabilityLabel,
			Values:              make(map[model.Metric]model.Value, len(metrics)),
			Norm:                make(map[model.Metric]float64, len(metrics)),
		}
		for _, m := range metrics {
			v := r.Metric(m)
			nr.Values[m] = v
			f, ok := v.Finite()
			if !ok {
				nr.Norm[m] = 0
				if nr.Missing == nil {
					nr.Missing = make(map[model.Metric]bool)
				}
				nr.Missing[m] = true
				continue
			}
			nr.Norm[m] = 100 * scales[m].Map(f)
		}
		out[i] = nr
	}
	return out
}

func finiteValues(records []model.RegionRecord, metric model.Metric) []float64 {
	xs := make([]float64, 0, len(records))
	for _, r := range records {
		if v, ok := r.Metric(metric).Finite(); ok {
			xs = append(xs, v)
		}
	}
	return xs
}
