package aggregate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/sld-insights/internal/geo"
	"github.com/sells-group/sld-insights/internal/model"
)

// StateAverage is the mean of a metric over one state's records.
type StateAverage struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// StateAverages maps a 2-digit state FIPS code to its average.
// States without a contributing record never appear.
type StateAverages map[string]StateAverage

// ChoroplethPalette is the five-step blue scale of the state map.
var ChoroplethPalette = []string{"#eff3ff", "#bdd7e7", "#6baed6", "#3182bd", "#08519c"}

// Default colour domain when no state has data.
const (
	defaultDomainMin = 0
	defaultDomainMax = 20
)

// AverageByState groups records by StateCode and averages metric. Records
// without a state code or a finite value are ignored. An empty metric means
// Walkability.
func AverageByState(records []model.RegionRecord, metric model.Metric) StateAverages {
	if metric == "" {
		metric = model.Walkability
	}

	groups := make(map[string][]float64)
	for _, r := range records {
		if r.StateCode == "" {
			continue
		}
		v, ok := r.Metric(metric).Finite()
		if !ok {
			continue
		}
		groups[r.StateCode] = append(groups[r.StateCode], v)
	}

	out := make(StateAverages, len(groups))
	for code, vs := range groups {
		out[code] = StateAverage{Average: stat.Mean(vs, nil), Count: len(vs)}
	}
	return out
}

// Codes returns the state codes in ascending order.
func (s StateAverages) Codes() []string {
	codes := make([]string, 0, len(s))
	for c := range s {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Domain returns the colour scale bounds. An empty set gives (0, 20), and a
// zero bound falls back the same way the map does.
func (s StateAverages) Domain() (lo, hi float64) {
	if len(s) == 0 {
		return defaultDomainMin, defaultDomainMax
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, a := range s {
		lo = math.Min(lo, a.Average)
		hi = math.Max(hi, a.Average)
	}
	if hi == 0 {
		hi = defaultDomainMax
	}
	return lo, hi
}

// Quantize maps v into one of n equal-width buckets over [lo, hi]. Values
// outside the domain clamp to the end buckets; NaN gives -1.
func Quantize(v, lo, hi float64, n int) int {
	if n <= 0 || math.IsNaN(v) {
		return -1
	}
	idx := 0
	for i := 1; i < n; i++ {
		threshold := lo + float64(i)*(hi-lo)/float64(n)
		if v >= threshold {
			idx = i
		}
	}
	return idx
}

// Color returns the palette colour of a state's average.
func (s StateAverages) Color(code string) string {
	a, ok := s[code]
	if !ok {
		return ""
	}
	lo, hi := s.Domain()
	return ChoroplethPalette[Quantize(a.Average, lo, hi, len(ChoroplethPalette))]
}

// Rows flattens the averages into named rows ordered by state code.
func (s StateAverages) Rows(metric model.Metric) []model.StateRow {
	rows := make([]model.StateRow, 0, len(s))
	for _, code := range s.Codes() {
		a := s[code]
		rows = append(rows, model.StateRow{
			StateCode: code,
			StateName: geo.StateName(code),
			Metric:    string(metric),
			Average:   a.Average,
			Count:     a.Count,
		})
	}
	return rows
}
