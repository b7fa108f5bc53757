package prepare

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/sld-insights/internal/geo"
	"github.com/sells-group/sld-insights/internal/model"
)

// KeyFunc picks the grouping key of a record. An empty key drops the record.
type KeyFunc func(model.RegionRecord) string

// ByCSA groups by combined statistical area, falling back to RegionID.
func ByCSA(r model.RegionRecord) string {
	if r.CSA != "" {
		return r.CSA
	}
	return r.RegionID
}

// ByRegionID groups by RegionID.
func ByRegionID(r model.RegionRecord) string { return r.RegionID }

// SustainabilityMetrics are the per-region means behind the stacked area chart.
var SustainabilityMetrics = []model.Metric{
	model.Density,
	model.JobHousingBalance,
	model.IntersectionDensity,
	model.DistanceToTransit,
	model.DestinationAccessibility,
	model.Walkability,
}

// FilterState keeps records whose state code matches code (1 or 2 digits).
func FilterState(records []model.RegionRecord, code string) []model.RegionRecord {
	want := geo.NormalizeFIPSState(code)
	out := make([]model.RegionRecord, 0)
	if want == "" {
		return out
	}
	for _, r := range records {
		if r.StateCode == want {
			out = append(out, r)
		}
	}
	return out
}

// RegionMeans averages metrics per region. Records missing the key or any
// metric are skipped. Output records carry the key as RegionID, the first
// state code and sustainability label seen, and are sorted by RegionID.
func RegionMeans(records []model.RegionRecord, metrics []model.Metric, key KeyFunc) []model.RegionRecord {
	if key == nil {
		key = ByCSA
	}

	type group struct {
		state, label string
		values       map[model.Metric][]float64
	}
	groups := make(map[string]*group)
	for _, r := range records {
		k := key(r)
		if k == "" || !complete(r, metrics) {
			continue
		}
		g := groups[k]
		if g == nil {
			g = &group{state: r.StateCode, label: r.SustainabilityLabel, values: make(map[model.Metric][]float64)}
			groups[k] = g
		}
		for _, m := range metrics {
			v, _ := r.Metric(m).Finite()
			g.values[m] = append(g.values[m], v)
		}
	}

	out := make([]model.RegionRecord, 0, len(groups))
	for k, g := range groups {
		means := make(map[model.Metric]model.Value, len(metrics))
		for _, m := range metrics {
			means[m] = model.Some(stat.Mean(g.values[m], nil))
		}
		out = append(out, model.RegionRecord{
			RegionID:            k,
			StateCode:           g.state,
			Metrics:             means,
			SustainabilityLabel: g.label,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegionID < out[j].RegionID })
	return out
}

// California is the state the regional sustainability extract covers.
const California = "06"

// Sustainability builds the regional sustainability rows: block groups of
// state (all states when empty) averaged per CSA, with combined regions split
// into their member cities.
func Sustainability(records []model.RegionRecord, state string) []model.RegionRecord {
	if state != "" {
		records = FilterState(records, state)
	}
	return SplitCombinedRegions(RegionMeans(records, SustainabilityMetrics, ByCSA))
}

// SplitRegionName splits "A-B-C, ST" into "A, ST", "B, ST" and "C, ST".
// Names without a hyphenated city part come back unchanged.
func SplitRegionName(name string) []string {
	city, state, hasState := strings.Cut(name, ",")
	city = strings.TrimSpace(city)
	if hasState {
		state, _, _ = strings.Cut(state, ",")
		state = strings.TrimSpace(state)
	}

	parts := strings.Split(city, "-")
	if len(parts) < 2 {
		return []string{name}
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if state != "" {
			p += ", " + state
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return []string{name}
	}
	return out
}

// SplitCombinedRegions expands every combined region into one record per
// city. When two records end up with the same RegionID the first one wins.
func SplitCombinedRegions(records []model.RegionRecord) []model.RegionRecord {
	seen := make(map[string]bool)
	out := make([]model.RegionRecord, 0, len(records))
	for _, r := range records {
		for _, name := range SplitRegionName(r.RegionID) {
			if seen[name] {
				continue
			}
			seen[name] = true
			c := r
			c.RegionID = name
			out = append(out, c)
		}
	}
	return out
}

// HeadPerRegion keeps at most n records per key, in input order. Records
// without a key are dropped.
func HeadPerRegion(records []model.RegionRecord, n int, key KeyFunc) []model.RegionRecord {
	if key == nil {
		key = ByCSA
	}
	counts := make(map[string]int)
	out := make([]model.RegionRecord, 0, len(records))
	for _, r := range records {
		k := key(r)
		if k == "" || counts[k] >= n {
			continue
		}
		counts[k]++
		out = append(out, r)
	}
	return out
}

// Employment sector fields.
const (
	RetailJobs        model.Metric = "E5_Ret"
	OfficeJobs        model.Metric = "E5_Off"
	IndustrialJobs    model.Metric = "E5_Ind"
	ServiceJobs       model.Metric = "E5_Svc"
	EntertainmentJobs model.Metric = "E5_Ent"
)

// SectorJobs is the total employment per sector in one region.
type SectorJobs struct {
	Region            string  `json:"Region"`
	RetailJobs        float64 `json:"RetailJobs"`
	OfficeJobs        float64 `json:"OfficeJobs"`
	IndustrialJobs    float64 `json:"IndustrialJobs"`
	ServiceJobs       float64 `json:"ServiceJobs"`
	EntertainmentJobs float64 `json:"EntertainmentJobs"`
}

// JobsByRegion sums sector employment per region, skipping missing values.
// Output is sorted by region.
func JobsByRegion(records []model.RegionRecord, key KeyFunc) []SectorJobs {
	if key == nil {
		key = ByCSA
	}
	groups := make(map[string]*SectorJobs)
	for _, r := range records {
		k := key(r)
		if k == "" {
			continue
		}
		j := groups[k]
		if j == nil {
			j = &SectorJobs{Region: k}
			groups[k] = j
		}
		j.RetailJobs += r.Metric(RetailJobs).Or(0)
		j.OfficeJobs += r.Metric(OfficeJobs).Or(0)
		j.IndustrialJobs += r.Metric(IndustrialJobs).Or(0)
		j.ServiceJobs += r.Metric(ServiceJobs).Or(0)
		j.EntertainmentJobs += r.Metric(EntertainmentJobs).Or(0)
	}

	out := make([]SectorJobs, 0, len(groups))
	for _, j := range groups {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out
}
