package aggregate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/sld-insights/internal/model"
)

// DefaultTopMetros is the bar chart length.
const DefaultTopMetros = 10

// MetroSummary averages walkability, distance to transit and composite VMT per
// RegionID over finite values, sorted by RegionID.
func MetroSummary(records []model.RegionRecord) []model.MetroStat {
	type acc struct {
		walk, transit, vmt []float64
		n                  int
	}
	groups := make(map[string]*acc)
	for _, r := range records {
		if r.RegionID == "" {
			continue
		}
		a := groups[r.RegionID]
		if a == nil {
			a = &acc{}
			groups[r.RegionID] = a
		}
		a.n++
		if v, ok := walkability(r); ok {
			a.walk = append(a.walk, v)
		}
		if v, ok := r.Metric(model.DistanceToTransit).Finite(); ok {
			a.transit = append(a.transit, v)
		}
		if v, ok := r.Metric(model.CompositeVMT).Finite(); ok {
			a.vmt = append(a.vmt, v)
		}
	}

	out := make([]model.MetroStat, 0, len(groups))
	for id, a := range groups {
		out = append(out, model.MetroStat{
			RegionID:          id,
			Walkability:       mean(a.walk),
			DistanceToTransit: mean(a.transit),
			CompositeVMT:      mean(a.vmt),
			Count:             a.n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegionID < out[j].RegionID })
	return out
}

// TopMetros returns the n most walkable metros, ties broken by name. Metros
// without a walkability value sort last. n <= 0 uses DefaultTopMetros.
func TopMetros(stats []model.MetroStat, n int) []model.MetroStat {
	if n <= 0 {
		n = DefaultTopMetros
	}
	out := make([]model.MetroStat, len(stats))
	copy(out, stats)
	sort.SliceStable(out, func(i, j int) bool {
		wi := out[i].Walkability.Or(math.Inf(-1))
		wj := out[j].Walkability.Or(math.Inf(-1))
		if wi != wj {
			return wi > wj
		}
		return out[i].RegionID < out[j].RegionID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func mean(xs []float64) model.Value {
	if len(xs) == 0 {
		return model.Missing
	}
	return model.Some(stat.Mean(xs, nil))
}
