// Package prepare cleans raw SLD block groups into the extracts the dashboard
// reads: cleaned block groups, metro summaries, regional sustainability rows
// and sector job totals.
package prepare

import (
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/sld-insights/internal/model"
)

// CriticalMetrics must all be present for a block group to survive cleaning.
var CriticalMetrics = []model.Metric{
	model.NatWalkInd,
	model.D1A,
	model.D3B,
	model.D4A,
	model.D5AR,
	model.D5AE,
	model.TotPop,
	model.TotEmp,
}

// OutlierMetrics are trimmed by IQR in this order.
var OutlierMetrics = []model.Metric{model.D1A, model.D3B, model.D4A, model.D5AR, model.D5AE}

// ScaledMetrics maps each standardized source to its output column. D5AR
// lands in Composite_VMT_scaled, which is what the scatter plot reads.
var ScaledMetrics = []struct {
	Source, Out model.Metric
}{
	{model.D1A, model.D1AScaled},
	{model.D3B, model.D3BScaled},
	{model.D4A, model.D4AScaled},
	{model.D5AR, model.CompositeVMTScaled},
}

// DropIncomplete keeps records with a region id and a finite value for every metric.
func DropIncomplete(records []model.RegionRecord, metrics []model.Metric) []model.RegionRecord {
	out := make([]model.RegionRecord, 0, len(records))
	for _, r := range records {
		if r.RegionID == "" || !complete(r, metrics) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func complete(r model.RegionRecord, metrics []model.Metric) bool {
	for _, m := range metrics {
		if _, ok := r.Metric(m).Finite(); !ok {
			return false
		}
	}
	return true
}

// Fence is the inclusive band kept by an IQR filter.
type Fence struct {
	Metric  model.Metric `json:"metric"`
	Lower   float64      `json:"lower"`
	Upper   float64      `json:"upper"`
	Removed int          `json:"removed"`
}

// RemoveOutliersIQR keeps records with Q1-1.5·IQR <= v <= Q3+1.5·IQR.
// Records lacking the metric are dropped too.
func RemoveOutliersIQR(records []model.RegionRecord, metric model.Metric) ([]model.RegionRecord, Fence) {
	xs := make([]float64, 0, len(records))
	for _, r := range records {
		if v, ok := r.Metric(metric).Finite(); ok {
			xs = append(xs, v)
		}
	}
	fence := Fence{Metric: metric, Lower: math.NaN(), Upper: math.NaN()}
	if len(xs) == 0 {
		fence.Removed = len(records)
		return []model.RegionRecord{}, fence
	}

	sort.Float64s(xs)
	q1, q3 := Quantile(xs, 0.25), Quantile(xs, 0.75)
	iqr := q3 - q1
	fence.Lower, fence.Upper = q1-1.5*iqr, q3+1.5*iqr

	out := make([]model.RegionRecord, 0, len(records))
	for _, r := range records {
		v, ok := r.Metric(metric).Finite()
		if !ok || v < fence.Lower || v > fence.Upper {
			continue
		}
		out = append(out, r)
	}
	fence.Removed = len(records) - len(out)
	return out, fence
}

// Quantile returns the p-quantile of sorted by linear interpolation between
// closest ranks, position p·(n-1).
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := p * float64(n-1)
	lo := math.Floor(h)
	i := int(lo)
	if i >= n-1 {
		return sorted[n-1]
	}
	if i < 0 {
		return sorted[0]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// StandardScale writes the z-score of metric into out using the population
// standard deviation. A zero deviation scales every value to 0. Records
// lacking the metric are returned unchanged.
func StandardScale(records []model.RegionRecord, metric, out model.Metric) []model.RegionRecord {
	xs := make([]float64, 0, len(records))
	for _, r := range records {
		if v, ok := r.Metric(metric).Finite(); ok {
			xs = append(xs, v)
		}
	}
	var mean, std float64
	if len(xs) > 0 {
		mean, std = stat.PopMeanStdDev(xs, nil)
	}

	scaled := make([]model.RegionRecord, len(records))
	for i, r := range records {
		v, ok := r.Metric(metric).Finite()
		if !ok {
			scaled[i] = r
			continue
		}
		z := 0.0
		if std > 0 {
			z = (v - mean) / std
		}
		scaled[i] = r.WithMetrics(map[model.Metric]model.Value{out: model.Some(z)})
	}
	return scaled
}

// WalkabilityCategory bins a walkability index: up to 5 Low, up to 10 Medium,
// above that High. NaN has no category.
func WalkabilityCategory(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case v <= 5:
		return model.LabelLow
	case v <= 10:
		return model.LabelMedium
	default:
		return model.LabelHigh
	}
}

// CompositeVMT estimates block group VMT as D5AR·TotPop + D5AE·TotEmp with
// missing inputs counted as 0.
func CompositeVMT(r model.RegionRecord) float64 {
	return r.Metric(model.D5AR).Or(0)*r.Metric(model.TotPop).Or(0) +
		r.Metric(model.D5AE).Or(0)*r.Metric(model.TotEmp).Or(0)
}

// CleanReport summarises a Clean run.
type CleanReport struct {
	Input      int     `json:"input"`
	Incomplete int     `json:"incomplete"`
	Fences     []Fence `json:"fences"`
	Output     int     `json:"output"`
}

// Clean drops incomplete block groups, trims outliers, standardizes the
// density, intersection, transit and VMT columns, and adds the walkability
// category and composite VMT. The input slice is not modified.
func Clean(records []model.RegionRecord) ([]model.RegionRecord, CleanReport) {
	log := zap.L().With(zap.String("component", "prepare"))
	rep := CleanReport{Input: len(records)}

	kept := DropIncomplete(records, CriticalMetrics)
	withGeo := make([]model.RegionRecord, 0, len(kept))
	for _, r := range kept {
		if r.GeoID != "" {
			withGeo = append(withGeo, r)
		}
	}
	kept = withGeo
	rep.Incomplete = rep.Input - len(kept)

	for _, m := range OutlierMetrics {
		var fence Fence
		kept, fence = RemoveOutliersIQR(kept, m)
		rep.Fences = append(rep.Fences, fence)
	}

	for _, s := range ScaledMetrics {
		kept = StandardScale(kept, s.Source, s.Out)
	}

	out := make([]model.RegionRecord, len(kept))
	for i, r := range kept {
		r = r.WithMetrics(map[model.Metric]model.Value{model.CompositeVMT: model.Some(CompositeVMT(r))})
		r.WalkabilityCategory = WalkabilityCategory(r.Metric(model.NatWalkInd).Or(math.NaN()))
		out[i] = r
	}
	rep.Output = len(out)

	log.Info("cleaned block groups",
		zap.Int("input", rep.Input),
		zap.Int("incomplete", rep.Incomplete),
		zap.Int("output", rep.Output),
	)
	return out, rep
}
