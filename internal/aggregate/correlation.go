// Package aggregate turns region records into chart-ready structures:
// correlation matrices, flow graphs, state averages and normalized series.
//
// Every function here is pure. Inputs are never modified and repeated calls on
// the same records produce identical output.
package aggregate

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/sld-insights/internal/model"
)

// CorrelationMatrix is a symmetric k×k Pearson matrix over MetricLabels.
// Cells without enough data are NaN and encode as JSON null.
type CorrelationMatrix struct {
	MetricLabels []model.Metric  `json:"metricLabels"`
	Matrix       [][]model.Float `json:"matrix"`
}

// At returns the coefficient for metrics i and j.
func (c CorrelationMatrix) At(i, j int) float64 {
	return float64(c.Matrix[i][j])
}

// Correlate builds the Pearson correlation matrix for metrics over records.
// Each pair uses only the records where both values are finite. A nil metric
// list uses model.DashboardMetrics.
func Correlate(records []model.RegionRecord, metrics []model.Metric) CorrelationMatrix {
	if metrics == nil {
		metrics = model.DashboardMetrics
	}
	k := len(metrics)

	labels := make([]model.Metric, k)
	copy(labels, metrics)

	matrix := make([][]model.Float, k)
	for i := range matrix {
		matrix[i] = make([]model.Float, k)
	}

	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			r := pairCorrelation(records, metrics[i], metrics[j])
			matrix[i][j] = model.Float(r)
			matrix[j][i] = model.Float(r)
		}
	}

	return CorrelationMatrix{MetricLabels: labels, Matrix: matrix}
}

// pairCorrelation returns NaN with fewer than two complete pairs or when
// either series is constant.
func pairCorrelation(records []model.RegionRecord, a, b model.Metric) float64 {
	xs := make([]float64, 0, len(records))
	ys := make([]float64, 0, len(records))
	for _, r := range records {
		x, okX := r.Metric(a).Finite()
		y, okY := r.Metric(b).Finite()
		if !okX || !okY {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}

	if len(xs) < 2 || constant(xs) || constant(ys) {
		return math.NaN()
	}
	if a == b {
		return 1
	}

	r := stat.Correlation(xs, ys, nil)
	// Rounding can push |r| a hair past 1.
	return math.Max(-1, math.Min(1, r))
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}
