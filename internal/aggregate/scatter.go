package aggregate

import "github.com/sells-group/sld-insights/internal/model"

// Default scatter axes: scaled density against scaled VMT.
var (
	DefaultScatterX = model.D1AScaled
	DefaultScatterY = model.CompositeVMTScaled
)

// Point is one scatter plot mark.
type Point struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	RegionID string  `json:"region"`
}

// Scatter pairs metrics x and y for every record where both are finite.
func Scatter(records []model.RegionRecord, x, y model.Metric) []Point {
	if x == "" {
		x = DefaultScatterX
	}
	if y == "" {
		y = DefaultScatterY
	}
	out := make([]Point, 0, len(records))
	for _, r := range records {
		xv, okX := r.Metric(x).Finite()
		yv, okY := r.Metric(y).Finite()
		if !okX || !okY {
			continue
		}
		out = append(out, Point{X: xv, Y: yv, RegionID: r.RegionID})
	}
	return out
}
