package render

import (
	"image/color"
	"io"
	"math"

	"github.com/aclements/go-gg/gg"
	"github.com/aclements/go-gg/table"

	"github.com/sells-group/sld-insights/internal/aggregate"
	"github.com/sells-group/sld-insights/internal/model"
)

// Chart titles.
const (
	ScatterTitle        = "Density vs Composite VMT"
	HeatmapTitle        = "Metric Correlations"
	SustainabilityTitle = "Regional Sustainability"
)

var (
	positive = color.RGBA{R: 0xb2, G: 0x18, B: 0x2b, A: 0xff}
	negative = color.RGBA{R: 0x21, G: 0x66, B: 0xac, A: 0xff}
)

// Scatter draws one point per pair in the theme's foreground colour.
func Scatter(w io.Writer, points []aggregate.Point, theme Theme, size Size) error {
	size = size.orDefault()
	if len(points) == 0 {
		return writeEmpty(w, ScatterTitle, theme, size)
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, pt := range points {
		xs[i], ys[i] = pt.X, pt.Y
	}
	tab := new(table.Builder).Add("x", xs).Add("y", ys).Done()

	p := gg.NewPlot(tab)
	p.Add(gg.Title(ScatterTitle))
	p.Add(gg.LayerPoints{X: "x", Y: "y", Color: p.Const(theme.Foreground())})
	return writePlot(w, p, size)
}

// HeatmapColor maps a correlation in [-1, 1] onto a diverging scale around
// the theme's neutral colour. NaN has no colour.
func HeatmapColor(r float64, theme Theme) (color.RGBA, bool) {
	if math.IsNaN(r) {
		return color.RGBA{}, false
	}
	r = math.Max(-1, math.Min(1, r))
	if r >= 0 {
		return blend(theme.neutral(), positive, r), true
	}
	return blend(theme.neutral(), negative, -r), true
}

// Heatmap draws one tile per matrix cell. NaN cells are left out.
func Heatmap(w io.Writer, m aggregate.CorrelationMatrix, theme Theme, size Size) error {
	size = size.orDefault()

	var (
		xs, ys []float64
		fills  []color.RGBA
	)
	for i := range m.MetricLabels {
		for j := range m.MetricLabels {
			c, ok := HeatmapColor(float64(m.At(i, j)), theme)
			if !ok {
				continue
			}
			xs = append(xs, float64(j))
			ys = append(ys, float64(i))
			fills = append(fills, c)
		}
	}
	if len(fills) == 0 {
		return writeEmpty(w, HeatmapTitle, theme, size)
	}

	tab := new(table.Builder).Add("metric x", xs).Add("metric y", ys).Add("fill", fills).Done()
	p := gg.NewPlot(tab)
	p.SetScale("x", labelScale(m.MetricLabels))
	p.SetScale("y", labelScale(m.MetricLabels))
	p.Add(gg.Title(HeatmapTitle))
	p.Add(gg.LayerTiles{X: "metric x", Y: "metric y", Fill: "fill"})
	return writePlot(w, p, size)
}

// labelScale is a linear scale whose ticks print the metric at that index.
func labelScale(labels []model.Metric) gg.ContinuousScaler {
	s := gg.NewLinearScaler()
	s.SetFormatter(func(v float64) string {
		i := int(math.Round(v))
		if i < 0 || i >= len(labels) || math.Abs(v-float64(i)) > 1e-9 {
			return ""
		}
		return string(labels[i])
	})
	return s
}

// StackedArea stacks the normalized metrics of each row, one band per metric,
// with rows along the x axis in the given order.
func StackedArea(w io.Writer, rows []aggregate.NormalizedRecord, metrics []model.Metric, theme Theme, size Size) error {
	size = size.orDefault()
	if len(rows) == 0 || len(metrics) == 0 {
		return writeEmpty(w, SustainabilityTitle, theme, size)
	}

	n := len(rows) * len(metrics)
	xs := make([]float64, 0, n)
	lower := make([]float64, 0, n)
	upper := make([]float64, 0, n)
	fills := make([]color.RGBA, 0, n)

	base := make([]float64, len(rows))
	for k, m := range metrics {
		fill := bandColor(k, len(metrics), theme)
		for i, r := range rows {
			v := r.Norm[m]
			xs = append(xs, float64(i))
			lower = append(lower, base[i])
			upper = append(upper, base[i]+v)
			fills = append(fills, fill)
			base[i] += v
		}
	}

	tab := new(table.Builder).
		Add("region", xs).
		Add("lower", lower).
		Add("upper", upper).
		Add("fill", fills).
		Done()
	p := gg.NewPlot(tab)
	p.Add(gg.Title(SustainabilityTitle), gg.AxisLabel("x", "region"), gg.AxisLabel("y", "normalized value"))
	p.Add(gg.LayerArea{X: "region", Upper: "upper", Lower: "lower", Fill: "fill"})
	return writePlot(w, p, size)
}

// bandColor spreads n bands from the theme's neutral colour to its foreground.
func bandColor(k, n int, theme Theme) color.RGBA {
	if n <= 1 {
		return theme.Foreground()
	}
	return blend(theme.neutral(), theme.Foreground(), 0.25+0.75*float64(k)/float64(n-1))
}
