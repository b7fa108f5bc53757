package dashboard

import (
	"io"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sld-insights/internal/prepare"
	"github.com/sells-group/sld-insights/internal/render"
)

// Chart names accepted by RenderChart.
const (
	ChartScatter        = "scatter"
	ChartHeatmap        = "heatmap"
	ChartSustainability = "sustainability"
)

// ErrUnknownChart is wrapped when RenderChart is asked for an unknown chart.
var ErrUnknownChart = eris.New("dashboard: unknown chart")

var charts = map[string]func(io.Writer, Bundle, render.Theme, render.Size) error{
	ChartScatter: func(w io.Writer, b Bundle, t render.Theme, s render.Size) error {
		return render.Scatter(w, b.Scatter, t, s)
	},
	ChartHeatmap: func(w io.Writer, b Bundle, t render.Theme, s render.Size) error {
		return render.Heatmap(w, b.Correlation, t, s)
	},
	ChartSustainability: func(w io.Writer, b Bundle, t render.Theme, s render.Size) error {
		return render.StackedArea(w, b.Sustainability, prepare.SustainabilityMetrics, t, s)
	},
}

// Charts lists the renderable chart names.
func Charts() []string {
	out := make([]string, 0, len(charts))
	for name := range charts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RenderChart writes one chart of b as SVG.
func RenderChart(w io.Writer, b Bundle, chart string, theme render.Theme, size render.Size) error {
	draw, ok := charts[chart]
	if !ok {
		return eris.Wrapf(ErrUnknownChart, "dashboard: chart %q", chart)
	}
	return draw(w, b, theme, size)
}
