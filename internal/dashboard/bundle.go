package dashboard

import (
	"github.com/sells-group/sld-insights/internal/aggregate"
	"github.com/sells-group/sld-insights/internal/loader"
	"github.com/sells-group/sld-insights/internal/model"
	"github.com/sells-group/sld-insights/internal/prepare"
)

// DefaultMetro is the initial dashboard selection.
const DefaultMetro = "San Jose-Sunnyvale-Santa Clara, CA"

// Options tunes Build. Zero values pick the defaults.
type Options struct {
	Flow        aggregate.FlowOptions
	StateMetric model.Metric
	TopN        int
	ScatterX    model.Metric
	ScatterY    model.Metric
}

// Bundle holds every chart series of one dashboard view.
type Bundle struct {
	Selection      loader.Selection             `json:"selection"`
	Correlation    aggregate.CorrelationMatrix  `json:"correlation"`
	Flow           aggregate.FlowGraph          `json:"flow"`
	States         aggregate.StateAverages      `json:"states"`
	StateMetric    model.Metric                 `json:"stateMetric"`
	Sustainability []aggregate.NormalizedRecord `json:"sustainability"`
	Scatter        []aggregate.Point            `json:"scatter"`
	TopMetros      []model.MetroStat            `json:"topMetros"`
	Metros         []string                     `json:"metros"`
}

// StateRows lists the state averages for storage and export.
func (b Bundle) StateRows() []model.StateRow {
	return b.States.Rows(b.StateMetric)
}

// Build computes the dashboard for a selection. The heatmap, flow and scatter
// series follow the selection; the state map, sustainability chart and top
// metros always cover the whole dataset.
func Build(ds *Dataset, sel loader.Selection, opts Options) Bundle {
	if ds == nil {
		ds = &Dataset{}
	}
	if opts.StateMetric == "" {
		opts.StateMetric = model.Walkability
	}
	if opts.TopN <= 0 {
		opts.TopN = aggregate.DefaultTopMetros
	}

	selected := sel.Apply(ds.Records)

	return Bundle{
		Selection:      sel,
		Correlation:    aggregate.Correlate(selected, nil),
		Flow:           aggregate.Flow(selected, opts.Flow),
		States:         aggregate.AverageByState(ds.Records, opts.StateMetric),
		StateMetric:    opts.StateMetric,
		Sustainability: Sustainability(ds),
		Scatter:        aggregate.Scatter(selected, opts.ScatterX, opts.ScatterY),
		TopMetros:      TopMetros(ds, opts.TopN),
		Metros:         Metros(ds),
	}
}

// Sustainability normalizes the regional sustainability rows, computing them
// from the block groups when no extract was loaded.
func Sustainability(ds *Dataset) []aggregate.NormalizedRecord {
	rows := ds.Sustainability
	if len(rows) == 0 {
		rows = prepare.Sustainability(ds.Records, "")
	}
	return aggregate.SortForPresentation(
		aggregate.Normalize(rows, prepare.SustainabilityMetrics),
		aggregate.SustainabilityRank,
	)
}

// TopMetros ranks the loaded metro summary, or one computed from the records.
func TopMetros(ds *Dataset, n int) []model.MetroStat {
	stats := ds.MetroStats
	if len(stats) == 0 {
		stats = aggregate.MetroSummary(ds.Records)
	}
	return aggregate.TopMetros(stats, n)
}

// Metros lists the selectable metro names.
func Metros(ds *Dataset) []string {
	if ds == nil {
		return []string{}
	}
	out := loader.Metros(ds.Records)
	if out == nil {
		out = []string{}
	}
	return out
}
