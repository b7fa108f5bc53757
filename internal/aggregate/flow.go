package aggregate

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sld-insights/internal/model"
)

// Tier is a Low/Medium/High bucket index.
type Tier int

// Tiers.
const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

// String implements fmt.Stringer.
func (t Tier) String() string {
	switch t {
	case TierLow:
		return "Low"
	case TierMedium:
		return "Medium"
	case TierHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// Walkability index cut points.
const (
	walkMediumFrom = 7
	walkHighFrom   = 14
)

// WalkabilityTier buckets a walkability index: <7 Low, <14 Medium, else High.
func WalkabilityTier(v float64) Tier {
	switch {
	case v < walkMediumFrom:
		return TierLow
	case v < walkHighFrom:
		return TierMedium
	default:
		return TierHigh
	}
}

// TieBreakPolicy decides the car tier when shares tie.
type TieBreakPolicy int

const (
	// TieBreakFewerCars picks the greatest share; ties go to the tier with fewer cars.
	TieBreakFewerCars TieBreakPolicy = iota
	// TieBreakLegacy reproduces the dashboard comparison chain: zero-car needs a
	// strict lead over both others, one-car must reach zero-car and beat two-plus.
	// Every other case falls to High.
	TieBreakLegacy
)

// String implements fmt.Stringer.
func (p TieBreakPolicy) String() string {
	if p == TieBreakLegacy {
		return "legacy"
	}
	return "fewer_cars"
}

// ParseTieBreak parses a tie-break policy name.
func ParseTieBreak(s string) (TieBreakPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fewer_cars", "fewer-cars":
		return TieBreakFewerCars, nil
	case "legacy":
		return TieBreakLegacy, nil
	default:
		return TieBreakFewerCars, eris.Errorf("aggregate: unknown tie break policy %q", s)
	}
}

// CarTier picks the car ownership tier with the greatest share.
func CarTier(pct0, pct1, pct2 float64, policy TieBreakPolicy) Tier {
	if policy == TieBreakLegacy {
		switch {
		case pct0 > pct1 && pct0 > pct2:
			return TierLow
		case pct1 >= pct0 && pct1 > pct2:
			return TierMedium
		default:
			return TierHigh
		}
	}
	switch {
	case pct0 >= pct1 && pct0 >= pct2:
		return TierLow
	case pct1 >= pct2:
		return TierMedium
	default:
		return TierHigh
	}
}

// Node types.
const (
	NodeWalkability = "walkability"
	NodeTransport   = "transport"
)

// Node is one Sankey node. Value is the sum of its incident link values.
type Node struct {
	Name  string  `json:"name"`
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// Link is a Sankey edge between node indices.
type Link struct {
	Source int     `json:"source"`
	Target int     `json:"target"`
	Value  float64 `json:"value"`
}

// FlowNodeNames are the fixed node names: three walkability tiers then three car tiers.
var FlowNodeNames = [6]string{
	"Low Walkability",
	"Medium Walkability",
	"High Walkability",
	"Low Auto Dependence (0 Cars)",
	"Medium Auto Dependence (1 Car)",
	"High Auto Dependence (2+ Cars)",
}

// FlowOptions configures Flow.
type FlowOptions struct {
	// Threshold is the household sum a bucket must strictly exceed to become a link.
	// Negative or NaN thresholds are treated as 0.
	Threshold float64
	TieBreak  TieBreakPolicy
}

// FlowGraph is the walkability × car ownership Sankey graph.
type FlowGraph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`

	// WalkCounts and CarCounts count contributing records per tier.
	WalkCounts [3]int `json:"walkCounts"`
	CarCounts  [3]int `json:"carCounts"`
	Processed  int    `json:"processed"`
	Skipped    int    `json:"skipped"`
}

// TotalValue is the sum of all link values.
func (g FlowGraph) TotalValue() float64 {
	var sum float64
	for _, l := range g.Links {
		sum += l.Value
	}
	return sum
}

// LinkShares returns the share of link i in its source and target node totals.
func (g FlowGraph) LinkShares(i int) (ofSource, ofTarget float64) {
	if i < 0 || i >= len(g.Links) {
		return 0, 0
	}
	l := g.Links[i]
	if s := g.Nodes[l.Source].Value; s > 0 {
		ofSource = l.Value / s
	}
	if t := g.Nodes[l.Target].Value; t > 0 {
		ofTarget = l.Value / t
	}
	return ofSource, ofTarget
}

// Flow buckets records by walkability tier and car tier, weighting each by
// households. Records need positive households and finite walkability and
// car shares; the rest are skipped.
func Flow(records []model.RegionRecord, opts FlowOptions) FlowGraph {
	threshold := opts.Threshold
	if math.IsNaN(threshold) || threshold < 0 {
		threshold = 0
	}

	var (
		matrix [3][3]float64
		g      FlowGraph
	)
	for _, r := range records {
		hh, ok := r.Households.Finite()
		if !ok || hh <= 0 {
			g.Skipped++
			continue
		}
		walk, okW := walkability(r)
		p0, ok0 := r.CarOwnership.PctZeroCar.Finite()
		p1, ok1 := r.CarOwnership.PctOneCar.Finite()
		p2, ok2 := r.CarOwnership.PctTwoPlusCar.Finite()
		if !okW || !ok0 || !ok1 || !ok2 {
			g.Skipped++
			continue
		}

		wt := WalkabilityTier(walk)
		ct := CarTier(p0, p1, p2, opts.TieBreak)
		matrix[wt][ct] += hh
		g.WalkCounts[wt]++
		g.CarCounts[ct]++
		g.Processed++
	}

	g.Nodes = make([]Node, len(FlowNodeNames))
	for i, name := range FlowNodeNames {
		typ := NodeWalkability
		if i >= 3 {
			typ = NodeTransport
		}
		g.Nodes[i] = Node{Name: name, Type: typ}
	}

	g.Links = []Link{}
	for w := 0; w < 3; w++ {
		for c := 0; c < 3; c++ {
			v := matrix[w][c]
			if v <= threshold {
				continue
			}
			g.Links = append(g.Links, Link{Source: w, Target: 3 + c, Value: v})
			g.Nodes[w].Value += v
			g.Nodes[3+c].Value += v
		}
	}

	zap.L().With(zap.String("component", "aggregate")).Debug("flow aggregated",
		zap.Int("processed", g.Processed),
		zap.Int("skipped", g.Skipped),
		zap.Int("links", len(g.Links)),
	)
	return g
}

// walkability prefers the raw index and falls back to the dashboard metric.
func walkability(r model.RegionRecord) (float64, bool) {
	if v, ok := r.Metric(model.NatWalkInd).Finite(); ok {
		return v, true
	}
	return r.Metric(model.Walkability).Finite()
}
