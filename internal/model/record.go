// Package model defines the typed records and shared value types of the SLD pipeline.
package model

// RawRow is one untyped input row as found in a dataset extract.
type RawRow map[string]any

// Metric names a numeric field of a RegionRecord.
type Metric string

// Dashboard metrics. Raw source field names (D1A, NatWalkInd, ...) are also valid metrics.
const (
	Density                  Metric = "Density"
	JobHousingBalance        Metric = "JobHousingBalance"
	IntersectionDensity      Metric = "IntersectionDensity"
	DistanceToTransit        Metric = "DistanceToTransit"
	Walkability              Metric = "Walkability"
	DestinationAccessibility Metric = "DestinationAccessibility"
)

// Raw SLD source fields referenced by the pipeline.
const (
	NatWalkInd         Metric = "NatWalkInd"
	D1A                Metric = "D1A"
	D1AScaled          Metric = "D1A_scaled"
	D2AJPHH            Metric = "D2A_JPHH"
	D3B                Metric = "D3B"
	D3BScaled          Metric = "D3B_scaled"
	D4A                Metric = "D4A"
	D4AScaled          Metric = "D4A_scaled"
	D5AR               Metric = "D5AR"
	D5AE               Metric = "D5AE"
	D5DRI              Metric = "D5DRI"
	TotPop             Metric = "TotPop"
	TotEmp             Metric = "TotEmp"
	CompositeVMT       Metric = "Composite_VMT"
	CompositeVMTScaled Metric = "Composite_VMT_scaled"
)

// DashboardMetrics is the ordered metric list used by the correlation heatmap.
var DashboardMetrics = []Metric{
	Density,
	JobHousingBalance,
	IntersectionDensity,
	DistanceToTransit,
	Walkability,
}

// Sustainability labels.
const (
	LabelHigh   = "High"
	LabelMedium = "Medium"
	LabelLow    = "Low"
)

// CarOwnership holds the share of households owning 0, 1 and 2+ cars.
// Shares need not sum to exactly 100.
type CarOwnership struct {
	PctZeroCar    Value `json:"pct_zero_car"`
	PctOneCar     Value `json:"pct_one_car"`
	PctTwoPlusCar Value `json:"pct_two_plus_car"`
}

// RegionRecord is one typed region (block group, metro or CSA) of the dataset.
// Records are built once per load and never mutated afterwards.
type RegionRecord struct {
	RegionID            string           `json:"region_id"`
	CSA                 string           `json:"csa,omitempty"`
	StateCode           string           `json:"state_code,omitempty"`
	GeoID               string           `json:"geoid,omitempty"`
	Metrics             map[Metric]Value `json:"metrics"`
	CarOwnership        CarOwnership     `json:"car_ownership"`
	Households          Value            `json:"households"`
	SustainabilityLabel string           `json:"sustainability_label,omitempty"`
	WalkabilityCategory string           `json:"walkability_category,omitempty"`
}

// Metric returns the named metric, or Missing.
func (r RegionRecord) Metric(m Metric) Value {
	if r.Metrics == nil {
		return Missing
	}
	return r.Metrics[m]
}

// WithMetrics returns a copy of r whose metric map also holds the given values.
// The receiver is left untouched.
func (r RegionRecord) WithMetrics(extra map[Metric]Value) RegionRecord {
	metrics := make(map[Metric]Value, len(r.Metrics)+len(extra))
	for k, v := range r.Metrics {
		metrics[k] = v
	}
	for k, v := range extra {
		metrics[k] = v
	}
	r.Metrics = metrics
	return r
}

// MetroStat is the per-metro summary behind the top-metros bar chart.
type MetroStat struct {
	RegionID          string `json:"CBSA_Name"`
	Walkability       Value  `json:"NatWalkInd"`
	DistanceToTransit Value  `json:"D4A"`
	CompositeVMT      Value  `json:"Composite_VMT"`
	Count             int    `json:"count,omitempty"`
}
