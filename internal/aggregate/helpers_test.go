package aggregate

import "github.com/sells-group/sld-insights/internal/model"

// rec builds a record with the given metrics. NaN entries are stored as
// present-but-non-finite values.
func rec(id string, metrics map[model.Metric]float64) model.RegionRecord {
	m := make(map[model.Metric]model.Value, len(metrics))
	for k, v := range metrics {
		m[k] = model.Some(v)
	}
	return model.RegionRecord{RegionID: id, Metrics: m}
}

// flowRec builds a record for the flow stage.
func flowRec(walk, households, pct0, pct1, pct2 float64) model.RegionRecord {
	r := rec("", map[model.Metric]float64{model.NatWalkInd: walk})
	r.Households = model.Some(households)
	r.CarOwnership = model.CarOwnership{
		PctZeroCar:    model.Some(pct0),
		PctOneCar:     model.Some(pct1),
		PctTwoPlusCar: model.Some(pct2),
	}
	return r
}
