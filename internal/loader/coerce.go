// Package loader turns untyped SLD extract rows into typed region records.
package loader

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/sld-insights/internal/geo"
	"github.com/sells-group/sld-insights/internal/model"
)

// Region id columns, in precedence order.
var regionIDFields = []string{"CBSA_Name", "Region", "CSA_Name", "City"}

// Dashboard metric ← raw SLD field.
var metricAliases = []struct {
	Metric model.Metric
	Source model.Metric
}{
	{model.Density, model.D1A},
	{model.JobHousingBalance, model.D2AJPHH},
	{model.IntersectionDensity, model.D3B},
	{model.DistanceToTransit, model.D4A},
	{model.Walkability, model.NatWalkInd},
	{model.DestinationAccessibility, model.D5DRI},
	{model.NatWalkInd, model.Walkability},
}

// Identifier columns that are never metrics even when numeric.
var nonMetricFields = map[string]bool{
	"CBSA_Name": true, "Region": true, "CSA_Name": true, "City": true,
	"GEOID": true, "GEOID10": true, "GEOID20": true, "STATEFP": true,
	"COUNTYFP": true, "TRACTCE": true, "BLKGRPCE": true, "CSA": true,
	"CBSA": true, "OBJECTID": true, "SustainabilityLabel": true,
	"SustainabilityCluster": true, "BlockGroup": true,
	"Walkability_Category": true,
}

// ToValue coerces an untyped field into a Value. Empty strings, suppression
// flags, unparseable text, booleans and non-finite numbers are all missing.
func ToValue(v any) model.Value {
	var f float64
	switch x := v.(type) {
	case nil:
		return model.Missing
	case model.Value:
		return finite(x.V, x.Valid)
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		p, err := x.Float64()
		if err != nil {
			return model.Missing
		}
		f = p
	case string:
		return parseValue(x)
	default:
		return model.Missing
	}
	return finite(f, true)
}

func finite(f float64, ok bool) model.Value {
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return model.Missing
	}
	return model.Some(f)
}

// parseValue parses a text field, treating SLD suppression markers as missing.
func parseValue(s string) model.Value {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "*", "**", "#", "na", "n/a", "nan", "null", "none", "-":
		return model.Missing
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return model.Missing
	}
	return finite(f, true)
}

// stringField renders a textual field. Whole numbers print without a decimal point
// so numeric STATEFP and GEOID values survive a JSON round trip.
func stringField(raw model.RawRow, key string) string {
	switch x := raw[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}

// RegionID returns the first non-empty region id column of raw.
func RegionID(raw model.RawRow) string {
	for _, k := range regionIDFields {
		if s := stringField(raw, k); s != "" {
			return s
		}
	}
	return ""
}

// ParseRow converts one raw row. ok is false when the row has neither a region id
// nor any numeric field.
func ParseRow(raw model.RawRow) (rec model.RegionRecord, ok bool) {
	metrics := make(map[model.Metric]model.Value)
	for k, v := range raw {
		k = strings.TrimSpace(k)
		if k == "" || nonMetricFields[k] {
			continue
		}
		if val := ToValue(v); val.Valid {
			metrics[model.Metric(k)] = val
		}
	}

	id := RegionID(raw)
	if id == "" && len(metrics) == 0 {
		return model.RegionRecord{}, false
	}

	for _, a := range metricAliases {
		if _, have := metrics[a.Metric]; have {
			continue
		}
		if src, found := metrics[a.Source]; found {
			metrics[a.Metric] = src
		}
	}

	geoid := ""
	for _, k := range []string{"GEOID20", "GEOID10", "GEOID"} {
		if s := stringField(raw, k); s != "" {
			geoid = s
			break
		}
	}

	state := geo.ResolveStateCode(
		stringField(raw, "STATEFP"),
		stringField(raw, "GEOID10"),
		stringField(raw, "GEOID20"),
		stringField(raw, "GEOID"),
	)

	return model.RegionRecord{
		RegionID:  id,
		CSA:       stringField(raw, "CSA_Name"),
		StateCode: state,
		GeoID:     geoid,
		Metrics:   metrics,
		CarOwnership: model.CarOwnership{
			PctZeroCar:    metrics["Pct_AO0"],
			PctOneCar:     metrics["Pct_AO1"],
			PctTwoPlusCar: metrics["Pct_AO2p"],
		},
		Households:          metrics["HH"],
		SustainabilityLabel: stringField(raw, "SustainabilityLabel"),
		WalkabilityCategory: stringField(raw, "Walkability_Category"),
	}, true
}

// Report counts the outcome of a ParseRows call.
type Report struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// ParseRows converts raw rows, skipping malformed ones.
func ParseRows(rows []model.RawRow) ([]model.RegionRecord, Report) {
	out := make([]model.RegionRecord, 0, len(rows))
	var rep Report
	for _, raw := range rows {
		rec, ok := ParseRow(raw)
		if !ok {
			rep.Rejected++
			continue
		}
		out = append(out, rec)
		rep.Accepted++
	}
	return out, rep
}
