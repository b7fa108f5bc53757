package loader

import (
	"context"

	"github.com/sells-group/sld-insights/internal/fetcher"
	"github.com/sells-group/sld-insights/internal/model"
)

// ParseMetroStats converts metro summary rows (CBSA_Name, NatWalkInd, D4A,
// Composite_VMT). Rows without a metro name are skipped.
func ParseMetroStats(rows []model.RawRow) []model.MetroStat {
	out := make([]model.MetroStat, 0, len(rows))
	for _, raw := range rows {
		id := RegionID(raw)
		if id == "" {
			continue
		}
		out = append(out, model.MetroStat{
			RegionID:          id,
			Walkability:       firstValue(raw, "NatWalkInd", "Walkability"),
			DistanceToTransit: firstValue(raw, "D4A", "DistanceToTransit"),
			CompositeVMT:      firstValue(raw, "Composite_VMT"),
		})
	}
	return out
}

// LoadMetroStats reads a metro summary file.
func LoadMetroStats(ctx context.Context, f fetcher.Fetcher, source string) ([]model.MetroStat, error) {
	rows, err := ReadRows(ctx, f, source)
	if err != nil {
		return nil, err
	}
	return ParseMetroStats(rows), nil
}

func firstValue(raw model.RawRow, keys ...string) model.Value {
	for _, k := range keys {
		if v := ToValue(raw[k]); v.Valid {
			return v
		}
	}
	return model.Missing
}
