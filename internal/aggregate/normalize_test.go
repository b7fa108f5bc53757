package aggregate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sld-insights/internal/model"
)

func normValues(rows []NormalizedRecord, m model.Metric) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Norm[m]
	}
	return out
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   []float64
	}{
		{"spread", []float64{10, 20, 30}, []float64{0, 50, 100}},
		{"flat", []float64{5, 5, 5}, []float64{50, 50, 50}},
		{"single", []float64{42}, []float64{50}},
		{"negative", []float64{-10, 0, 10}, []float64{0, 50, 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make([]model.RegionRecord, len(tt.values))
			for i, v := range tt.values {
				records[i] = rec("r", map[model.Metric]float64{model.Density: v})
			}
			rows := Normalize(records, []model.Metric{model.Density})
			assert.Equal(t, tt.want, normValues(rows, model.Density))
			for _, r := range rows {
				assert.Empty(t, r.Missing)
			}
		})
	}
}

func TestNormalize_MissingIsZeroAndFlagged(t *testing.T) {
	records := []model.RegionRecord{
		rec("a", map[model.Metric]float64{model.Density: 10, model.Walkability: 1}),
		rec("b", map[model.Metric]float64{model.Walkability: 3}),
		rec("c", map[model.Metric]float64{model.Density: 30, model.Walkability: 2}),
	}

	rows := Normalize(records, []model.Metric{model.Density, model.Walkability})
	require.Len(t, rows, 3)

	assert.Equal(t, []float64{0, 0, 100}, normValues(rows, model.Density))
	assert.Equal(t, []float64{0, 100, 50}, normValues(rows, model.Walkability))

	assert.True(t, rows[1].Missing[model.Density])
	assert.False(t, rows[1].Missing[model.Walkability])
	assert.Nil(t, rows[0].Missing)
	assert.Equal(t, model.Missing, rows[1].Values[model.Density])
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	records := []model.RegionRecord{rec("a", map[model.Metric]float64{model.Density: 1})}
	_ = Normalize(records, []model.Metric{model.Density, model.Walkability})
	assert.Len(t, records[0].Metrics, 1)
}

func TestNormalizedRecord_JSON(t *testing.T) {
	records := []model.RegionRecord{
		rec("Fresno, CA", map[model.Metric]float64{model.Density: 10}),
		rec("Merced, CA", map[model.Metric]float64{model.Density: 20}),
	}
	records[0].SustainabilityLabel = "High"

	rows := Normalize(records, []model.Metric{model.Density, model.Walkability})
	data, err := json.Marshal(rows[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Region": "Fresno, CA",
		"SustainabilityLabel": "High",
		"Density": 10,
		"Density_norm": 0,
		"Walkability": null,
		"Walkability_norm": 0,
		"missing": ["Walkability"]
	}`, string(data))
}

func TestMetricRange(t *testing.T) {
	records := []model.RegionRecord{
		rec("a", map[model.Metric]float64{model.Density: 4}),
		rec("b", map[model.Metric]float64{model.Density: -2}),
		rec("c", nil),
	}
	assert.Equal(t, Range{Min: -2, Max: 4, Count: 2}, MetricRange(records, model.Density))
	assert.Equal(t, Range{}, MetricRange(records, model.Walkability))
}
