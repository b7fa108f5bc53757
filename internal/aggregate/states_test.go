package aggregate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sld-insights/internal/model"
)

func stateRec(state string, v float64) model.RegionRecord {
	r := rec("", map[model.Metric]float64{model.Walkability: v})
	r.StateCode = state
	return r
}

func TestAverageByState(t *testing.T) {
	records := []model.RegionRecord{
		stateRec("06", 10),
		stateRec("06", 20),
		stateRec("06", 30),
		stateRec("48", 8),
		stateRec("", 99),
		stateRec("36", math.NaN()),
		rec("no walk", map[model.Metric]float64{model.Density: 1}),
	}

	avg := AverageByState(records, "")
	assert.Equal(t, StateAverages{
		"06": {Average: 20, Count: 3},
		"48": {Average: 8, Count: 1},
	}, avg)
	for _, a := range avg {
		assert.NotZero(t, a.Count)
	}
	assert.Equal(t, []string{"06", "48"}, avg.Codes())
}

func TestAverageByState_OtherMetric(t *testing.T) {
	r := rec("", map[model.Metric]float64{model.Density: 4})
	r.StateCode = "48"
	avg := AverageByState([]model.RegionRecord{r, stateRec("48", 9)}, model.Density)
	assert.Equal(t, StateAverages{"48": {Average: 4, Count: 1}}, avg)
}

func TestAverageByState_Empty(t *testing.T) {
	avg := AverageByState(nil, model.Walkability)
	assert.NotNil(t, avg)
	assert.Empty(t, avg)
}

func TestDomain(t *testing.T) {
	tests := []struct {
		name   string
		avg    StateAverages
		lo, hi float64
	}{
		{"empty", StateAverages{}, 0, 20},
		{"range", StateAverages{"06": {Average: 12}, "48": {Average: 5}}, 5, 12},
		{"all zero", StateAverages{"06": {Average: 0}}, 0, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := tt.avg.Domain()
			assert.Equal(t, tt.lo, lo)
			assert.Equal(t, tt.hi, hi)
		})
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		v    float64
		want int
	}{
		{-3, 0},
		{0, 0},
		{3.99, 0},
		{4, 1},
		{11.9, 2},
		{12, 3},
		{19.99, 4},
		{20, 4},
		{25, 4},
		{math.NaN(), -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Quantize(tt.v, 0, 20, 5), "v=%v", tt.v)
	}

	assert.Equal(t, 4, Quantize(7, 7, 7, 5), "flat domain")
	assert.Equal(t, 0, Quantize(6, 7, 7, 5))
	assert.Equal(t, -1, Quantize(1, 0, 1, 0))
}

func TestStateAverages_ColorAndRows(t *testing.T) {
	avg := StateAverages{
		"06": {Average: 15, Count: 2},
		"48": {Average: 5, Count: 4},
	}
	assert.Equal(t, ChoroplethPalette[4], avg.Color("06"))
	assert.Equal(t, ChoroplethPalette[0], avg.Color("48"))
	assert.Equal(t, "", avg.Color("36"))

	rows := avg.Rows(model.Walkability)
	require.Len(t, rows, 2)
	assert.Equal(t, model.StateRow{StateCode: "06", StateName: "California", Metric: "Walkability", Average: 15, Count: 2}, rows[0])
	assert.Equal(t, "Texas", rows[1].StateName)
}
