package dashboard

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sld-insights/internal/loader"
	"github.com/sells-group/sld-insights/internal/model"
	"github.com/sells-group/sld-insights/internal/render"
)

const recordsCSV = `CBSA_Name,CSA_Name,STATEFP,GEOID10,D1A,D2A_JPHH,D3B,D4A,NatWalkInd,Pct_AO0,Pct_AO1,Pct_AO2p,HH
"San Jose-Sunnyvale-Santa Clara, CA","San Jose-San Francisco-Oakland, CA",6,060855001001,4.2,1.1,120,300,15.5,30,40,30,400
"San Jose-Sunnyvale-Santa Clara, CA","San Jose-San Francisco-Oakland, CA",6,060855001002,2.0,0.7,80,500,10,10,30,60,200
"Austin-Round Rock, TX","Austin-Round Rock, TX",48,484530001001,1.1,0.5,40,900,6,5,40,55,300
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := Load(context.Background(), nil, Sources{Records: writeFile(t, "records.csv", recordsCSV)})
	require.NoError(t, err)
	return ds
}

func TestLoad_RecordsOnly(t *testing.T) {
	ds := testDataset(t)
	assert.Len(t, ds.Records, 3)
	assert.Equal(t, 3, ds.Report.Accepted)
	assert.Empty(t, ds.MetroStats)
	assert.Empty(t, ds.Sustainability)
}

func TestLoad_OptionalSourcesSoftFail(t *testing.T) {
	dir := t.TempDir()
	ds, err := Load(context.Background(), nil, Sources{
		Records:        writeFile(t, "records.csv", recordsCSV),
		MetroSummary:   filepath.Join(dir, "missing.csv"),
		Sustainability: filepath.Join(dir, "missing.json"),
		StateShapes:    filepath.Join(dir, "missing.shp"),
	})
	require.NoError(t, err)
	assert.Len(t, ds.Records, 3)
	assert.Empty(t, ds.MetroStats)
	assert.Empty(t, ds.Shapes)
}

func TestLoad_AllSources(t *testing.T) {
	ds, err := Load(context.Background(), nil, Sources{
		Records:        writeFile(t, "records.csv", recordsCSV),
		MetroSummary:   writeFile(t, "metro_summary.csv", "CBSA_Name,NatWalkInd,D4A,Composite_VMT\nBoise City,7.5,210,1000\n"),
		Sustainability: writeFile(t, "sustainability.json", `[{"Region":"Fresno, CA","Walkability":9,"SustainabilityLabel":"High"}]`),
	})
	require.NoError(t, err)
	require.Len(t, ds.MetroStats, 1)
	assert.Equal(t, "Boise City", ds.MetroStats[0].RegionID)
	require.Len(t, ds.Sustainability, 1)
	assert.Equal(t, "High", ds.Sustainability[0].SustainabilityLabel)
}

func TestLoad_RecordsRequired(t *testing.T) {
	_, err := Load(context.Background(), nil, Sources{})
	require.Error(t, err)

	_, err = Load(context.Background(), nil, Sources{Records: filepath.Join(t.TempDir(), "nope.csv")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dashboard: load records")
}

func TestBuild_SelectionScopesFilteredCharts(t *testing.T) {
	ds := testDataset(t)

	b := Build(ds, loader.NewSelection(DefaultMetro), Options{})
	assert.Equal(t, []string{DefaultMetro}, b.Selection.Metros)
	assert.Equal(t, 2, b.Flow.Processed)
	assert.Equal(t, model.DashboardMetrics, b.Correlation.MetricLabels)

	// The state map and rankings ignore the selection.
	require.Contains(t, b.States, "06")
	require.Contains(t, b.States, "48")
	assert.Equal(t, 2, b.States["06"].Count)
	assert.InDelta(t, 12.75, b.States["06"].Average, 1e-9)
	assert.Equal(t, model.Walkability, b.StateMetric)
	require.Len(t, b.TopMetros, 2)
	assert.Equal(t, DefaultMetro, b.TopMetros[0].RegionID)
	assert.Equal(t, []string{"Austin-Round Rock, TX", DefaultMetro}, b.Metros)

	all := Build(ds, loader.NewSelection(), Options{})
	assert.Equal(t, 3, all.Flow.Processed)
}

func TestBuild_StateRows(t *testing.T) {
	b := Build(testDataset(t), loader.NewSelection(), Options{})
	rows := b.StateRows()
	require.Len(t, rows, 2)
	assert.Equal(t, "06", rows[0].StateCode)
	assert.Equal(t, "California", rows[0].StateName)
	assert.Equal(t, "Walkability", rows[0].Metric)
}

func TestBuild_SustainabilityFallsBackToRecords(t *testing.T) {
	ds := &Dataset{Records: []model.RegionRecord{
		{RegionID: "a", CSA: "Fresno-Madera, CA", Metrics: map[model.Metric]model.Value{
			model.Density: model.Some(1), model.JobHousingBalance: model.Some(1), model.IntersectionDensity: model.Some(1),
			model.DistanceToTransit: model.Some(1), model.DestinationAccessibility: model.Some(1), model.Walkability: model.Some(4),
		}},
	}}
	rows := Sustainability(ds)
	require.Len(t, rows, 2)
	assert.Equal(t, "Fresno, CA", rows[0].RegionID)
	assert.Equal(t, "Madera, CA", rows[1].RegionID)
}

func TestBuild_NilDataset(t *testing.T) {
	b := Build(nil, loader.NewSelection(), Options{})
	assert.Empty(t, b.Flow.Links)
	assert.NotNil(t, b.Metros)
	assert.Empty(t, b.TopMetros)
}

func TestRenderChart(t *testing.T) {
	b := Build(testDataset(t), loader.NewSelection(), Options{})

	var buf bytes.Buffer
	require.NoError(t, RenderChart(&buf, b, ChartSustainability, render.Theme{}, render.Size{}))
	assert.Contains(t, buf.String(), "<svg")

	err := RenderChart(&buf, b, "pie", render.Theme{}, render.Size{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownChart))

	assert.Equal(t, []string{ChartHeatmap, ChartScatter, ChartSustainability}, Charts())
}
