package loader

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/sld-insights/internal/fetcher"
	"github.com/sells-group/sld-insights/internal/model"
)

const sampleCSV = `CBSA_Name,STATEFP,GEOID10,D1A,NatWalkInd,Pct_AO0,Pct_AO1,Pct_AO2p,HH
"San Jose-Sunnyvale-Santa Clara, CA",6,060855001001,4.2,15.5,10,30,60,420
"Austin-Round Rock, TX",48,484530001001,2.1,8.0,5,40,55,300
,,,,,,,,
`

func newTestFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:        5 * time.Second,
		RatePerSec:     100,
		InitialBackoff: time.Millisecond,
	})
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_CSV(t *testing.T) {
	path := writeFile(t, "cleaned_sld_data.csv", sampleCSV)

	records, rep, err := Load(context.Background(), nil, path)
	require.NoError(t, err)
	assert.Equal(t, Report{Accepted: 2, Rejected: 1}, rep)
	require.Len(t, records, 2)

	assert.Equal(t, "San Jose-Sunnyvale-Santa Clara, CA", records[0].RegionID)
	assert.Equal(t, "06", records[0].StateCode)
	assert.Equal(t, model.Some(15.5), records[0].Metric(model.Walkability))
	assert.Equal(t, model.Some(300), records[1].Households)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "sustainability_data.json", `[
		{"Region":"Fresno, CA","Density":2.5,"Walkability":9.1,"JobHousingBalance":null,"SustainabilityLabel":"Medium"},
		{"Region":"Merced, CA","Density":"1.2","Walkability":6,"SustainabilityLabel":"Low"}
	]`)

	records, rep, err := Load(context.Background(), nil, path)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Accepted)
	require.Len(t, records, 2)
	assert.Equal(t, "Medium", records[0].SustainabilityLabel)
	assert.Equal(t, model.Missing, records[0].Metric(model.JobHousingBalance))
	assert.Equal(t, model.Some(1.2), records[1].Metric(model.Density))
}

func TestLoad_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("data")
	require.NoError(t, err)
	for _, r := range [][]string{{"CBSA_Name", "NatWalkInd"}, {"Boise City, ID", "7.5"}} {
		row := sheet.AddRow()
		for _, c := range r {
			row.AddCell().SetString(c)
		}
	}
	path := filepath.Join(t.TempDir(), "extract.xlsx")
	require.NoError(t, f.Save(path))

	records, _, err := Load(context.Background(), nil, path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.Some(7.5), records[0].Metric(model.Walkability))
}

func TestLoad_ZIP(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "sld.zip")
	zf, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(zf)
	w, err := zw.Create("readme.txt")
	require.NoError(t, err)
	_, _ = w.Write([]byte("notes"))
	w, err = zw.Create("cleaned_sld_data.csv")
	require.NoError(t, err)
	_, _ = w.Write([]byte(sampleCSV))
	require.NoError(t, zw.Close())
	require.NoError(t, zf.Close())

	records, _, err := Load(context.Background(), nil, zipPath)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestLoad_RemoteCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	records, rep, err := Load(context.Background(), newTestFetcher(), srv.URL+"/public/cleaned_sld_data.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Accepted)
	assert.Len(t, records, 2)
}

func TestLoad_Errors(t *testing.T) {
	_, _, err := Load(context.Background(), nil, writeFile(t, "data.parquet", "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")

	_, _, err = Load(context.Background(), nil, filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)

	_, _, err = Load(context.Background(), nil, writeFile(t, "bad.json", `{"not":"array"}`))
	require.Error(t, err)
}

func TestLoadMetroStats(t *testing.T) {
	path := writeFile(t, "metro_summary.csv", "CBSA_Name,NatWalkInd,D4A,Composite_VMT\nAkron,8.2,300.5,12000\nBlank,,,\n,1,2,3\n")

	stats, err := LoadMetroStats(context.Background(), nil, path)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "Akron", stats[0].RegionID)
	assert.Equal(t, model.Some(8.2), stats[0].Walkability)
	assert.Equal(t, model.Some(12000), stats[0].CompositeVMT)
	assert.Equal(t, model.Missing, stats[1].Walkability)
}
