package geo

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFIPSState(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single digit padded", "6", "06"},
		{"two digits", "48", "48"},
		{"whitespace trimmed", " 06 ", "06"},
		{"empty", "", ""},
		{"too long", "060", ""},
		{"not numeric", "CA", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeFIPSState(tt.in))
		})
	}
}

func TestStateFromGEOID(t *testing.T) {
	tests := map[string]string{
		"060855001001":    "06",
		"60855001001":     "06",
		"481130001001":    "48",
		"060855001001000": "06",
		"60855001001000":  "06",
		"6085":            "",
		"06085":           "",
		"06085500100A":    "",
		"":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, StateFromGEOID(in), "geoid=%q", in)
	}
}

func TestResolveStateCode(t *testing.T) {
	tests := []struct {
		name    string
		statefp string
		geoids  []string
		want    string
	}{
		{"statefp wins", "6", []string{"481130001001"}, "06"},
		{"falls back to first geoid", "", []string{"481130001001", "060010001001"}, "48"},
		{"skips short geoid", "", []string{"4", "060010001001"}, "06"},
		{"malformed statefp uses geoid", "XX", []string{"360610001001"}, "36"},
		{"numeric geoid lost its zero", "", []string{"60855001001"}, "06"},
		{"nothing usable", "", []string{"", "1"}, ""},
		{"no inputs", "", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveStateCode(tt.statefp, tt.geoids...))
		})
	}
}

func TestStateName(t *testing.T) {
	assert.Equal(t, "California", StateName("06"))
	assert.Equal(t, "California", StateName("6"))
	assert.Equal(t, "99", StateName("99"))

	st, ok := LookupState("11")
	require.True(t, ok)
	assert.Equal(t, "DC", st.Abbr)
}

func writeTestShapefile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "tl_2024_us_state.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("STATEFP", 2),
		shp.StringField("STUSPS", 2),
		shp.StringField("NAME", 50),
	}))

	square := func(x0, y0, x1, y1 float64) *shp.Polygon {
		pl := shp.NewPolyLine([][]shp.Point{{
			{X: x0, Y: y0}, {X: x0, Y: y1}, {X: x1, Y: y1}, {X: x1, Y: y0}, {X: x0, Y: y0},
		}})
		p := shp.Polygon(*pl)
		return &p
	}

	rows := []struct {
		fp, abbr, name string
		poly           *shp.Polygon
	}{
		{"48", "TX", "Texas", square(-106, 26, -94, 36)},
		{"06", "CA", "California", square(-124, 32, -114, 42)},
	}
	for _, r := range rows {
		n := int(w.Write(r.poly))
		require.NoError(t, w.WriteAttribute(n, 0, r.fp))
		require.NoError(t, w.WriteAttribute(n, 1, r.abbr))
		require.NoError(t, w.WriteAttribute(n, 2, r.name))
	}
	w.Close()

	// go-shp writes the attribute table as "<base>dbf" without the dot, while
	// its reader opens "<base>.dbf".
	base := strings.TrimSuffix(path, ".shp")
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	return path
}

func TestLoadStateShapes(t *testing.T) {
	path := writeTestShapefile(t, t.TempDir())

	shapes, err := LoadStateShapes(path)
	require.NoError(t, err)
	require.Len(t, shapes, 2)

	assert.Equal(t, "06", shapes[0].FIPS)
	assert.Equal(t, "California", shapes[0].Name)
	assert.Equal(t, "CA", shapes[0].Abbr)
	assert.InDelta(t, -119.0, shapes[0].Anchor[0], 1e-9)
	assert.InDelta(t, 37.0, shapes[0].Anchor[1], 1e-9)
	assert.Equal(t, 1, shapes[0].Geometry.NumPolygons())

	assert.Equal(t, "48", shapes[1].FIPS)
	assert.InDelta(t, -106.0, shapes[1].Bounds.Min(0), 1e-9)
	assert.InDelta(t, 36.0, shapes[1].Bounds.Max(1), 1e-9)
}

func TestLoadStateShapesZip(t *testing.T) {
	dir := t.TempDir()
	shpPath := writeTestShapefile(t, dir)

	zipPath := filepath.Join(dir, "states.zip")
	zf, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(zf)
	base := shpPath[:len(shpPath)-len(".shp")]
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		src, err := os.Open(base + ext)
		require.NoError(t, err)
		dst, err := zw.Create("tl_2024_us_state" + ext)
		require.NoError(t, err)
		_, err = io.Copy(dst, src)
		require.NoError(t, err)
		require.NoError(t, src.Close())
	}
	require.NoError(t, zw.Close())
	require.NoError(t, zf.Close())

	shapes, err := LoadStateShapes(zipPath)
	require.NoError(t, err)
	assert.Len(t, shapes, 2)
}

func TestLoadStateShapesMissingFile(t *testing.T) {
	_, err := LoadStateShapes(filepath.Join(t.TempDir(), "nope.shp"))
	assert.Error(t, err)
}

func TestPolygonToMultiPolygonEmpty(t *testing.T) {
	assert.Nil(t, polygonToMultiPolygon(nil))
	assert.Nil(t, polygonToMultiPolygon(&shp.Polygon{}))
}
