package geo

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/sld-insights/internal/fetcher"
)

// StateShape is one state boundary from a TIGER state shapefile.
type StateShape struct {
	State
	Geometry *geom.MultiPolygon `json:"-"`
	Bounds   *geom.Bounds       `json:"-"`
	// Anchor is the bounding-box centre, used to place the state label.
	Anchor geom.Coord `json:"anchor"`
}

// LoadStateShapes reads state boundaries from a .shp file or a zipped TIGER
// shapefile (tl_YYYY_us_state.zip). Shapes are returned ordered by FIPS code.
func LoadStateShapes(path string) ([]StateShape, error) {
	log := zap.L().With(zap.String("component", "geo.shapefile"))

	shpPath := path
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		dir, err := os.MkdirTemp("", "sld-states-*")
		if err != nil {
			return nil, eris.Wrap(err, "geo: create extract dir")
		}
		defer os.RemoveAll(dir) //nolint:errcheck

		shpPath, err = fetcher.ExtractZIPByExt(path, dir, ".shp")
		if err != nil {
			return nil, eris.Wrap(err, "geo: extract state ZIP")
		}
	}

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrap(err, "geo: open shapefile")
	}
	defer func() { _ = reader.Close() }()

	fpIdx := fieldIndex(reader, "STATEFP")
	nameIdx := fieldIndex(reader, "NAME")
	abbrIdx := fieldIndex(reader, "STUSPS")
	if fpIdx < 0 {
		return nil, eris.New("geo: required shapefile field STATEFP not found")
	}

	var out []StateShape
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}

		code := NormalizeFIPSState(reader.Attribute(fpIdx))
		if code == "" {
			continue
		}

		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			log.Debug("geo: skipping empty state geometry", zap.String("statefp", code))
			continue
		}

		st, known := LookupState(code)
		if !known {
			st = State{FIPS: code}
		}
		if nameIdx >= 0 {
			if name := strings.TrimSpace(reader.Attribute(nameIdx)); name != "" {
				st.Name = name
			}
		}
		if abbrIdx >= 0 {
			if abbr := strings.TrimSpace(reader.Attribute(abbrIdx)); abbr != "" {
				st.Abbr = abbr
			}
		}

		b := mp.Bounds()
		out = append(out, StateShape{
			State:    st,
			Geometry: mp,
			Bounds:   b,
			Anchor:   geom.Coord{(b.Min(0) + b.Max(0)) / 2, (b.Min(1) + b.Max(1)) / 2},
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].FIPS < out[j].FIPS })
	log.Info("state shapes loaded", zap.Int("states", len(out)))
	return out, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon, one polygon per ring.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("geo: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("geo: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
