package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/sld-insights/internal/aggregate"
	"github.com/sells-group/sld-insights/internal/geo"
	"github.com/sells-group/sld-insights/internal/model"
)

// StatesFeatureCollection joins state boundaries with their averages. States
// without data keep a null average and no colour.
func StatesFeatureCollection(shapes []geo.StateShape, states aggregate.StateAverages, metric model.Metric) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(shapes))}
	for _, s := range shapes {
		if s.Geometry == nil {
			continue
		}
		props := map[string]any{
			"STATEFP": s.FIPS,
			"STUSPS":  s.Abbr,
			"NAME":    s.Name,
			"metric":  string(metric),
			"average": nil,
			"count":   0,
			"color":   nil,
		}
		if len(s.Anchor) >= 2 {
			props["anchor"] = []float64{s.Anchor.X(), s.Anchor.Y()}
		}
		if a, ok := states[s.FIPS]; ok {
			props["average"] = model.Float(a.Average)
			props["count"] = a.Count
			props["color"] = states.Color(s.FIPS)
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         s.FIPS,
			BBox:       s.Bounds,
			Geometry:   s.Geometry,
			Properties: props,
		})
	}
	return fc
}

// WriteStatesGeoJSON writes the choropleth as a GeoJSON FeatureCollection.
func WriteStatesGeoJSON(w io.Writer, shapes []geo.StateShape, states aggregate.StateAverages, metric model.Metric) error {
	b, err := json.Marshal(StatesFeatureCollection(shapes, states, metric))
	if err != nil {
		return eris.Wrap(err, "export: marshal geojson")
	}
	_, err = w.Write(b)
	return eris.Wrap(err, "export: write geojson")
}
