package render

import (
	"encoding/json"
	"io"

	"github.com/KaramelBytes/minedash/internal/pipeline"
)

// FeatureCollection is the GeoJSON document written by WriteGeoJSON.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is one GeoJSON point feature.
type Feature struct {
	Type       string          `json:"type"`
	Geometry   Geometry        `json:"geometry"`
	Properties pipeline.Marker `json:"properties"`
}

// Geometry is a GeoJSON point. Coordinates are [lon, lat].
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// GeoJSON converts markers to a FeatureCollection.
func GeoJSON(markers []pipeline.Marker) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(markers))}
	for _, m := range markers {
		fc.Features = append(fc.Features, Feature{
			Type:       "Feature",
			Geometry:   Geometry{Type: "Point", Coordinates: [2]float64{m.Lon, m.Lat}},
			Properties: m,
		})
	}
	return fc
}

// WriteGeoJSON encodes markers as a FeatureCollection.
func WriteGeoJSON(w io.Writer, markers []pipeline.Marker) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(GeoJSON(markers))
}
