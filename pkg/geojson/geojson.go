package geojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	ErrNotAFeatureCollection = errors.New("not a FeatureCollection")
	ErrNotAFeature           = errors.New("not a Feature")
	ErrUnsupportedGeometry   = errors.New("unsupported geometry type")
	ErrNoCoordinates         = errors.New("geometry has no coordinates")
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   Geometry       `json:"geometry"`
}

// Geometry holds a GeoJSON Polygon. Coordinates are rings of positions in
// (lon, lat) source order; the first ring is the exterior boundary and any
// remaining rings are holes.
type Geometry struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// StringProperty returns the named feature property if it is present and
// is a string.
func (f Feature) StringProperty(name string) string {
	if v, ok := f.Properties[name].(string); ok {
		return v
	}

	return ""
}

// ReadFeatureCollection decodes a FeatureCollection from r and validates
// its structure. Byte level concerns stay here; callers receive typed
// features ready for reprojection.
func ReadFeatureCollection(r io.Reader) (*FeatureCollection, error) {
	fc := &FeatureCollection{}

	err := json.NewDecoder(r).Decode(fc)
	if err != nil {
		return nil, fmt.Errorf("unable to decode feature collection: %w", err)
	}

	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w (type %q)", ErrNotAFeatureCollection, fc.Type)
	}

	for i, f := range fc.Features {
		if f.Type != "Feature" {
			return nil, fmt.Errorf("feature %d: %w (type %q)", i, ErrNotAFeature, f.Type)
		}

		if f.Geometry.Type != "Polygon" {
			return nil, fmt.Errorf("feature %d: %w (type %q)", i, ErrUnsupportedGeometry, f.Geometry.Type)
		}

		if len(f.Geometry.Coordinates) == 0 {
			return nil, fmt.Errorf("feature %d: %w", i, ErrNoCoordinates)
		}
	}

	return fc, nil
}
