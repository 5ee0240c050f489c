package maps

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// DecodeFeatures accepts a FeatureCollection, a bare array of Features, or a single Feature.
func DecodeFeatures(data []byte) ([]*geojson.Feature, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode geojson: empty body")
	}
	if trimmed[0] == '[' {
		var features []*geojson.Feature
		if err := json.Unmarshal(trimmed, &features); err != nil {
			return nil, fmt.Errorf("decode feature array: %w", err)
		}
		return features, nil
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	switch probe.Type {
	case "FeatureCollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(trimmed, &fc); err != nil {
			return nil, fmt.Errorf("decode feature collection: %w", err)
		}
		return fc.Features, nil
	case "Feature":
		var f geojson.Feature
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return nil, fmt.Errorf("decode feature: %w", err)
		}
		return []*geojson.Feature{&f}, nil
	default:
		return nil, fmt.Errorf("decode geojson: unsupported type %q", probe.Type)
	}
}

// Bounds returns the camera fit covering the outer rings of every polygon in features.
// Without a single finite coordinate it falls back to the whole state.
func Bounds(features []*geojson.Feature) FitBounds {
	var (
		box   Box
		found bool
	)
	extend := func(ring *geom.LinearRing) {
		if ring == nil {
			return
		}
		for _, c := range ring.Coords() {
			if len(c) < 2 || !finite(c[0]) || !finite(c[1]) {
				continue
			}
			if !found {
				box = Box{{c[0], c[1]}, {c[0], c[1]}}
				found = true
				continue
			}
			box[0][0] = math.Min(box[0][0], c[0])
			box[0][1] = math.Min(box[0][1], c[1])
			box[1][0] = math.Max(box[1][0], c[0])
			box[1][1] = math.Max(box[1][1], c[1])
		}
	}

	for _, f := range features {
		if f == nil {
			continue
		}
		switch g := f.Geometry.(type) {
		case *geom.Polygon:
			if g.NumLinearRings() > 0 {
				extend(g.LinearRing(0))
			}
		case *geom.MultiPolygon:
			for i := 0; i < g.NumPolygons(); i++ {
				if p := g.Polygon(i); p.NumLinearRings() > 0 {
					extend(p.LinearRing(0))
				}
			}
		}
	}

	if !found {
		return FitBounds{Bounds: WisconsinBounds, Padding: fallbackPadding, Fallback: true}
	}
	return FitBounds{Bounds: box, Padding: districtPadding}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
