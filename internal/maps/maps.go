// Package maps builds the Mapbox GL configuration for district maps and
// computes camera bounds for district geometries.
package maps

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/JakeFAU/wi-election-guide/internal/civic"
)

// LngLat is a [longitude, latitude] pair.
type LngLat [2]float64

// Box is a [southwest, northeast] bounding box.
type Box [2]LngLat

// Wisconsin map defaults.
var (
	WisconsinBounds = Box{{-92.889, 42.491}, {-86.249, 47.309}}
	WisconsinCenter = LngLat{-89.6, 44.8}
)

// Map defaults.
const (
	DefaultZoom       = 6
	DefaultStyleID    = "mapbox/light-v11"
	SourceID          = "districts"
	glyphsURL         = "mapbox://fonts/mapbox/{fontstack}/{range}.pbf"
	highlightColor    = "#0073aa"
	overviewPadding   = 5
	districtPadding   = 40
	fallbackPadding   = 20
	mapboxStylePrefix = "mapbox://styles/"
)

// Mode selects which map is built.
type Mode string

// Supported map modes.
const (
	ModeOverview Mode = "overview"
	ModeSingle   Mode = "single"
)

// ErrInvalidDistrict is returned when a district number has no leading digits.
var ErrInvalidDistrict = errors.New("invalid district number")

// ErrInvalidMode is returned for an unknown map mode.
var ErrInvalidMode = errors.New("invalid map mode")

// Source is a Mapbox style source.
type Source struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Layer is a Mapbox style layer.
type Layer struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Source      string         `json:"source"`
	SourceLayer string         `json:"source-layer,omitempty"`
	Paint       map[string]any `json:"paint"`
	Filter      []any          `json:"filter,omitempty"`
}

// Style is an inline Mapbox style document.
type Style struct {
	Version int               `json:"version"`
	Sources map[string]Source `json:"sources"`
	Glyphs  string            `json:"glyphs"`
	Layers  []Layer           `json:"layers"`
}

// FitBounds is the camera fit applied once the map loads.
type FitBounds struct {
	Bounds   Box  `json:"bounds"`
	Padding  int  `json:"padding"`
	Animate  bool `json:"animate"`
	Fallback bool `json:"fallback,omitempty"`
}

// Config is everything the browser needs to construct a district map.
type Config struct {
	// Style is either an inline *Style or a style URL string.
	Style                 any               `json:"style"`
	Center                LngLat            `json:"center"`
	Zoom                  float64           `json:"zoom"`
	Interactive           bool              `json:"interactive"`
	AttributionControl    bool              `json:"attributionControl"`
	PreserveDrawingBuffer bool              `json:"preserveDrawingBuffer"`
	Sources               map[string]Source `json:"sources,omitempty"`
	Layers                []Layer           `json:"layers,omitempty"`
	FitBounds             *FitBounds        `json:"fitBounds,omitempty"`
	Tileset               string            `json:"tileset"`
	District              int               `json:"district"`
}

// ParseDistrict reads the leading integer of raw, ignoring leading whitespace and trailing text.
func ParseDistrict(raw string) (int, error) {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDistrict, raw)
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDistrict, raw)
	}
	return n, nil
}

func districtFilter(district int) []any {
	return []any{"==", []any{"get", "FID"}, district}
}

func districtSource(tileset string) Source {
	return Source{Type: "vector", URL: "mapbox://" + tileset}
}

func baseConfig(tileset string, district int) Config {
	return Config{
		Center:                WisconsinCenter,
		Zoom:                  DefaultZoom,
		Interactive:           false,
		AttributionControl:    false,
		PreserveDrawingBuffer: true,
		Tileset:               tileset,
		District:              district,
	}
}

// OverviewMap shows every district of tileset with one highlighted, framed on the whole state.
// Layers are only emitted when sourceLayer is known.
func OverviewMap(tileset, sourceLayer string, district int) Config {
	style := &Style{
		Version: 8,
		Sources: map[string]Source{SourceID: districtSource(tileset)},
		Glyphs:  glyphsURL,
		Layers:  []Layer{},
	}
	if sourceLayer != "" {
		style.Layers = []Layer{
			{
				ID: "districts-fill", Type: "fill", Source: SourceID, SourceLayer: sourceLayer,
				Paint: map[string]any{"fill-color": "#ffffff", "fill-opacity": 1},
			},
			{
				ID: "selected-district", Type: "fill", Source: SourceID, SourceLayer: sourceLayer,
				Paint:  map[string]any{"fill-color": highlightColor, "fill-opacity": 0.8},
				Filter: districtFilter(district),
			},
			{
				ID: "districts-outline", Type: "line", Source: SourceID, SourceLayer: sourceLayer,
				Paint: map[string]any{"line-color": "#000000", "line-width": 0.5},
			},
		}
	}
	cfg := baseConfig(tileset, district)
	cfg.Style = style
	cfg.FitBounds = &FitBounds{Bounds: WisconsinBounds, Padding: overviewPadding}
	return cfg
}

// SingleDistrictMap draws one district over a basemap style.
// The camera is fitted client side with Bounds once the district geometry is known.
func SingleDistrictMap(tileset, sourceLayer string, district int, styleID string) Config {
	if styleID == "" {
		styleID = DefaultStyleID
	}
	cfg := baseConfig(tileset, district)
	cfg.Style = mapboxStylePrefix + styleID
	cfg.Sources = map[string]Source{SourceID: districtSource(tileset)}
	if sourceLayer != "" {
		cfg.Layers = []Layer{
			{
				ID: "district-fill", Type: "fill", Source: SourceID, SourceLayer: sourceLayer,
				Paint:  map[string]any{"fill-color": highlightColor, "fill-opacity": 0.6},
				Filter: districtFilter(district),
			},
			{
				ID: "district-outline", Type: "line", Source: SourceID, SourceLayer: sourceLayer,
				Paint:  map[string]any{"line-color": highlightColor, "line-width": 3},
				Filter: districtFilter(district),
			},
		}
	}
	return cfg
}

// Builder resolves tilesets per district type.
type Builder struct {
	tilesets map[civic.DistrictType]string
	styleID  string
}

// NewBuilder creates a Builder. An empty styleID means DefaultStyleID.
func NewBuilder(tilesets map[civic.DistrictType]string, styleID string) *Builder {
	if styleID == "" {
		styleID = DefaultStyleID
	}
	return &Builder{tilesets: tilesets, styleID: styleID}
}

// Tileset returns the tileset configured for dt.
func (b *Builder) Tileset(dt civic.DistrictType) string {
	return b.tilesets[dt]
}

// Build returns the map config for a district of type dt.
func (b *Builder) Build(dt civic.DistrictType, district string, mode Mode, styleID, sourceLayer string) (Config, error) {
	tileset, ok := b.tilesets[dt]
	if !ok || tileset == "" {
		return Config{}, fmt.Errorf("%w: %s", civic.ErrInvalidDistrictType, dt)
	}
	n, err := ParseDistrict(district)
	if err != nil {
		return Config{}, err
	}
	switch mode {
	case "", ModeOverview:
		return OverviewMap(tileset, sourceLayer, n), nil
	case ModeSingle:
		if styleID == "" {
			styleID = b.styleID
		}
		return SingleDistrictMap(tileset, sourceLayer, n, styleID), nil
	default:
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}
}
