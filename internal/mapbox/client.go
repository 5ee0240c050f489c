package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/JakeFAU/wi-election-guide/internal/civic"
	"github.com/JakeFAU/wi-election-guide/internal/upstream"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Wisconsin bounding box used to restrict geocoding results.
const wisconsinBBox = "-92.889,42.491,-86.249,47.309"

// DefaultBaseURL is the public Mapbox API host.
const DefaultBaseURL = "https://api.mapbox.com"

// Lookup failures surfaced to visitors.
var (
	ErrAddressNotFound  = errors.New("Address not found. Please enter a complete physical address including street number, street name, and city.")
	ErrNotStreetAddress = errors.New("Please enter a complete physical address with a street number, not just a city or street name.")
	ErrOutsideWisconsin = errors.New("Address must be in Wisconsin")
	ErrTokenMissing     = errors.New("Mapbox access token not configured")
	ErrEmptyQuery       = errors.New("Query parameter is required")
)

// DefaultTilesets maps each district type to its vector tileset.
var DefaultTilesets = map[civic.DistrictType]string{
	civic.DistrictAssembly: "wisconsinwatch.6gs2v405",
	civic.DistrictSenate:   "wisconsinwatch.7scp33x9",
	civic.DistrictCongress: "wisconsinwatch.5mz9q1z2",
}

// districtProperties lists, per district type, the feature properties that may carry the district number.
var districtProperties = map[civic.DistrictType][]string{
	civic.DistrictAssembly: {"ASM2024", "ASM", "ASSEMBLY", "Assembly", "assembly"},
	civic.DistrictSenate:   {"SEN2024", "SEN", "SENATE", "Senate", "senate"},
	civic.DistrictCongress: {
		"CON2021", "CON2022", "CON2024", "CD", "DISTRICT", "CONG_DIST",
		"CD_116", "CD2022", "CD2024", "congressional_district", "CONGRESSIONAL",
	},
}

// Config configures a Client.
type Config struct {
	AccessToken string
	BaseURL     string
	// Tilesets overrides DefaultTilesets per district type.
	Tilesets map[civic.DistrictType]string
}

// Client talks to the Mapbox geocoding and tilequery endpoints.
type Client struct {
	token    string
	baseURL  string
	tilesets map[civic.DistrictType]string
	http     *upstream.Client
	logger   *zap.Logger
}

// New builds a Client.
func New(cfg Config, httpClient *upstream.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	tilesets := make(map[civic.DistrictType]string, len(DefaultTilesets))
	for dt, ts := range DefaultTilesets {
		tilesets[dt] = ts
	}
	for dt, ts := range cfg.Tilesets {
		if ts != "" {
			tilesets[dt] = ts
		}
	}
	return &Client{
		token:    cfg.AccessToken,
		baseURL:  base,
		tilesets: tilesets,
		http:     httpClient,
		logger:   logger,
	}
}

// Tileset returns the tileset id for dt.
func (c *Client) Tileset(dt civic.DistrictType) string {
	return c.tilesets[dt]
}

type geocodeResponse struct {
	Features []geocodeFeature `json:"features"`
}

type geocodeFeature struct {
	PlaceType []string         `json:"place_type"`
	PlaceName string           `json:"place_name"`
	Center    []float64        `json:"center"`
	BBox      []float64        `json:"bbox"`
	Context   []geocodeContext `json:"context"`
}

type geocodeContext struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	ShortCode string `json:"short_code"`
}

// Geocode resolves address to a single Wisconsin street address.
func (c *Client) Geocode(ctx context.Context, address string) (civic.Location, error) {
	if strings.TrimSpace(address) == "" {
		return civic.Location{}, ErrEmptyQuery
	}
	if c.token == "" {
		return civic.Location{}, ErrTokenMissing
	}
	var resp geocodeResponse
	rawURL, logURL := c.geocodeURL(address, 1)
	if err := c.http.GetJSON(ctx, rawURL, logURL, &resp); err != nil {
		return civic.Location{}, eris.Wrap(err, "mapbox: geocoding failed")
	}
	if len(resp.Features) == 0 {
		return civic.Location{}, ErrAddressNotFound
	}

	feature := resp.Features[0]
	if !containsString(feature.PlaceType, "address") {
		return civic.Location{}, ErrNotStreetAddress
	}
	if !inWisconsin(feature.Context) {
		return civic.Location{}, ErrOutsideWisconsin
	}
	if len(feature.Center) < 2 {
		return civic.Location{}, eris.New("mapbox: geocoding feature has no center")
	}

	return civic.Location{
		Lng:              feature.Center[0],
		Lat:              feature.Center[1],
		FormattedAddress: feature.PlaceName,
		BBox:             feature.BBox,
	}, nil
}

// Suggest returns up to five raw address candidates for query.
func (c *Client) Suggest(ctx context.Context, query string) (json.RawMessage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if c.token == "" {
		return nil, ErrTokenMissing
	}
	rawURL, logURL := c.geocodeURL(query, 5)
	body, err := c.http.GetBody(ctx, rawURL, logURL)
	if err != nil {
		return nil, eris.Wrap(err, "mapbox: suggest failed")
	}
	if !json.Valid(body) {
		return nil, eris.New("mapbox: suggest returned invalid JSON")
	}
	return json.RawMessage(body), nil
}

func (c *Client) geocodeURL(address string, limit int) (string, string) {
	params := url.Values{}
	params.Set("country", "US")
	params.Set("types", "address")
	params.Set("bbox", wisconsinBBox)
	params.Set("limit", strconv.Itoa(limit))
	path := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json", c.baseURL, upstream.EscapeComponent(address))
	logURL := path + "?" + params.Encode()
	params.Set("access_token", c.token)
	return path + "?" + params.Encode(), logURL
}

type tilequeryResponse struct {
	Features []struct {
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

// QueryDistrict returns the district number of type dt containing the point, or nil.
func (c *Client) QueryDistrict(ctx context.Context, lat, lng float64, dt civic.DistrictType) (*string, error) {
	if c.token == "" {
		return nil, ErrTokenMissing
	}
	tileset, ok := c.tilesets[dt]
	keys, known := districtProperties[dt]
	if !ok || !known {
		return nil, fmt.Errorf("%w: %s", civic.ErrInvalidDistrictType, dt)
	}

	path := fmt.Sprintf("%s/v4/%s/tilequery/%s,%s.json", c.baseURL, tileset, formatCoord(lng), formatCoord(lat))
	rawURL := path + "?" + url.Values{"access_token": {c.token}}.Encode()

	var resp tilequeryResponse
	if err := c.http.GetJSON(ctx, rawURL, path, &resp); err != nil {
		return nil, eris.Wrapf(err, "mapbox: failed to query %s district", dt)
	}
	if len(resp.Features) == 0 {
		return nil, nil
	}

	props := resp.Features[0].Properties
	for _, key := range keys {
		if v, ok := props[key]; ok && v != nil {
			district := jsString(v)
			c.logger.Debug("found district",
				zap.String("type", string(dt)),
				zap.String("property", key),
				zap.String("district", district),
			)
			return &district, nil
		}
	}

	available := make([]string, 0, len(props))
	for k := range props {
		available = append(available, k)
	}
	c.logger.Debug("no district property matched",
		zap.String("type", string(dt)),
		zap.Strings("available", available),
	)
	return nil, nil
}

// FindDistricts geocodes address and queries every district type in parallel.
func (c *Client) FindDistricts(ctx context.Context, address string) (civic.DistrictLookup, error) {
	loc, err := c.Geocode(ctx, address)
	if err != nil {
		return civic.DistrictLookup{}, err
	}

	results := make([]*string, len(civic.DistrictTypes))
	g, gctx := errgroup.WithContext(ctx)
	for i, dt := range civic.DistrictTypes {
		g.Go(func() error {
			district, err := c.QueryDistrict(gctx, loc.Lat, loc.Lng, dt)
			if err != nil {
				return err
			}
			results[i] = district
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return civic.DistrictLookup{}, err
	}

	var districts civic.Districts
	for i, dt := range civic.DistrictTypes {
		districts.Set(dt, results[i])
	}
	return civic.DistrictLookup{
		Address:     loc.FormattedAddress,
		Coordinates: civic.Coordinates{Lat: loc.Lat, Lng: loc.Lng},
		Districts:   districts,
	}, nil
}

func inWisconsin(entries []geocodeContext) bool {
	for _, e := range entries {
		if strings.HasPrefix(e.ID, "region") && (e.Text == "Wisconsin" || e.ShortCode == "US-WI") {
			return true
		}
	}
	return false
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// jsString renders a decoded JSON value the way a browser's String() would.
func jsString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			if item != nil {
				parts[i] = jsString(item)
			}
		}
		return strings.Join(parts, ",")
	case map[string]any:
		return "[object Object]"
	default:
		return fmt.Sprint(val)
	}
}
