package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/JakeFAU/wi-election-guide/internal/cache"
	"github.com/JakeFAU/wi-election-guide/internal/civic"
	"github.com/JakeFAU/wi-election-guide/internal/upstream"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public Google Sheets API host.
const DefaultBaseURL = "https://sheets.googleapis.com"

// ErrAPIKeyMissing is returned when no Sheets API key is configured.
var ErrAPIKeyMissing = errors.New("google sheets api key not configured")

// Config configures a Client.
type Config struct {
	APIKey                  string
	BaseURL                 string
	CandidatesSpreadsheetID string
	RacesSpreadsheetID      string
	StoriesSpreadsheetID    string
	CandidatesCSVURL        string
	CandidateSheet          string
	StoriesSheet            string
}

// Client reads spreadsheet tabs as records.
type Client struct {
	cfg    Config
	http   *upstream.Client
	cache  cache.Cache
	logger *zap.Logger
}

// New builds a Client. A nil cache disables caching.
func New(cfg Config, httpClient *upstream.Client, c cache.Cache, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = cache.Nop{}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CandidateSheet == "" {
		cfg.CandidateSheet = "Candidate"
	}
	if cfg.StoriesSheet == "" {
		cfg.StoriesSheet = "Sheet1"
	}
	return &Client{cfg: cfg, http: httpClient, cache: c, logger: logger}
}

type valuesResponse struct {
	Range  string     `json:"range,omitempty"`
	Values [][]string `json:"values"`
}

type metadataResponse struct {
	Sheets []struct {
		Properties struct {
			Title string `json:"title"`
		} `json:"properties"`
	} `json:"sheets"`
}

// Values returns the raw cell rows of rng in the given spreadsheet.
func (c *Client) Values(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	resp, err := cache.FetchJSON(ctx, c.cache, cache.Key("values", spreadsheetID, rng),
		func(ctx context.Context) (valuesResponse, error) {
			if c.cfg.APIKey == "" {
				return valuesResponse{}, ErrAPIKeyMissing
			}
			path := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s", c.cfg.BaseURL, upstream.EscapeComponent(spreadsheetID), upstream.EscapeComponent(rng))
			var out valuesResponse
			if err := c.http.GetJSON(ctx, path+"?"+c.keyQuery(), path, &out); err != nil {
				return valuesResponse{}, eris.Wrapf(err, "sheets: values %s", rng)
			}
			return out, nil
		})
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// Metadata returns the titles of every tab in the spreadsheet.
func (c *Client) Metadata(ctx context.Context, spreadsheetID string) ([]string, error) {
	resp, err := cache.FetchJSON(ctx, c.cache, cache.Key("meta", spreadsheetID, "sheets"),
		func(ctx context.Context) (metadataResponse, error) {
			if c.cfg.APIKey == "" {
				return metadataResponse{}, ErrAPIKeyMissing
			}
			path := fmt.Sprintf("%s/v4/spreadsheets/%s", c.cfg.BaseURL, upstream.EscapeComponent(spreadsheetID))
			var out metadataResponse
			if err := c.http.GetJSON(ctx, path+"?"+c.keyQuery(), path, &out); err != nil {
				return metadataResponse{}, eris.Wrap(err, "sheets: metadata")
			}
			return out, nil
		})
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		titles = append(titles, s.Properties.Title)
	}
	return titles, nil
}

func (c *Client) keyQuery() string {
	return url.Values{"key": {c.cfg.APIKey}}.Encode()
}

func sheetRange(sheet string) string {
	return fmt.Sprintf("'%s'!A:Z", sheet)
}

func (c *Client) records(ctx context.Context, spreadsheetID, sheet string) ([]civic.Record, error) {
	rows, err := c.Values(ctx, spreadsheetID, sheetRange(sheet))
	if err != nil {
		return nil, err
	}
	return civic.RowsToRecords(rows), nil
}

// Candidates returns every row of the candidate tab, falling back to the published CSV.
func (c *Client) Candidates(ctx context.Context, sheet string) ([]civic.Record, error) {
	if sheet == "" {
		sheet = c.cfg.CandidateSheet
	}
	records, err := c.records(ctx, c.cfg.CandidatesSpreadsheetID, sheet)
	if err == nil {
		return records, nil
	}
	c.logger.Warn("sheets api failed, falling back to csv", zap.String("sheet", sheet), zap.Error(err))
	records, csvErr := c.candidatesFromCSV(ctx)
	if csvErr != nil {
		return nil, csvErr
	}
	return records, nil
}

// CandidateByRow returns the candidate whose row index is id, or nil.
func (c *Client) CandidateByRow(ctx context.Context, id int) (*civic.Record, error) {
	candidates, err := c.Candidates(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if candidates[i].ID == id {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// CandidateByCandidateID returns the candidate with the given candidate_id, or nil.
func (c *Client) CandidateByCandidateID(ctx context.Context, candidateID string) (*civic.Record, error) {
	candidates, err := c.Candidates(ctx, "")
	if err != nil {
		return nil, err
	}
	return find(candidates, func(r civic.Record) bool { return r.CandidateID() == candidateID }), nil
}

// Races returns every row of a race tab.
func (c *Client) Races(ctx context.Context, sheet string) ([]civic.Record, error) {
	return c.records(ctx, c.cfg.RacesSpreadsheetID, sheet)
}

// RaceByDistrict returns the race of sheet for the district number, or nil.
func (c *Client) RaceByDistrict(ctx context.Context, district, sheet string) (*civic.Record, error) {
	races, err := c.Races(ctx, sheet)
	if err != nil {
		return nil, err
	}
	return find(races, func(r civic.Record) bool { return r.DistrictNumber() == district }), nil
}

// RaceByRaceID returns the race of sheet with the given race-id, or nil.
func (c *Client) RaceByRaceID(ctx context.Context, raceID, sheet string) (*civic.Record, error) {
	races, err := c.Races(ctx, sheet)
	if err != nil {
		return nil, err
	}
	return find(races, func(r civic.Record) bool { return r.RaceID() == raceID }), nil
}

// Stories returns every story row. Failures yield an empty list.
func (c *Client) Stories(ctx context.Context) []civic.Record {
	records, err := c.records(ctx, c.cfg.StoriesSpreadsheetID, c.cfg.StoriesSheet)
	if err != nil {
		c.logger.Error("fetch stories", zap.Error(err))
		return []civic.Record{}
	}
	return records
}

// StoriesByRaceID returns the stories tagged with raceID.
func (c *Client) StoriesByRaceID(ctx context.Context, raceID string) []civic.Record {
	stories := c.Stories(ctx)
	out := make([]civic.Record, 0, len(stories))
	for _, s := range stories {
		if s.StoryRaceID() == raceID {
			out = append(out, s)
		}
	}
	return out
}

// AvailableSheets returns the tab titles of the races spreadsheet. Failures yield an empty list.
func (c *Client) AvailableSheets(ctx context.Context) []string {
	titles, err := c.Metadata(ctx, c.cfg.RacesSpreadsheetID)
	if err != nil {
		c.logger.Error("fetch available sheets", zap.Error(err))
		return []string{}
	}
	return titles
}

// StatewideRaces returns the race tabs that are not district based.
func (c *Client) StatewideRaces(ctx context.Context) []civic.RaceType {
	sheets := c.AvailableSheets(ctx)
	out := make([]civic.RaceType, 0, len(sheets))
	for _, title := range sheets {
		if civic.IsDistrictSheet(title) {
			continue
		}
		out = append(out, civic.RaceType{
			Value: title,
			Label: title,
			Slug:  civic.Slugify(title),
		})
	}
	return out
}

// ParseRowID parses a candidate row id the way the route parameter is given.
func ParseRowID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse row id %q: %w", raw, err)
	}
	return id, nil
}

func find(records []civic.Record, match func(civic.Record) bool) *civic.Record {
	for i := range records {
		if match(records[i]) {
			return &records[i]
		}
	}
	return nil
}
