package civic

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidDistrictType is returned for anything other than assembly, senate, or congress.
var ErrInvalidDistrictType = errors.New("invalid district type")

// DistrictType identifies a legislative district map.
type DistrictType string

// Supported district types.
const (
	DistrictAssembly DistrictType = "assembly"
	DistrictSenate   DistrictType = "senate"
	DistrictCongress DistrictType = "congress"
)

// DistrictTypes lists the district types in lookup order.
var DistrictTypes = []DistrictType{DistrictAssembly, DistrictSenate, DistrictCongress}

// ParseDistrictType normalizes raw into a DistrictType.
func ParseDistrictType(raw string) (DistrictType, error) {
	switch dt := DistrictType(strings.ToLower(strings.TrimSpace(raw))); dt {
	case DistrictAssembly, DistrictSenate, DistrictCongress:
		return dt, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidDistrictType, raw)
	}
}

// SheetName returns the tab of the races spreadsheet holding this district type.
func (d DistrictType) SheetName() string {
	switch d {
	case DistrictAssembly:
		return "Assembly"
	case DistrictSenate:
		return "Senate"
	case DistrictCongress:
		return "US Congress"
	default:
		return ""
	}
}

// RacePath returns the URL segment used for race pages of this district type.
func (d DistrictType) RacePath() string {
	return string(d)
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is a geocoded street address.
type Location struct {
	Lat              float64   `json:"lat"`
	Lng              float64   `json:"lng"`
	FormattedAddress string    `json:"formattedAddress"`
	BBox             []float64 `json:"bbox,omitempty"`
}

// Districts holds the district number for each map; nil means the point was not inside any district.
type Districts struct {
	Assembly *string `json:"assembly"`
	Senate   *string `json:"senate"`
	Congress *string `json:"congress"`
}

// Get returns the district number for dt.
func (d Districts) Get(dt DistrictType) *string {
	switch dt {
	case DistrictAssembly:
		return d.Assembly
	case DistrictSenate:
		return d.Senate
	case DistrictCongress:
		return d.Congress
	default:
		return nil
	}
}

// Set stores the district number for dt.
func (d *Districts) Set(dt DistrictType, number *string) {
	switch dt {
	case DistrictAssembly:
		d.Assembly = number
	case DistrictSenate:
		d.Senate = number
	case DistrictCongress:
		d.Congress = number
	}
}

// DistrictLookup is the result of resolving an address to its districts.
type DistrictLookup struct {
	Address     string      `json:"address"`
	Coordinates Coordinates `json:"coordinates"`
	Districts   Districts   `json:"districts"`
}

// Record is a single spreadsheet row keyed by normalized header.
type Record struct {
	ID     int
	Fields map[string]string
}

// Spreadsheet columns the service reads by name.
const (
	FieldRaceID         = "race-id"
	FieldDistrictNumber = "district-number"
	FieldStoryRaceID    = "race_id"
	FieldCandidateID    = "candidate_id"
)

// Get returns the value for key or "".
func (r Record) Get(key string) string {
	return r.Fields[key]
}

// RaceID returns the race-id column.
func (r Record) RaceID() string { return r.Get(FieldRaceID) }

// DistrictNumber returns the district-number column.
func (r Record) DistrictNumber() string { return r.Get(FieldDistrictNumber) }

// StoryRaceID returns the race_id column used by the stories sheet.
func (r Record) StoryRaceID() string { return r.Get(FieldStoryRaceID) }

// CandidateID returns the candidate_id column.
func (r Record) CandidateID() string { return r.Get(FieldCandidateID) }

// MarshalJSON flattens the record into {"id": n, "<header>": "<value>"}.
// A sheet column named "id" takes precedence over the row index.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+1)
	out["id"] = r.ID
	for k, v := range r.Fields {
		out[k] = v
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return data, nil
}

// UnmarshalJSON reverses MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	r.Fields = make(map[string]string, len(raw))
	for k, v := range raw {
		if k == "id" {
			if n, ok := v.(float64); ok {
				r.ID = int(n)
				continue
			}
		}
		if s, ok := v.(string); ok {
			r.Fields[k] = s
		} else if v != nil {
			r.Fields[k] = fmt.Sprint(v)
		}
	}
	return nil
}

// whitespaceRun matches the same characters as a JavaScript \s class, Unicode spaces included.
var whitespaceRun = regexp.MustCompile(`[\s\x0B\p{Zs}\x{2028}\x{2029}\x{FEFF}]+`)

// NormalizeHeader lowercases h and replaces whitespace runs with underscores.
func NormalizeHeader(h string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(h), "_")
}

// Slugify lowercases s and replaces whitespace runs with hyphens.
func Slugify(s string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(s), "-")
}

// RowsToRecords converts a header row plus data rows into records.
// Missing cells become "", cells beyond the header row are dropped.
func RowsToRecords(rows [][]string) []Record {
	if len(rows) == 0 {
		return []Record{}
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = NormalizeHeader(h)
	}
	records := make([]Record, 0, len(rows)-1)
	for idx, row := range rows[1:] {
		fields := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				fields[h] = row[i]
			} else {
				fields[h] = ""
			}
		}
		records = append(records, Record{ID: idx, Fields: fields})
	}
	return records
}

// RaceType is an entry in the race search menu.
type RaceType struct {
	Value        string `json:"value"`
	Label        string `json:"label"`
	HasDistricts bool   `json:"hasDistricts"`
	Slug         string `json:"slug,omitempty"`
}

// Race sheet names with district maps.
const (
	SheetAssembly   = "Assembly"
	SheetSenate     = "Senate"
	SheetUSCongress = "US Congress"
	SheetGovernor   = "Governor"
)

// RaceTypes returns the built-in race search menu entries.
func RaceTypes() []RaceType {
	return []RaceType{
		{Value: SheetAssembly, Label: "State Assembly", HasDistricts: true},
		{Value: SheetSenate, Label: "State Senate", HasDistricts: true},
		{Value: SheetUSCongress, Label: "U.S. Congress", HasDistricts: true},
		{Value: SheetGovernor, Label: "Governor", HasDistricts: false},
	}
}

// IsDistrictSheet reports whether sheet is one of the district-based race sheets.
func IsDistrictSheet(sheet string) bool {
	switch sheet {
	case SheetAssembly, SheetSenate, SheetUSCongress:
		return true
	default:
		return false
	}
}

// Headline is a news story scraped from the newsroom tag page.
type Headline struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Classes string `json:"classes,omitempty"`
}

// RaceIDs holds the race id for each district race of an address.
type RaceIDs struct {
	Assembly string `json:"assembly"`
	Senate   string `json:"senate"`
	Congress string `json:"congress"`
}

// Set stores id for dt.
func (r *RaceIDs) Set(dt DistrictType, id string) {
	switch dt {
	case DistrictAssembly:
		r.Assembly = id
	case DistrictSenate:
		r.Senate = id
	case DistrictCongress:
		r.Congress = id
	}
}

// SavedRaces is the per-session record of the last address lookup.
type SavedRaces struct {
	Assembly  string    `json:"assembly"`
	Senate    string    `json:"senate"`
	Congress  string    `json:"congress"`
	Address   string    `json:"address"`
	Timestamp time.Time `json:"timestamp"`
}

// SourceRace remembers which race page a visitor navigated from.
type SourceRace struct {
	RaceType  string    `json:"raceType"`
	RaceID    string    `json:"raceId"`
	Timestamp time.Time `json:"timestamp"`
}
