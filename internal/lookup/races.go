package lookup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/JakeFAU/wi-election-guide/internal/civic"
	"github.com/JakeFAU/wi-election-guide/internal/maps"
)

// Race search failures surfaced to visitors.
var (
	ErrRaceTypeRequired = errors.New("Please select a race type")
	ErrDistrictRequired = errors.New("Please select a district")
	ErrRaceIDNotFound   = errors.New("Error: Race ID not found")
	ErrUnknownRacePath  = errors.New("unknown race path")
	ErrRaceNotFound     = errors.New("race not found")
)

// GovernorRaceID is the fixed race id of the governor's race.
const GovernorRaceID = "go-1"

// GovernorPath is the race page path of the governor's race.
const GovernorPath = "wisconsin-governor"

var racePaths = map[string]string{
	civic.SheetAssembly:   civic.DistrictAssembly.RacePath(),
	civic.SheetSenate:     civic.DistrictSenate.RacePath(),
	civic.SheetUSCongress: civic.DistrictCongress.RacePath(),
	civic.SheetGovernor:   GovernorPath,
}

var pathSheets = map[string]string{
	civic.DistrictAssembly.RacePath(): civic.SheetAssembly,
	civic.DistrictSenate.RacePath():   civic.SheetSenate,
	civic.DistrictCongress.RacePath(): civic.SheetUSCongress,
	GovernorPath:                      civic.SheetGovernor,
}

// DistrictOption is one entry of the district dropdown.
type DistrictOption struct {
	Value  string `json:"value"`
	Label  string `json:"label"`
	RaceID string `json:"raceId"`
}

// MapSettings tells the race page which district to draw.
type MapSettings struct {
	DistrictType civic.DistrictType `json:"districtType"`
	Tileset      string             `json:"tileset"`
	District     string             `json:"district"`
}

// RacePage is the data behind /{race_path}/{race_id}.
type RacePage struct {
	RacePath string         `json:"racePath"`
	Race     civic.Record   `json:"race"`
	Stories  []civic.Record `json:"stories"`
	Map      *MapSettings   `json:"map,omitempty"`
}

// RaceTypes returns the built-in race search menu.
func (s *Service) RaceTypes() []civic.RaceType {
	return civic.RaceTypes()
}

// DistrictOptions lists the districts of a race sheet sorted by district number.
// Rows missing either the district number or the race id are skipped.
func (s *Service) DistrictOptions(ctx context.Context, raceType string) ([]DistrictOption, error) {
	races, err := s.directory.Races(ctx, raceType)
	if err != nil {
		return nil, fmt.Errorf("read %s races: %w", raceType, err)
	}

	byDistrict := make(map[string]string, len(races))
	for _, r := range races {
		d := strings.TrimSpace(r.DistrictNumber())
		if d == "" || r.RaceID() == "" {
			continue
		}
		byDistrict[d] = r.RaceID()
	}

	options := make([]DistrictOption, 0, len(byDistrict))
	for d, id := range byDistrict {
		options = append(options, DistrictOption{Value: d, Label: "District " + d, RaceID: id})
	}
	sort.Slice(options, func(i, j int) bool {
		return districtLess(options[i].Value, options[j].Value)
	})
	return options, nil
}

// districtLess orders numeric districts by value, then non-numeric ones lexically.
func districtLess(a, b string) bool {
	na, errA := maps.ParseDistrict(a)
	nb, errB := maps.ParseDistrict(b)
	switch {
	case errA == nil && errB == nil:
		if na != nb {
			return na < nb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// ResolveRacePath returns the race page path for a race search.
func (s *Service) ResolveRacePath(ctx context.Context, raceType, district string) (string, error) {
	racePath, ok := racePaths[raceType]
	if !ok {
		return "", ErrRaceTypeRequired
	}

	raceID := GovernorRaceID
	if civic.IsDistrictSheet(raceType) {
		district = strings.TrimSpace(district)
		if district == "" {
			return "", ErrDistrictRequired
		}
		options, err := s.DistrictOptions(ctx, raceType)
		if err != nil {
			return "", err
		}
		raceID = ""
		for _, o := range options {
			if o.Value == district {
				raceID = o.RaceID
				break
			}
		}
		if raceID == "" {
			return "", ErrRaceIDNotFound
		}
	}

	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.opts.BasePath, "/"), racePath, raceID), nil
}

// RacePage loads the race, its stories and its map settings.
func (s *Service) RacePage(ctx context.Context, racePath, raceID string) (*RacePage, error) {
	sheet, ok := pathSheets[racePath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRacePath, racePath)
	}
	race, err := s.directory.RaceByRaceID(ctx, raceID, sheet)
	if err != nil {
		return nil, fmt.Errorf("read race %s: %w", raceID, err)
	}
	if race == nil {
		return nil, fmt.Errorf("%w: %s", ErrRaceNotFound, raceID)
	}

	page := &RacePage{
		RacePath: racePath,
		Race:     *race,
		Stories:  s.directory.StoriesByRaceID(ctx, raceID),
	}
	if dt, err := civic.ParseDistrictType(racePath); err == nil {
		page.Map = &MapSettings{
			DistrictType: dt,
			Tileset:      s.opts.Tilesets[dt],
			District:     race.DistrictNumber(),
		}
	}
	return page, nil
}
