// Package lookup sequences the district, race and story queries behind an address lookup.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/wi-election-guide/internal/civic"
	"github.com/JakeFAU/wi-election-guide/internal/mapbox"
	"github.com/JakeFAU/wi-election-guide/internal/metrics"
)

// EventLookupCompleted is published after every successful lookup.
const EventLookupCompleted = "lookup.completed"

// DistrictFinder resolves an address to its districts.
type DistrictFinder interface {
	FindDistricts(ctx context.Context, address string) (civic.DistrictLookup, error)
}

// Directory reads races and stories.
type Directory interface {
	Races(ctx context.Context, sheet string) ([]civic.Record, error)
	RaceByDistrict(ctx context.Context, district, sheet string) (*civic.Record, error)
	RaceByRaceID(ctx context.Context, raceID, sheet string) (*civic.Record, error)
	StoriesByRaceID(ctx context.Context, raceID string) []civic.Record
}

// Races holds the race row found for each district type.
type Races struct {
	Assembly *civic.Record `json:"assembly"`
	Senate   *civic.Record `json:"senate"`
	Congress *civic.Record `json:"congress"`
}

func (r *Races) set(dt civic.DistrictType, rec *civic.Record) {
	switch dt {
	case civic.DistrictAssembly:
		r.Assembly = rec
	case civic.DistrictSenate:
		r.Senate = rec
	case civic.DistrictCongress:
		r.Congress = rec
	}
}

// Result is everything the guide shows for an address.
type Result struct {
	Address     string                    `json:"address"`
	Coordinates civic.Coordinates         `json:"coordinates"`
	Districts   civic.Districts           `json:"districts"`
	Races       Races                     `json:"races"`
	RaceIDs     civic.RaceIDs             `json:"raceIds"`
	Stories     map[string][]civic.Record `json:"stories"`
}

// CompletedEvent is the lookup.completed payload. It never carries the address.
type CompletedEvent struct {
	Districts civic.Districts `json:"districts"`
	Timestamp time.Time       `json:"timestamp"`
}

// Options configures a Service.
type Options struct {
	// BasePath prefixes every race page path.
	BasePath string
	Tilesets map[civic.DistrictType]string
}

// Service orchestrates lookups.
type Service struct {
	finder    DistrictFinder
	directory Directory
	publisher civic.Publisher
	clock     civic.Clock
	logger    *zap.Logger
	opts      Options
}

// NewService wires a Service. publisher may be nil.
func NewService(finder DistrictFinder, directory Directory, publisher civic.Publisher, clock civic.Clock, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Tilesets == nil {
		opts.Tilesets = mapbox.DefaultTilesets
	}
	return &Service{
		finder:    finder,
		directory: directory,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		opts:      opts,
	}
}

// IsValidation reports whether err is a visitor-facing address problem.
func IsValidation(err error) bool {
	return errors.Is(err, mapbox.ErrAddressNotFound) ||
		errors.Is(err, mapbox.ErrNotStreetAddress) ||
		errors.Is(err, mapbox.ErrOutsideWisconsin) ||
		errors.Is(err, mapbox.ErrEmptyQuery)
}

// Lookup finds the districts of address and the races and stories for each.
func (s *Service) Lookup(ctx context.Context, address string) (*Result, error) {
	found, err := s.finder.FindDistricts(ctx, address)
	if err != nil {
		if IsValidation(err) {
			metrics.ObserveLookup("invalid")
		} else {
			metrics.ObserveLookup("error")
		}
		return nil, fmt.Errorf("find districts: %w", err)
	}

	result := &Result{
		Address:     found.Address,
		Coordinates: found.Coordinates,
		Districts:   found.Districts,
		Stories:     map[string][]civic.Record{},
	}

	// A failed race lookup leaves that race absent; it never fails the lookup.
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, dt := range civic.DistrictTypes {
		district := found.Districts.Get(dt)
		if district == nil {
			continue
		}
		wg.Go(func() {
			race, err := s.directory.RaceByDistrict(ctx, *district, dt.SheetName())
			if err != nil {
				s.logger.Warn("race lookup failed",
					zap.String("type", string(dt)),
					zap.String("district", *district),
					zap.Error(err),
				)
				return
			}
			if race == nil {
				return
			}
			var stories []civic.Record
			if id := race.RaceID(); id != "" {
				stories = s.directory.StoriesByRaceID(ctx, id)
			}
			mu.Lock()
			defer mu.Unlock()
			result.Races.set(dt, race)
			if id := race.RaceID(); id != "" {
				result.RaceIDs.Set(dt, id)
				result.Stories[id] = stories
			}
		})
	}
	wg.Wait()

	metrics.ObserveLookup("success")
	s.publish(ctx, found.Districts)
	return result, nil
}

func (s *Service) publish(ctx context.Context, districts civic.Districts) {
	if s.publisher == nil {
		return
	}
	event := CompletedEvent{Districts: districts, Timestamp: s.clock.Now()}
	if _, err := s.publisher.Publish(ctx, EventLookupCompleted, event); err != nil {
		s.logger.Warn("publish lookup event failed", zap.Error(err))
	}
}
