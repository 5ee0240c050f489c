// Package session remembers a visitor's last lookup and the race page they came from.
package session

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/wi-election-guide/internal/civic"
)

// Keys under which session payloads are stored.
const (
	KeySavedRaces = "savedRaces"
	KeySourceRace = "sourceRace"
)

// Store persists raw JSON payloads per session.
type Store interface {
	Get(ctx context.Context, sessionID, key string) ([]byte, bool, error)
	Put(ctx context.Context, sessionID, key string, payload []byte) error
	Delete(ctx context.Context, sessionID, key string) error
}

// Service reads and writes typed session entries.
type Service struct {
	store  Store
	clock  civic.Clock
	ids    civic.IDGenerator
	logger *zap.Logger
}

// NewService wires a Service.
func NewService(store Store, clock civic.Clock, ids civic.IDGenerator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, clock: clock, ids: ids, logger: logger}
}

// NewSessionID issues a fresh session identifier.
func (s *Service) NewSessionID() (string, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("issue session id: %w", err)
	}
	return id, nil
}

// SaveRaces records the race ids found for address. A nil ids is a no-op.
func (s *Service) SaveRaces(ctx context.Context, sessionID string, ids *civic.RaceIDs, address string) (*civic.SavedRaces, error) {
	if ids == nil {
		return nil, nil
	}
	saved := &civic.SavedRaces{
		Assembly:  ids.Assembly,
		Senate:    ids.Senate,
		Congress:  ids.Congress,
		Address:   address,
		Timestamp: s.clock.Now(),
	}
	if err := s.put(ctx, sessionID, KeySavedRaces, saved); err != nil {
		return nil, err
	}
	return saved, nil
}

// LoadRaces returns the saved races, or nil when absent or unreadable.
func (s *Service) LoadRaces(ctx context.Context, sessionID string) *civic.SavedRaces {
	var saved civic.SavedRaces
	if !s.get(ctx, sessionID, KeySavedRaces, &saved) {
		return nil
	}
	return &saved
}

// ClearRaces removes the saved races.
func (s *Service) ClearRaces(ctx context.Context, sessionID string) error {
	return s.clear(ctx, sessionID, KeySavedRaces)
}

// SaveSourceRace records the race page the visitor navigated from.
func (s *Service) SaveSourceRace(ctx context.Context, sessionID, raceType, raceID string) (*civic.SourceRace, error) {
	src := &civic.SourceRace{RaceType: raceType, RaceID: raceID, Timestamp: s.clock.Now()}
	if err := s.put(ctx, sessionID, KeySourceRace, src); err != nil {
		return nil, err
	}
	return src, nil
}

// LoadSourceRace returns the source race, or nil when absent or unreadable.
func (s *Service) LoadSourceRace(ctx context.Context, sessionID string) *civic.SourceRace {
	var src civic.SourceRace
	if !s.get(ctx, sessionID, KeySourceRace, &src) {
		return nil
	}
	return &src
}

// ClearSourceRace removes the source race.
func (s *Service) ClearSourceRace(ctx context.Context, sessionID string) error {
	return s.clear(ctx, sessionID, KeySourceRace)
}

func (s *Service) put(ctx context.Context, sessionID, key string, v any) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.store.Put(ctx, sessionID, key, payload); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

func (s *Service) get(ctx context.Context, sessionID, key string, out any) bool {
	if sessionID == "" {
		return false
	}
	payload, ok, err := s.store.Get(ctx, sessionID, key)
	if err != nil {
		s.logger.Warn("session read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		s.logger.Warn("discarding corrupt session entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *Service) clear(ctx context.Context, sessionID, key string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.store.Delete(ctx, sessionID, key); err != nil {
		return fmt.Errorf("clear %s: %w", key, err)
	}
	return nil
}
