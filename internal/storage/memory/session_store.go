package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SessionStore keeps session payloads in an expiring LRU keyed by session id and key.
type SessionStore struct {
	lru *expirable.LRU[string, []byte]
}

// NewSessionStore creates a store holding at most size entries for ttl each.
func NewSessionStore(size int, ttl time.Duration) *SessionStore {
	if size <= 0 {
		size = 1024
	}
	return &SessionStore{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func entryKey(sessionID, key string) string {
	return sessionID + "\x00" + key
}

// Put stores a copy of payload.
func (s *SessionStore) Put(_ context.Context, sessionID, key string, payload []byte) error {
	if sessionID == "" || key == "" {
		return fmt.Errorf("session id and key are required")
	}
	s.lru.Add(entryKey(sessionID, key), append([]byte(nil), payload...))
	return nil
}

// Get returns the stored payload for (sessionID, key).
func (s *SessionStore) Get(_ context.Context, sessionID, key string) ([]byte, bool, error) {
	payload, ok := s.lru.Get(entryKey(sessionID, key))
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), payload...), true, nil
}

// Delete removes the payload for (sessionID, key).
func (s *SessionStore) Delete(_ context.Context, sessionID, key string) error {
	s.lru.Remove(entryKey(sessionID, key))
	return nil
}
