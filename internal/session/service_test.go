package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/wi-election-guide/internal/civic"
	"github.com/JakeFAU/wi-election-guide/internal/clock/system"
	"github.com/JakeFAU/wi-election-guide/internal/id/uuid"
	"github.com/JakeFAU/wi-election-guide/internal/session"
	"github.com/JakeFAU/wi-election-guide/internal/storage/memory"
)

var now = time.Date(2026, 10, 20, 15, 4, 5, 0, time.UTC)

func newService(t *testing.T) (*session.Service, *memory.SessionStore, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	store := memory.NewSessionStore(16, time.Hour)
	svc := session.NewService(store, system.Fixed{At: now}, uuid.New(), zap.New(core))
	return svc, store, logs
}

func TestSaveAndLoadRaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _, _ := newService(t)

	saved, err := svc.SaveRaces(ctx, "sid", &civic.RaceIDs{Assembly: "as-14", Senate: "se-5", Congress: "co-4"}, "1 Main St, Madison, WI")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, now, saved.Timestamp)

	loaded := svc.LoadRaces(ctx, "sid")
	require.NotNil(t, loaded)
	assert.Equal(t, *saved, *loaded)

	require.NoError(t, svc.ClearRaces(ctx, "sid"))
	assert.Nil(t, svc.LoadRaces(ctx, "sid"))
}

func TestSaveRacesNilIsNoop(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	saved, err := svc.SaveRaces(context.Background(), "sid", nil, "addr")
	require.NoError(t, err)
	assert.Nil(t, saved)
	assert.Nil(t, svc.LoadRaces(context.Background(), "sid"))
}

func TestLoadCorruptEntryReturnsNil(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, store, logs := newService(t)
	require.NoError(t, store.Put(ctx, "sid", session.KeySavedRaces, []byte("{not json")))
	require.NoError(t, store.Put(ctx, "sid", session.KeySourceRace, []byte("[]")))

	assert.Nil(t, svc.LoadRaces(ctx, "sid"))
	assert.Nil(t, svc.LoadSourceRace(ctx, "sid"))
	assert.Equal(t, 2, logs.FilterMessage("discarding corrupt session entry").Len())
}

func TestSourceRaceLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _, _ := newService(t)

	src, err := svc.SaveSourceRace(ctx, "sid", "assembly", "as-14")
	require.NoError(t, err)
	assert.Equal(t, civic.SourceRace{RaceType: "assembly", RaceID: "as-14", Timestamp: now}, *src)

	loaded := svc.LoadSourceRace(ctx, "sid")
	require.NotNil(t, loaded)
	assert.Equal(t, "as-14", loaded.RaceID)

	require.NoError(t, svc.ClearSourceRace(ctx, "sid"))
	assert.Nil(t, svc.LoadSourceRace(ctx, "sid"))
}

func TestEmptySessionID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _, _ := newService(t)
	_, err := svc.SaveSourceRace(ctx, "", "senate", "se-1")
	require.Error(t, err)
	assert.Nil(t, svc.LoadRaces(ctx, ""))
	require.NoError(t, svc.ClearRaces(ctx, ""))
}

type failingStore struct{}

func (failingStore) Get(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, errors.New("db down")
}
func (failingStore) Put(context.Context, string, string, []byte) error { return errors.New("db down") }
func (failingStore) Delete(context.Context, string, string) error     { return errors.New("db down") }

func TestStoreErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := session.NewService(failingStore{}, system.Fixed{At: now}, uuid.New(), nil)
	_, err := svc.SaveRaces(ctx, "sid", &civic.RaceIDs{}, "addr")
	require.ErrorContains(t, err, "store savedRaces")
	assert.Nil(t, svc.LoadRaces(ctx, "sid"))
	require.Error(t, svc.ClearSourceRace(ctx, "sid"))

	id, err := svc.NewSessionID()
	require.NoError(t, err)
	assert.True(t, uuid.Valid(id))
}
