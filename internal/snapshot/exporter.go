// Package snapshot exports the guide's directory data as static JSON objects.
package snapshot

import (
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/wi-election-guide/internal/civic"
	"github.com/JakeFAU/wi-election-guide/internal/storage"
)

// EventSnapshotCompleted is published with the manifest after every export.
const EventSnapshotCompleted = "snapshot.completed"

// Source reads the data being exported.
type Source interface {
	Candidates(ctx context.Context, sheet string) ([]civic.Record, error)
	Races(ctx context.Context, sheet string) ([]civic.Record, error)
	StatewideRaces(ctx context.Context) []civic.RaceType
	Stories(ctx context.Context) []civic.Record
}

// NewsSource returns the latest headlines.
type NewsSource interface {
	Latest(ctx context.Context) []civic.Headline
}

// Config controls where objects are written.
type Config struct {
	Prefix      string
	ContentType string
}

// Manifest lists every object written by one export.
type Manifest struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Objects     []storage.Written `json:"objects"`
}

// Exporter writes snapshot objects to a blob store.
type Exporter struct {
	source    Source
	news      NewsSource
	store     civic.BlobStore
	publisher civic.Publisher
	clock     civic.Clock
	cfg       Config
	logger    *zap.Logger
}

// New wires an Exporter. news and publisher may be nil.
func New(source Source, news NewsSource, store civic.BlobStore, publisher civic.Publisher, clock civic.Clock, cfg Config, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		source:    source,
		news:      news,
		store:     store,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// RaceObjectName returns the object name of a race sheet export.
func RaceObjectName(sheet string) string {
	return path.Join("races", civic.Slugify(sheet))
}

// Run exports candidates, every race sheet, statewide races, stories and news, then the manifest.
// Candidate and race failures abort the export; stories and news are best effort upstream.
func (e *Exporter) Run(ctx context.Context) (Manifest, error) {
	manifest := Manifest{GeneratedAt: e.clock.Now()}

	candidates, err := e.source.Candidates(ctx, "")
	if err != nil {
		return Manifest{}, fmt.Errorf("read candidates: %w", err)
	}
	if err := e.write(ctx, &manifest, "candidates", candidates); err != nil {
		return Manifest{}, err
	}

	for _, rt := range civic.RaceTypes() {
		races, err := e.source.Races(ctx, rt.Value)
		if err != nil {
			return Manifest{}, fmt.Errorf("read %s races: %w", rt.Value, err)
		}
		if err := e.write(ctx, &manifest, RaceObjectName(rt.Value), races); err != nil {
			return Manifest{}, err
		}
	}

	if err := e.write(ctx, &manifest, "statewide-races", e.source.StatewideRaces(ctx)); err != nil {
		return Manifest{}, err
	}
	if err := e.write(ctx, &manifest, "stories", e.source.Stories(ctx)); err != nil {
		return Manifest{}, err
	}
	if e.news != nil {
		if err := e.write(ctx, &manifest, "news", e.news.Latest(ctx)); err != nil {
			return Manifest{}, err
		}
	}

	written, err := storage.WriteJSON(ctx, e.store, e.cfg.Prefix, "manifest", e.cfg.ContentType, manifest)
	if err != nil {
		return Manifest{}, fmt.Errorf("write manifest: %w", err)
	}
	e.logger.Info("snapshot manifest written", zap.String("uri", written.URI), zap.Int("objects", len(manifest.Objects)))

	if e.publisher != nil {
		if _, err := e.publisher.Publish(ctx, EventSnapshotCompleted, manifest); err != nil {
			e.logger.Warn("publish snapshot event failed", zap.Error(err))
		}
	}
	return manifest, nil
}

func (e *Exporter) write(ctx context.Context, manifest *Manifest, name string, v any) error {
	written, err := storage.WriteJSON(ctx, e.store, e.cfg.Prefix, name, e.cfg.ContentType, v)
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	e.logger.Info("snapshot object written",
		zap.String("uri", written.URI),
		zap.Int("bytes", written.Size),
	)
	manifest.Objects = append(manifest.Objects, written)
	return nil
}
