// Package server builds the application's dependencies and runs the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/wi-election-guide/internal/api"
	"github.com/JakeFAU/wi-election-guide/internal/cache"
	memorycache "github.com/JakeFAU/wi-election-guide/internal/cache/memory"
	"github.com/JakeFAU/wi-election-guide/internal/civic"
	"github.com/JakeFAU/wi-election-guide/internal/clock/system"
	"github.com/JakeFAU/wi-election-guide/internal/config"
	collyfetcher "github.com/JakeFAU/wi-election-guide/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/wi-election-guide/internal/fetcher/headless"
	"github.com/JakeFAU/wi-election-guide/internal/headless/detector"
	"github.com/JakeFAU/wi-election-guide/internal/id/uuid"
	"github.com/JakeFAU/wi-election-guide/internal/logging"
	"github.com/JakeFAU/wi-election-guide/internal/lookup"
	"github.com/JakeFAU/wi-election-guide/internal/mapbox"
	"github.com/JakeFAU/wi-election-guide/internal/maps"
	"github.com/JakeFAU/wi-election-guide/internal/metrics"
	"github.com/JakeFAU/wi-election-guide/internal/news"
	memorypublisher "github.com/JakeFAU/wi-election-guide/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/wi-election-guide/internal/publisher/pubsub"
	"github.com/JakeFAU/wi-election-guide/internal/session"
	"github.com/JakeFAU/wi-election-guide/internal/sheets"
	"github.com/JakeFAU/wi-election-guide/internal/snapshot"
	gcsstorage "github.com/JakeFAU/wi-election-guide/internal/storage/gcs"
	localstorage "github.com/JakeFAU/wi-election-guide/internal/storage/local"
	memorystorage "github.com/JakeFAU/wi-election-guide/internal/storage/memory"
	pgstore "github.com/JakeFAU/wi-election-guide/internal/storage/postgres"
	"github.com/JakeFAU/wi-election-guide/internal/upstream"
)

const (
	shutdownBudget = 10 * time.Second
	// articleMarker must appear in a rendered tag page; its absence promotes to headless.
	articleMarker = "<article"
)

// App contains the application's dependencies.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	clock  civic.Clock

	mapbox    *mapbox.Client
	sheets    *sheets.Client
	news      *news.Scraper
	lookup    *lookup.Service
	sessions  *session.Service
	publisher civic.Publisher
	apiServer *api.Server

	headless     *headlessfetcher.Fetcher
	pgSessions   *pgstore.SessionStore
	pubsubClient *pubsub.Client
	pubsubTopic  *gcppublisher.Publisher
	gcsClient    *storage.Client

	closeOnce sync.Once
}

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Lookup returns the lookup service.
func (a *App) Lookup() *lookup.Service { return a.lookup }

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler { return a.apiServer.Handler() }

// Build creates the application's dependencies. Session storage is only
// connected when withSessions is set; one-shot CLI commands skip it.
func Build(ctx context.Context, cfg *config.Config, withSessions bool) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	app := &App{cfg: cfg, logger: logger, clock: system.New()}
	app.logger.Info("building application dependencies",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("session_backend", cfg.Session.Backend),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("mapbox_token", logging.Redact(cfg.Mapbox.AccessToken)),
	)

	responseCache := memorycache.New(cfg.Cache.Size, cfg.CacheTTL())
	app.setupClients(responseCache)

	app.setupNews(responseCache)

	if err := app.setupPublisher(ctx); err != nil {
		app.Close(ctx)
		return nil, err
	}

	app.lookup = lookup.NewService(
		app.mapbox,
		app.sheets,
		app.publisher,
		app.clock,
		logger.Named("lookup"),
		lookup.Options{BasePath: cfg.Server.BasePath, Tilesets: tilesets(cfg)},
	)

	if withSessions {
		if err := app.setupSessions(ctx); err != nil {
			app.Close(ctx)
			return nil, err
		}
	}

	app.apiServer = api.NewServer(api.Deps{
		Geocoder:  app.mapbox,
		Directory: app.sheets,
		News:      app.news,
		Lookup:    app.lookup,
		Sessions:  app.sessions,
		Maps:      maps.NewBuilder(tilesets(cfg), cfg.Mapbox.MapStyleID),
	}, *cfg, logger.Named("api"))

	return app, nil
}

func tilesets(cfg *config.Config) map[civic.DistrictType]string {
	out := make(map[civic.DistrictType]string, len(mapbox.DefaultTilesets))
	for dt, ts := range mapbox.DefaultTilesets {
		out[dt] = ts
	}
	for raw, ts := range cfg.Mapbox.Tilesets {
		dt, err := civic.ParseDistrictType(raw)
		if err != nil || ts == "" {
			continue
		}
		out[dt] = ts
	}
	return out
}

func (a *App) upstreamOptions(service string, rps float64, burst int) upstream.Options {
	return upstream.Options{
		Service:        service,
		Timeout:        a.cfg.HTTPTimeout(),
		MaxRetries:     a.cfg.HTTP.MaxRetries,
		BackoffInitial: time.Duration(a.cfg.HTTP.BackoffInitialMs) * time.Millisecond,
		BackoffMax:     time.Duration(a.cfg.HTTP.BackoffMaxMs) * time.Millisecond,
		RateLimitRPS:   rps,
		RateBurst:      burst,
		UserAgent:      a.cfg.News.UserAgent,
		Logger:         a.logger.Named(service),
	}
}

func (a *App) setupClients(responseCache cache.Cache) {
	mapboxHTTP := upstream.New(a.upstreamOptions("mapbox", a.cfg.Mapbox.RateLimitRPS, a.cfg.Mapbox.RateBurst))
	a.mapbox = mapbox.New(mapbox.Config{
		AccessToken: a.cfg.Mapbox.AccessToken,
		BaseURL:     a.cfg.Mapbox.BaseURL,
		Tilesets:    tilesets(a.cfg),
	}, mapboxHTTP, a.logger.Named("mapbox"))
	if a.cfg.Mapbox.AccessToken == "" {
		a.logger.Warn("mapbox access token not configured; geocoding will fail")
	}

	sheetsHTTP := upstream.New(a.upstreamOptions("sheets", a.cfg.Sheets.RateLimitRPS, 0))
	a.sheets = sheets.New(sheets.Config{
		APIKey:                  a.cfg.Sheets.APIKey,
		BaseURL:                 a.cfg.Sheets.BaseURL,
		CandidatesSpreadsheetID: a.cfg.Sheets.CandidatesSpreadsheetID,
		RacesSpreadsheetID:      a.cfg.Sheets.RacesSpreadsheetID,
		StoriesSpreadsheetID:    a.cfg.Sheets.StoriesSpreadsheetID,
		CandidatesCSVURL:        a.cfg.Sheets.CandidatesCSVURL,
		CandidateSheet:          a.cfg.Sheets.CandidateSheet,
		StoriesSheet:            a.cfg.Sheets.StoriesSheet,
	}, sheetsHTTP, responseCache, a.logger.Named("sheets"))
}

func (a *App) setupNews(responseCache cache.Cache) {
	probe := collyfetcher.New(collyfetcher.Config{
		UserAgent:     a.cfg.News.UserAgent,
		RespectRobots: a.cfg.News.RespectRobots,
		Timeout:       a.cfg.HTTPTimeout(),
	})
	opts := []news.Option{
		news.WithCache(responseCache),
		news.WithLogger(a.logger.Named("news")),
	}
	if a.cfg.News.HeadlessEnabled {
		detect := detector.NewHeuristic(a.cfg.News.PromotionThreshold, articleMarker)
		hf, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       a.cfg.News.HeadlessMaxParallel,
			UserAgent:         a.cfg.News.UserAgent,
			NavigationTimeout: time.Duration(a.cfg.News.NavTimeoutSeconds) * time.Second,
			WaitSelector:      "article",
		})
		if err != nil {
			a.logger.Warn("headless fetcher init failed, promotion disabled", zap.Error(err))
			opts = append(opts, news.WithHeadless(headlessfetcher.NewNoop(), detect))
		} else {
			a.headless = hf
			opts = append(opts, news.WithHeadless(hf, detect))
			a.logger.Info("using headless news fetcher", zap.Int("max_parallel", a.cfg.News.HeadlessMaxParallel))
		}
	}
	a.news = news.NewScraper(news.Config{URL: a.cfg.News.URL, Limit: a.cfg.News.Limit}, probe, opts...)
}

func (a *App) setupPublisher(ctx context.Context) error {
	if a.cfg.PubSub.TopicName == "" || a.cfg.PubSub.ProjectID == "" {
		a.logger.Info("no Pub/Sub topic configured, using in-memory publisher")
		a.publisher = memorypublisher.New()
		return nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsubClient = client
	a.pubsubTopic = gcppublisher.New(client.Topic(a.cfg.PubSub.TopicName))
	a.publisher = a.pubsubTopic
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return nil
}

func (a *App) setupSessions(ctx context.Context) error {
	var store session.Store
	switch a.cfg.Session.Backend {
	case "postgres":
		pg, err := pgstore.NewSessionStore(ctx, pgstore.SessionStoreConfig{
			DSN:      a.cfg.DB.DSN,
			Table:    a.cfg.DB.Table,
			MaxConns: int32(a.cfg.DB.MaxOpenConns), //nolint:gosec // bounded by config validation
			MinConns: int32(a.cfg.DB.MaxIdleConns), //nolint:gosec // bounded by config validation
			TTL:      a.cfg.SessionTTL(),
		})
		if err != nil {
			return fmt.Errorf("session store init failed: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return fmt.Errorf("session schema init failed: %w", err)
		}
		a.pgSessions = pg
		store = pg
		a.logger.Info("using postgres session store", zap.String("table", a.cfg.DB.Table))
	default:
		store = memorystorage.NewSessionStore(a.cfg.Session.Size, a.cfg.SessionTTL())
		a.logger.Info("using in-memory session store", zap.Int("size", a.cfg.Session.Size))
	}
	a.sessions = session.NewService(store, a.clock, uuid.New(), a.logger.Named("session"))
	return nil
}

// Snapshot builds an exporter writing to the configured blob store.
func (a *App) Snapshot(ctx context.Context) (*snapshot.Exporter, error) {
	var blobStore civic.BlobStore
	switch a.cfg.Storage.Backend {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.gcsClient = client
		blobStore, err = gcsstorage.New(client, gcsstorage.Config{
			Bucket:       a.cfg.Storage.GCSBucket,
			CacheControl: "public, max-age=300",
		})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.logger.Info("using GCS storage backend", zap.String("bucket", a.cfg.Storage.GCSBucket))
	case "local":
		local, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		blobStore = local
		a.logger.Info("using local storage backend", zap.String("path", a.cfg.Storage.LocalDir))
	default:
		blobStore = memorystorage.NewBlobStore()
		a.logger.Info("using in-memory storage backend")
	}
	return snapshot.New(a.sheets, a.news, blobStore, a.publisher, a.clock, snapshot.Config{
		Prefix:      a.cfg.Storage.Prefix,
		ContentType: a.cfg.Storage.ContentType,
	}, a.logger.Named("snapshot")), nil
}

// Run serves HTTP until ctx is canceled or SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownBudget)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.Close(shutdownCtx)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}

// Close releases every client the App opened. Later calls are no-ops.
func (a *App) Close(_ context.Context) {
	a.closeOnce.Do(a.close)
}

func (a *App) close() {
	if a.headless != nil {
		a.headless.Close()
	}
	if a.pubsubTopic != nil {
		a.pubsubTopic.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.pgSessions != nil {
		a.pgSessions.Close()
	}
	a.logger.Info("shutdown complete")
	_ = a.logger.Sync()
}
