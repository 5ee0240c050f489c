package news

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/JakeFAU/wi-election-guide/internal/cache"
	"github.com/JakeFAU/wi-election-guide/internal/civic"
	"github.com/JakeFAU/wi-election-guide/internal/fetcher"
	"github.com/JakeFAU/wi-election-guide/internal/metrics"
)

// DefaultURL is the newsroom tag page listing legislature coverage.
const DefaultURL = "https://wisconsinwatch.org/tag/wisconsin-legislature/"

// Config configures a Scraper.
type Config struct {
	URL   string
	Limit int
}

// Scraper fetches and parses the tag page.
type Scraper struct {
	cfg      Config
	probe    fetcher.Fetcher
	headless fetcher.Fetcher
	detector fetcher.Detector
	cache    cache.Cache
	logger   *zap.Logger
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithHeadless enables promotion to a headless render when detector asks for it.
func WithHeadless(f fetcher.Fetcher, detector fetcher.Detector) Option {
	return func(s *Scraper) {
		s.headless = f
		s.detector = detector
	}
}

// WithCache stores scraped headlines in c.
func WithCache(c cache.Cache) Option {
	return func(s *Scraper) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scraper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScraper builds a Scraper that probes pages with probe.
func NewScraper(cfg Config, probe fetcher.Fetcher, opts ...Option) *Scraper {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	s := &Scraper{
		cfg:    cfg,
		probe:  probe,
		cache:  cache.Nop{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CacheKey is the cache key under which headlines for url are stored.
func CacheKey(url string) string {
	return "news:" + url
}

// Scrape fetches the tag page and returns its headlines.
func (s *Scraper) Scrape(ctx context.Context) ([]civic.Headline, error) {
	resp, err := s.probe.Fetch(ctx, fetcher.Request{URL: s.cfg.URL})
	if err != nil {
		metrics.ObserveNewsScrape("probe", "error")
		return nil, eris.Wrap(err, "news: probe fetch")
	}
	path := "probe"
	if s.headless != nil && s.detector != nil && s.detector.ShouldPromote(resp) {
		s.logger.Info("promoting news fetch to headless", zap.String("url", s.cfg.URL))
		rendered, herr := s.headless.Fetch(ctx, fetcher.Request{URL: s.cfg.URL})
		if herr != nil {
			metrics.ObserveNewsScrape("headless", "error")
			s.logger.Warn("headless fetch failed, using probe response", zap.Error(herr))
		} else {
			resp = rendered
			path = "headless"
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObserveNewsScrape(path, "bad_status")
		return nil, eris.Errorf("news: %s responded %d", s.cfg.URL, resp.StatusCode)
	}
	headlines, err := ParseHeadlines(resp.Body, s.cfg.Limit)
	if err != nil {
		metrics.ObserveNewsScrape(path, "error")
		return nil, err
	}
	metrics.ObserveNewsScrape(path, "ok")
	return headlines, nil
}

// Latest returns the cached or freshly scraped headlines. It never fails;
// upstream problems are logged and yield an empty list.
func (s *Scraper) Latest(ctx context.Context) []civic.Headline {
	headlines, err := cache.FetchJSON(ctx, s.cache, CacheKey(s.cfg.URL), func(ctx context.Context) ([]civic.Headline, error) {
		headlines, err := s.Scrape(ctx)
		if err != nil {
			s.logger.Error("failed to fetch newsroom stories", zap.String("url", s.cfg.URL), zap.Error(err))
			return []civic.Headline{}, nil
		}
		return headlines, nil
	})
	if err != nil || headlines == nil {
		return []civic.Headline{}
	}
	return headlines
}
