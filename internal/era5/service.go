package era5

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/windaep/windaep/internal/provider/resilience"
)

// Provider retrieves wind fields.
type Provider interface {
	// Retrieve runs one retrieval and returns the decoded field.
	Retrieve(ctx context.Context, req Request) (*Retrieval, error)

	// Name returns the provider name for logging and health tracking.
	Name() string
}

// Recorder receives retrieval metrics. telemetry.ProviderMetrics implements it.
type Recorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

const fetchOperation = "retrieve"

// ServiceConfig holds configuration for the retrieval service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// Registry records provider outcomes when set.
	Registry *resilience.Registry

	// Metrics records call durations and cache outcomes when set.
	Metrics Recorder

	// CacheTTL is how long a retrieval is served from memory. Reanalysis data
	// for a past date range does not change, so the default is long. Default: 24 hours
	CacheTTL time.Duration

	// StaleIfErrorTTL allows serving expired entries on provider errors. Default: 7 days
	StaleIfErrorTTL time.Duration

	// MaxEntries bounds the cache; the oldest entry is evicted first. Default: 32
	MaxEntries int
}

// Service provides wind fields with validation and caching.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	registry        *resilience.Registry
	metrics         Recorder
	cacheTTL        time.Duration
	staleIfErrorTTL time.Duration
	maxEntries      int

	mu    sync.Mutex
	cache map[string]*cachedRetrieval
	now   func() time.Time
}

type cachedRetrieval struct {
	retrieval *Retrieval
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new retrieval service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.StaleIfErrorTTL == 0 {
		cfg.StaleIfErrorTTL = 7 * 24 * time.Hour
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = 32
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		registry:        cfg.Registry,
		metrics:         cfg.Metrics,
		cacheTTL:        cfg.CacheTTL,
		staleIfErrorTTL: cfg.StaleIfErrorTTL,
		maxEntries:      cfg.MaxEntries,
		cache:           make(map[string]*cachedRetrieval),
		now:             time.Now,
	}
}

// Fetch returns the wind field for req, from cache when fresh.
func (s *Service) Fetch(ctx context.Context, req Request) (*Retrieval, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := req.Key()

	s.mu.Lock()
	if cached, ok := s.cache[key]; ok && s.now().Before(cached.expiresAt) {
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordCacheHit(s.provider.Name(), fetchOperation)
		}
		return cached.retrieval, nil
	}
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(s.provider.Name(), fetchOperation)
	}

	if req.LongHourly() {
		s.logger.Warn().
			Str("start", req.Start.Format(DateLayout)).
			Str("end", req.End.Format(DateLayout)).
			Msg("hourly retrieval spans more than a year and may take a long time, consider monthly frequency")
	}

	s.logger.Debug().
		Str("provider", s.provider.Name()).
		Str("request", key).
		Msg("fetching wind field from provider")

	start := time.Now()
	ret, err := s.provider.Retrieve(ctx, req)
	if s.metrics != nil {
		s.metrics.RecordRequest(s.provider.Name(), fetchOperation, time.Since(start), err)
	}
	if err != nil {
		s.recordFailure(err)
		s.logger.Error().Err(err).Str("request", key).Msg("failed to fetch wind field")

		s.mu.Lock()
		defer s.mu.Unlock()
		if cached, ok := s.cache[key]; ok && s.now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", cached.fetchedAt).
				Msg("serving stale wind field due to provider error")
			return cached.retrieval, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	s.recordSuccess()

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = &cachedRetrieval{
		retrieval: ret,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}
	s.evictLocked()
	return ret, nil
}

func (s *Service) recordSuccess() {
	if s.registry != nil {
		s.registry.RecordSuccess(s.provider.Name())
	}
}

func (s *Service) recordFailure(err error) {
	if s.registry != nil {
		s.registry.RecordFailure(s.provider.Name(), err)
	}
}

// evictLocked drops entries past their stale window, then the oldest entries
// until the cache fits MaxEntries.
func (s *Service) evictLocked() {
	now := s.now()
	for key, c := range s.cache {
		if now.After(c.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
		}
	}
	for len(s.cache) > s.maxEntries {
		var oldestKey string
		var oldest time.Time
		for key, c := range s.cache {
			if oldestKey == "" || c.fetchedAt.Before(oldest) {
				oldestKey, oldest = key, c.fetchedAt
			}
		}
		delete(s.cache, oldestKey)
	}
}

// InvalidateCache clears all cached retrievals.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedRetrieval)
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Entries      int
	FreshEntries int
	Provider     string
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	fresh := 0
	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			fresh++
		}
	}
	return CacheStats{Entries: len(s.cache), FreshEntries: fresh, Provider: s.provider.Name()}
}

// Save writes the raw retrieval under dir, which must be absolute, using the
// request's conventional file name. It returns the written path.
func Save(dir string, ret *Retrieval) (string, error) {
	if !filepath.IsAbs(dir) {
		return "", fmt.Errorf("data directory must be absolute: %q", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	path := filepath.Join(dir, ret.Request.FileName(ret.Extension()))
	if err := os.WriteFile(path, ret.Raw, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
