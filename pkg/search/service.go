package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/rubiojr/codesnippets/pkg/cache"
	"github.com/rubiojr/codesnippets/pkg/core"
	"github.com/rubiojr/codesnippets/pkg/log"
	"github.com/rubiojr/codesnippets/pkg/metrics"
	"github.com/rubiojr/codesnippets/pkg/storage"
)

var logger = log.ForService("search")

// Store executes compiled pipelines. *storage.Store implements it.
type Store interface {
	Search(ctx context.Context, p *storage.Pipeline) ([]core.Item, int, error)
}

// Config configures a Service.
type Config struct {
	// CachePrefix prefixes every cache key. Defaults to cache.DefaultPrefix.
	CachePrefix string
	Limits      Limits
}

// Result is an encoded envelope ready to be written to the client.
type Result struct {
	Payload []byte
	// Cached reports whether Payload came from the cache.
	Cached bool
}

// Service runs read-through cached searches.
type Service struct {
	store  Store
	cache  cache.Cache
	prefix string
	limits atomic.Pointer[Limits]
}

// NewService creates a search service. A nil cache disables caching.
func NewService(store Store, c cache.Cache, cfg Config) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	s := &Service{store: store, cache: c, prefix: cfg.CachePrefix}
	s.SetLimits(cfg.Limits)
	return s
}

// SetLimits replaces the page size limits. Safe to call while serving.
func (s *Service) SetLimits(l Limits) {
	if l == (Limits{}) {
		l = DefaultLimits()
	}
	l = l.Normalize()
	s.limits.Store(&l)
}

// Limits returns the page size limits in effect.
func (s *Service) Limits() Limits {
	return *s.limits.Load()
}

// ParseParams parses request parameters with the limits in effect.
func (s *Service) ParseParams(kind core.Kind, queryParams url.Values) SearchParams {
	return ParseSearchParams(kind, queryParams, s.Limits())
}

// Search returns the encoded envelope for params, from the cache when
// possible.
//
// Errors wrapping storage.ErrInvalidFilter are caused by the request; any
// other error is a storage failure. Failures are not cached.
func (s *Service) Search(ctx context.Context, params SearchParams) (*Result, error) {
	start := time.Now()
	kind := params.Kind.String()
	key := cache.Key(s.prefix, params.Kind, params.Canonical())

	if payload, ok := s.cache.Get(ctx, key); ok {
		logger.Debugf("cache hit %s", key)
		metrics.RecordSearch(kind, "hit", time.Since(start).Seconds())
		return &Result{Payload: payload, Cached: true}, nil
	}

	payload, err := s.execute(ctx, params)
	if err != nil {
		metrics.RecordSearch(kind, "error", time.Since(start).Seconds())
		return nil, err
	}

	s.cache.Set(ctx, key, payload)
	metrics.RecordSearch(kind, "miss", time.Since(start).Seconds())
	return &Result{Payload: payload}, nil
}

func (s *Service) execute(ctx context.Context, params SearchParams) ([]byte, error) {
	collection, err := storage.CollectionFor(params.Kind)
	if err != nil {
		return nil, err
	}
	pipeline, err := storage.Build(params.Query, collection)
	if err != nil {
		return nil, err
	}

	rows, total, err := s.store.Search(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", params.Kind, err)
	}

	payload, err := json.Marshal(Assemble(params.Kind, rows, pipeline.Limit, total))
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", params.Kind, err)
	}
	return payload, nil
}

// FailurePayload encodes a failure envelope.
func FailurePayload(message string) []byte {
	// a struct of a bool and a string always encodes
	payload, _ := json.Marshal(Failure(message))
	return payload
}
