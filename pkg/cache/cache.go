// Package cache stores encoded search responses for a short time so repeated
// identical searches skip the database.
//
// Entries are keyed by the kind and a hash of the normalized request
// parameters, expire after a TTL and are bounded in number; when the bound
// is exceeded the oldest insertions are evicted first. Every backend failure
// is logged and degrades to a miss (Get) or a no-op (Set): the cache never
// fails a search.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rubiojr/codesnippets/pkg/core"
	"github.com/rubiojr/codesnippets/pkg/log"
)

const (
	DefaultPrefix     = "snippets:search"
	DefaultTTL        = 60 * time.Second
	DefaultMaxEntries = 15
)

var logger = log.ForService("cache")

// Cache is a best-effort byte store. Implementations are safe for
// concurrent use.
type Cache interface {
	// Get returns the stored value and true on a hit. Failures are misses.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores val under key. Failures are logged and dropped.
	Set(ctx context.Context, key string, val []byte)
	Close() error
}

// Backend names accepted by Options.Backend.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Options configure New.
type Options struct {
	Backend    string
	Prefix     string
	TTL        time.Duration
	MaxEntries int
	// Compress stores values zstd-compressed.
	Compress bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// RedisTimeout bounds dialing and every command.
	RedisTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.MaxEntries <= 0 {
		o.MaxEntries = DefaultMaxEntries
	}
	if o.RedisTimeout <= 0 {
		o.RedisTimeout = 500 * time.Millisecond
	}
	return o
}

// New builds the cache selected by opts.Backend. An unreachable Redis is not
// an error: the cache starts degraded and recovers when Redis comes back.
func New(ctx context.Context, opts Options) (Cache, error) {
	opts = opts.withDefaults()

	var c Cache
	switch opts.Backend {
	case BackendRedis:
		c = NewRedis(ctx, opts)
	case BackendMemory, "":
		c = NewMemory(opts)
	case BackendNone:
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}

	if opts.Compress {
		zc, err := NewCompressed(c)
		if err != nil {
			c.Close()
			return nil, err
		}
		c = zc
	}
	return c, nil
}

// Key returns the cache key of a search. canonical must be the normalized
// request parameters, so logically identical requests produce the same key.
func Key(prefix string, kind core.Kind, canonical string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	sum := sha1.Sum([]byte(canonical))
	return prefix + ":" + kind.String() + ":" + hex.EncodeToString(sum[:])
}

// Nop is a disabled cache: every Get misses.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Nop) Set(context.Context, string, []byte)        {}
func (Nop) Close() error                               { return nil }
