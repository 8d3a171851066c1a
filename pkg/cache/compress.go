package cache

import (
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/rubiojr/codesnippets/pkg/metrics"
)

// Compressed wraps a Cache and stores values zstd-compressed.
type Compressed struct {
	next Cache
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

// NewCompressed wraps next. EncodeAll and DecodeAll are safe for concurrent
// use, so a single encoder and decoder are shared.
func NewCompressed(next Cache) (*Compressed, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &Compressed{next: next, enc: enc, dec: dec}, nil
}

func (c *Compressed) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, ok := c.next.Get(ctx, key)
	if !ok {
		return nil, false
	}
	val, err := c.dec.DecodeAll(raw, nil)
	if err != nil {
		logger.Warnf("decompressing %s failed: %v", key, err)
		metrics.RecordCacheError("zstd", "decode")
		return nil, false
	}
	return val, true
}

func (c *Compressed) Set(ctx context.Context, key string, val []byte) {
	c.next.Set(ctx, key, c.enc.EncodeAll(val, nil))
}

func (c *Compressed) Close() error {
	c.dec.Close()
	if err := c.enc.Close(); err != nil {
		logger.Warnf("closing zstd encoder: %v", err)
	}
	return c.next.Close()
}
