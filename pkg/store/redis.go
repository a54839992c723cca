package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rigwatch/pkg/regression"
	"rigwatch/pkg/telemetry"
)

const (
	sampleKey   = "rigwatch:rop:samples"
	readingKey  = "rigwatch:latest:reading"
	snapshotTTL = 24 * time.Hour
)

// SampleCache persists the ROP training buffer and the latest reading in
// Redis, so a restart does not start the optimizer cold.
type SampleCache struct {
	rdb *redis.Client
}

// NewSampleCache connects and verifies the Redis endpoint.
func NewSampleCache(ctx context.Context, addr, password string, db int) (*SampleCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("store: ping redis %s: %w", addr, err)
	}
	return &SampleCache{rdb: rdb}, nil
}

// SaveSamples snapshots the buffer contents.
func (c *SampleCache) SaveSamples(ctx context.Context, buf *regression.SampleBuffer) error {
	raw, err := json.Marshal(buf.Snapshot())
	if err != nil {
		return fmt.Errorf("store: marshal samples: %w", err)
	}
	if err := c.rdb.Set(ctx, sampleKey, raw, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("store: save samples: %w", err)
	}
	return nil
}

// LoadSamples restores a previously saved buffer. A missing key is not an
// error; the buffer is simply left empty.
func (c *SampleCache) LoadSamples(ctx context.Context, buf *regression.SampleBuffer) error {
	raw, err := c.rdb.Get(ctx, sampleKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: load samples: %w", err)
	}
	var samples []regression.Sample
	if err := json.Unmarshal(raw, &samples); err != nil {
		return fmt.Errorf("store: decode samples: %w", err)
	}
	buf.Restore(samples)
	return nil
}

// SaveReading caches the latest derived reading for cheap cross-process
// reads (dashboards, sibling services).
func (c *SampleCache) SaveReading(ctx context.Context, r telemetry.Reading) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("store: marshal reading: %w", err)
	}
	if err := c.rdb.Set(ctx, readingKey, raw, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("store: save reading: %w", err)
	}
	return nil
}

// Close releases the client.
func (c *SampleCache) Close() error {
	return c.rdb.Close()
}
