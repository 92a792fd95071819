package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks the noop store's probe result.
var ErrUnavailable = errors.New("cache: store unavailable")

// Noop always misses. It is the degraded mode when no store is configured.
type Noop struct{}

// NewNoop creates the always-miss cache.
func NewNoop() Noop { return Noop{} }

func (Noop) Get(ctx context.Context, key string) ([]byte, bool, error) { return nil, false, nil }

func (Noop) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error { return nil }

func (Noop) Delete(ctx context.Context, keys ...string) error { return nil }

func (Noop) Ping(ctx context.Context) error { return ErrUnavailable }

func (Noop) Flush(ctx context.Context) error { return nil }
