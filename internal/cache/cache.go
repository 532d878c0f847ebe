package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when no cached value exists for the key.
var ErrMiss = errors.New("cache miss")

// InsightCache stores generated insight texts so repeated dashboard
// visits do not re-trigger the text generator.
type InsightCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// Noop satisfies InsightCache without storing anything. Used when no
// Redis address is configured.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (*Noop) Get(context.Context, string) (string, error) {
	return "", ErrMiss
}

func (*Noop) Set(context.Context, string, string, time.Duration) error {
	return nil
}
