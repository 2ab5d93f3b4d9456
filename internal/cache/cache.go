// Package cache stores JSON-encoded catalog aggregates for a short time.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	// Get decodes the cached value into value and reports whether it was found.
	Get(ctx context.Context, key string, value any) (bool, error)
	// Set stores value for ttl; a non-positive ttl uses the configured default.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

func Key(prefix string, id string) string {
	return prefix + ":" + id
}

const CatalogKeyPrefix = "catalog"

// Nop is a Cache that never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Nop) Delete(context.Context, ...string) error { return nil }
func (Nop) Close() error { return nil }
