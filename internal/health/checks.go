// Package health reports whether the service's backing stores answer.
package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hellofresh/health-go/v5"
	"github.com/redis/go-redis/v9"
)

// Component identifies the service in health reports.
var Component = health.Component{
	Name:    "basketbuddy",
	Version: "1.0.0",
}

type Endpoints struct {
	DB *sql.DB
	// RedisClient is optional; the cache check is skipped when nil.
	RedisClient *redis.Client
}

func NewHealthHandler(endpoints *Endpoints) (*health.Health, error) {
	checks := []health.Config{
		{
			Name:      "database",
			Timeout:   3 * time.Second,
			SkipOnErr: false,
			Check: func(ctx context.Context) error {
				if endpoints.DB == nil {
					return fmt.Errorf("database is not initialized")
				}
				if err := endpoints.DB.PingContext(ctx); err != nil {
					return fmt.Errorf("failed to ping database: %w", err)
				}
				var n int
				if err := endpoints.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
					return fmt.Errorf("failed to read items table: %w", err)
				}
				return nil
			},
		},
	}

	if endpoints.RedisClient != nil {
		checks = append(checks, health.Config{
			Name:    "redis",
			Timeout: 2 * time.Second,
			// The cache is an optimisation; the service works without it.
			SkipOnErr: true,
			Check: func(ctx context.Context) error {
				if err := endpoints.RedisClient.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("failed to ping redis: %w", err)
				}
				return nil
			},
		})
	}

	h, err := health.New(
		health.WithComponent(Component),
		health.WithSystemInfo(),
		health.WithChecks(checks...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create health instance: %w", err)
	}

	return h, nil
}
