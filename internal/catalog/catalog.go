// Package catalog answers the read-side questions asked of the inventory:
// public deal feeds, per-category and per-seller aggregates and seller
// dashboards. It never mutates items.
package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/praveshjainnn/BasketBuddy/internal/cache"
	"github.com/praveshjainnn/BasketBuddy/internal/metrics"
	"github.com/praveshjainnn/BasketBuddy/internal/model"
)

// DefaultDealsLimit is the number of deals returned when no limit is given.
const DefaultDealsLimit = 10

// Lister is the snapshot source, satisfied by *store.Store.
type Lister interface {
	List(ctx context.Context) ([]model.Item, error)
}

type Catalog struct {
	items  Lister
	now    func() time.Time
	cache  cache.Cache
	logger *slog.Logger
}

type Option func(*Catalog)

func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

// WithCache caches the public aggregates. Entries are keyed by day, so a
// cached value never outlives the date its expiry flags were computed for.
func WithCache(cc cache.Cache) Option {
	return func(c *Catalog) { c.cache = cc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) { c.logger = logger }
}

func New(items Lister, opts ...Option) *Catalog {
	c := &Catalog{
		items:  items,
		now:    time.Now,
		cache:  cache.Nop{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Catalog) today() model.Date {
	return model.DateOf(c.now())
}

// views takes a snapshot of every item as of today, in store order.
func (c *Catalog) views(ctx context.Context) ([]model.ItemView, model.Date, error) {
	items, err := c.items.List(ctx)
	if err != nil {
		return nil, model.Date{}, err
	}
	today := c.today()
	return model.Views(items, today), today, nil
}

func (c *Catalog) publicViews(ctx context.Context) ([]model.ItemView, model.Date, error) {
	views, today, err := c.views(ctx)
	if err != nil {
		return nil, today, err
	}
	return Public(views), today, nil
}

// PublicFeed returns the active, unexpired items matching f, sorted by key.
func (c *Catalog) PublicFeed(ctx context.Context, f Filter, key SortKey) ([]model.ItemView, error) {
	views, _, err := c.publicViews(ctx)
	if err != nil {
		return nil, err
	}
	matched := filterViews(views, f)
	SortViews(matched, key)
	return matched, nil
}

// BestDeals returns up to limit public items, highest discount first.
func (c *Catalog) BestDeals(ctx context.Context, limit int) ([]model.ItemView, error) {
	if limit <= 0 {
		limit = DefaultDealsLimit
	}
	views, err := c.PublicFeed(ctx, Filter{}, SortDiscount)
	if err != nil {
		return nil, err
	}
	if len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

// CategoryStats groups the public items by category.
func (c *Catalog) CategoryStats(ctx context.Context) ([]CategoryStat, error) {
	return cached(ctx, c, "categories", func(ctx context.Context) ([]CategoryStat, error) {
		views, _, err := c.publicViews(ctx)
		if err != nil {
			return nil, err
		}
		return AggregateCategories(views), nil
	})
}

// PublicSellers groups the public items by seller.
func (c *Catalog) PublicSellers(ctx context.Context) ([]PublicSeller, error) {
	return cached(ctx, c, "sellers", func(ctx context.Context) ([]PublicSeller, error) {
		views, _, err := c.publicViews(ctx)
		if err != nil {
			return nil, err
		}
		return AggregatePublicSellers(views), nil
	})
}

// SellerStats builds a dashboard for every seller over all of their items.
func (c *Catalog) SellerStats(ctx context.Context) ([]SellerStat, error) {
	views, _, err := c.views(ctx)
	if err != nil {
		return nil, err
	}
	return AggregateSellers(views), nil
}

// SellerStatsFor builds one seller's dashboard. An unknown seller gets an
// all-zero dashboard.
func (c *Catalog) SellerStatsFor(ctx context.Context, seller string) (SellerStat, error) {
	views, _, err := c.views(ctx)
	if err != nil {
		return SellerStat{}, err
	}
	stats := AggregateSellers(filterViews(views, Filter{SellerName: seller}))
	if len(stats) == 0 {
		return SellerStat{SellerName: seller}, nil
	}
	return stats[0], nil
}

// SellerItems returns every item of seller, active or not, or every item
// when seller is empty.
func (c *Catalog) SellerItems(ctx context.Context, seller string) ([]model.ItemView, error) {
	views, _, err := c.views(ctx)
	if err != nil {
		return nil, err
	}
	if seller == "" {
		return views, nil
	}
	return filterViews(views, Filter{SellerName: seller}), nil
}

// Invalidate drops today's cached aggregates.
func (c *Catalog) Invalidate(ctx context.Context) error {
	day := c.today().String()
	return c.cache.Delete(ctx,
		cache.Key(cache.CatalogKeyPrefix, "categories:"+day),
		cache.Key(cache.CatalogKeyPrefix, "sellers:"+day),
	)
}

// cached serves name from the cache when possible. Cache failures are logged
// and fall through to compute.
func cached[T any](ctx context.Context, c *Catalog, name string, compute func(context.Context) (T, error)) (T, error) {
	key := cache.Key(cache.CatalogKeyPrefix, name+":"+c.today().String())

	var value T
	found, err := c.cache.Get(ctx, key, &value)
	switch {
	case err != nil:
		metrics.CacheLookup("error")
		c.logger.Warn("catalog cache read failed", "key", key, "error", err)
	case found:
		metrics.CacheLookup("hit")
		return value, nil
	default:
		metrics.CacheLookup("miss")
	}

	value, err = compute(ctx)
	if err != nil {
		return value, err
	}
	if err := c.cache.Set(ctx, key, value, 0); err != nil {
		c.logger.Warn("catalog cache write failed", "key", key, "error", err)
	}
	return value, nil
}
