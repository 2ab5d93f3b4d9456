package api

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/praveshjainnn/BasketBuddy/internal/auth"
	"github.com/praveshjainnn/BasketBuddy/internal/catalog"
	"github.com/praveshjainnn/BasketBuddy/internal/config"
	"github.com/praveshjainnn/BasketBuddy/internal/importer"
	"github.com/praveshjainnn/BasketBuddy/internal/metrics"
	"github.com/praveshjainnn/BasketBuddy/internal/store"
)

// Deps are the collaborators the router serves. Catalog, Importer and
// Logger default to instances built on Store.
type Deps struct {
	Store     *store.Store
	Catalog   *catalog.Catalog
	Importer  *importer.Importer
	Health    http.Handler
	JWTSecret string
	// RateLimit applies to unauthenticated routes. An RPS of 0 disables it.
	RateLimit config.RateLimit
	Logger    *slog.Logger
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Catalog == nil {
		d.Catalog = catalog.New(d.Store, catalog.WithLogger(d.Logger))
	}
	if d.Importer == nil {
		d.Importer = importer.New(d.Store, d.Logger)
	}

	mux := http.NewServeMux()

	perishables := &PerishablesHandler{Store: d.Store, Catalog: d.Catalog}
	seller := &SellerHandler{Store: d.Store, Catalog: d.Catalog}
	public := &PublicHandler{Catalog: d.Catalog}
	imports := &ImportHandler{Store: d.Store, Catalog: d.Catalog, Importer: d.Importer}

	var limiter *rate.Limiter
	if d.RateLimit.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(d.RateLimit.RPS), max(d.RateLimit.Burst, 1))
	}
	limited := RateLimit(limiter)
	authMW := AuthMiddleware(d.JWTSecret)
	requireSeller := RequireRole(auth.RoleSeller)
	requireAdmin := RequireRole(auth.RoleAdmin)

	open := func(h http.HandlerFunc) http.Handler { return limited(h) }
	writer := func(h http.HandlerFunc) http.Handler { return authMW(requireSeller(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Service.
	if d.Health != nil {
		mux.Handle("GET /api/health", d.Health)
	}
	mux.Handle("GET /metrics", metrics.Handler())

	// Inventory: read (public), write (seller+), bulk maintenance (admin).
	mux.Handle("GET /api/perishables", open(perishables.List))
	mux.Handle("POST /api/perishables", writer(perishables.Create))
	mux.Handle("DELETE /api/perishables", admin(perishables.Clear))
	mux.Handle("GET /api/perishables/{id}", open(perishables.Get))
	mux.Handle("PUT /api/perishables/{id}", writer(perishables.Update))
	mux.Handle("DELETE /api/perishables/{id}", writer(perishables.Delete))
	mux.Handle("PATCH /api/perishables/update_discounts", admin(perishables.UpdateDiscounts))
	mux.Handle("GET /api/perishables/category/{category}", open(perishables.ByCategory))
	mux.Handle("GET /api/perishables/expiring", open(perishables.Expiring))
	mux.Handle("GET /api/stats/categories", open(perishables.CategoryStats))

	// Storefront.
	mux.Handle("GET /api/perishables/public", open(public.Feed))
	mux.Handle("GET /api/perishables/public/categories", open(public.Categories))
	mux.Handle("GET /api/perishables/public/sellers", open(public.Sellers))
	mux.Handle("GET /api/perishables/public/deals", open(public.Deals))

	// Seller dashboard (seller+).
	mux.Handle("GET /api/seller/items", writer(seller.Items))
	mux.Handle("POST /api/seller/items", writer(seller.Create))
	mux.Handle("PUT /api/seller/items/{id}", writer(seller.Update))
	mux.Handle("DELETE /api/seller/items/{id}", writer(seller.Delete))
	mux.Handle("PATCH /api/seller/items/{id}/toggle-active", writer(seller.ToggleActive))
	mux.Handle("GET /api/seller/stats", writer(seller.Stats))

	// Bulk import (seller+) and export (public).
	mux.Handle("POST /api/import", writer(imports.Import))
	mux.Handle("POST /api/import/csv", writer(imports.Import))
	mux.Handle("GET /api/export/csv", open(imports.Export))

	mux.HandleFunc("/", notFound)

	// metrics sits inside the logger so it sees the request the mux
	// annotates with its matched pattern.
	return LoggingMiddleware(d.Logger)(metrics.Middleware(mux))
}
