package api

import (
	"net/http"

	"github.com/praveshjainnn/BasketBuddy/internal/catalog"
)

// PublicHandler serves the storefront. Only active, unexpired items are
// ever visible here.
type PublicHandler struct {
	Catalog *catalog.Catalog
}

// Feed handles GET /api/perishables/public.
func (h *PublicHandler) Feed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{
		Category:   q.Get("category"),
		SellerName: q.Get("seller_name"),
	}

	var err error
	if f.MinDiscount, err = queryFloat(r, "min_discount"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.MaxPrice, err = queryFloat(r, "max_price"); err != nil {
		writeError(w, r, err)
		return
	}
	key := catalog.ParseSortKey(q.Get("sort_by"))

	views, err := h.Catalog.PublicFeed(r.Context(), f, key)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonOK(w, http.StatusOK, envelope{
		"count": len(views),
		"data":  views,
		"filters_applied": envelope{
			"category":     nullIfEmpty(f.Category),
			"min_discount": f.MinDiscount,
			"max_price":    f.MaxPrice,
			"seller_name":  nullIfEmpty(f.SellerName),
			"sort_by":      key,
		},
	})
}

// Categories handles GET /api/perishables/public/categories.
func (h *PublicHandler) Categories(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Catalog.CategoryStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, envelope{"data": stats})
}

// Sellers handles GET /api/perishables/public/sellers.
func (h *PublicHandler) Sellers(w http.ResponseWriter, r *http.Request) {
	sellers, err := h.Catalog.PublicSellers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, envelope{"data": sellers})
}

// Deals handles GET /api/perishables/public/deals?limit=N.
func (h *PublicHandler) Deals(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", catalog.DefaultDealsLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	deals, err := h.Catalog.BestDeals(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, envelope{"count": len(deals), "data": deals})
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
