package api

import (
	"net/http"
	"strings"

	"github.com/praveshjainnn/BasketBuddy/internal/catalog"
	"github.com/praveshjainnn/BasketBuddy/internal/model"
	"github.com/praveshjainnn/BasketBuddy/internal/store"
)

// SellerHandler handles the seller dashboard endpoints.
type SellerHandler struct {
	Store   *store.Store
	Catalog *catalog.Catalog
}

func sellerParam(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("seller_name"))
}

// Items handles GET /api/seller/items?seller_name=.
func (h *SellerHandler) Items(w http.ResponseWriter, r *http.Request) {
	views, err := h.Catalog.SellerItems(r.Context(), sellerParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, envelope{"count": len(views), "data": views})
}

// Create handles POST /api/seller/items.
func (h *SellerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.NewItem
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.Store.CreateForSeller(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	invalidate(r, h.Catalog)

	jsonOK(w, http.StatusCreated, envelope{
		"message": "Item created successfully",
		"data":    item.View(h.Store.Today()),
	})
}

// Update handles PUT /api/seller/items/{id}.
func (h *SellerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var patch model.ItemPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.Store.UpdateForSeller(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	invalidate(r, h.Catalog)

	jsonOK(w, http.StatusOK, envelope{
		"message": "Item updated successfully",
		"data":    item.View(h.Store.Today()),
	})
}

// Delete handles DELETE /api/seller/items/{id}.
func (h *SellerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Store.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	invalidate(r, h.Catalog)

	jsonOK(w, http.StatusOK, envelope{"message": "Item deleted successfully"})
}

// ToggleActive handles PATCH /api/seller/items/{id}/toggle-active.
func (h *SellerHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	active, err := h.Store.ToggleActive(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	invalidate(r, h.Catalog)

	state := "deactivated"
	if active {
		state = "activated"
	}
	jsonOK(w, http.StatusOK, envelope{
		"message":   "Item " + state + " successfully",
		"is_active": active,
	})
}

// Stats handles GET /api/seller/stats. With seller_name it returns that
// seller's dashboard, without it one dashboard per seller.
func (h *SellerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	seller := sellerParam(r)
	if seller == "" {
		stats, err := h.Catalog.SellerStats(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		jsonOK(w, http.StatusOK, envelope{"count": len(stats), "data": stats})
		return
	}

	stats, err := h.Catalog.SellerStatsFor(r.Context(), seller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, envelope{"data": stats})
}
