package api

import (
	"fmt"
	"net/http"

	"github.com/praveshjainnn/BasketBuddy/internal/catalog"
	apperrors "github.com/praveshjainnn/BasketBuddy/internal/errors"
	"github.com/praveshjainnn/BasketBuddy/internal/model"
	"github.com/praveshjainnn/BasketBuddy/internal/store"
)

// DefaultExpiringDays is the window used by the expiring listing when no
// days parameter is given.
const DefaultExpiringDays = 2

// PerishablesHandler handles the inventory management endpoints.
type PerishablesHandler struct {
	Store   *store.Store
	Catalog *catalog.Catalog
}

func (h *PerishablesHandler) views(items []model.Item) []model.ItemView {
	return model.Views(items, h.Store.Today())
}

// invalidate drops cached aggregates after a write. Failure only costs
// freshness, so it is logged and otherwise ignored.
func invalidate(r *http.Request, c *catalog.Catalog) {
	if err := c.Invalidate(r.Context()); err != nil {
		RequestLogger(r).Warn("failed to invalidate catalog cache", "error", err)
	}
}

// List handles GET /api/perishables.
func (h *PerishablesHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := h.views(items)
	jsonOK(w, http.StatusOK, envelope{"count": len(views), "data": views})
}

// Get handles GET /api/perishables/{id}.
func (h *PerishablesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.Store.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, envelope{"data": item.View(h.Store.Today())})
}

// Create handles POST /api/perishables.
func (h *PerishablesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.NewItem
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.Store.Create(r.Context(), req)
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

// Update handles PUT /api/perishables/{id}.
func (h *PerishablesHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	item, err := h.Store.Update(r.Context(), id, patch)
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

// Delete handles DELETE /api/perishables/{id}.
func (h *PerishablesHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// Clear handles DELETE /api/perishables.
func (h *PerishablesHandler) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.Store.Clear(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	invalidate(r, h.Catalog)

	RequestLogger(r).Warn("inventory cleared", "deleted", n, "by", GetClaims(r.Context()).Seller)
	jsonOK(w, http.StatusOK, envelope{
		"message":       fmt.Sprintf("Deleted %d items", n),
		"deleted_count": n,
	})
}

// UpdateDiscounts handles PATCH /api/perishables/update_discounts.
func (h *PerishablesHandler) UpdateDiscounts(w http.ResponseWriter, r *http.Request) {
	n, err := h.Store.RecomputeDiscounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	invalidate(r, h.Catalog)

	jsonOK(w, http.StatusOK, envelope{
		"message":       fmt.Sprintf("Updated discounts for %d items", n),
		"updated_count": n,
	})
}

// ByCategory handles GET /api/perishables/category/{category}.
func (h *PerishablesHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	items, err := h.Store.ListByCategory(r.Context(), category)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := h.views(items)
	jsonOK(w, http.StatusOK, envelope{"category": category, "count": len(views), "data": views})
}

// Expiring handles GET /api/perishables/expiring?days=N.
func (h *PerishablesHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", DefaultExpiringDays)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, err := h.Store.ListExpiring(r.Context(), days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := h.views(items)
	jsonOK(w, http.StatusOK, envelope{"days_threshold": days, "count": len(views), "data": views})
}

// CategoryStats handles GET /api/stats/categories.
func (h *PerishablesHandler) CategoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.InventoryStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, envelope{"data": stats})
}

// notFound answers requests no route matched.
func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, apperrors.NotFoundError("Endpoint not found"))
}
