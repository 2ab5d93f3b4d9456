package store

import (
	"context"

	"github.com/praveshjainnn/BasketBuddy/internal/pricing"
)

// InventoryStat summarises one category over every stored item, active or
// not.
type InventoryStat struct {
	Category      string  `json:"category"`
	ItemCount     int     `json:"item_count"`
	TotalQuantity int     `json:"total_quantity"`
	AveragePrice  float64 `json:"avg_price"`
}

// InventoryStats groups all items by category, largest category first.
func (s *Store) InventoryStats(ctx context.Context) ([]InventoryStat, error) {
	stats := []InventoryStat{}
	err := s.query(ctx, "read inventory stats", func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT category, COUNT(*), COALESCE(SUM(quantity), 0), COALESCE(AVG(base_price), 0)
			FROM items
			GROUP BY category
			ORDER BY COUNT(*) DESC, category`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var st InventoryStat
			if err := rows.Scan(&st.Category, &st.ItemCount, &st.TotalQuantity, &st.AveragePrice); err != nil {
				return err
			}
			st.AveragePrice = pricing.Round2(st.AveragePrice)
			stats = append(stats, st)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
