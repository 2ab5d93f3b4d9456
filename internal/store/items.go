package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/praveshjainnn/BasketBuddy/internal/errors"
	"github.com/praveshjainnn/BasketBuddy/internal/metrics"
	"github.com/praveshjainnn/BasketBuddy/internal/model"
	"github.com/praveshjainnn/BasketBuddy/internal/pricing"
)

const itemColumns = `id, item_name, category, quantity, base_price, cost_price, shelf_life,
	expiry_date, discounted_price, seller_name, is_active, created_at, updated_at`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// RowError is a rejected row of a batch create.
type RowError struct {
	Index int
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Index, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Create validates in, derives its expiry date, cost and discounted price,
// and stores it.
func (s *Store) Create(ctx context.Context, in model.NewItem) (*model.Item, error) {
	item, err := s.prepare(in, s.Today())
	if err != nil {
		return nil, err
	}

	err = s.withTx(ctx, "create item", func(tx *sql.Tx) error {
		return insertItem(ctx, tx, item)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("item created", "id", item.ID, "item_name", item.ItemName, "seller", item.SellerName,
		"discounted_price", item.DiscountedPrice)
	return item, nil
}

// CreateForSeller is Create for the seller-facing path: the seller name is
// mandatory and an explicit expiry date may not lie in the past.
func (s *Store) CreateForSeller(ctx context.Context, in model.NewItem) (*model.Item, error) {
	if strings.TrimSpace(in.SellerName) == "" {
		return nil, apperrors.ValidationError("Missing required field: seller_name")
	}
	if in.ExpiryDate != nil && in.ExpiryDate.Before(s.Today()) {
		return nil, apperrors.AddValidationError("expiry_date", "cannot be in the past")
	}
	return s.Create(ctx, in)
}

// BulkCreate validates every row independently and inserts the valid ones in
// a single transaction. Rejected rows are returned with their index in rows.
// A storage failure rolls back the whole batch.
func (s *Store) BulkCreate(ctx context.Context, rows []model.NewItem) (int, []RowError, error) {
	today := s.Today()

	var (
		valid    []*model.Item
		rejected []RowError
	)
	for i, in := range rows {
		item, err := s.prepare(in, today)
		if err != nil {
			rejected = append(rejected, RowError{Index: i, Err: err})
			continue
		}
		valid = append(valid, item)
	}

	if len(valid) == 0 {
		return 0, rejected, nil
	}

	err := s.withTx(ctx, "bulk create items", func(tx *sql.Tx) error {
		for _, item := range valid {
			if err := insertItem(ctx, tx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, rejected, err
	}

	s.logger.Info("items bulk created", "inserted", len(valid), "rejected", len(rejected))
	return len(valid), rejected, nil
}

// prepare turns create input into a complete, validated item.
func (s *Store) prepare(in model.NewItem, today model.Date) (*model.Item, error) {
	in.ItemName = strings.TrimSpace(in.ItemName)
	in.Category = strings.TrimSpace(in.Category)
	in.SellerName = strings.TrimSpace(in.SellerName)

	if err := s.validateStruct(in); err != nil {
		return nil, err
	}

	item := &model.Item{
		ItemName:   in.ItemName,
		Category:   in.Category,
		Quantity:   *in.Quantity,
		BasePrice:  *in.BasePrice,
		ShelfLife:  in.ShelfLife,
		SellerName: in.SellerName,
		IsActive:   true,
	}
	if item.SellerName == "" {
		item.SellerName = model.DefaultSellerName
	}
	if in.IsActive != nil {
		item.IsActive = *in.IsActive
	}

	switch {
	case in.ExpiryDate != nil && !in.ExpiryDate.IsZero():
		item.ExpiryDate = *in.ExpiryDate
	case in.ShelfLife != nil:
		if *in.ShelfLife < 0 {
			return nil, apperrors.AddValidationError("shelf_life", "must be >= 0")
		}
		item.ExpiryDate = today.AddDays(*in.ShelfLife)
	default:
		return nil, apperrors.ValidationError("Missing required field: expiry_date or shelf_life")
	}

	if in.CostPrice != nil {
		item.CostPrice = *in.CostPrice
	} else {
		item.CostPrice = pricing.DefaultCostPrice(item.BasePrice)
	}

	if err := s.validateStruct(item); err != nil {
		return nil, err
	}
	if err := reprice(item, today); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	return item, nil
}

func reprice(item *model.Item, today model.Date) error {
	pct := pricing.ComputeDiscount(item.DaysToExpiry(today))
	price, err := pricing.ComputeDiscountedPrice(item.BasePrice, pct)
	if err != nil {
		return err
	}
	item.DiscountedPrice = price
	return nil
}

func insertItem(ctx context.Context, tx *sql.Tx, item *model.Item) error {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO items (item_name, category, quantity, base_price, cost_price, shelf_life,
		                    expiry_date, discounted_price, seller_name, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ItemName, item.Category, item.Quantity, item.BasePrice, item.CostPrice, item.ShelfLife,
		item.ExpiryDate, item.DiscountedPrice, item.SellerName, item.IsActive,
		formatTime(item.CreatedAt), formatTime(item.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting item id: %w", err)
	}
	item.ID = id
	return nil
}

// Get returns an item by ID.
func (s *Store) Get(ctx context.Context, id int64) (*model.Item, error) {
	var item *model.Item
	err := s.query(ctx, "get item", func(ctx context.Context) error {
		var err error
		item, err = getItem(ctx, s.db, id)
		return err
	})
	return item, err
}

func getItem(ctx context.Context, q querier, id int64) (*model.Item, error) {
	row := q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundError(fmt.Sprintf("Item %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// List returns every item, soonest expiry first, ties by ID.
func (s *Store) List(ctx context.Context) ([]model.Item, error) {
	return s.list(ctx, "list items",
		`SELECT `+itemColumns+` FROM items ORDER BY expiry_date, id`)
}

// ListByCategory returns the items of one category in List order.
func (s *Store) ListByCategory(ctx context.Context, category string) ([]model.Item, error) {
	return s.list(ctx, "list items by category",
		`SELECT `+itemColumns+` FROM items WHERE category = ? ORDER BY expiry_date, id`, category)
}

// ListExpiring returns the items expiring within days days of today,
// including those already expired.
func (s *Store) ListExpiring(ctx context.Context, days int) ([]model.Item, error) {
	if days < 0 {
		return nil, apperrors.AddValidationError("days", "must be >= 0")
	}
	cutoff := s.Today().AddDays(days)
	return s.list(ctx, "list expiring items",
		`SELECT `+itemColumns+` FROM items WHERE expiry_date <= ? ORDER BY expiry_date, id`, cutoff)
}

func (s *Store) list(ctx context.Context, op, query string, args ...any) ([]model.Item, error) {
	var items []model.Item
	err := s.query(ctx, op, func(ctx context.Context) error {
		var err error
		items, err = listItems(ctx, s.db, query, args...)
		return err
	})
	return items, err
}

func listItems(ctx context.Context, q querier, query string, args ...any) ([]model.Item, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// scanItem reads one row of itemColumns. Columns added by later migrations
// may be NULL in rows written before them.
func scanItem(row rowScanner) (*model.Item, error) {
	var (
		item       model.Item
		cost       sql.NullFloat64
		shelfLife  sql.NullInt64
		discounted sql.NullFloat64
		seller     sql.NullString
		active     sql.NullBool
		created    nullTime
		updated    nullTime
	)
	err := row.Scan(&item.ID, &item.ItemName, &item.Category, &item.Quantity, &item.BasePrice,
		&cost, &shelfLife, &item.ExpiryDate, &discounted, &seller, &active, &created, &updated)
	if err != nil {
		return nil, err
	}

	item.CostPrice = pricing.DefaultCostPrice(item.BasePrice)
	if cost.Valid {
		item.CostPrice = cost.Float64
	}
	if shelfLife.Valid {
		v := int(shelfLife.Int64)
		item.ShelfLife = &v
	}
	item.DiscountedPrice = item.BasePrice
	if discounted.Valid {
		item.DiscountedPrice = discounted.Float64
	}
	item.SellerName = model.DefaultSellerName
	if seller.Valid && seller.String != "" {
		item.SellerName = seller.String
	}
	item.IsActive = !active.Valid || active.Bool
	item.CreatedAt = created.Time
	item.UpdatedAt = updated.Time
	return &item, nil
}

// Update applies patch to the item. The merged record is re-validated and the
// discounted price recomputed when the base price or expiry date was set. An
// empty patch returns the item unchanged.
func (s *Store) Update(ctx context.Context, id int64, patch model.ItemPatch) (*model.Item, error) {
	today := s.Today()

	var updated *model.Item
	err := s.withTx(ctx, "update item", func(tx *sql.Tx) error {
		item, err := getItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			updated = item
			return nil
		}

		repriced := patch.Apply(item)
		item.ItemName = strings.TrimSpace(item.ItemName)
		item.Category = strings.TrimSpace(item.Category)
		item.SellerName = strings.TrimSpace(item.SellerName)
		if item.ExpiryDate.IsZero() {
			return apperrors.ValidationError("Missing required field: expiry_date")
		}
		if err := s.validateStruct(item); err != nil {
			return err
		}
		if repriced {
			if err := reprice(item, today); err != nil {
				return err
			}
		}
		item.UpdatedAt = s.now().UTC()

		_, err = tx.ExecContext(ctx,
			`UPDATE items SET item_name = ?, category = ?, quantity = ?, base_price = ?, cost_price = ?,
			                  shelf_life = ?, expiry_date = ?, discounted_price = ?, seller_name = ?,
			                  is_active = ?, updated_at = ?
			 WHERE id = ?`,
			item.ItemName, item.Category, item.Quantity, item.BasePrice, item.CostPrice,
			item.ShelfLife, item.ExpiryDate, item.DiscountedPrice, item.SellerName,
			item.IsActive, formatTime(item.UpdatedAt), id,
		)
		if err != nil {
			return fmt.Errorf("updating item: %w", err)
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !patch.IsEmpty() {
		s.logger.Info("item updated", "id", id, "fields", patch.Fields())
	}
	return updated, nil
}

// UpdateForSeller is Update for the seller-facing path, which may not move an
// expiry date into the past.
func (s *Store) UpdateForSeller(ctx context.Context, id int64, patch model.ItemPatch) (*model.Item, error) {
	if patch.ExpiryDate != nil && patch.ExpiryDate.Before(s.Today()) {
		return nil, apperrors.AddValidationError("expiry_date", "cannot be in the past")
	}
	return s.Update(ctx, id, patch)
}

// ToggleActive flips the item's active flag and returns the new value.
func (s *Store) ToggleActive(ctx context.Context, id int64) (bool, error) {
	var active bool
	err := s.withTx(ctx, "toggle item", func(tx *sql.Tx) error {
		item, err := getItem(ctx, tx, id)
		if err != nil {
			return err
		}
		active = !item.IsActive
		_, err = tx.ExecContext(ctx,
			`UPDATE items SET is_active = ?, updated_at = ? WHERE id = ?`,
			active, formatTime(s.now()), id,
		)
		if err != nil {
			return fmt.Errorf("toggling item: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("item toggled", "id", id, "is_active", active)
	return active, nil
}

// Delete removes an item permanently.
func (s *Store) Delete(ctx context.Context, id int64) error {
	err := s.withTx(ctx, "delete item", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting item: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("counting deleted items: %w", err)
		}
		if n == 0 {
			return apperrors.NotFoundError(fmt.Sprintf("Item %d not found", id))
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("item deleted", "id", id)
	return nil
}

// RecomputeDiscounts reprices every item for today and returns how many
// items were swept.
func (s *Store) RecomputeDiscounts(ctx context.Context) (int, error) {
	today := s.Today()
	now := formatTime(s.now())

	type priced struct {
		id    int64
		price float64
	}

	var count int
	err := s.withTx(ctx, "recompute discounts", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, base_price, expiry_date FROM items ORDER BY id`)
		if err != nil {
			return fmt.Errorf("listing items: %w", err)
		}

		var batch []priced
		for rows.Next() {
			var item model.Item
			if err := rows.Scan(&item.ID, &item.BasePrice, &item.ExpiryDate); err != nil {
				rows.Close()
				return fmt.Errorf("scanning item: %w", err)
			}
			if err := reprice(&item, today); err != nil {
				rows.Close()
				return err
			}
			batch = append(batch, priced{id: item.ID, price: item.DiscountedPrice})
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("listing items: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`UPDATE items SET discounted_price = ?, updated_at = ? WHERE id = ?`)
		if err != nil {
			return fmt.Errorf("preparing recompute: %w", err)
		}
		defer stmt.Close()

		for _, p := range batch {
			if _, err := stmt.ExecContext(ctx, p.price, now, p.id); err != nil {
				return fmt.Errorf("repricing item %d: %w", p.id, err)
			}
		}
		count = len(batch)
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.AddRecomputed(count)
	s.logger.Info("discounts recomputed", "items", count, "date", today.String())
	return count, nil
}

// Clear deletes every item and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	var n int64
	err := s.withTx(ctx, "clear items", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM items`)
		if err != nil {
			return fmt.Errorf("clearing items: %w", err)
		}
		n, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Warn("all items cleared", "deleted", n)
	return n, nil
}
