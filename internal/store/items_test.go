package store

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praveshjainnn/BasketBuddy/internal/db"
	apperrors "github.com/praveshjainnn/BasketBuddy/internal/errors"
	"github.com/praveshjainnn/BasketBuddy/internal/model"
)

// testClock is a settable clock starting on 2026-10-18.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) advance(days int) { c.now = c.now.AddDate(0, 0, days) }

func newTestStore(t *testing.T) (*Store, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)}
	return New(db.NewTestDB(t), WithClock(clock.Now)), clock
}

func ptr[T any](v T) *T { return &v }

func newItem(name string, base float64, expiry model.Date) model.NewItem {
	return model.NewItem{
		ItemName:   name,
		Category:   "Dairy",
		Quantity:   ptr(10),
		BasePrice:  ptr(base),
		ExpiryDate: &expiry,
	}
}

func TestCreateDerivesPricing(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	today := s.Today()

	item, err := s.Create(ctx, newItem("Milk", 5.99, today.AddDays(2)))
	require.NoError(t, err)

	assert.NotZero(t, item.ID)
	assert.Equal(t, 3.00, item.DiscountedPrice)
	assert.Equal(t, 4.19, item.CostPrice)
	assert.Equal(t, model.DefaultSellerName, item.SellerName)
	assert.True(t, item.IsActive)
	assert.Equal(t, item.CreatedAt, item.UpdatedAt)

	got, err := s.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ItemName, got.ItemName)
	assert.Equal(t, 3.00, got.DiscountedPrice)
	assert.True(t, got.ExpiryDate.Equal(today.AddDays(2)))
	assert.Nil(t, got.ShelfLife)
	assert.WithinDuration(t, item.CreatedAt, got.CreatedAt, time.Millisecond)
}

func TestCreateFromShelfLife(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	in := model.NewItem{
		ItemName:  "Yogurt",
		Category:  "Dairy",
		Quantity:  ptr(4),
		BasePrice: ptr(10.0),
		CostPrice: ptr(6.5),
		ShelfLife: ptr(3),
	}
	item, err := s.Create(ctx, in)
	require.NoError(t, err)

	assert.True(t, item.ExpiryDate.Equal(s.Today().AddDays(3)))
	assert.Equal(t, 7.5, item.DiscountedPrice)
	assert.Equal(t, 6.5, item.CostPrice)
	require.NotNil(t, item.ShelfLife)
	assert.Equal(t, 3, *item.ShelfLife)
}

func TestCreateExpiryDateWinsOverShelfLife(t *testing.T) {
	s, _ := newTestStore(t)

	in := newItem("Cheese", 8, s.Today().AddDays(10))
	in.ShelfLife = ptr(1)
	item, err := s.Create(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, item.ExpiryDate.Equal(s.Today().AddDays(10)))
	assert.Equal(t, 8.0, item.DiscountedPrice)
}

func TestCreateValidation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	expiry := s.Today().AddDays(3)

	tests := []struct {
		name    string
		mutate  func(*model.NewItem)
		message string
	}{
		{"missing name", func(in *model.NewItem) { in.ItemName = "  " }, "Missing required field: item_name"},
		{"missing category", func(in *model.NewItem) { in.Category = "" }, "Missing required field: category"},
		{"missing quantity", func(in *model.NewItem) { in.Quantity = nil }, "Missing required field: quantity"},
		{"missing price", func(in *model.NewItem) { in.BasePrice = nil }, "Missing required field: base_price"},
		{"negative price", func(in *model.NewItem) { in.BasePrice = ptr(-1.0) }, "Invalid field 'base_price': must be >= 0"},
		{"negative quantity", func(in *model.NewItem) { in.Quantity = ptr(-2) }, "Invalid field 'quantity': must be >= 0"},
		{"infinite price", func(in *model.NewItem) { in.BasePrice = ptr(math.Inf(1)) }, "Invalid field 'base_price': must be a finite number"},
		{"NaN price", func(in *model.NewItem) { in.BasePrice = ptr(math.NaN()) }, "Invalid field 'base_price': must be a finite number"},
		{"infinite cost", func(in *model.NewItem) { in.CostPrice = ptr(math.Inf(1)) }, "Invalid field 'cost_price': must be a finite number"},
		{"no expiry", func(in *model.NewItem) { in.ExpiryDate = nil }, "Missing required field: expiry_date or shelf_life"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newItem("Milk", 5.99, expiry)
			tt.mutate(&in)

			_, err := s.Create(ctx, in)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
			assert.Equal(t, tt.message, err.Error())
		})
	}

	items, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCreateForSeller(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	today := s.Today()

	_, err := s.CreateForSeller(ctx, newItem("Milk", 5.99, today.AddDays(3)))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	past := newItem("Milk", 5.99, today.AddDays(-1))
	past.SellerName = "FreshFarm"
	_, err = s.CreateForSeller(ctx, past)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	ok := newItem("Milk", 5.99, today)
	ok.SellerName = "FreshFarm"
	item, err := s.CreateForSeller(ctx, ok)
	require.NoError(t, err)
	assert.Equal(t, "FreshFarm", item.SellerName)
	assert.Equal(t, 0.0, item.DiscountedPrice)
}

func TestGetMissing(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Get(context.Background(), 404)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestListOrdering(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	today := s.Today()

	late, err := s.Create(ctx, newItem("Late", 1, today.AddDays(9)))
	require.NoError(t, err)
	first, err := s.Create(ctx, newItem("First", 1, today.AddDays(1)))
	require.NoError(t, err)
	second, err := s.Create(ctx, newItem("Second", 1, today.AddDays(1)))
	require.NoError(t, err)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []int64{first.ID, second.ID, late.ID}, []int64{items[0].ID, items[1].ID, items[2].ID})
}

func TestListByCategoryAndExpiring(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	today := s.Today()

	bread := newItem("Bread", 3, today.AddDays(1))
	bread.Category = "Bakery"
	_, err := s.Create(ctx, bread)
	require.NoError(t, err)
	_, err = s.Create(ctx, newItem("Milk", 2, today.AddDays(-1)))
	require.NoError(t, err)
	_, err = s.Create(ctx, newItem("Cheese", 9, today.AddDays(20)))
	require.NoError(t, err)

	bakery, err := s.ListByCategory(ctx, "Bakery")
	require.NoError(t, err)
	require.Len(t, bakery, 1)
	assert.Equal(t, "Bread", bakery[0].ItemName)

	none, err := s.ListByCategory(ctx, "Produce")
	require.NoError(t, err)
	assert.Empty(t, none)

	expiring, err := s.ListExpiring(ctx, 3)
	require.NoError(t, err)
	require.Len(t, expiring, 2)
	assert.Equal(t, "Milk", expiring[0].ItemName)
	assert.Equal(t, "Bread", expiring[1].ItemName)

	_, err = s.ListExpiring(ctx, -1)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestUpdateRepricesOnlyOnPriceOrExpiry(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	item, err := s.Create(ctx, newItem("Milk", 10, s.Today().AddDays(5)))
	require.NoError(t, err)
	assert.Equal(t, 10.0, item.DiscountedPrice)

	clock.advance(3) // two days left, 50% if repriced

	updated, err := s.Update(ctx, item.ID, model.ItemPatch{Quantity: ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Quantity)
	assert.Equal(t, 10.0, updated.DiscountedPrice)
	assert.True(t, updated.UpdatedAt.After(item.UpdatedAt))

	updated, err = s.Update(ctx, item.ID, model.ItemPatch{BasePrice: ptr(8.0)})
	require.NoError(t, err)
	assert.Equal(t, 4.0, updated.DiscountedPrice)

	expiry := s.Today().AddDays(3)
	updated, err = s.Update(ctx, item.ID, model.ItemPatch{ExpiryDate: &expiry})
	require.NoError(t, err)
	assert.Equal(t, 6.0, updated.DiscountedPrice)

	got, err := s.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.0, got.DiscountedPrice)
	assert.Equal(t, 2, got.Quantity)
}

func TestUpdateEmptyPatch(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	item, err := s.Create(ctx, newItem("Milk", 10, s.Today().AddDays(5)))
	require.NoError(t, err)

	got, err := s.Update(ctx, item.ID, model.ItemPatch{})
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, item.DiscountedPrice, got.DiscountedPrice)

	_, err = s.Update(ctx, 999, model.ItemPatch{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestUpdateRejectsInvalidMerge(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	item, err := s.Create(ctx, newItem("Milk", 10, s.Today().AddDays(5)))
	require.NoError(t, err)

	_, err = s.Update(ctx, item.ID, model.ItemPatch{Quantity: ptr(-1), ItemName: ptr("Oat milk")})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	_, err = s.Update(ctx, item.ID, model.ItemPatch{ItemName: ptr("")})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	_, err = s.Update(ctx, item.ID, model.ItemPatch{BasePrice: ptr(math.Inf(1))})
	require.Error(t, err)
	assert.Equal(t, "Invalid field 'base_price': must be a finite number", err.Error())

	_, err = s.Update(ctx, item.ID, model.ItemPatch{CostPrice: ptr(math.NaN())})
	require.Error(t, err)
	assert.Equal(t, "Invalid field 'cost_price': must be a finite number", err.Error())

	got, err := s.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Milk", got.ItemName)
	assert.Equal(t, 10, got.Quantity)
}

func TestUpdateForSellerRejectsPastExpiry(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	item, err := s.Create(ctx, newItem("Milk", 10, s.Today().AddDays(5)))
	require.NoError(t, err)

	past := s.Today().AddDays(-1)
	_, err = s.UpdateForSeller(ctx, item.ID, model.ItemPatch{ExpiryDate: &past})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	updated, err := s.UpdateForSeller(ctx, item.ID, model.ItemPatch{SellerName: ptr("Bakehouse")})
	require.NoError(t, err)
	assert.Equal(t, "Bakehouse", updated.SellerName)
}

func TestToggleActive(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	item, err := s.Create(ctx, newItem("Milk", 10, s.Today().AddDays(5)))
	require.NoError(t, err)

	active, err := s.ToggleActive(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, active)

	got, err := s.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	active, err = s.ToggleActive(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, active)

	_, err = s.ToggleActive(ctx, 999)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	item, err := s.Create(ctx, newItem("Milk", 10, s.Today().AddDays(5)))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, item.ID))

	_, err = s.Get(ctx, item.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))

	err = s.Delete(ctx, item.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestBulkCreate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	today := s.Today()

	bad := newItem("", 1, today.AddDays(1))
	rows := []model.NewItem{
		newItem("Milk", 5.99, today.AddDays(2)),
		bad,
		newItem("Bread", 3, today.AddDays(6)),
		{ItemName: "Eggs", Category: "Dairy", Quantity: ptr(12), BasePrice: ptr(4.0)},
	}

	inserted, rejected, err := s.BulkCreate(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	require.Len(t, rejected, 2)
	assert.Equal(t, 1, rejected[0].Index)
	assert.Equal(t, 3, rejected[1].Index)
	assert.True(t, apperrors.HasCode(rejected[0], apperrors.ErrCodeValidation))

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 3.00, items[0].DiscountedPrice)
}

func TestBulkCreateAllRejected(t *testing.T) {
	s, _ := newTestStore(t)

	inserted, rejected, err := s.BulkCreate(context.Background(), []model.NewItem{{}, {}})
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.Len(t, rejected, 2)
}

func TestRecomputeDiscounts(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	today := s.Today()

	_, err := s.Create(ctx, newItem("Milk", 10, today.AddDays(4)))
	require.NoError(t, err)
	_, err = s.Create(ctx, newItem("Cheese", 20, today.AddDays(30)))
	require.NoError(t, err)

	clock.advance(2)

	n, err := s.RecomputeDiscounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 5.0, items[0].DiscountedPrice)
	assert.Equal(t, 20.0, items[1].DiscountedPrice)
	for _, item := range items {
		view := item.View(s.Today())
		assert.LessOrEqual(t, item.DiscountedPrice, item.BasePrice)
		assert.Equal(t, view.DiscountPercentage == 0, item.DiscountedPrice == item.BasePrice)
	}
}

func TestRecomputeDiscountsEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	n, err := s.RecomputeDiscounts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClear(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := s.Create(ctx, newItem(name, 1, s.Today().AddDays(3)))
		require.NoError(t, err)
	}

	n, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	items, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestScanLegacyRowDefaults(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.DB().ExecContext(ctx,
		`INSERT INTO items (item_name, category, quantity, base_price, expiry_date, seller_name)
		 VALUES ('Legacy', 'Produce', 1, 10, '2026-10-25', '')`)
	require.NoError(t, err)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 7.0, items[0].CostPrice)
	assert.Equal(t, 10.0, items[0].DiscountedPrice)
	assert.Equal(t, model.DefaultSellerName, items[0].SellerName)
	assert.True(t, items[0].IsActive)
	assert.False(t, items[0].CreatedAt.IsZero())
}
