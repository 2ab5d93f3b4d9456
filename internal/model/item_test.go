package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = NewDate(2026, time.October, 18)

func TestDateDaysUntil(t *testing.T) {
	tests := []struct {
		date Date
		want int
	}{
		{today, 0},
		{today.AddDays(2), 2},
		{today.AddDays(-5), -5},
		{NewDate(2026, time.November, 1), 14},
		{NewDate(2027, time.January, 1), 75},
	}

	for _, tt := range tests {
		if got := tt.date.DaysUntil(today); got != tt.want {
			t.Errorf("%s.DaysUntil(%s) = %d, want %d", tt.date, today, got, tt.want)
		}
	}
}

func TestDateOfIgnoresClockTime(t *testing.T) {
	late := time.Date(2026, time.October, 18, 23, 59, 59, 0, time.UTC)
	assert.True(t, DateOf(late).Equal(today))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-10-28")
	require.NoError(t, err)
	assert.Equal(t, "2024-10-28", d.String())

	for _, bad := range []string{"", "28/10/2024", "2024-13-01", "tomorrow"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, "ParseDate(%q)", bad)
	}
}

func TestDateScan(t *testing.T) {
	tests := []struct {
		src  any
		want string
	}{
		{"2026-10-20", "2026-10-20"},
		{[]byte("2026-10-20"), "2026-10-20"},
		{"2026-10-20 00:00:00+00:00", "2026-10-20"},
		{"2026-10-20T00:00:00Z", "2026-10-20"},
		{time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC), "2026-10-20"},
		{nil, ""},
	}

	for _, tt := range tests {
		var d Date
		require.NoError(t, d.Scan(tt.src), "Scan(%v)", tt.src)
		assert.Equal(t, tt.want, d.String())
	}

	var d Date
	assert.Error(t, d.Scan(42))
}

func TestDateJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		D Date `json:"d"`
	}{today})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2026-10-18"}`, string(data))

	var got struct {
		D *Date `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2026-10-21"}`), &got))
	require.NotNil(t, got.D)
	assert.Equal(t, 3, got.D.DaysUntil(today))

	assert.Error(t, json.Unmarshal([]byte(`{"d":"21-10-2026"}`), &got))
}

func TestItemView(t *testing.T) {
	item := Item{
		ID:              7,
		ItemName:        "Milk",
		Category:        "Dairy",
		Quantity:        10,
		BasePrice:       5.99,
		CostPrice:       4.19,
		ExpiryDate:      today.AddDays(2),
		DiscountedPrice: 3.00,
		SellerName:      DefaultSellerName,
		IsActive:        true,
	}

	view := item.View(today)
	assert.Equal(t, 2, view.DaysToExpiry)
	assert.Equal(t, 50.0, view.DiscountPercentage)
	assert.Equal(t, "red", view.StatusColor)
	assert.False(t, view.IsExpired)
	assert.True(t, view.IsNearExpiry)

	expired := item
	expired.ExpiryDate = today
	view = expired.View(today)
	assert.True(t, view.IsExpired)
	assert.False(t, view.IsNearExpiry)
	assert.Equal(t, 100.0, view.DiscountPercentage)
}

func TestItemViewJSONFields(t *testing.T) {
	item := Item{ID: 1, ItemName: "Bread", Category: "Bakery", ExpiryDate: today.AddDays(5), IsActive: true}
	data, err := json.Marshal(item.View(today))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))

	want := []string{
		"id", "item_name", "category", "quantity", "base_price", "cost_price", "shelf_life",
		"expiry_date", "discounted_price", "days_to_expiry", "discount_percentage", "seller_name",
		"is_active", "status_color", "is_expired", "is_near_expiry", "created_at", "updated_at",
	}
	assert.Len(t, fields, len(want))
	for _, key := range want {
		assert.Contains(t, fields, key)
	}
	assert.Nil(t, fields["shelf_life"])
	assert.Equal(t, "2026-10-23", fields["expiry_date"])
}

func TestItemPatchApply(t *testing.T) {
	item := Item{ItemName: "Milk", Quantity: 10, BasePrice: 5.99, ExpiryDate: today}

	qty := 3
	repriced := ItemPatch{Quantity: &qty}.Apply(&item)
	assert.False(t, repriced)
	assert.Equal(t, 3, item.Quantity)

	price := 4.50
	repriced = ItemPatch{BasePrice: &price}.Apply(&item)
	assert.True(t, repriced)
	assert.Equal(t, 4.50, item.BasePrice)

	expiry := today.AddDays(3)
	repriced = ItemPatch{ExpiryDate: &expiry}.Apply(&item)
	assert.True(t, repriced)
	assert.True(t, item.ExpiryDate.Equal(expiry))
}

func TestItemPatchFields(t *testing.T) {
	assert.True(t, ItemPatch{}.IsEmpty())

	name := "Yogurt"
	active := false
	p := ItemPatch{ItemName: &name, IsActive: &active}
	assert.False(t, p.IsEmpty())
	assert.Equal(t, []Field{FieldItemName, FieldIsActive}, p.Fields())
}
