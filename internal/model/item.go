package model

import (
	"time"

	"github.com/praveshjainnn/BasketBuddy/internal/pricing"
)

// DefaultSellerName tags items created without a seller.
const DefaultSellerName = "Admin"

// Item is a perishable stock line as stored.
type Item struct {
	ID              int64     `json:"id"`
	ItemName        string    `json:"item_name" validate:"required"`
	Category        string    `json:"category" validate:"required"`
	Quantity        int       `json:"quantity" validate:"gte=0"`
	BasePrice       float64   `json:"base_price" validate:"finite,gte=0"`
	CostPrice       float64   `json:"cost_price" validate:"finite,gte=0"`
	ShelfLife       *int      `json:"shelf_life,omitempty" validate:"omitempty,gte=0"`
	ExpiryDate      Date      `json:"expiry_date"`
	DiscountedPrice float64   `json:"discounted_price"`
	SellerName      string    `json:"seller_name" validate:"required"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ItemView is the serialized form of an item, with the fields derived from
// its expiry date as of a given day.
type ItemView struct {
	ID                 int64     `json:"id"`
	ItemName           string    `json:"item_name"`
	Category           string    `json:"category"`
	Quantity           int       `json:"quantity"`
	BasePrice          float64   `json:"base_price"`
	CostPrice          float64   `json:"cost_price"`
	ShelfLife          *int      `json:"shelf_life"`
	ExpiryDate         Date      `json:"expiry_date"`
	DiscountedPrice    float64   `json:"discounted_price"`
	DaysToExpiry       int       `json:"days_to_expiry"`
	DiscountPercentage float64   `json:"discount_percentage"`
	SellerName         string    `json:"seller_name"`
	IsActive           bool      `json:"is_active"`
	StatusColor        string    `json:"status_color"`
	IsExpired          bool      `json:"is_expired"`
	IsNearExpiry       bool      `json:"is_near_expiry"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DaysToExpiry returns the whole days from today until the item expires.
func (i Item) DaysToExpiry(today Date) int {
	return i.ExpiryDate.DaysUntil(today)
}

// View derives the read-side fields for the given day.
func (i Item) View(today Date) ItemView {
	days := i.DaysToExpiry(today)
	return ItemView{
		ID:                 i.ID,
		ItemName:           i.ItemName,
		Category:           i.Category,
		Quantity:           i.Quantity,
		BasePrice:          i.BasePrice,
		CostPrice:          i.CostPrice,
		ShelfLife:          i.ShelfLife,
		ExpiryDate:         i.ExpiryDate,
		DiscountedPrice:    i.DiscountedPrice,
		DaysToExpiry:       days,
		DiscountPercentage: pricing.ComputeDiscount(days),
		SellerName:         i.SellerName,
		IsActive:           i.IsActive,
		StatusColor:        pricing.StatusColor(days),
		IsExpired:          pricing.IsExpired(days),
		IsNearExpiry:       pricing.IsNearExpiry(days),
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
	}
}

// Views maps items to their views for the given day.
func Views(items []Item, today Date) []ItemView {
	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, item.View(today))
	}
	return views
}

// NewItem holds the fields accepted when creating an item. Either ExpiryDate
// or ShelfLife must be set; when both are, ExpiryDate wins.
type NewItem struct {
	ItemName   string   `json:"item_name" validate:"required"`
	Category   string   `json:"category" validate:"required"`
	Quantity   *int     `json:"quantity" validate:"required"`
	BasePrice  *float64 `json:"base_price" validate:"required"`
	CostPrice  *float64 `json:"cost_price,omitempty"`
	ShelfLife  *int     `json:"shelf_life,omitempty"`
	ExpiryDate *Date    `json:"expiry_date,omitempty"`
	SellerName string   `json:"seller_name,omitempty"`
	IsActive   *bool    `json:"is_active,omitempty"`
}

// Field names a mutable column of an item.
type Field string

// Mutable fields, in storage column order.
const (
	FieldItemName   Field = "item_name"
	FieldCategory   Field = "category"
	FieldQuantity   Field = "quantity"
	FieldBasePrice  Field = "base_price"
	FieldCostPrice  Field = "cost_price"
	FieldShelfLife  Field = "shelf_life"
	FieldExpiryDate Field = "expiry_date"
	FieldSellerName Field = "seller_name"
	FieldIsActive   Field = "is_active"
)

// ItemPatch is a partial update. Nil fields are left unchanged. Identity,
// derived price and timestamps are not patchable.
type ItemPatch struct {
	ItemName   *string  `json:"item_name,omitempty"`
	Category   *string  `json:"category,omitempty"`
	Quantity   *int     `json:"quantity,omitempty"`
	BasePrice  *float64 `json:"base_price,omitempty"`
	CostPrice  *float64 `json:"cost_price,omitempty"`
	ShelfLife  *int     `json:"shelf_life,omitempty"`
	ExpiryDate *Date    `json:"expiry_date,omitempty"`
	SellerName *string  `json:"seller_name,omitempty"`
	IsActive   *bool    `json:"is_active,omitempty"`
}

// Fields lists the fields the patch sets.
func (p ItemPatch) Fields() []Field {
	var fields []Field
	add := func(set bool, f Field) {
		if set {
			fields = append(fields, f)
		}
	}
	add(p.ItemName != nil, FieldItemName)
	add(p.Category != nil, FieldCategory)
	add(p.Quantity != nil, FieldQuantity)
	add(p.BasePrice != nil, FieldBasePrice)
	add(p.CostPrice != nil, FieldCostPrice)
	add(p.ShelfLife != nil, FieldShelfLife)
	add(p.ExpiryDate != nil, FieldExpiryDate)
	add(p.SellerName != nil, FieldSellerName)
	add(p.IsActive != nil, FieldIsActive)
	return fields
}

// IsEmpty reports whether the patch sets no field at all.
func (p ItemPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Apply copies the set fields onto item and reports whether a pricing input
// (base price or expiry date) was among them.
func (p ItemPatch) Apply(item *Item) (repriced bool) {
	if p.ItemName != nil {
		item.ItemName = *p.ItemName
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.BasePrice != nil {
		item.BasePrice = *p.BasePrice
		repriced = true
	}
	if p.CostPrice != nil {
		item.CostPrice = *p.CostPrice
	}
	if p.ShelfLife != nil {
		shelfLife := *p.ShelfLife
		item.ShelfLife = &shelfLife
	}
	if p.ExpiryDate != nil {
		item.ExpiryDate = *p.ExpiryDate
		repriced = true
	}
	if p.SellerName != nil {
		item.SellerName = *p.SellerName
	}
	if p.IsActive != nil {
		item.IsActive = *p.IsActive
	}
	return repriced
}
