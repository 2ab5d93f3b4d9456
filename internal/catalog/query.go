package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/praveshjainnn/BasketBuddy/internal/model"
	"github.com/praveshjainnn/BasketBuddy/internal/pricing"
)

// Filter narrows a public feed. Empty strings and nil pointers do not
// constrain.
type Filter struct {
	Category    string
	SellerName  string
	MinDiscount *float64
	MaxPrice    *float64
}

// Match reports whether v satisfies every set constraint.
func (f Filter) Match(v model.ItemView) bool {
	if f.Category != "" && v.Category != f.Category {
		return false
	}
	if f.SellerName != "" && v.SellerName != f.SellerName {
		return false
	}
	if f.MinDiscount != nil && v.DiscountPercentage < *f.MinDiscount {
		return false
	}
	if f.MaxPrice != nil && v.DiscountedPrice > *f.MaxPrice {
		return false
	}
	return true
}

func filterViews(views []model.ItemView, f Filter) []model.ItemView {
	out := make([]model.ItemView, 0, len(views))
	for _, v := range views {
		if f.Match(v) {
			out = append(out, v)
		}
	}
	return out
}

// IsPublic reports whether an item is offered to shoppers.
func IsPublic(v model.ItemView) bool {
	return v.IsActive && !v.IsExpired
}

// Public keeps the publicly visible views, preserving order.
func Public(views []model.ItemView) []model.ItemView {
	out := make([]model.ItemView, 0, len(views))
	for _, v := range views {
		if IsPublic(v) {
			out = append(out, v)
		}
	}
	return out
}

type SortKey string

const (
	SortDiscount SortKey = "discount" // highest discount first
	SortPrice    SortKey = "price"    // cheapest first
	SortExpiry   SortKey = "expiry"   // soonest expiry first
)

// ParseSortKey maps a query value to a sort key; anything unrecognized sorts
// by discount.
func ParseSortKey(s string) SortKey {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(s))); key {
	case SortPrice, SortExpiry:
		return key
	default:
		return SortDiscount
	}
}

// SortViews sorts in place. Equal keys keep their relative order.
func SortViews(views []model.ItemView, key SortKey) {
	var compare func(a, b model.ItemView) int
	switch key {
	case SortPrice:
		compare = func(a, b model.ItemView) int { return cmp.Compare(a.DiscountedPrice, b.DiscountedPrice) }
	case SortExpiry:
		compare = func(a, b model.ItemView) int { return cmp.Compare(a.DaysToExpiry, b.DaysToExpiry) }
	default:
		compare = func(a, b model.ItemView) int { return cmp.Compare(b.DiscountPercentage, a.DiscountPercentage) }
	}
	slices.SortStableFunc(views, compare)
}

type CategoryStat struct {
	Category        string  `json:"category"`
	Count           int     `json:"count"`
	AverageDiscount float64 `json:"avg_discount"`
}

type PublicSeller struct {
	SellerName      string  `json:"seller_name"`
	ActiveItems     int     `json:"active_items"`
	AverageDiscount float64 `json:"avg_discount"`
}

// SellerStat is a seller's dashboard. Revenue and cost count active items
// only; the other figures count every item.
type SellerStat struct {
	SellerName      string  `json:"seller_name"`
	TotalItems      int     `json:"total_items"`
	ActiveItems     int     `json:"active_items"`
	InactiveItems   int     `json:"inactive_items"`
	NearExpiry      int     `json:"near_expiry"`
	Expired         int     `json:"expired"`
	AverageDiscount float64 `json:"avg_discount"`
	TotalRevenue    float64 `json:"total_revenue"`
	TotalCost       float64 `json:"total_cost"`
	ProfitMargin    float64 `json:"profit_margin"`
}

// groupBy partitions views by key, groups ordered by first appearance.
func groupBy(views []model.ItemView, key func(model.ItemView) string) (order []string, groups map[string][]model.ItemView) {
	groups = make(map[string][]model.ItemView)
	for _, v := range views {
		k := key(v)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], v)
	}
	return order, groups
}

func averageDiscount(views []model.ItemView) float64 {
	if len(views) == 0 {
		return 0
	}
	var total float64
	for _, v := range views {
		total += v.DiscountPercentage
	}
	return pricing.Round2(total / float64(len(views)))
}

// AggregateCategories counts views per category.
func AggregateCategories(views []model.ItemView) []CategoryStat {
	order, groups := groupBy(views, func(v model.ItemView) string { return v.Category })
	stats := make([]CategoryStat, 0, len(order))
	for _, category := range order {
		g := groups[category]
		stats = append(stats, CategoryStat{
			Category:        category,
			Count:           len(g),
			AverageDiscount: averageDiscount(g),
		})
	}
	return stats
}

// AggregatePublicSellers counts views per seller.
func AggregatePublicSellers(views []model.ItemView) []PublicSeller {
	order, groups := groupBy(views, func(v model.ItemView) string { return v.SellerName })
	sellers := make([]PublicSeller, 0, len(order))
	for _, seller := range order {
		g := groups[seller]
		sellers = append(sellers, PublicSeller{
			SellerName:      seller,
			ActiveItems:     len(g),
			AverageDiscount: averageDiscount(g),
		})
	}
	return sellers
}

// AggregateSellers builds a dashboard per seller.
func AggregateSellers(views []model.ItemView) []SellerStat {
	order, groups := groupBy(views, func(v model.ItemView) string { return v.SellerName })
	stats := make([]SellerStat, 0, len(order))
	for _, seller := range order {
		stats = append(stats, sellerStat(seller, groups[seller]))
	}
	return stats
}

func sellerStat(seller string, views []model.ItemView) SellerStat {
	s := SellerStat{
		SellerName:      seller,
		TotalItems:      len(views),
		AverageDiscount: averageDiscount(views),
	}
	var revenue, cost float64
	for _, v := range views {
		if v.IsActive {
			s.ActiveItems++
			revenue += v.DiscountedPrice * float64(v.Quantity)
			cost += v.CostPrice * float64(v.Quantity)
		}
		if v.IsNearExpiry {
			s.NearExpiry++
		}
		if v.IsExpired {
			s.Expired++
		}
	}
	s.InactiveItems = s.TotalItems - s.ActiveItems
	s.TotalRevenue = pricing.Round2(revenue)
	s.TotalCost = pricing.Round2(cost)
	if revenue > 0 {
		s.ProfitMargin = pricing.Round2((revenue - cost) / revenue * 100)
	}
	return s
}
