package domain

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MenuItem is a read-only catalog entry. Price is in minor units and TaxRate
// is a percentage in [0, 100].
type MenuItem struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Price          int64           `json:"price"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	Category       string          `json:"category"`
	StockQty       int             `json:"stock_qty"`
	KitchenDisplay bool            `json:"kitchen_display"`
}

// Valid reports whether the item satisfies catalog invariants.
func (m *MenuItem) Valid() bool {
	return m.ID != "" &&
		m.Price >= 0 && m.Price <= MaxLineAmount &&
		m.StockQty >= 0 &&
		!m.TaxRate.IsNegative() &&
		m.TaxRate.LessThanOrEqual(hundred)
}

// DefaultCatalog is the menu a fresh store is seeded with.
func DefaultCatalog() []MenuItem {
	eight, five := decimal.NewFromInt(8), decimal.NewFromInt(5)
	return []MenuItem{
		{ID: "ITEM001", Name: "Margherita Pizza", Price: 1299, TaxRate: eight, Category: "Pizza", StockQty: 50, KitchenDisplay: true},
		{ID: "ITEM002", Name: "Caesar Salad", Price: 899, TaxRate: eight, Category: "Salads", StockQty: 30, KitchenDisplay: true},
		{ID: "ITEM003", Name: "Coca Cola", Price: 299, TaxRate: five, Category: "Beverages", StockQty: 100, KitchenDisplay: false},
		{ID: "ITEM004", Name: "Chicken Burger", Price: 1099, TaxRate: eight, Category: "Burgers", StockQty: 40, KitchenDisplay: true},
		{ID: "ITEM005", Name: "French Fries", Price: 499, TaxRate: eight, Category: "Sides", StockQty: 60, KitchenDisplay: true},
		{ID: "ITEM006", Name: "Ice Cream", Price: 599, TaxRate: five, Category: "Desserts", StockQty: 25, KitchenDisplay: true},
	}
}
