package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Product is a catalog entry. Stock is counted in cases.
type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID         int64     `bun:",pk,autoincrement" json:"id"`
	SKU        string    `bun:"sku" json:"sku"`
	Name       string    `bun:"name" json:"name"`
	Category   string    `bun:"category" json:"category"`
	Unit       string    `bun:"unit" json:"unit"`
	Price      float64   `bun:"price" json:"price"`
	StockCases int       `bun:"stock_cases" json:"stockCases"`
	Active     bool      `bun:"active" json:"active"`
	ImageURL   string    `bun:"image_url" json:"imageUrl"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero" json:"updatedAt"`
}

// Stock display labels. The low-stock threshold is ten cases.
const (
	StockLabelOut = "Out of Stock"
	StockLabelLow = "Low Stock"
	StockLabelIn  = "In Stock"
)

// StockLabel derives the display label for a case count.
func StockLabel(cases int) string {
	switch {
	case cases <= 0:
		return StockLabelOut
	case cases <= 10:
		return StockLabelLow
	default:
		return StockLabelIn
	}
}
