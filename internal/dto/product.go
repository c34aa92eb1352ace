package dto

// InventoryItemResponse is a product row in staff/admin inventory views. It
// includes deactivated products, which the public catalog never shows.
type InventoryItemResponse struct {
	SKU        string  `json:"sku"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Unit       string  `json:"unit"`
	Price      float64 `json:"price"`
	StockCases int     `json:"stockCases"`
	StockLabel string  `json:"stockLabel"`
	Active     bool    `json:"active"`
}

// ProductResponse represents a catalog product as exposed via HTTP.
type ProductResponse struct {
	SKU        string  `json:"sku"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Unit       string  `json:"unit"`
	Price      float64 `json:"price"`
	StockCases int     `json:"stockCases"`
	StockLabel string  `json:"stockLabel"`
	ImageURL   string  `json:"imageUrl,omitempty"`
}
