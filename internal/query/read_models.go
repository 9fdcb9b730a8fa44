package query

import (
	"github.com/example/promo-cart/internal/loyalty"
	"github.com/example/promo-cart/internal/pricing"
)

// ProductReadModel is a catalog entry as the storefront shows it.
type ProductReadModel struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	BasePrice       int    `json:"base_price"`
	CurrentPrice    int    `json:"current_price"`
	Stock           int    `json:"stock"`
	DiscountPercent int    `json:"discount_percent"`
	LightningSale   bool   `json:"lightning_sale"`
	SuggestionSale  bool   `json:"suggestion_sale"`
	SaleLabel       string `json:"sale_label,omitempty"`
	SoldOut         bool   `json:"sold_out"`
}

// CartReadModel is the full cart summary: lines, pricing, points and stock
// status, all computed from one consistent snapshot.
type CartReadModel struct {
	ID            string          `json:"id"`
	Lines         []pricing.Line  `json:"lines"`
	ItemCount     int             `json:"item_count"`
	Pricing       *pricing.Result `json:"pricing"`
	Points        loyalty.Result  `json:"points"`
	SpecialDay    bool            `json:"special_day"`
	StockWarnings []string        `json:"stock_warnings"`
	TotalStock    int             `json:"total_stock"`
	LowTotalStock bool            `json:"low_total_stock"`
}
