package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidProduct    = errors.New("invalid product")
)

const (
	// LowStockThreshold marks a product as nearly sold out.
	LowStockThreshold = 5
	// LowTotalStockThreshold marks the whole catalog as running low.
	LowTotalStockThreshold = 50
)

type Product struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	BasePrice       int    `json:"base_price"`
	CurrentPrice    int    `json:"current_price"`
	Stock           int    `json:"stock"`
	DiscountPercent int    `json:"discount_percent"` // individual discount for lines of 10+
	LightningSale   bool   `json:"lightning_sale"`
	SuggestionSale  bool   `json:"suggestion_sale"`

	suggestionPercent int
}

// SaleLabel returns the badge shown next to a discounted product.
func (p Product) SaleLabel() string {
	switch {
	case p.LightningSale && p.SuggestionSale:
		return "SUPER SALE"
	case p.LightningSale:
		return "번개세일"
	case p.SuggestionSale:
		return "추천할인"
	}
	return ""
}

func (p Product) validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidProduct)
	}
	if p.BasePrice <= 0 {
		return fmt.Errorf("%w: %s base price must be positive", ErrInvalidProduct, p.ID)
	}
	if p.CurrentPrice <= 0 || p.CurrentPrice > p.BasePrice {
		return fmt.Errorf("%w: %s current price out of range", ErrInvalidProduct, p.ID)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: %s stock must not be negative", ErrInvalidProduct, p.ID)
	}
	if p.DiscountPercent < 0 || p.DiscountPercent > 100 {
		return fmt.Errorf("%w: %s discount percent out of range", ErrInvalidProduct, p.ID)
	}
	return nil
}

// Catalog holds products in seed order. It is not safe for concurrent use;
// callers serialize access through session.Session.
type Catalog struct {
	products []*Product
	index    map[string]*Product
}

func New(products ...Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]*Product, 0, len(products)),
		index:    make(map[string]*Product, len(products)),
	}
	for _, p := range products {
		if p.CurrentPrice == 0 {
			p.CurrentPrice = p.BasePrice
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, ok := c.index[p.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidProduct, p.ID)
		}
		prod := p
		c.products = append(c.products, &prod)
		c.index[p.ID] = &prod
	}
	return c, nil
}

func (c *Catalog) FindByID(id string) (Product, error) {
	p, ok := c.index[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return *p, nil
}

// Products returns copies of all products in catalog order.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	for i, p := range c.products {
		out[i] = *p
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.products)
}

func (c *Catalog) DecrementStock(id string, n int) error {
	if n <= 0 {
		return ErrInvalidQuantity
	}
	p, ok := c.index[id]
	if !ok {
		return ErrProductNotFound
	}
	if n > p.Stock {
		return ErrInsufficientStock
	}
	p.Stock -= n
	return nil
}

func (c *Catalog) IncrementStock(id string, n int) error {
	if n <= 0 {
		return ErrInvalidQuantity
	}
	p, ok := c.index[id]
	if !ok {
		return ErrProductNotFound
	}
	p.Stock += n
	return nil
}

func (c *Catalog) TotalStock() int {
	total := 0
	for _, p := range c.products {
		total += p.Stock
	}
	return total
}

// StockWarnings lists products under LowStockThreshold in catalog order.
func (c *Catalog) StockWarnings() []string {
	var warnings []string
	for _, p := range c.products {
		if p.Stock >= LowStockThreshold {
			continue
		}
		if p.Stock > 0 {
			warnings = append(warnings, fmt.Sprintf("%s: 재고 부족 (%d개 남음)", p.Name, p.Stock))
		} else {
			warnings = append(warnings, fmt.Sprintf("%s: 품절", p.Name))
		}
	}
	return warnings
}

// StartLightningSale prices the product at base minus percent. An active
// suggestion discount is re-applied on top so the two always compose in the
// same order. The caller checks eligibility.
func (c *Catalog) StartLightningSale(id string, percent int) (Product, error) {
	p, ok := c.index[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	price := Discount(p.BasePrice, percent)
	if p.SuggestionSale {
		price = Discount(price, p.suggestionPercent)
	}
	p.CurrentPrice = price
	p.LightningSale = true
	return *p, nil
}

// StartSuggestionSale takes percent off the current, possibly already
// discounted, price.
func (c *Catalog) StartSuggestionSale(id string, percent int) (Product, error) {
	p, ok := c.index[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	p.CurrentPrice = Discount(p.CurrentPrice, percent)
	p.SuggestionSale = true
	p.suggestionPercent = percent
	return *p, nil
}

// Discount returns price reduced by percent, rounded half away from zero.
func Discount(price, percent int) int {
	keep := decimal.NewFromInt(int64(100 - percent)).Div(decimal.NewFromInt(100))
	discounted := int(decimal.NewFromInt(int64(price)).Mul(keep).Round(0).IntPart())
	if discounted < 1 {
		return 1
	}
	return discounted
}
