package cart

import (
	"errors"
	"fmt"

	"github.com/example/promo-cart/internal/domain/catalog"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidProduct    = errors.New("product_id is required")
	ErrOutOfStock        = errors.New("product is out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotInCart         = errors.New("product is not in cart")
)

type Line struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Cart is an insertion-ordered list of lines. Every operation keeps the
// catalog's stock in step with the quantities held here, so
// stock + reserved equals the initial stock for every product.
type Cart struct {
	ID    string `json:"id"`
	lines []Line
}

func New(id string) *Cart {
	return &Cart{ID: id}
}

// GetCartID derives the journal aggregate id for a session.
func GetCartID(sessionID string) string {
	return "cart-" + sessionID
}

func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Quantity(productID string) int {
	if i := c.indexOf(productID); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

func (c *Cart) TotalQuantity() int {
	total := 0
	for _, l := range c.lines {
		total += l.Quantity
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) indexOf(productID string) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// Add reserves qty units of the product and returns the line's new quantity.
// A request larger than the remaining stock is rejected outright.
func (c *Cart) Add(cat *catalog.Catalog, productID string, qty int) (int, error) {
	if productID == "" {
		return 0, ErrInvalidProduct
	}
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	p, err := cat.FindByID(productID)
	if err != nil {
		return 0, err
	}
	if p.Stock == 0 {
		return 0, ErrOutOfStock
	}
	if qty > p.Stock {
		return 0, ErrInsufficientStock
	}
	if err := cat.DecrementStock(productID, qty); err != nil {
		return 0, fmt.Errorf("reserve %s: %w", productID, err)
	}

	if i := c.indexOf(productID); i >= 0 {
		c.lines[i].Quantity += qty
		return c.lines[i].Quantity, nil
	}
	c.lines = append(c.lines, Line{ProductID: productID, Quantity: qty})
	return qty, nil
}

// ChangeQuantity moves a line by delta and returns the new quantity. Reaching
// zero or below removes the line and returns 0.
func (c *Cart) ChangeQuantity(cat *catalog.Catalog, productID string, delta int) (int, error) {
	i := c.indexOf(productID)
	if i < 0 {
		return 0, ErrNotInCart
	}
	current := c.lines[i].Quantity
	if delta == 0 {
		return current, nil
	}
	if current+delta <= 0 {
		_, err := c.Remove(cat, productID)
		return 0, err
	}

	if delta > 0 {
		if err := cat.DecrementStock(productID, delta); err != nil {
			if errors.Is(err, catalog.ErrInsufficientStock) {
				return current, ErrInsufficientStock
			}
			return current, err
		}
	} else {
		if err := cat.IncrementStock(productID, -delta); err != nil {
			return current, err
		}
	}
	c.lines[i].Quantity = current + delta
	return c.lines[i].Quantity, nil
}

// Remove drops the line and returns its quantity to stock. Removing a product
// that is not in the cart is a no-op.
func (c *Cart) Remove(cat *catalog.Catalog, productID string) (int, error) {
	i := c.indexOf(productID)
	if i < 0 {
		return 0, nil
	}
	qty := c.lines[i].Quantity
	if err := cat.IncrementStock(productID, qty); err != nil {
		return 0, fmt.Errorf("restore %s: %w", productID, err)
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return qty, nil
}

// Clear removes every line and returns the number of units restored.
func (c *Cart) Clear(cat *catalog.Catalog) (int, error) {
	restored := 0
	for len(c.lines) > 0 {
		qty, err := c.Remove(cat, c.lines[0].ProductID)
		if err != nil {
			return restored, err
		}
		restored += qty
	}
	return restored, nil
}
