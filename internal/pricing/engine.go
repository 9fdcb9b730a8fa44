package pricing

import (
	"fmt"
	"time"

	"github.com/example/promo-cart/internal/domain/cart"
	"github.com/example/promo-cart/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// Rules configures the discount pipeline.
type Rules struct {
	LineThreshold     int // quantity on one line that unlocks its product discount
	BulkThreshold     int // total quantity that replaces all line discounts
	BulkPercent       int
	SpecialDay        time.Weekday
	SpecialDayPercent int
}

func DefaultRules() Rules {
	return Rules{
		LineThreshold:     10,
		BulkThreshold:     30,
		BulkPercent:       25,
		SpecialDay:        time.Tuesday,
		SpecialDayPercent: 10,
	}
}

type Line struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	BasePrice int    `json:"base_price"`
	UnitPrice int    `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal int    `json:"line_total"`
	SaleLabel string `json:"sale_label,omitempty"`
}

type LineDiscount struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	RatePercent int    `json:"rate_percent"`
}

type Result struct {
	Lines                     []Line         `json:"lines"`
	Subtotal                  int            `json:"subtotal"`
	TotalQuantity             int            `json:"total_quantity"`
	IndividualDiscounts       []LineDiscount `json:"individual_discounts"`
	BulkDiscountApplied       bool           `json:"bulk_discount_applied"`
	SpecialDayDiscountApplied bool           `json:"special_day_discount_applied"`
	FinalTotal                int            `json:"final_total"`
	Savings                   int            `json:"savings"`
	DiscountRate              float64        `json:"discount_rate"`
}

type Engine struct {
	rules Rules
}

func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules}
}

func (e *Engine) Rules() Rules {
	return e.rules
}

// IsSpecialDay reports whether now falls on the special-discount weekday.
func (e *Engine) IsSpecialDay(now time.Time) bool {
	return now.Weekday() == e.rules.SpecialDay
}

// Compute prices the cart against current catalog prices. It only reads its
// inputs. A line whose product is missing from the catalog means the two have
// drifted apart and is reported as an error.
func (e *Engine) Compute(c *cart.Cart, cat *catalog.Catalog, now time.Time) (*Result, error) {
	res := &Result{
		Lines:               []Line{},
		IndividualDiscounts: []LineDiscount{},
	}

	subtotal := decimal.Zero
	afterIndividual := decimal.Zero
	for _, l := range c.Lines() {
		p, err := cat.FindByID(l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("price line %s: %w", l.ProductID, err)
		}
		lineTotal := decimal.NewFromInt(int64(p.CurrentPrice)).Mul(decimal.NewFromInt(int64(l.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		res.TotalQuantity += l.Quantity
		res.Lines = append(res.Lines, Line{
			ProductID: p.ID,
			Name:      p.Name,
			BasePrice: p.BasePrice,
			UnitPrice: p.CurrentPrice,
			Quantity:  l.Quantity,
			LineTotal: int(lineTotal.IntPart()),
			SaleLabel: p.SaleLabel(),
		})

		if l.Quantity >= e.rules.LineThreshold && p.DiscountPercent > 0 {
			res.IndividualDiscounts = append(res.IndividualDiscounts, LineDiscount{
				ProductID:   p.ID,
				Name:        p.Name,
				RatePercent: p.DiscountPercent,
			})
			lineTotal = lineTotal.Sub(lineTotal.Mul(percent(p.DiscountPercent)))
		}
		afterIndividual = afterIndividual.Add(lineTotal)
	}
	res.Subtotal = int(subtotal.IntPart())

	if res.TotalQuantity >= e.rules.BulkThreshold {
		res.IndividualDiscounts = []LineDiscount{}
		res.BulkDiscountApplied = true
		afterIndividual = subtotal.Mul(keep(e.rules.BulkPercent))
	}

	total := afterIndividual
	if e.IsSpecialDay(now) && total.IsPositive() {
		res.SpecialDayDiscountApplied = true
		total = total.Mul(keep(e.rules.SpecialDayPercent))
	}

	res.FinalTotal = int(total.Round(0).IntPart())
	res.Savings = res.Subtotal - res.FinalTotal
	if res.Subtotal > 0 {
		res.DiscountRate = decimal.NewFromInt(int64(res.Savings)).
			Div(decimal.NewFromInt(int64(res.Subtotal))).
			InexactFloat64()
	}
	return res, nil
}

func percent(p int) decimal.Decimal {
	return decimal.New(int64(p), -2)
}

func keep(p int) decimal.Decimal {
	return decimal.New(int64(100-p), -2)
}
