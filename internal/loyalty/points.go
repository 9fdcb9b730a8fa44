package loyalty

import (
	"fmt"
	"time"

	"github.com/example/promo-cart/internal/domain/cart"
	"github.com/example/promo-cart/internal/domain/catalog"
)

// Tier is a bulk-quantity bonus; only the highest tier reached applies.
type Tier struct {
	MinQuantity int
	Points      int
}

type Rules struct {
	SpendPerPoint int
	SpecialDay    time.Weekday

	PairIDs   [2]string
	PairBonus int

	// FullSetID earns FullSetBonus on top of the pair bonus.
	FullSetID    string
	FullSetBonus int

	// QuantityTiers are ordered highest first.
	QuantityTiers []Tier
}

func DefaultRules() Rules {
	return Rules{
		SpendPerPoint: 1000,
		SpecialDay:    time.Tuesday,
		PairIDs:       [2]string{catalog.KeyboardID, catalog.MouseID},
		PairBonus:     50,
		FullSetID:     catalog.MonitorArmID,
		FullSetBonus:  100,
		QuantityTiers: []Tier{
			{MinQuantity: 30, Points: 100},
			{MinQuantity: 20, Points: 50},
			{MinQuantity: 10, Points: 20},
		},
	}
}

type Bonus struct {
	Label  string `json:"label"`
	Points int    `json:"points"`
}

type Result struct {
	BasePoints  int     `json:"base_points"`
	Bonuses     []Bonus `json:"bonuses"`
	FinalPoints int     `json:"final_points"`
}

// Labels returns the human-readable breakdown in rule order.
func (r Result) Labels() []string {
	labels := make([]string, len(r.Bonuses))
	for i, b := range r.Bonuses {
		labels[i] = b.Label
	}
	return labels
}

type Engine struct {
	rules Rules
}

func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules}
}

// Compute awards points for finalTotal and the cart composition.
func (e *Engine) Compute(c *cart.Cart, finalTotal int, now time.Time) Result {
	res := Result{Bonuses: []Bonus{}}
	if c.IsEmpty() {
		return res
	}

	res.BasePoints = finalTotal / e.rules.SpendPerPoint
	points := res.BasePoints
	if res.BasePoints > 0 {
		res.Bonuses = append(res.Bonuses, Bonus{
			Label:  fmt.Sprintf("기본: %dp", res.BasePoints),
			Points: res.BasePoints,
		})
	}

	if now.Weekday() == e.rules.SpecialDay && res.BasePoints > 0 {
		points = res.BasePoints * 2
		res.Bonuses = append(res.Bonuses, Bonus{Label: "화요일 2배", Points: res.BasePoints})
	}

	if c.Quantity(e.rules.PairIDs[0]) > 0 && c.Quantity(e.rules.PairIDs[1]) > 0 {
		points += e.rules.PairBonus
		res.Bonuses = append(res.Bonuses, Bonus{
			Label:  fmt.Sprintf("키보드+마우스 세트 +%dp", e.rules.PairBonus),
			Points: e.rules.PairBonus,
		})
		if c.Quantity(e.rules.FullSetID) > 0 {
			points += e.rules.FullSetBonus
			res.Bonuses = append(res.Bonuses, Bonus{
				Label:  fmt.Sprintf("풀세트 구매 +%dp", e.rules.FullSetBonus),
				Points: e.rules.FullSetBonus,
			})
		}
	}

	total := c.TotalQuantity()
	for _, tier := range e.rules.QuantityTiers {
		if total >= tier.MinQuantity {
			points += tier.Points
			res.Bonuses = append(res.Bonuses, Bonus{
				Label:  fmt.Sprintf("대량구매(%d개+) +%dp", tier.MinQuantity, tier.Points),
				Points: tier.Points,
			})
			break
		}
	}

	res.FinalPoints = points
	return res
}
