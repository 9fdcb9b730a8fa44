package query

import (
	"fmt"
	"time"

	"github.com/example/promo-cart/internal/domain/catalog"
	"github.com/example/promo-cart/internal/loyalty"
	"github.com/example/promo-cart/internal/pricing"
	"github.com/example/promo-cart/internal/session"
)

type Handler struct {
	sess    *session.Session
	pricing *pricing.Engine
	loyalty *loyalty.Engine
	now     func() time.Time
}

func NewHandler(sess *session.Session, pricingEngine *pricing.Engine, loyaltyEngine *loyalty.Engine) *Handler {
	return &Handler{
		sess:    sess,
		pricing: pricingEngine,
		loyalty: loyaltyEngine,
		now:     time.Now,
	}
}

// WithClock overrides the time source used for special-day rules.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// Products
func (h *Handler) ListProducts() []ProductReadModel {
	var products []catalog.Product
	h.sess.View(func(st *session.State) {
		products = st.Catalog.Products()
	})

	out := make([]ProductReadModel, len(products))
	for i, p := range products {
		out[i] = toProductReadModel(p)
	}
	return out
}

func (h *Handler) GetProduct(id string) (ProductReadModel, error) {
	var p catalog.Product
	var err error
	h.sess.View(func(st *session.State) {
		p, err = st.Catalog.FindByID(id)
	})
	if err != nil {
		return ProductReadModel{}, err
	}
	return toProductReadModel(p), nil
}

// Cart
func (h *Handler) GetCart() (*CartReadModel, error) {
	now := h.now()
	var model *CartReadModel
	var err error
	h.sess.View(func(st *session.State) {
		var priced *pricing.Result
		priced, err = h.pricing.Compute(st.Cart, st.Catalog, now)
		if err != nil {
			err = fmt.Errorf("price cart %s: %w", st.Cart.ID, err)
			return
		}
		totalStock := st.Catalog.TotalStock()
		warnings := st.Catalog.StockWarnings()
		if warnings == nil {
			warnings = []string{}
		}
		model = &CartReadModel{
			ID:            st.Cart.ID,
			Lines:         priced.Lines,
			ItemCount:     priced.TotalQuantity,
			Pricing:       priced,
			Points:        h.loyalty.Compute(st.Cart, priced.FinalTotal, now),
			SpecialDay:    h.pricing.IsSpecialDay(now),
			StockWarnings: warnings,
			TotalStock:    totalStock,
			LowTotalStock: totalStock < catalog.LowTotalStockThreshold,
		}
	})
	return model, err
}

func toProductReadModel(p catalog.Product) ProductReadModel {
	return ProductReadModel{
		ID:              p.ID,
		Name:            p.Name,
		BasePrice:       p.BasePrice,
		CurrentPrice:    p.CurrentPrice,
		Stock:           p.Stock,
		DiscountPercent: p.DiscountPercent,
		LightningSale:   p.LightningSale,
		SuggestionSale:  p.SuggestionSale,
		SaleLabel:       p.SaleLabel(),
		SoldOut:         p.Stock == 0,
	}
}
