package command

import (
	"context"
	"time"

	"github.com/example/promo-cart/internal/domain/cart"
	"github.com/example/promo-cart/internal/infrastructure/store"
	"github.com/example/promo-cart/internal/promotion"
	"github.com/example/promo-cart/internal/session"
	"go.uber.org/zap"
)

// Handler applies cart commands to the session and journals the outcome.
// The in-memory session is authoritative: a journal failure after a
// successful mutation is logged and never rolls the mutation back.
type Handler struct {
	sess    *session.Session
	journal store.EventStoreInterface
	log     *zap.Logger
	now     func() time.Time
}

func NewHandler(sess *session.Session, journal store.EventStoreInterface, log *zap.Logger) *Handler {
	return &Handler{
		sess:    sess,
		journal: journal,
		log:     log.Named("cart"),
		now:     time.Now,
	}
}

// AddToCart reserves stock for the product and marks it as the last selected
// one. It returns the line's new quantity.
func (h *Handler) AddToCart(ctx context.Context, cmd AddToCart) (int, error) {
	qty := cmd.Quantity
	var added cart.ItemAddedToCart
	var newQty int
	err := h.sess.Update(func(st *session.State) error {
		n, err := st.Cart.Add(st.Catalog, cmd.ProductID, qty)
		if err != nil {
			return err
		}
		st.LastSelected = cmd.ProductID
		newQty = n

		p, _ := st.Catalog.FindByID(cmd.ProductID)
		added = cart.ItemAddedToCart{
			CartID:    st.Cart.ID,
			ProductID: cmd.ProductID,
			Quantity:  qty,
			Price:     p.CurrentPrice,
			AddedAt:   h.now(),
		}
		return nil
	})
	if err != nil {
		h.log.Info("add rejected", zap.String("product_id", cmd.ProductID), zap.Int("quantity", qty), zap.Error(err))
		return 0, err
	}

	h.record(ctx, added.CartID, cart.AggregateType, cart.EventItemAdded, added)
	return newQty, nil
}

// ChangeQuantity moves a line by delta; a result of zero or below removes it.
func (h *Handler) ChangeQuantity(ctx context.Context, cmd ChangeQuantity) (int, error) {
	var changed cart.ItemQuantityChanged
	var removed *cart.ItemRemovedFromCart
	err := h.sess.Update(func(st *session.State) error {
		before := st.Cart.Quantity(cmd.ProductID)
		n, err := st.Cart.ChangeQuantity(st.Catalog, cmd.ProductID, cmd.Delta)
		if err != nil {
			return err
		}
		if n == 0 {
			removed = &cart.ItemRemovedFromCart{
				CartID:    st.Cart.ID,
				ProductID: cmd.ProductID,
				Quantity:  before,
				RemovedAt: h.now(),
			}
			return nil
		}
		changed = cart.ItemQuantityChanged{
			CartID:      st.Cart.ID,
			ProductID:   cmd.ProductID,
			Delta:       n - before,
			NewQuantity: n,
			ChangedAt:   h.now(),
		}
		return nil
	})
	if err != nil {
		h.log.Info("quantity change rejected", zap.String("product_id", cmd.ProductID), zap.Int("delta", cmd.Delta), zap.Error(err))
		return 0, err
	}

	if removed != nil {
		h.record(ctx, removed.CartID, cart.AggregateType, cart.EventItemRemoved, *removed)
		return 0, nil
	}
	if changed.Delta != 0 {
		h.record(ctx, changed.CartID, cart.AggregateType, cart.EventQuantityChanged, changed)
	}
	return changed.NewQuantity, nil
}

// RemoveFromCart returns the whole line to stock. Removing an absent product
// is a no-op.
func (h *Handler) RemoveFromCart(ctx context.Context, cmd RemoveFromCart) error {
	var removed cart.ItemRemovedFromCart
	err := h.sess.Update(func(st *session.State) error {
		n, err := st.Cart.Remove(st.Catalog, cmd.ProductID)
		if err != nil {
			return err
		}
		removed = cart.ItemRemovedFromCart{
			CartID:    st.Cart.ID,
			ProductID: cmd.ProductID,
			Quantity:  n,
			RemovedAt: h.now(),
		}
		return nil
	})
	if err != nil {
		return err
	}

	if removed.Quantity > 0 {
		h.record(ctx, removed.CartID, cart.AggregateType, cart.EventItemRemoved, removed)
	}
	return nil
}

// ClearCart empties the cart and returns the number of units restored.
func (h *Handler) ClearCart(ctx context.Context, _ ClearCart) (int, error) {
	var cleared cart.CartCleared
	err := h.sess.Update(func(st *session.State) error {
		n, err := st.Cart.Clear(st.Catalog)
		if err != nil {
			return err
		}
		cleared = cart.CartCleared{
			CartID:    st.Cart.ID,
			Restored:  n,
			ClearedAt: h.now(),
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if cleared.Restored > 0 {
		h.record(ctx, cleared.CartID, cart.AggregateType, cart.EventCartCleared, cleared)
	}
	return cleared.Restored, nil
}

// RecordPromotion journals a promotion notice emitted by the scheduler.
func (h *Handler) RecordPromotion(ctx context.Context, n promotion.Notice) {
	h.record(ctx, PromotionAggregateID(h.sess.ID), promotion.AggregateType, promotion.EventType(n.Kind), promotion.NewSaleStarted(h.sess.ID, n))
}

// History returns the session's cart and promotion journal in time order.
func (h *Handler) History(ctx context.Context) ([]store.Event, error) {
	cartEvents, err := h.journal.GetEvents(ctx, h.sess.CartID())
	if err != nil {
		return nil, err
	}
	promoEvents, err := h.journal.GetEvents(ctx, PromotionAggregateID(h.sess.ID))
	if err != nil {
		return nil, err
	}
	return mergeByTime(cartEvents, promoEvents), nil
}

// PromotionAggregateID is the journal aggregate for a session's promotions.
func PromotionAggregateID(sessionID string) string {
	return "promotion-" + sessionID
}

func (h *Handler) record(ctx context.Context, aggregateID, aggregateType, eventType string, data any) {
	if _, err := h.journal.Append(ctx, aggregateID, aggregateType, eventType, data); err != nil {
		h.log.Warn("journal append failed",
			zap.String("aggregate_id", aggregateID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func mergeByTime(a, b []store.Event) []store.Event {
	out := make([]store.Event, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if b[j].Timestamp.Before(a[i].Timestamp) {
			out = append(out, b[j])
			j++
		} else {
			out = append(out, a[i])
			i++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
