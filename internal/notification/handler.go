package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/promo-cart/internal/infrastructure/store"
	"github.com/example/promo-cart/internal/promotion"
	"go.uber.org/zap"
)

// Handler turns promotion notices and journal events into storefront alerts.
type Handler struct {
	feed Feed
	log  *zap.Logger
}

func NewHandler(feed Feed, log *zap.Logger) *Handler {
	return &Handler{
		feed: feed,
		log:  log.Named("notifier"),
	}
}

// Notify publishes a notice from the in-process scheduler. A feed failure is
// logged only; the promotion itself already happened.
func (h *Handler) Notify(ctx context.Context, n promotion.Notice) {
	if err := h.publish(ctx, n); err != nil {
		h.log.Warn("alert feed push failed", zap.Error(err))
	}
}

// PromotionHook builds the scheduler callback. Every notice is recorded; it is
// pushed to the feed directly only when no notifier will pick it up from the
// journal, so each promotion produces a single alert.
func (h *Handler) PromotionHook(ctx context.Context, record func(context.Context, promotion.Notice), viaJournal bool) func(promotion.Notice) {
	return func(n promotion.Notice) {
		if !viaJournal {
			h.Notify(ctx, n)
		}
		record(ctx, n)
	}
}

func (h *Handler) publish(ctx context.Context, n promotion.Notice) error {
	a := NewAlert(n)
	h.log.Info(a.Message,
		zap.String("kind", string(a.Kind)),
		zap.String("product_id", a.ProductID),
		zap.Int("price", a.Price),
	)
	if err := h.feed.Push(ctx, a); err != nil {
		return fmt.Errorf("push alert for %s: %w", a.ProductID, err)
	}
	return nil
}

// HandleEvent processes a journal event from Kafka.
func (h *Handler) HandleEvent(ctx context.Context, _, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		h.log.Error("unmarshal event", zap.Error(err))
		return err
	}
	return h.HandleJournalEvent(ctx, event)
}

// HandleJournalEvent raises an alert for promotion events and ignores the
// rest of the journal. Feed failures are returned so the caller can retry.
func (h *Handler) HandleJournalEvent(ctx context.Context, event store.Event) error {
	if event.AggregateType != promotion.AggregateType {
		return nil
	}

	var started promotion.SaleStarted
	if err := event.Decode(&started); err != nil {
		h.log.Error("decode promotion event", zap.String("event_id", event.ID), zap.Error(err))
		return err
	}
	n, ok := promotion.NoticeFromEvent(event.EventType, started)
	if !ok {
		h.log.Debug("unknown promotion event", zap.String("event_type", event.EventType))
		return nil
	}

	return h.publish(ctx, n)
}

// Recent returns the newest alerts first.
func (h *Handler) Recent(ctx context.Context) ([]Alert, error) {
	return h.feed.Recent(ctx)
}
