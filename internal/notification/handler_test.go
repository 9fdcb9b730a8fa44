package notification

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/example/promo-cart/internal/command"
	"github.com/example/promo-cart/internal/domain/cart"
	"github.com/example/promo-cart/internal/domain/catalog"
	"github.com/example/promo-cart/internal/infrastructure/store"
	"github.com/example/promo-cart/internal/promotion"
	"github.com/example/promo-cart/internal/session"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func lightningNotice(productID, name string, price int) promotion.Notice {
	return promotion.Notice{
		Kind:          promotion.KindLightning,
		ProductID:     productID,
		ProductName:   name,
		BasePrice:     price,
		PreviousPrice: price,
		Price:         price * 8 / 10,
		Percent:       20,
		At:            time.Date(2024, time.January, 2, 10, 0, 0, 0, time.UTC),
	}
}

func journalValue(t *testing.T, aggregateType, eventType string, data any) []byte {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	value, err := json.Marshal(store.Event{
		ID:            uuid.New().String(),
		AggregateID:   "agg-1",
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          payload,
		Timestamp:     time.Now(),
		Version:       1,
	})
	require.NoError(t, err)
	return value
}

// ============================================
// Memory Feed Tests
// ============================================

func TestMemoryFeed_NewestFirstAndCapped(t *testing.T) {
	feed := NewMemoryFeed(3)
	ctx := context.Background()

	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		require.NoError(t, feed.Push(ctx, Alert{ProductID: id}))
	}

	alerts, err := feed.Recent(ctx)
	require.NoError(t, err)
	ids := make([]string, len(alerts))
	for i, a := range alerts {
		ids[i] = a.ProductID
	}
	assert.Equal(t, []string{"p4", "p3", "p2"}, ids)
}

func TestMemoryFeed_Empty(t *testing.T) {
	alerts, err := NewMemoryFeed(0).Recent(context.Background())

	require.NoError(t, err)
	assert.Empty(t, alerts)
}

// ============================================
// Handler Tests
// ============================================

func TestHandler_Notify(t *testing.T) {
	feed := NewMemoryFeed(5)
	h := NewHandler(feed, zaptest.NewLogger(t))

	h.Notify(context.Background(), lightningNotice("p2", "생산성 폭발 마우스", 20000))

	alerts, err := h.Recent(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "⚡번개세일! 생산성 폭발 마우스이(가) 20% 할인 중입니다!", alerts[0].Message)
	assert.Equal(t, 16000, alerts[0].Price)
}

func TestHandler_HandleEvent(t *testing.T) {
	n := lightningNotice("p3", "거북목 탈출 모니터암", 30000)
	suggestion := n
	suggestion.Kind = promotion.KindSuggestion
	suggestion.Percent = 5

	tests := []struct {
		name          string
		value         []byte
		wantErr       bool
		expectedAlert string
	}{
		{
			name:          "lightning sale",
			value:         journalValue(t, promotion.AggregateType, promotion.EventLightningSaleStarted, promotion.NewSaleStarted("s-1", n)),
			expectedAlert: "⚡번개세일! 거북목 탈출 모니터암이(가) 20% 할인 중입니다!",
		},
		{
			name:          "suggestion sale",
			value:         journalValue(t, promotion.AggregateType, promotion.EventSuggestionSaleStarted, promotion.NewSaleStarted("s-1", suggestion)),
			expectedAlert: "💝 거북목 탈출 모니터암은(는) 어떠세요? 지금 구매하시면 5% 추가 할인!",
		},
		{
			name:  "cart events are ignored",
			value: journalValue(t, cart.AggregateType, cart.EventItemAdded, cart.ItemAddedToCart{ProductID: "p1", Quantity: 1}),
		},
		{
			name:  "unknown promotion event is ignored",
			value: journalValue(t, promotion.AggregateType, "PromotionEnded", promotion.SaleStarted{}),
		},
		{
			name:    "malformed message",
			value:   []byte("{"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := NewMemoryFeed(5)
			h := NewHandler(feed, zaptest.NewLogger(t))

			err := h.HandleEvent(context.Background(), []byte("agg-1"), tt.value)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			alerts, _ := feed.Recent(context.Background())
			if tt.expectedAlert == "" {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			assert.Equal(t, tt.expectedAlert, alerts[0].Message)
		})
	}
}

type failingFeed struct{}

func (failingFeed) Push(context.Context, Alert) error       { return errors.New("feed down") }
func (failingFeed) Recent(context.Context) ([]Alert, error) { return nil, errors.New("feed down") }

func TestHandler_FeedFailure(t *testing.T) {
	h := NewHandler(failingFeed{}, zaptest.NewLogger(t))
	n := lightningNotice("p2", "생산성 폭발 마우스", 20000)
	payload, err := json.Marshal(promotion.NewSaleStarted("s-1", n))
	require.NoError(t, err)
	event := store.Event{
		ID:            "e-1",
		AggregateType: promotion.AggregateType,
		EventType:     promotion.EventLightningSaleStarted,
		Data:          payload,
	}

	assert.NotPanics(t, func() { h.Notify(context.Background(), n) })
	assert.ErrorContains(t, h.HandleJournalEvent(context.Background(), event), "feed down")
}

// ============================================
// Single Delivery Tests
// ============================================

// journalForwarder hands every appended event to a notifier the way the Kafka
// consumer does.
type journalForwarder struct {
	notifier *Handler
}

func (f journalForwarder) Publish(ctx context.Context, key string, event any) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return f.notifier.HandleEvent(ctx, []byte(key), value)
}

func TestPromotionHook_OneAlertPerPromotion(t *testing.T) {
	tests := []struct {
		name       string
		viaJournal bool
		streamed   bool
	}{
		{name: "journal streamed to notifier", viaJournal: true, streamed: true},
		{name: "direct push without stream", viaJournal: false, streamed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			log := zaptest.NewLogger(t)
			feed := NewMemoryFeed(10)
			api := NewHandler(feed, log)
			notifier := NewHandler(feed, log)

			var publisher store.Publisher
			if tt.streamed {
				publisher = journalForwarder{notifier: notifier}
			}
			cmds := command.NewHandler(session.New(catalog.Seed()), store.NewEventStore(publisher), log)

			hook := api.PromotionHook(ctx, cmds.RecordPromotion, tt.viaJournal)
			hook(lightningNotice("p2", "생산성 폭발 마우스", 20000))

			alerts, err := feed.Recent(ctx)
			require.NoError(t, err)
			require.Len(t, alerts, 1)
			assert.Equal(t, "p2", alerts[0].ProductID)

			history, err := cmds.History(ctx)
			require.NoError(t, err)
			require.Len(t, history, 1)
			assert.Equal(t, promotion.EventLightningSaleStarted, history[0].EventType)
		})
	}
}

// ============================================
// Redis Feed Tests
// ============================================

func TestRedisFeed(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()
	key := "alerts-test-" + uuid.New().String()
	defer client.Del(ctx, key)

	feed := NewRedisFeed(client, key, 2)
	for _, id := range []string{"p1", "p2", "p3"} {
		require.NoError(t, feed.Push(ctx, NewAlert(lightningNotice(id, id, 10000))))
	}

	alerts, err := feed.Recent(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "p3", alerts[0].ProductID)
	assert.Equal(t, "p2", alerts[1].ProductID)
}
