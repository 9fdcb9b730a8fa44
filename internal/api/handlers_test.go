package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/promo-cart/internal/command"
	"github.com/example/promo-cart/internal/domain/catalog"
	"github.com/example/promo-cart/internal/infrastructure/store"
	"github.com/example/promo-cart/internal/loyalty"
	"github.com/example/promo-cart/internal/notification"
	"github.com/example/promo-cart/internal/pricing"
	"github.com/example/promo-cart/internal/promotion"
	"github.com/example/promo-cart/internal/query"
	"github.com/example/promo-cart/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var monday = time.Date(2024, time.January, 1, 15, 0, 0, 0, time.UTC)

type testEnv struct {
	router *gin.Engine
	notif  *notification.Handler
	sess   *session.Session
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zaptest.NewLogger(t)
	sess := session.New(catalog.Seed())
	cmdHandler := command.NewHandler(sess, store.NewEventStore(nil), log)
	queryHandler := query.NewHandler(sess, pricing.NewEngine(pricing.DefaultRules()), loyalty.NewEngine(loyalty.DefaultRules())).
		WithClock(func() time.Time { return monday })
	notif := notification.NewHandler(notification.NewMemoryFeed(notification.DefaultFeedSize), log)

	return &testEnv{
		router: NewRouter(NewHandlers(cmdHandler, queryHandler, notif), []string{"*"}, log),
		notif:  notif,
		sess:   sess,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// ============================================
// Product Endpoint Tests
// ============================================

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetProducts(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/products", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	products := decode[[]query.ProductReadModel](t, rec)
	require.Len(t, products, 5)
	assert.Equal(t, catalog.KeyboardID, products[0].ID)
	assert.True(t, products[3].SoldOut)
}

func TestGetProduct(t *testing.T) {
	tests := []struct {
		name           string
		productID      string
		expectedStatus int
	}{
		{name: "existing product", productID: catalog.MouseID, expectedStatus: http.StatusOK},
		{name: "unknown product", productID: "p9", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			rec := env.do(t, http.MethodGet, "/products/"+tt.productID, nil)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

// ============================================
// Cart Endpoint Tests
// ============================================

func TestAddToCart(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "quantity defaults to one",
			body:           map[string]any{"product_id": catalog.KeyboardID},
			expectedStatus: http.StatusCreated,
			expectedBody:   `{"product_id":"p1","quantity":1}`,
		},
		{
			name:           "explicit quantity",
			body:           map[string]any{"product_id": catalog.KeyboardID, "quantity": 3},
			expectedStatus: http.StatusCreated,
			expectedBody:   `{"product_id":"p1","quantity":3}`,
		},
		{
			name:           "sold out product",
			body:           map[string]any{"product_id": catalog.PouchID},
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"error":"재고가 부족합니다."}`,
		},
		{
			name:           "more than in stock",
			body:           map[string]any{"product_id": catalog.SpeakerID, "quantity": 11},
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"error":"재고가 부족합니다."}`,
		},
		{
			name:           "unknown product",
			body:           map[string]any{"product_id": "p9"},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "zero quantity",
			body:           map[string]any{"product_id": catalog.KeyboardID, "quantity": 0},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing product id",
			body:           map[string]any{"quantity": 1},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			rec := env.do(t, http.MethodPost, "/cart/items", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, rec.Body.String())
			}
		})
	}
}

func TestGetCart(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": catalog.KeyboardID, "quantity": 2}).Code)

	rec := env.do(t, http.MethodGet, "/cart", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[query.CartReadModel](t, rec)
	assert.Equal(t, 2, summary.ItemCount)
	require.NotNil(t, summary.Pricing)
	assert.Equal(t, 20000, summary.Pricing.FinalTotal)
	assert.Equal(t, 108, summary.TotalStock)
}

func TestChangeQuantity(t *testing.T) {
	tests := []struct {
		name           string
		delta          int
		expectedStatus int
		expectedQty    int
	}{
		{name: "increase", delta: 1, expectedStatus: http.StatusOK, expectedQty: 3},
		{name: "decrease", delta: -1, expectedStatus: http.StatusOK, expectedQty: 1},
		{name: "down to zero removes", delta: -2, expectedStatus: http.StatusOK, expectedQty: 0},
		{name: "beyond stock", delta: 20, expectedStatus: http.StatusConflict, expectedQty: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": catalog.SpeakerID, "quantity": 2})

			rec := env.do(t, http.MethodPatch, "/cart/items/"+catalog.SpeakerID, map[string]any{"delta": tt.delta})

			assert.Equal(t, tt.expectedStatus, rec.Code)
			env.sess.View(func(st *session.State) {
				assert.Equal(t, tt.expectedQty, st.Cart.Quantity(catalog.SpeakerID))
			})
		})
	}
}

func TestChangeQuantity_NotInCart(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPatch, "/cart/items/"+catalog.MouseID, map[string]any{"delta": 1})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveFromCart(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": catalog.MouseID, "quantity": 4})

	rec := env.do(t, http.MethodDelete, "/cart/items/"+catalog.MouseID, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	env.sess.View(func(st *session.State) {
		assert.True(t, st.Cart.IsEmpty())
		p, err := st.Catalog.FindByID(catalog.MouseID)
		require.NoError(t, err)
		assert.Equal(t, 30, p.Stock)
	})
}

func TestClearCart(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": catalog.MouseID, "quantity": 4})
	env.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": catalog.KeyboardID, "quantity": 1})

	rec := env.do(t, http.MethodDelete, "/cart", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"restored":5}`, rec.Body.String())
}

func TestGetHistory(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": catalog.MouseID})
	env.do(t, http.MethodDelete, "/cart/items/"+catalog.MouseID, nil)

	rec := env.do(t, http.MethodGet, "/cart/history", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[[]store.Event](t, rec)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Version)
	assert.Equal(t, 2, events[1].Version)
}

// ============================================
// Alert Endpoint Tests
// ============================================

func TestGetAlerts(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	env.notif.Notify(context.Background(), promotion.Notice{
		Kind:        promotion.KindLightning,
		ProductID:   catalog.MouseID,
		ProductName: "생산성 폭발 마우스",
		Price:       16000,
		Percent:     20,
		At:          monday,
	})

	rec = env.do(t, http.MethodGet, "/alerts", nil)
	alerts := decode[[]notification.Alert](t, rec)
	require.Len(t, alerts, 1)
	assert.Equal(t, "⚡번개세일! 생산성 폭발 마우스이(가) 20% 할인 중입니다!", alerts[0].Message)
}
