package promotion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/promo-cart/internal/domain/catalog"
	"github.com/example/promo-cart/internal/session"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// stubRand always picks the same index and waits half the maximum delay.
type stubRand struct {
	index int
}

func (r *stubRand) Intn(n int) int {
	return r.index % n
}

func (r *stubRand) Int63n(n int64) int64 {
	return n / 2
}

func newTestScheduler(t *testing.T, index int) (*Scheduler, *session.Session, clockwork.FakeClock) {
	t.Helper()
	sess := session.New(catalog.Seed())
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC))
	s := New(sess, Options{
		Clock: clock,
		Rand:  &stubRand{index: index},
	})
	return s, sess, clock
}

func product(t *testing.T, sess *session.Session, id string) catalog.Product {
	t.Helper()
	var p catalog.Product
	var err error
	sess.View(func(st *session.State) {
		p, err = st.Catalog.FindByID(id)
	})
	require.NoError(t, err)
	return p
}

func selectProduct(sess *session.Session, id string) {
	_ = sess.Update(func(st *session.State) error {
		st.LastSelected = id
		return nil
	})
}

// ============================================
// Lightning Sale
// ============================================

func TestRunLightning_DiscountsRandomProduct(t *testing.T) {
	s, sess, clock := newTestScheduler(t, 0)

	n, ok := s.RunLightning()

	require.True(t, ok)
	assert.Equal(t, KindLightning, n.Kind)
	assert.Equal(t, catalog.KeyboardID, n.ProductID)
	assert.Equal(t, 10000, n.PreviousPrice)
	assert.Equal(t, 8000, n.Price)
	assert.Equal(t, 20, n.Percent)
	assert.Equal(t, clock.Now(), n.At)
	assert.Equal(t, "⚡번개세일! 버그 없애는 키보드이(가) 20% 할인 중입니다!", n.Message())

	p := product(t, sess, catalog.KeyboardID)
	assert.True(t, p.LightningSale)
	assert.Equal(t, 8000, p.CurrentPrice)
}

func TestRunLightning_SkipsIneligibleProducts(t *testing.T) {
	tests := []struct {
		name  string
		index int
		setup func(s *Scheduler)
	}{
		{
			name:  "out of stock",
			index: 3,
		},
		{
			name:  "already on lightning sale",
			index: 0,
			setup: func(s *Scheduler) {
				_, ok := s.RunLightning()
				require.True(t, ok)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, sess, _ := newTestScheduler(t, tt.index)
			if tt.setup != nil {
				tt.setup(s)
			}
			before := product(t, sess, catalog.SeedProducts()[tt.index].ID)

			_, ok := s.RunLightning()

			assert.False(t, ok)
			assert.Equal(t, before, product(t, sess, before.ID))
		})
	}
}

func TestRunLightning_RecomposesActiveSuggestion(t *testing.T) {
	s, sess, _ := newTestScheduler(t, 1)
	selectProduct(sess, catalog.KeyboardID)

	sn, ok := s.RunSuggestion()
	require.True(t, ok)
	require.Equal(t, catalog.MouseID, sn.ProductID)
	assert.Equal(t, 19000, sn.Price)

	ln, ok := s.RunLightning()

	require.True(t, ok)
	assert.Equal(t, 19000, ln.PreviousPrice)
	assert.Equal(t, 15200, ln.Price)
	assert.Equal(t, "SUPER SALE", product(t, sess, catalog.MouseID).SaleLabel())
}

// ============================================
// Suggestion Sale
// ============================================

func TestRunSuggestion_RequiresSelection(t *testing.T) {
	s, sess, _ := newTestScheduler(t, 0)

	_, ok := s.RunSuggestion()

	assert.False(t, ok)
	for _, p := range catalogProducts(sess) {
		assert.False(t, p.SuggestionSale, p.ID)
	}
}

func TestRunSuggestion_SkipsSelectedProduct(t *testing.T) {
	s, sess, _ := newTestScheduler(t, 0)
	selectProduct(sess, catalog.KeyboardID)

	n, ok := s.RunSuggestion()

	require.True(t, ok)
	assert.Equal(t, KindSuggestion, n.Kind)
	assert.Equal(t, catalog.MouseID, n.ProductID)
	assert.Equal(t, 19000, n.Price)
	assert.Equal(t, "💝 생산성 폭발 마우스은(는) 어떠세요? 지금 구매하시면 5% 추가 할인!", n.Message())
	assert.False(t, product(t, sess, catalog.KeyboardID).SuggestionSale)
}

func TestRunSuggestion_CompoundsOnLightningPrice(t *testing.T) {
	s, sess, _ := newTestScheduler(t, 1)
	_, ok := s.RunLightning()
	require.True(t, ok)
	selectProduct(sess, catalog.KeyboardID)

	n, ok := s.RunSuggestion()

	require.True(t, ok)
	assert.Equal(t, catalog.MouseID, n.ProductID)
	assert.Equal(t, 16000, n.PreviousPrice)
	assert.Equal(t, 15200, n.Price)
}

func TestRunSuggestion_WalksCatalogOnce(t *testing.T) {
	s, sess, _ := newTestScheduler(t, 0)
	selectProduct(sess, catalog.KeyboardID)

	var targets []string
	for i := 0; i < 5; i++ {
		n, ok := s.RunSuggestion()
		if !ok {
			break
		}
		targets = append(targets, n.ProductID)
	}

	// the pouch is sold out and the keyboard is selected
	assert.Equal(t, []string{catalog.MouseID, catalog.MonitorArmID, catalog.SpeakerID}, targets)
}

func catalogProducts(sess *session.Session) []catalog.Product {
	var products []catalog.Product
	sess.View(func(st *session.State) {
		products = st.Catalog.Products()
	})
	return products
}

// ============================================
// Lifecycle
// ============================================

func TestScheduler_StartStop(t *testing.T) {
	sess := session.New(catalog.Seed())
	clock := clockwork.NewFakeClock()
	notices := make(chan Notice, 8)
	s := New(sess, Options{
		Clock:    clock,
		Rand:     &stubRand{index: 0},
		OnNotice: func(n Notice) { notices <- n },
	})

	s.Start(context.Background())
	assert.True(t, s.Running())

	// both chains wait on their initial delay: 5s and 10s
	clock.BlockUntil(2)
	clock.Advance(5 * time.Second)
	// lightning now waits on its interval
	clock.BlockUntil(2)
	clock.Advance(30 * time.Second)

	select {
	case n := <-notices:
		assert.Equal(t, KindLightning, n.Kind)
		assert.Equal(t, catalog.KeyboardID, n.ProductID)
	case <-time.After(2 * time.Second):
		t.Fatal("lightning notice not delivered")
	}

	s.Stop()
	assert.False(t, s.Running())

	clock.Advance(10 * time.Minute)
	select {
	case n := <-notices:
		t.Fatalf("unexpected notice after stop: %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScheduler_NoTickBeforeFirstInterval(t *testing.T) {
	sess := session.New(catalog.Seed())
	clock := clockwork.NewFakeClock()
	notices := make(chan Notice, 8)
	s := New(sess, Options{
		Clock:    clock,
		Rand:     &stubRand{index: 0},
		OnNotice: func(n Notice) { notices <- n },
	})
	s.Start(context.Background())
	defer s.Stop()

	clock.BlockUntil(2)
	clock.Advance(5 * time.Second)
	clock.BlockUntil(2)
	clock.Advance(29 * time.Second)

	select {
	case n := <-notices:
		t.Fatalf("notice before first interval: %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 10000, product(t, sess, catalog.KeyboardID).CurrentPrice)
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s, _, _ := newTestScheduler(t, 0)

	s.Stop()
	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()
	s.Stop()

	assert.False(t, s.Running())
}

func TestNew_FillsDefaults(t *testing.T) {
	s := New(session.New(catalog.Seed()), Options{LightningPercent: 30})

	assert.Equal(t, 30, s.opts.LightningPercent)
	assert.Equal(t, 30*time.Second, s.opts.LightningInterval)
	assert.Equal(t, 60*time.Second, s.opts.SuggestionInterval)
	assert.Equal(t, 5, s.opts.SuggestionPercent)
	assert.NotNil(t, s.opts.Clock)
	assert.NotNil(t, s.opts.Rand)
}

// ============================================
// Tick Failures
// ============================================

type failingStore struct {
	err error
}

func (f failingStore) Update(func(st *session.State) error) error {
	return f.err
}

func TestRunTicks_LogStoreFailures(t *testing.T) {
	tests := []struct {
		name     string
		run      func(s *Scheduler) (Notice, bool)
		expected string
	}{
		{name: "lightning", run: (*Scheduler).RunLightning, expected: "lightning tick failed"},
		{name: "suggestion", run: (*Scheduler).RunSuggestion, expected: "suggestion tick failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.ErrorLevel)
			notified := false
			s := New(failingStore{err: errors.New("catalog corrupted")}, Options{
				Clock:    clockwork.NewFakeClock(),
				Rand:     &stubRand{},
				Logger:   zap.New(core),
				OnNotice: func(Notice) { notified = true },
			})

			_, ok := tt.run(s)

			assert.False(t, ok)
			assert.False(t, notified)
			entries := logs.FilterMessage(tt.expected).All()
			require.Len(t, entries, 1)
			assert.Equal(t, "catalog corrupted", entries[0].ContextMap()["error"])
		})
	}
}
