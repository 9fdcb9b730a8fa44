package promotion

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/example/promo-cart/internal/session"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Store serializes access to the shopping state.
type Store interface {
	Update(fn func(st *session.State) error) error
}

// Random is the subset of *rand.Rand the scheduler draws from.
type Random interface {
	Intn(n int) int
	Int63n(n int64) int64
}

type Options struct {
	Clock  clockwork.Clock
	Rand   Random
	Logger *zap.Logger

	LightningMaxDelay time.Duration
	LightningInterval time.Duration
	LightningPercent  int

	SuggestionMaxDelay time.Duration
	SuggestionInterval time.Duration
	SuggestionPercent  int

	// OnNotice is called after every successful promotion, outside the
	// state lock.
	OnNotice func(Notice)
}

func DefaultOptions() Options {
	return Options{
		LightningMaxDelay:  10 * time.Second,
		LightningInterval:  30 * time.Second,
		LightningPercent:   20,
		SuggestionMaxDelay: 20 * time.Second,
		SuggestionInterval: 60 * time.Second,
		SuggestionPercent:  5,
	}
}

// Scheduler runs the lightning and suggestion sale timers. Each chain waits a
// random initial delay and then ticks at a fixed interval until Stop.
type Scheduler struct {
	store Store
	opts  Options
	log   *zap.Logger

	randMu sync.Mutex

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

func New(store Store, opts Options) *Scheduler {
	defaults := DefaultOptions()
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.LightningMaxDelay <= 0 {
		opts.LightningMaxDelay = defaults.LightningMaxDelay
	}
	if opts.LightningInterval <= 0 {
		opts.LightningInterval = defaults.LightningInterval
	}
	if opts.LightningPercent <= 0 {
		opts.LightningPercent = defaults.LightningPercent
	}
	if opts.SuggestionMaxDelay <= 0 {
		opts.SuggestionMaxDelay = defaults.SuggestionMaxDelay
	}
	if opts.SuggestionInterval <= 0 {
		opts.SuggestionInterval = defaults.SuggestionInterval
	}
	if opts.SuggestionPercent <= 0 {
		opts.SuggestionPercent = defaults.SuggestionPercent
	}
	return &Scheduler{
		store: store,
		opts:  opts,
		log:   opts.Logger.Named("promotion"),
	}
}

// Start launches both timer chains. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	lightningDelay := s.delay(s.opts.LightningMaxDelay)
	suggestionDelay := s.delay(s.opts.SuggestionMaxDelay)
	s.log.Info("scheduler started",
		zap.Duration("lightning_delay", lightningDelay),
		zap.Duration("suggestion_delay", suggestionDelay),
	)

	s.wg.Add(2)
	go s.loop(ctx, lightningDelay, s.opts.LightningInterval, s.RunLightning)
	go s.loop(ctx, suggestionDelay, s.opts.SuggestionInterval, s.RunSuggestion)
}

// Stop cancels the pending delay and interval of both chains and waits for
// them to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, delay, interval time.Duration, tick func() (Notice, bool)) {
	defer s.wg.Done()

	select {
	case <-ctx.Done():
		return
	case <-s.opts.Clock.After(delay):
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.opts.Clock.After(interval):
			tick()
		}
	}
}

// RunLightning performs one lightning-sale tick: a single random product is
// discounted if it is in stock and not already on a lightning sale.
func (s *Scheduler) RunLightning() (Notice, bool) {
	var notice Notice
	var ok bool
	err := s.store.Update(func(st *session.State) error {
		products := st.Catalog.Products()
		if len(products) == 0 {
			return nil
		}
		p := products[s.intn(len(products))]
		if p.Stock <= 0 || p.LightningSale {
			s.log.Debug("lightning tick skipped", zap.String("product_id", p.ID))
			return nil
		}
		updated, err := st.Catalog.StartLightningSale(p.ID, s.opts.LightningPercent)
		if err != nil {
			return err
		}
		notice = s.newNotice(KindLightning, p.CurrentPrice, updated.ID, updated.Name, updated.BasePrice, updated.CurrentPrice, s.opts.LightningPercent)
		ok = true
		return nil
	})
	if err != nil {
		s.log.Error("lightning tick failed", zap.Error(err))
		return Notice{}, false
	}
	if ok {
		s.notify(notice)
	}
	return notice, ok
}

// RunSuggestion performs one suggestion-sale tick: the first product other than
// the last selected one that is in stock and not yet suggested gets a further
// discount on its current price.
func (s *Scheduler) RunSuggestion() (Notice, bool) {
	var notice Notice
	var ok bool
	err := s.store.Update(func(st *session.State) error {
		if st.LastSelected == "" {
			return nil
		}
		for _, p := range st.Catalog.Products() {
			if p.ID == st.LastSelected || p.Stock <= 0 || p.SuggestionSale {
				continue
			}
			updated, err := st.Catalog.StartSuggestionSale(p.ID, s.opts.SuggestionPercent)
			if err != nil {
				return err
			}
			notice = s.newNotice(KindSuggestion, p.CurrentPrice, updated.ID, updated.Name, updated.BasePrice, updated.CurrentPrice, s.opts.SuggestionPercent)
			ok = true
			return nil
		}
		s.log.Debug("suggestion tick found no candidate", zap.String("last_selected", st.LastSelected))
		return nil
	})
	if err != nil {
		s.log.Error("suggestion tick failed", zap.Error(err))
		return Notice{}, false
	}
	if ok {
		s.notify(notice)
	}
	return notice, ok
}

func (s *Scheduler) newNotice(kind Kind, previous int, id, name string, base, price, percent int) Notice {
	return Notice{
		Kind:          kind,
		ProductID:     id,
		ProductName:   name,
		BasePrice:     base,
		PreviousPrice: previous,
		Price:         price,
		Percent:       percent,
		At:            s.opts.Clock.Now(),
	}
}

func (s *Scheduler) notify(n Notice) {
	s.log.Info("promotion started",
		zap.String("kind", string(n.Kind)),
		zap.String("product_id", n.ProductID),
		zap.Int("price", n.Price),
	)
	if s.opts.OnNotice != nil {
		s.opts.OnNotice(n)
	}
}

func (s *Scheduler) delay(max time.Duration) time.Duration {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return time.Duration(s.opts.Rand.Int63n(int64(max)))
}

func (s *Scheduler) intn(n int) int {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.opts.Rand.Intn(n)
}
