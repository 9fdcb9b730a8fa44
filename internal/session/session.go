package session

import (
	"sync"

	"github.com/example/promo-cart/internal/domain/cart"
	"github.com/example/promo-cart/internal/domain/catalog"
	"github.com/google/uuid"
)

// State is the shared mutable shopping state. It must only be touched inside
// Session.Update or Session.View.
type State struct {
	Catalog *catalog.Catalog
	Cart    *cart.Cart
	// LastSelected is the product most recently added to the cart; the
	// suggestion sale never targets it.
	LastSelected string
}

// Session owns one shopper's catalog and cart for the lifetime of the process.
// User commands and promotion ticks are serialized through it, so every
// operation runs to completion before the next one observes the state.
type Session struct {
	ID string

	mu    sync.Mutex
	state State
}

func New(cat *catalog.Catalog) *Session {
	id := uuid.New().String()
	return &Session{
		ID: id,
		state: State{
			Catalog: cat,
			Cart:    cart.New(cart.GetCartID(id)),
		},
	}
}

func (s *Session) CartID() string {
	return s.state.Cart.ID
}

// Update runs fn with exclusive access to the state.
func (s *Session) Update(fn func(st *State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.state)
}

// View runs fn with exclusive access; fn must not mutate the state.
func (s *Session) View(fn func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}
