package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/erazemk/galerija/internal/client"
	"github.com/erazemk/galerija/internal/model"
)

// CartPersister saves the allow-listed cart snapshot for rehydration.
type CartPersister interface {
	SaveCart(cart *model.Cart) error
	ClearCart() error
}

// Cart is the shopping-cart store. Line subtotals and the total come from
// the server and are trusted as given; the one client-side rule is the
// quantity floor of 1.
type Cart struct {
	c       *client.Client
	persist CartPersister

	mu sync.Mutex
	tracker
	seq  uint64
	cart *model.Cart
}

// NewCart creates the cart store. persist may be nil.
func NewCart(c *client.Client, persist CartPersister) *Cart {
	return &Cart{c: c, persist: persist}
}

// Fetch loads the session's cart (created lazily server-side on first
// fetch). Stale responses are dropped.
func (s *Cart) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.pend()
	s.seq++
	ticket := s.seq
	s.mu.Unlock()

	var cart model.Cart
	err := s.c.Get(ctx, "/api/carts/my_cart/", &cart)

	s.mu.Lock()
	if ticket != s.seq {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.reject(err)
		s.mu.Unlock()
		return fmt.Errorf("fetching cart: %w", err)
	}
	s.fulfill()
	s.cart = &cart
	s.mu.Unlock()

	s.save()
	return nil
}

// AddItem adds quantity of an art picture; the server returns the full
// updated cart.
func (s *Cart) AddItem(ctx context.Context, artPictureID int64, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	s.pend()
	s.mu.Unlock()

	var cart model.Cart
	err := s.c.Post(ctx, "/api/carts/add_item/", map[string]any{
		"art_picture_id": artPictureID,
		"quantity":       quantity,
	}, &cart)

	s.mu.Lock()
	if err != nil {
		s.reject(err)
		s.mu.Unlock()
		return fmt.Errorf("adding cart item: %w", err)
	}
	s.fulfill()
	s.cart = &cart
	s.mu.Unlock()

	s.save()
	return nil
}

// UpdateQuantity sets a line's quantity. Requests below the floor of 1 are
// silently ignored before any network call.
func (s *Cart) UpdateQuantity(ctx context.Context, itemID int64, quantity int) error {
	if quantity < 1 {
		return nil
	}

	s.mu.Lock()
	s.pend()
	s.mu.Unlock()

	var cart model.Cart
	err := s.c.Post(ctx, "/api/carts/update_item_quantity/", map[string]any{
		"item_id":  itemID,
		"quantity": quantity,
	}, &cart)

	s.mu.Lock()
	if err != nil {
		s.reject(err)
		s.mu.Unlock()
		return fmt.Errorf("updating cart quantity: %w", err)
	}
	s.fulfill()
	s.cart = &cart
	s.mu.Unlock()

	s.save()
	return nil
}

// RemoveItem removes a line. The endpoint returns only the removed id, so
// the line is filtered locally and its subtotal deducted from the total.
func (s *Cart) RemoveItem(ctx context.Context, itemID int64) error {
	s.mu.Lock()
	s.pend()
	s.mu.Unlock()

	err := s.c.Post(ctx, "/api/carts/remove_item/", map[string]any{"item_id": itemID}, nil)

	s.mu.Lock()
	if err != nil {
		s.reject(err)
		s.mu.Unlock()
		return fmt.Errorf("removing cart item: %w", err)
	}
	s.fulfill()
	if s.cart != nil {
		kept := s.cart.Items[:0]
		for _, item := range s.cart.Items {
			if item.ID == itemID {
				s.cart.TotalPrice -= item.Subtotal
				continue
			}
			kept = append(kept, item)
		}
		s.cart.Items = kept
	}
	s.mu.Unlock()

	s.save()
	return nil
}

// Clear empties the cart server-side and locally.
func (s *Cart) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.pend()
	s.mu.Unlock()

	err := s.c.Post(ctx, "/api/carts/clear/", nil, nil)

	s.mu.Lock()
	if err != nil {
		s.reject(err)
		s.mu.Unlock()
		return fmt.Errorf("clearing cart: %w", err)
	}
	s.fulfill()
	if s.cart != nil {
		s.cart.Items = nil
		s.cart.TotalPrice = 0
	}
	s.mu.Unlock()

	s.save()
	return nil
}

// Reset drops local cart state (logout path); no network call.
func (s *Cart) Reset() {
	s.mu.Lock()
	s.fulfill()
	s.cart = nil
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.ClearCart(); err != nil {
			slog.Warn("clearing persisted cart", "error", err)
		}
	}
}

// Rehydrate restores a persisted cart snapshot.
func (s *Cart) Rehydrate(cart *model.Cart) {
	if cart == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = cart
}

func (s *Cart) save() {
	if s.persist == nil {
		return
	}
	s.mu.Lock()
	cart := s.cart
	s.mu.Unlock()
	if cart == nil {
		return
	}
	if err := s.persist.SaveCart(cart); err != nil {
		slog.Warn("persisting cart", "error", err)
	}
}

// Cart returns a copy of the current cart, or nil before the first fetch.
func (s *Cart) Cart() *model.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart == nil {
		return nil
	}
	cp := *s.cart
	cp.Items = make([]model.CartItem, len(s.cart.Items))
	copy(cp.Items, s.cart.Items)
	return &cp
}

// Loading reports whether an operation is in flight.
func (s *Cart) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the stored error, unflattened.
func (s *Cart) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
