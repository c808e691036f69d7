package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erazemk/galerija/internal/client"
	"github.com/erazemk/galerija/internal/model"
)

// OrderView serves the admin reporting screens: the flat per-order rows and
// the server-side per-user grouping.
type OrderView struct {
	c *client.Client

	mu sync.Mutex
	tracker
	rowSeq    uint64
	groupSeq  uint64
	rows      []model.OrderUserRow
	groups    []model.UserOrderGroup
	lastFetch time.Time
}

// NewOrderView creates the reporting store.
func NewOrderView(c *client.Client) *OrderView {
	return &OrderView{c: c}
}

// Fetch loads the flat order-with-user rows.
func (s *OrderView) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.pend()
	s.rowSeq++
	ticket := s.rowSeq
	s.mu.Unlock()

	var rows []model.OrderUserRow
	err := s.c.Get(ctx, "/api/order-user-view/", &rows)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.rowSeq {
		return nil
	}
	if err != nil {
		s.reject(err)
		return fmt.Errorf("fetching order rows: %w", err)
	}
	s.fulfill()
	s.rows = rows
	s.lastFetch = time.Now()
	return nil
}

// FetchGrouped loads the server-side per-user grouping.
func (s *OrderView) FetchGrouped(ctx context.Context) error {
	s.mu.Lock()
	s.pend()
	s.groupSeq++
	ticket := s.groupSeq
	s.mu.Unlock()

	var groups []model.UserOrderGroup
	err := s.c.Get(ctx, "/api/order-user-view/grouped_by_user/", &groups)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.groupSeq {
		return nil
	}
	if err != nil {
		s.reject(err)
		return fmt.Errorf("fetching grouped orders: %w", err)
	}
	s.fulfill()
	s.groups = groups
	s.lastFetch = time.Now()
	return nil
}

// Rows returns a copy of the flat rows.
func (s *OrderView) Rows() []model.OrderUserRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OrderUserRow, len(s.rows))
	copy(out, s.rows)
	return out
}

// Groups returns a copy of the per-user groups.
func (s *OrderView) Groups() []model.UserOrderGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.UserOrderGroup, len(s.groups))
	copy(out, s.groups)
	return out
}

// LastFetch returns when either collection was last refreshed, zero if
// never.
func (s *OrderView) LastFetch() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFetch
}

// Loading reports whether a fetch is in flight.
func (s *OrderView) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the stored error.
func (s *OrderView) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
