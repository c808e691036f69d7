package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/galerija/internal/checkout"
	"github.com/erazemk/galerija/internal/client"
	"github.com/erazemk/galerija/internal/model"
	"github.com/erazemk/galerija/internal/payment"
)

// RemovedOrder is an undo-buffer entry: the full order snapshot plus the
// removal timestamp.
type RemovedOrder struct {
	Order     model.Order
	RemovedAt time.Time
}

// Orders is the order store, including the admin optimistic-removal and
// undo-buffer workflow. An order id lives in exactly one of the committed
// visible collection and the undo buffer; a speculative re-insert after a
// failed restore is tagged Unsynced and excluded from the committed set
// until a refetch reconciles it.
type Orders struct {
	c         *client.Client
	tokenizer payment.Tokenizer

	mu sync.Mutex
	tracker
	listSeq uint64
	itemSeq uint64
	orders  []model.Order
	current *model.Order

	paymentLoading bool
	paymentErr     error
	paymentDone    bool

	undo     []RemovedOrder
	selected map[int64]struct{}
}

// NewOrders creates the order store. tokenizer may be nil when card payments
// are not configured.
func NewOrders(c *client.Client, tokenizer payment.Tokenizer) *Orders {
	return &Orders{c: c, tokenizer: tokenizer, selected: make(map[int64]struct{})}
}

// Fetch loads the order collection. Stale responses are dropped.
func (s *Orders) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.pend()
	s.listSeq++
	ticket := s.listSeq
	s.mu.Unlock()

	var orders []model.Order
	err := s.c.Get(ctx, "/api/orders/", &orders)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.listSeq {
		return nil
	}
	if err != nil {
		s.reject(err)
		return fmt.Errorf("fetching orders: %w", err)
	}
	s.fulfill()
	s.orders = orders
	return nil
}

// FetchByID loads one order into the current slot.
func (s *Orders) FetchByID(ctx context.Context, id int64) error {
	s.mu.Lock()
	s.pend()
	s.itemSeq++
	ticket := s.itemSeq
	s.mu.Unlock()

	var order model.Order
	err := s.c.Get(ctx, fmt.Sprintf("/api/orders/%d/", id), &order)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.itemSeq {
		return nil
	}
	if err != nil {
		s.reject(err)
		return fmt.Errorf("fetching order %d: %w", id, err)
	}
	s.fulfill()
	s.current = &order
	return nil
}

// Checkout validates the form client-side, creates the order from the
// current cart, and appends the server's representation. Validation failures
// never reach the network.
func (s *Orders) Checkout(ctx context.Context, form checkout.Form) (*model.Order, error) {
	if errs := form.Validate(); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	s.mu.Lock()
	s.pend()
	s.mu.Unlock()

	var order model.Order
	err := s.c.Post(ctx, "/api/orders/checkout/", form.Payload(), &order)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.reject(err)
		return nil, fmt.Errorf("checking out: %w", err)
	}
	s.fulfill()
	s.orders = append(s.orders, order)
	s.current = &order
	return &order, nil
}

// ProcessPayment tokenizes the card and requests payment for a pending
// order. Success marks the order paid locally with the payment timestamp.
func (s *Orders) ProcessPayment(ctx context.Context, orderID int64, card payment.Card) error {
	if s.tokenizer == nil {
		return errors.New("card payments are not configured")
	}

	s.mu.Lock()
	s.paymentLoading = true
	s.paymentDone = false
	s.mu.Unlock()

	token, err := s.tokenizer.Tokenize(ctx, card)
	if err != nil {
		s.failPayment(err)
		return fmt.Errorf("tokenizing card: %w", err)
	}

	err = s.c.Post(ctx, fmt.Sprintf("/api/orders/%d/process_payment/", orderID),
		map[string]string{"token": token}, nil)
	if err != nil {
		s.failPayment(err)
		return fmt.Errorf("processing payment for order %d: %w", orderID, err)
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paymentLoading = false
	s.paymentErr = nil
	s.paymentDone = true
	for i := range s.orders {
		if s.orders[i].ID == orderID {
			s.orders[i].Status = model.OrderStatusPaid
			s.orders[i].PaidAt = &now
		}
	}
	if s.current != nil && s.current.ID == orderID {
		s.current.Status = model.OrderStatusPaid
		s.current.PaidAt = &now
	}
	return nil
}

// UpdateStatus requests a status transition (admin). The server stays
// authoritative; the returned representation replaces the match by id.
func (s *Orders) UpdateStatus(ctx context.Context, orderID int64, status string) error {
	s.mu.Lock()
	s.pend()
	s.mu.Unlock()

	var updated model.Order
	err := s.c.Patch(ctx, fmt.Sprintf("/api/orders/%d/", orderID),
		map[string]string{"status": status}, &updated)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.reject(err)
		return fmt.Errorf("updating order %d status: %w", orderID, err)
	}
	s.fulfill()
	for i := range s.orders {
		if s.orders[i].ID == updated.ID {
			s.orders[i] = updated
			break
		}
	}
	s.current = &updated
	return nil
}

// Remove optimistically removes the given orders: each target is
// snapshotted into the undo buffer, dropped from the visible collection and
// the selection set, then one delete call per id is issued concurrently.
// After all calls settle, orders whose delete failed are put back into the
// visible collection, dropped from the buffer, and the combined error is
// surfaced; successes stay removed. Ids not currently visible are no-ops,
// and an Unsynced copy left by a failed restore is dropped locally without
// another delete call or buffer entry.
func (s *Orders) Remove(ctx context.Context, ids ...int64) error {
	now := time.Now()

	s.mu.Lock()
	var targets []model.Order
	for _, id := range ids {
		idx := s.indexLocked(id)
		if idx < 0 {
			continue
		}
		order := s.orders[idx]
		s.orders = append(s.orders[:idx], s.orders[idx+1:]...)
		delete(s.selected, id)
		if s.bufferedLocked(id) {
			// A failed restore left this copy behind; the server-side
			// order is already gone, so only the local copy is dropped.
			continue
		}
		targets = append(targets, order)
		s.undo = append(s.undo, RemovedOrder{Order: order, RemovedAt: now})
	}
	if len(targets) > 0 {
		s.pend()
	}
	s.mu.Unlock()

	if len(targets) == 0 {
		return nil
	}

	results := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, order := range targets {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			results[i] = s.c.Delete(ctx, fmt.Sprintf("/api/orders/%d/", id))
		}(i, order.ID)
	}
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	var failed []error
	for i, err := range results {
		if err == nil {
			continue
		}
		order := targets[i]
		s.undo = dropBuffered(s.undo, order.ID)
		s.orders = append(s.orders, order)
		failed = append(failed, fmt.Errorf("order %d: %w", order.ID, err))
	}
	if len(failed) > 0 {
		err := fmt.Errorf("removing orders: %w", errors.Join(failed...))
		s.reject(err)
		return err
	}
	s.fulfill()
	return nil
}

// restoreRequest is the reconstructed payload for restore_order. The server
// assigns a fresh identity to the restored order.
type restoreRequest struct {
	User            int64              `json:"user"`
	ShippingAddress string             `json:"shipping_address"`
	BillingAddress  string             `json:"billing_address"`
	ShippingData    model.Address      `json:"shipping_address_data"`
	BillingData     model.Address      `json:"billing_address_data"`
	PaymentMethod   string             `json:"payment_method"`
	TotalPrice      model.Money        `json:"total_price"`
	Status          string             `json:"status"`
	Items           []restoreOrderItem `json:"items"`
}

type restoreOrderItem struct {
	ArtPictureID int64       `json:"art_picture_id"`
	Quantity     int         `json:"quantity"`
	Price        model.Money `json:"price"`
}

func buildRestoreRequest(order model.Order) restoreRequest {
	defaultAddr := model.Address{Country: "United States"}
	req := restoreRequest{
		User:            order.User,
		ShippingAddress: order.ShippingAddress,
		BillingAddress:  order.BillingAddress,
		ShippingData:    defaultAddr,
		BillingData:     defaultAddr,
		PaymentMethod:   order.PaymentMethod,
		TotalPrice:      order.TotalPrice,
		Status:          order.Status,
	}
	if order.ShippingData != nil {
		req.ShippingData = *order.ShippingData
	}
	if order.BillingData != nil {
		req.BillingData = *order.BillingData
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = model.PaymentMethodCreditCard
	}
	if req.Status == "" {
		req.Status = model.OrderStatusPending
	}
	for _, item := range order.Items {
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		req.Items = append(req.Items, restoreOrderItem{
			ArtPictureID: item.ArtPicture.ID,
			Quantity:     quantity,
			Price:        item.Price,
		})
	}
	return req
}

// Undo restores a buffered order: a reconstructed payload goes to
// restore_order, and on success the entry leaves the buffer and the full
// collection is refetched (the restored order carries a new server id). On
// failure the entry stays buffered and a copy is speculatively re-inserted
// tagged Unsynced.
func (s *Orders) Undo(ctx context.Context, id int64) error {
	s.mu.Lock()
	var snapshot *RemovedOrder
	for i := range s.undo {
		if s.undo[i].Order.ID == id {
			snapshot = &s.undo[i]
			break
		}
	}
	if snapshot == nil {
		s.mu.Unlock()
		return fmt.Errorf("order %d is not in the undo buffer", id)
	}
	req := buildRestoreRequest(snapshot.Order)
	fallback := snapshot.Order
	s.mu.Unlock()

	var restored model.Order
	if err := s.c.Post(ctx, "/api/orders/restore_order/", req, &restored); err != nil {
		slog.Warn("order restore failed, keeping undo entry", "order", id, "error", err)
		s.mu.Lock()
		if s.indexLocked(id) < 0 {
			fallback.Unsynced = true
			s.orders = append(s.orders, fallback)
		}
		s.mu.Unlock()
		return fmt.Errorf("restoring order %d: %w", id, err)
	}

	s.mu.Lock()
	s.undo = dropBuffered(s.undo, id)
	s.mu.Unlock()

	return s.Fetch(ctx)
}

func dropBuffered(buf []RemovedOrder, id int64) []RemovedOrder {
	kept := buf[:0]
	for _, entry := range buf {
		if entry.Order.ID != id {
			kept = append(kept, entry)
		}
	}
	return kept
}

func (s *Orders) bufferedLocked(id int64) bool {
	for i := range s.undo {
		if s.undo[i].Order.ID == id {
			return true
		}
	}
	return false
}

func (s *Orders) indexLocked(id int64) int {
	for i := range s.orders {
		if s.orders[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Orders) failPayment(err error) {
	s.mu.Lock()
	s.paymentLoading = false
	s.paymentErr = err
	s.paymentDone = false
	s.mu.Unlock()
}

// Select adds an order to the selection set.
func (s *Orders) Select(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(id) >= 0 {
		s.selected[id] = struct{}{}
	}
}

// Deselect drops an order from the selection set.
func (s *Orders) Deselect(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selected, id)
}

// SelectAll selects every visible order, or clears the selection when every
// visible order is already selected.
func (s *Orders) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.selected) == len(s.orders) && len(s.orders) > 0 {
		s.selected = make(map[int64]struct{})
		return
	}
	for _, order := range s.orders {
		s.selected[order.ID] = struct{}{}
	}
}

// Selected returns the selected order ids.
func (s *Orders) Selected() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.selected))
	for id := range s.selected {
		out = append(out, id)
	}
	return out
}

// Orders returns a copy of the visible collection, Unsynced entries
// included.
func (s *Orders) Orders() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// Committed returns the visible orders excluding Unsynced speculative
// re-inserts.
func (s *Orders) Committed() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Order, 0, len(s.orders))
	for _, order := range s.orders {
		if !order.Unsynced {
			out = append(out, order)
		}
	}
	return out
}

// Undoable returns a copy of the undo buffer.
func (s *Orders) Undoable() []RemovedOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RemovedOrder, len(s.undo))
	copy(out, s.undo)
	return out
}

// Current returns the current order, or nil.
func (s *Orders) Current() *model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	order := *s.current
	return &order
}

// ClearCurrent drops the current-order slot.
func (s *Orders) ClearCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// PaymentStatus returns the payment operation's loading flag, stored error,
// and success flag.
func (s *Orders) PaymentStatus() (loading bool, err error, done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paymentLoading, s.paymentErr, s.paymentDone
}

// ClearPaymentStatus resets the payment flags.
func (s *Orders) ClearPaymentStatus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paymentLoading = false
	s.paymentErr = nil
	s.paymentDone = false
}

// Loading reports whether an operation is in flight.
func (s *Orders) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the stored error, unflattened.
func (s *Orders) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
