package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/galerija/internal/apitest"
	"github.com/erazemk/galerija/internal/checkout"
	"github.com/erazemk/galerija/internal/client"
	"github.com/erazemk/galerija/internal/model"
	"github.com/erazemk/galerija/internal/payment"
)

type stubTokenizer struct {
	token string
	err   error
}

func (s stubTokenizer) Tokenize(context.Context, payment.Card) (string, error) {
	return s.token, s.err
}

func validForm() checkout.Form {
	return checkout.Form{
		Shipping: model.Address{
			Street:  "12 Gallery Row",
			City:    "Portland",
			State:   "OR",
			Zipcode: "97201",
			Country: "United States",
		},
		SameAsShipping: true,
		PaymentMethod:  model.PaymentMethodCreditCard,
	}
}

func TestCheckout(t *testing.T) {
	srv := apitest.New(t)
	user := srv.SeedUser("ana", "secret-password", "", false)
	pic := srv.SeedArt("Sunrise", 10, true)

	c, _ := testClient(t, srv, user)
	cart := NewCart(c, nil)
	orders := NewOrders(c, nil)
	ctx := context.Background()

	require.NoError(t, cart.AddItem(ctx, pic.ID, 2))

	order, err := orders.Checkout(ctx, validForm())
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	assert.NotEmpty(t, order.OrderNumber)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, model.Money(20), order.TotalPrice)
	require.Len(t, order.Items, 1)
	assert.Equal(t, pic.ID, order.Items[0].ArtPicture.ID)

	assert.Len(t, orders.Orders(), 1, "created order appended")
	require.NotNil(t, orders.Current())

	// The server emptied the cart at checkout.
	require.NoError(t, cart.Fetch(ctx))
	assert.Empty(t, cart.Cart().Items)
}

func TestCheckoutValidationShortCircuits(t *testing.T) {
	srv := apitest.New(t)
	user := srv.SeedUser("ana", "secret-password", "", false)

	c, _ := testClient(t, srv, user)
	orders := NewOrders(c, nil)

	_, err := orders.Checkout(context.Background(), checkout.Form{})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Zero(t, srv.Calls("POST /api/orders/checkout/"))
}

func TestCheckoutEmptyCart(t *testing.T) {
	srv := apitest.New(t)
	user := srv.SeedUser("ana", "secret-password", "", false)

	c, _ := testClient(t, srv, user)
	orders := NewOrders(c, nil)

	_, err := orders.Checkout(context.Background(), validForm())
	require.Error(t, err)
	assert.Error(t, orders.Err())
}

func TestProcessPayment(t *testing.T) {
	srv := apitest.New(t)
	user := srv.SeedUser("ana", "secret-password", "", false)
	order := srv.SeedOrder(user.ID, model.OrderStatusPending, 20)

	c, _ := testClient(t, srv, user)
	orders := NewOrders(c, stubTokenizer{token: "tok_visa"})
	ctx := context.Background()

	require.NoError(t, orders.Fetch(ctx))
	require.NoError(t, orders.ProcessPayment(ctx, order.ID, payment.Card{
		Number: "4242424242424242", ExpMonth: "12", ExpYear: "2030", CVC: "123",
	}))

	loading, err, done := orders.PaymentStatus()
	assert.False(t, loading)
	assert.NoError(t, err)
	assert.True(t, done)

	got := orders.Orders()[0]
	assert.Equal(t, model.OrderStatusPaid, got.Status)
	assert.NotNil(t, got.PaidAt)

	orders.ClearPaymentStatus()
	_, _, done = orders.PaymentStatus()
	assert.False(t, done)
}

func TestProcessPaymentTokenizerFailure(t *testing.T) {
	srv := apitest.New(t)
	user := srv.SeedUser("ana", "secret-password", "", false)
	order := srv.SeedOrder(user.ID, model.OrderStatusPending, 20)

	c, _ := testClient(t, srv, user)
	orders := NewOrders(c, stubTokenizer{err: errors.New("card declined")})

	err := orders.ProcessPayment(context.Background(), order.ID, payment.Card{})
	require.Error(t, err)
	assert.Zero(t, srv.Calls("POST /api/orders/"+itoa(order.ID)+"/process_payment/"),
		"no payment call without a token")

	_, pErr, done := orders.PaymentStatus()
	assert.Error(t, pErr)
	assert.False(t, done)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestUpdateStatus(t *testing.T) {
	srv := apitest.New(t)
	admin := srv.SeedUser("root", "secret-password", "", true)
	order := srv.SeedOrder(admin.ID, model.OrderStatusPending, 20)

	c, _ := testClient(t, srv, admin)
	orders := NewOrders(c, nil)
	ctx := context.Background()

	require.NoError(t, orders.Fetch(ctx))
	require.NoError(t, orders.UpdateStatus(ctx, order.ID, model.OrderStatusShipped))

	assert.Equal(t, model.OrderStatusShipped, orders.Orders()[0].Status)
}

func TestRemoveAndUndo(t *testing.T) {
	srv := apitest.New(t)
	admin := srv.SeedUser("root", "secret-password", "", true)
	order := srv.SeedOrder(admin.ID, model.OrderStatusPending, 20, model.OrderItem{
		ArtPicture: model.ArtPicture{ID: 11}, Price: 10, Quantity: 2, Subtotal: 20,
	})

	c, _ := testClient(t, srv, admin)
	orders := NewOrders(c, nil)
	ctx := context.Background()

	require.NoError(t, orders.Fetch(ctx))
	require.NoError(t, orders.Remove(ctx, order.ID))

	assert.Empty(t, orders.Orders(), "optimistic removal is immediate")
	require.Len(t, orders.Undoable(), 1)
	assert.Equal(t, order.ID, orders.Undoable()[0].Order.ID)
	assert.False(t, orders.Undoable()[0].RemovedAt.IsZero())
	assert.Empty(t, srv.Orders(), "delete reached the backend")

	require.NoError(t, orders.Undo(ctx, order.ID))

	assert.Empty(t, orders.Undoable(), "buffer entry consumed")
	got := orders.Orders()
	require.Len(t, got, 1)
	assert.NotEqual(t, order.ID, got[0].ID, "restored order carries a fresh identity")
	assert.Equal(t, model.Money(20), got[0].TotalPrice)
	require.Len(t, got[0].Items, 1)
	assert.Equal(t, int64(11), got[0].Items[0].ArtPicture.ID)
}

func TestRemoveUnknownIDIsNoop(t *testing.T) {
	srv := apitest.New(t)
	admin := srv.SeedUser("root", "secret-password", "", true)
	order := srv.SeedOrder(admin.ID, model.OrderStatusPending, 20)

	c, _ := testClient(t, srv, admin)
	orders := NewOrders(c, nil)
	ctx := context.Background()

	require.NoError(t, orders.Fetch(ctx))
	require.NoError(t, orders.Remove(ctx, order.ID))
	deletes := srv.Calls("DELETE /api/orders/" + itoa(order.ID) + "/")
	assert.Equal(t, 1, deletes)

	// A second removal of the same id finds nothing to remove.
	require.NoError(t, orders.Remove(ctx, order.ID))
	assert.Equal(t, deletes, srv.Calls("DELETE /api/orders/"+itoa(order.ID)+"/"))
	assert.Len(t, orders.Undoable(), 1, "buffer not duplicated")
}

func TestBulkRemovePartialFailure(t *testing.T) {
	srv := apitest.New(t)
	admin := srv.SeedUser("root", "secret-password", "", true)
	a := srv.SeedOrder(admin.ID, model.OrderStatusPending, 10)
	b := srv.SeedOrder(admin.ID, model.OrderStatusPending, 20)
	d := srv.SeedOrder(admin.ID, model.OrderStatusPending, 30)
	srv.FailDeleteOrders[b.ID] = true

	c, _ := testClient(t, srv, admin)
	orders := NewOrders(c, nil)
	ctx := context.Background()

	require.NoError(t, orders.Fetch(ctx))
	orders.Select(a.ID)
	orders.Select(b.ID)
	orders.Select(d.ID)

	err := orders.Remove(ctx, a.ID, b.ID, d.ID)
	require.Error(t, err, "failed deletions surface")

	visible := orders.Orders()
	require.Len(t, visible, 1, "only the failed deletion rolls back")
	assert.Equal(t, b.ID, visible[0].ID)

	buffered := orders.Undoable()
	require.Len(t, buffered, 2)
	ids := []int64{buffered[0].Order.ID, buffered[1].Order.ID}
	assert.ElementsMatch(t, []int64{a.ID, d.ID}, ids)

	assert.Empty(t, orders.Selected(), "selection cleared for all targets")
}

func TestUndoFailureKeepsBufferAndTagsCopy(t *testing.T) {
	srv := apitest.New(t)
	admin := srv.SeedUser("root", "secret-password", "", true)
	order := srv.SeedOrder(admin.ID, model.OrderStatusPending, 20)

	c, _ := testClient(t, srv, admin)
	orders := NewOrders(c, nil)
	ctx := context.Background()

	require.NoError(t, orders.Fetch(ctx))
	require.NoError(t, orders.Remove(ctx, order.ID))

	srv.FailRestore = true
	require.Error(t, orders.Undo(ctx, order.ID))

	require.Len(t, orders.Undoable(), 1, "buffer entry survives a failed restore")

	visible := orders.Orders()
	require.Len(t, visible, 1)
	assert.True(t, visible[0].Unsynced, "re-inserted copy is tagged")
	assert.Empty(t, orders.Committed(), "committed collection stays disjoint from the buffer")

	// A later retry succeeds and reconciles everything.
	srv.FailRestore = false
	require.NoError(t, orders.Undo(ctx, order.ID))
	assert.Empty(t, orders.Undoable())
	committed := orders.Committed()
	require.Len(t, committed, 1)
	assert.False(t, committed[0].Unsynced)
}

func TestSelection(t *testing.T) {
	srv := apitest.New(t)
	admin := srv.SeedUser("root", "secret-password", "", true)
	a := srv.SeedOrder(admin.ID, model.OrderStatusPending, 10)
	b := srv.SeedOrder(admin.ID, model.OrderStatusPending, 20)

	c, _ := testClient(t, srv, admin)
	orders := NewOrders(c, nil)

	require.NoError(t, orders.Fetch(context.Background()))

	orders.Select(a.ID)
	orders.Select(9999)
	assert.ElementsMatch(t, []int64{a.ID}, orders.Selected(), "unknown ids not selectable")

	orders.SelectAll()
	assert.ElementsMatch(t, []int64{a.ID, b.ID}, orders.Selected())

	// SelectAll toggles off when everything is already selected.
	orders.SelectAll()
	assert.Empty(t, orders.Selected())

	orders.Select(b.ID)
	orders.Deselect(b.ID)
	assert.Empty(t, orders.Selected())
}

func TestFetchDropsStaleResponse(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			// The first fetch stalls until a newer one has settled, then
			// fails so a stale failure is covered too.
			close(arrived)
			<-release
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail": "too late"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]model.Order{
			{ID: 1, Status: model.OrderStatusPending},
			{ID: 2, Status: model.OrderStatusPaid},
		})
	}))
	t.Cleanup(srv.Close)

	orders := NewOrders(client.New(srv.URL, &client.MemCredentials{}), nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- orders.Fetch(ctx) }()
	<-arrived

	require.NoError(t, orders.Fetch(ctx))
	require.Len(t, orders.Orders(), 2)

	close(release)
	require.NoError(t, <-done, "a superseded fetch settles silently")

	assert.Len(t, orders.Orders(), 2, "stale response does not overwrite newer data")
	assert.False(t, orders.Loading())
	assert.NoError(t, orders.Err(), "stale failure does not surface")
}

func TestRemoveReportsLoadingWhileInFlight(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			close(arrived)
			<-release
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]model.Order{{ID: 7, Status: model.OrderStatusPending}})
	}))
	t.Cleanup(srv.Close)

	orders := NewOrders(client.New(srv.URL, &client.MemCredentials{}), nil)
	ctx := context.Background()

	require.NoError(t, orders.Fetch(ctx))
	require.False(t, orders.Loading())

	done := make(chan error, 1)
	go func() { done <- orders.Remove(ctx, 7) }()
	<-arrived
	assert.True(t, orders.Loading(), "delete window is reported in flight")

	close(release)
	require.NoError(t, <-done)
	assert.False(t, orders.Loading())
}

func TestRepeatedUndoFailureDoesNotDuplicate(t *testing.T) {
	srv := apitest.New(t)
	admin := srv.SeedUser("root", "secret-password", "", true)
	order := srv.SeedOrder(admin.ID, model.OrderStatusPending, 20)

	c, _ := testClient(t, srv, admin)
	orders := NewOrders(c, nil)
	ctx := context.Background()

	require.NoError(t, orders.Fetch(ctx))
	require.NoError(t, orders.Remove(ctx, order.ID))

	srv.FailRestore = true
	require.Error(t, orders.Undo(ctx, order.ID))
	require.Error(t, orders.Undo(ctx, order.ID))

	require.Len(t, orders.Orders(), 1, "one tagged copy even after repeated failures")
	require.Len(t, orders.Undoable(), 1)

	// Removing the tagged copy drops it locally: no second buffer entry
	// and no delete call for an order the backend no longer has.
	deletes := srv.Calls("DELETE /api/orders/" + itoa(order.ID) + "/")
	require.NoError(t, orders.Remove(ctx, order.ID))
	assert.Empty(t, orders.Orders())
	require.Len(t, orders.Undoable(), 1)
	assert.Equal(t, deletes, srv.Calls("DELETE /api/orders/"+itoa(order.ID)+"/"))

	srv.FailRestore = false
	require.NoError(t, orders.Undo(ctx, order.ID))
	assert.Empty(t, orders.Undoable())
	committed := orders.Committed()
	require.Len(t, committed, 1)
	assert.False(t, committed[0].Unsynced)
}
