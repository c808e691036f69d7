package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/galerija/internal/apitest"
	"github.com/erazemk/galerija/internal/model"
	"github.com/erazemk/galerija/internal/persist"
)

func TestCartFlow(t *testing.T) {
	srv := apitest.New(t)
	user := srv.SeedUser("ana", "secret-password", "", false)
	picA := srv.SeedArt("Sunrise", 10, true)
	picB := srv.SeedArt("Dusk", 5, true)

	c, _ := testClient(t, srv, user)
	cart := NewCart(c, nil)
	ctx := context.Background()

	// First fetch creates the cart lazily server-side.
	require.NoError(t, cart.Fetch(ctx))
	require.NotNil(t, cart.Cart())
	assert.Empty(t, cart.Cart().Items)

	require.NoError(t, cart.AddItem(ctx, picA.ID, 1))
	require.NoError(t, cart.AddItem(ctx, picB.ID, 2))

	got := cart.Cart()
	require.Len(t, got.Items, 2)
	assert.Equal(t, model.Money(20), got.TotalPrice)

	// Adding the same picture again merges into the existing line.
	require.NoError(t, cart.AddItem(ctx, picA.ID, 1))
	got = cart.Cart()
	require.Len(t, got.Items, 2)
	assert.Equal(t, model.Money(30), got.TotalPrice)

	itemB := got.Items[1]
	require.NoError(t, cart.UpdateQuantity(ctx, itemB.ID, 4))
	assert.Equal(t, model.Money(40), cart.Cart().TotalPrice)

	require.NoError(t, cart.RemoveItem(ctx, itemB.ID))
	got = cart.Cart()
	require.Len(t, got.Items, 1)
	assert.Equal(t, model.Money(20), got.TotalPrice, "removed line's subtotal deducted")

	require.NoError(t, cart.Clear(ctx))
	got = cart.Cart()
	assert.Empty(t, got.Items)
	assert.Equal(t, model.Money(0), got.TotalPrice)
}

func TestUpdateQuantityFloor(t *testing.T) {
	srv := apitest.New(t)
	user := srv.SeedUser("ana", "secret-password", "", false)
	pic := srv.SeedArt("Sunrise", 10, true)

	c, _ := testClient(t, srv, user)
	cart := NewCart(c, nil)
	ctx := context.Background()

	require.NoError(t, cart.AddItem(ctx, pic.ID, 1))
	itemID := cart.Cart().Items[0].ID

	// Requests below the floor are silently dropped before any call.
	require.NoError(t, cart.UpdateQuantity(ctx, itemID, 0))
	require.NoError(t, cart.UpdateQuantity(ctx, itemID, -3))
	assert.Zero(t, srv.Calls("POST /api/carts/update_item_quantity/"))
	assert.Equal(t, 1, cart.Cart().Items[0].Quantity)
}

func TestUnavailableArtRejected(t *testing.T) {
	srv := apitest.New(t)
	user := srv.SeedUser("ana", "secret-password", "", false)
	pic := srv.SeedArt("Archived", 10, false)

	c, _ := testClient(t, srv, user)
	cart := NewCart(c, nil)

	err := cart.AddItem(context.Background(), pic.ID, 1)
	require.Error(t, err)
	assert.Error(t, cart.Err())
}

func TestCartPersistence(t *testing.T) {
	srv := apitest.New(t)
	user := srv.SeedUser("ana", "secret-password", "", false)
	pic := srv.SeedArt("Sunrise", 10, true)

	c, _ := testClient(t, srv, user)
	state := persist.NewTestState(t)
	cart := NewCart(c, state)
	ctx := context.Background()

	require.NoError(t, cart.AddItem(ctx, pic.ID, 2))

	snapshot, err := state.LoadCart()
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, model.Money(20), snapshot.TotalPrice)

	// A fresh store rehydrates from the snapshot before any fetch.
	restored := NewCart(c, state)
	restored.Rehydrate(snapshot)
	require.NotNil(t, restored.Cart())
	assert.Equal(t, model.Money(20), restored.Cart().TotalPrice)

	cart.Reset()
	assert.Nil(t, cart.Cart())
	snapshot, err = state.LoadCart()
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}
