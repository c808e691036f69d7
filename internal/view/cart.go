package view

import "github.com/erazemk/galerija/internal/model"

// CartTotal recomputes a cart total from line quantities and snapshot unit
// prices. The server-computed total is authoritative; this exists for the
// storefront's order-summary display and the consistency check in tests.
func CartTotal(cart *model.Cart) model.Money {
	if cart == nil {
		return 0
	}
	var total model.Money
	for _, item := range cart.Items {
		total += model.Money(float64(item.ArtPicture.Price) * float64(item.Quantity))
	}
	return total
}
