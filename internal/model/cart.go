package model

import "time"

// Cart is the session's shopping cart as returned by /api/carts/my_cart/.
// Line subtotals and the total are computed server-side and trusted as given.
type Cart struct {
	ID         int64      `json:"id"`
	User       int64      `json:"user"`
	Items      []CartItem `json:"items"`
	TotalPrice Money      `json:"total_price"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CartItem is one cart line. The embedded ArtPicture is a denormalized
// snapshot, never reconciled with the live catalog.
type CartItem struct {
	ID         int64      `json:"id"`
	ArtPicture ArtPicture `json:"art_picture"`
	Quantity   int        `json:"quantity"`
	Subtotal   Money      `json:"subtotal"`
	AddedAt    time.Time  `json:"added_at"`
}
