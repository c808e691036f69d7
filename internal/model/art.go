package model

import "time"

// ArtPicture represents a catalog item. The server owns identity and
// timestamps; unavailable pictures are read-only in storefront views.
type ArtPicture struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       Money     `json:"price"`
	Image       string    `json:"image,omitempty"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
