package model

import "time"

// OrderUserRow is one row of the read-only order-user-view: an order joined
// with a snapshot of its owning user.
type OrderUserRow struct {
	ID          int64      `json:"id"`
	OrderNumber string     `json:"order_number"`
	Status      string     `json:"status"`
	TotalPrice  Money      `json:"total_price"`
	CreatedAt   time.Time  `json:"created_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	UserID      int64      `json:"user_id"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	DisplayName string     `json:"display_name,omitempty"`
}

// UserInfo is the denormalized user snapshot carried by a group.
type UserInfo struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// UserOrderGroup is one partition of the grouped-by-user admin view.
type UserOrderGroup struct {
	Username   string         `json:"username"`
	UserInfo   UserInfo       `json:"user_info"`
	OrderCount int            `json:"order_count"`
	TotalSpent Money          `json:"total_spent"`
	Orders     []OrderUserRow `json:"orders"`
}
