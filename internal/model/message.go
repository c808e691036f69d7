package model

import "time"

// Message types.
const (
	MessageUserToAdmin = "user_to_admin"
	MessageAdminToUser = "admin_to_user"
	MessageAdminToAll  = "admin_to_all"
)

// Message is a user-to-admin or admin-to-user note. The read flag only ever
// moves false to true; messages are never deleted in-app.
type Message struct {
	ID                int64     `json:"id"`
	Sender            int64     `json:"sender"`
	SenderUsername    string    `json:"sender_username,omitempty"`
	Recipient         *int64    `json:"recipient,omitempty"`
	RecipientUsername string    `json:"recipient_username,omitempty"`
	Subject           string    `json:"subject"`
	Content           string    `json:"content"`
	MessageType       string    `json:"message_type"`
	IsRead            bool      `json:"is_read"`
	CreatedAt         time.Time `json:"created_at"`
}
