package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/erazemk/galerija/internal/client"
	"github.com/erazemk/galerija/internal/model"
)

// Messages is the in-app messaging store. Send state is tracked separately
// from fetch state so a compose screen can show its own spinner.
type Messages struct {
	c *client.Client

	mu sync.Mutex
	tracker
	listSeq  uint64
	messages []model.Message

	sending bool
	sendErr error
	sent    bool
}

// NewMessages creates the messaging store.
func NewMessages(c *client.Client) *Messages {
	return &Messages{c: c}
}

// Fetch loads the caller's message list. The server scopes the collection by
// role; admins see everything.
func (s *Messages) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.pend()
	s.listSeq++
	ticket := s.listSeq
	s.mu.Unlock()

	var messages []model.Message
	err := s.c.Get(ctx, "/api/messages/", &messages)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.listSeq {
		return nil
	}
	if err != nil {
		s.reject(err)
		return fmt.Errorf("fetching messages: %w", err)
	}
	s.fulfill()
	s.messages = messages
	return nil
}

// MarkRead flags a message as read. The server's representation replaces the
// match by id.
func (s *Messages) MarkRead(ctx context.Context, id int64) error {
	var updated model.Message
	err := s.c.Post(ctx, fmt.Sprintf("/api/messages/%d/mark_as_read/", id), nil, &updated)
	if err != nil {
		return fmt.Errorf("marking message %d read: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == updated.ID {
			s.messages[i] = updated
			break
		}
	}
	return nil
}

// SendPublic posts an admin broadcast. The created message is prepended so
// newest-first ordering holds without a refetch.
func (s *Messages) SendPublic(ctx context.Context, subject, content string) error {
	body := map[string]string{"subject": subject, "content": content}
	return s.send(ctx, "/api/messages/send_public_message/", body)
}

// SendUser posts a direct message to one user.
func (s *Messages) SendUser(ctx context.Context, recipient int64, subject, content string) error {
	body := map[string]any{"recipient": recipient, "subject": subject, "content": content}
	return s.send(ctx, "/api/messages/send_user_message/", body)
}

func (s *Messages) send(ctx context.Context, path string, body any) error {
	s.mu.Lock()
	s.sending = true
	s.sent = false
	s.mu.Unlock()

	var created model.Message
	err := s.c.Post(ctx, path, body, &created)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sending = false
	if err != nil {
		s.sendErr = err
		return fmt.Errorf("sending message: %w", err)
	}
	s.sendErr = nil
	s.sent = true
	s.messages = append([]model.Message{created}, s.messages...)
	return nil
}

// Messages returns a copy of the message list.
func (s *Messages) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Unread counts messages not yet marked read.
func (s *Messages) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.messages {
		if !m.IsRead {
			n++
		}
	}
	return n
}

// SendStatus returns the send operation's loading flag, stored error, and
// success flag.
func (s *Messages) SendStatus() (sending bool, err error, sent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending, s.sendErr, s.sent
}

// ResetSent clears the send-success flag, for compose screens that reset
// after a confirmation.
func (s *Messages) ResetSent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = false
}

// Loading reports whether a fetch is in flight.
func (s *Messages) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the stored fetch error.
func (s *Messages) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
