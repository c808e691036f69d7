// Package apitest runs an in-memory double of the storefront API for tests.
// It speaks the same wire shapes as the real backend (snake_case JSON,
// decimal-string prices, detail/field-keyed errors) and exposes knobs to
// inject failures into individual endpoints.
package apitest

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/galerija/internal/model"
)

const testSecret = "apitest-secret"

// Server is a fake storefront backend with in-memory state.
type Server struct {
	srv *httptest.Server

	mu        sync.Mutex
	users     []model.User
	passwords map[string][]byte
	pictures  []model.ArtPicture
	carts     map[int64]*model.Cart
	orders    []model.Order
	messages  []model.Message
	nextID    int64
	requests  map[string]int

	// AccessTTL is the lifetime of issued access tokens. Tests set it
	// negative to mint already-expired tokens.
	AccessTTL time.Duration

	// Failure injection. FailLogin rejects every /api/token/ call,
	// FailRefresh every /api/token/refresh/ call, FailRestore every
	// restore_order call, and FailDeleteOrders the delete of specific ids.
	FailLogin        bool
	FailRefresh      bool
	FailRestore      bool
	FailDeleteOrders map[int64]bool
}

// New starts a fake backend and registers its shutdown with the test.
func New(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		passwords:        make(map[string][]byte),
		carts:            make(map[int64]*model.Cart),
		requests:         make(map[string]int),
		nextID:           100,
		AccessTTL:        15 * time.Minute,
		FailDeleteOrders: make(map[int64]bool),
	}
	s.srv = httptest.NewServer(s.router())
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the backend's base URL.
func (s *Server) URL() string {
	return s.srv.URL
}

// Calls returns how many requests hit the given method+path, e.g.
// "POST /api/token/".
func (s *Server) Calls(methodPath string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[methodPath]
}

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

// SeedUser registers a user with a bcrypt-hashed password and returns it.
func (s *Server) SeedUser(username, password, email string, staff bool) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	user := model.User{ID: s.id(), Username: username, Email: email, IsStaff: staff}
	s.users = append(s.users, user)
	s.passwords[username] = hash
	return user
}

// SeedArt adds a catalog entry and returns it.
func (s *Server) SeedArt(title string, price float64, available bool) model.ArtPicture {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	pic := model.ArtPicture{
		ID:          s.id(),
		Title:       title,
		Price:       model.Money(price),
		IsAvailable: available,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.pictures = append(s.pictures, pic)
	return pic
}

// SeedOrder adds an order owned by the given user and returns it.
func (s *Server) SeedOrder(userID int64, status string, total float64, items ...model.OrderItem) model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	order := model.Order{
		ID:            s.id(),
		User:          userID,
		OrderNumber:   orderNumber(s.nextID),
		Status:        status,
		PaymentMethod: model.PaymentMethodCreditCard,
		TotalPrice:    model.Money(total),
		Items:         items,
		CreatedAt:     time.Now(),
	}
	for i := range order.Items {
		if order.Items[i].ID == 0 {
			order.Items[i].ID = s.id()
		}
	}
	s.orders = append(s.orders, order)
	return order
}

// SeedMessage adds a message and returns it.
func (s *Server) SeedMessage(sender int64, recipient *int64, subject, msgType string) model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := model.Message{
		ID:          s.id(),
		Sender:      sender,
		Recipient:   recipient,
		Subject:     subject,
		Content:     subject,
		MessageType: msgType,
		CreatedAt:   time.Now(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

// Orders returns a copy of the server's order table.
func (s *Server) Orders() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// Token mints a valid access token for a seeded user, bypassing login.
func (s *Server) Token(user model.User) string {
	return issueToken(user, s.AccessTTL, false)
}

// RefreshToken mints a refresh token for a seeded user.
func (s *Server) RefreshToken(user model.User) string {
	return issueToken(user, 7*24*time.Hour, true)
}
