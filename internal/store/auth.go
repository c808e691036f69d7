package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/erazemk/galerija/internal/client"
	"github.com/erazemk/galerija/internal/model"
)

// SessionPersister saves the allow-listed session snapshot for rehydration.
type SessionPersister interface {
	SaveSession(user *model.User) error
	ClearSession() error
}

// Auth is the session store. At most one session is active; the admin flag
// mirrors the server's staff flag.
type Auth struct {
	c       *client.Client
	creds   client.Credentials
	persist SessionPersister

	mu sync.Mutex
	tracker
	user          *model.User
	authenticated bool
	admin         bool
}

// NewAuth creates the session store. persist may be nil for ephemeral
// sessions.
func NewAuth(c *client.Client, creds client.Credentials, persist SessionPersister) *Auth {
	return &Auth{c: c, creds: creds, persist: persist}
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Login exchanges credentials for a token pair, stores it, and loads the
// identity record.
func (a *Auth) Login(ctx context.Context, username, password string) error {
	a.mu.Lock()
	a.pend()
	a.mu.Unlock()

	var pair tokenPair
	err := a.c.Post(ctx, "/api/token/", map[string]string{
		"username": username,
		"password": password,
	}, &pair)
	if err != nil {
		a.fail(err)
		return fmt.Errorf("logging in: %w", err)
	}
	if err := a.creds.SetPair(pair.Access, pair.Refresh); err != nil {
		a.fail(err)
		return fmt.Errorf("storing credentials: %w", err)
	}

	var user model.User
	if err := a.c.Get(ctx, "/api/users/me/", &user); err != nil {
		a.fail(err)
		return fmt.Errorf("loading identity: %w", err)
	}

	a.establish(&user)
	slog.Info("logged in", "user", user.Username, "admin", user.IsStaff)
	return nil
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
}

// Validate checks the form client-side; an empty map means valid.
func (in RegisterInput) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(in.Username) == "" {
		errs["username"] = "Username is required"
	}
	if strings.TrimSpace(in.Email) == "" {
		errs["email"] = "Email is required"
	} else if !strings.Contains(in.Email, "@") {
		errs["email"] = "Invalid email address"
	}
	if in.Password == "" {
		errs["password"] = "Password is required"
	} else if len(in.Password) < 8 {
		errs["password"] = "Password must be at least 8 characters"
	}
	if in.ConfirmPassword != in.Password {
		errs["confirm_password"] = "Passwords do not match"
	}
	return errs
}

// Register creates the account and, on success, immediately chains a login
// with the submitted credentials. Registration alone never establishes a
// session.
func (a *Auth) Register(ctx context.Context, input RegisterInput) error {
	if errs := input.Validate(); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}

	a.mu.Lock()
	a.pend()
	a.mu.Unlock()

	if err := a.c.Post(ctx, "/api/users/", input, nil); err != nil {
		a.fail(err)
		return fmt.Errorf("registering: %w", err)
	}

	return a.Login(ctx, input.Username, input.Password)
}

// CheckStatus probes the identity endpoint, establishing the session on
// success and clearing stored credentials on failure.
func (a *Auth) CheckStatus(ctx context.Context) error {
	a.mu.Lock()
	a.pend()
	a.mu.Unlock()

	var user model.User
	if err := a.c.Get(ctx, "/api/users/me/", &user); err != nil {
		a.creds.Clear()
		a.mu.Lock()
		a.reject(err)
		a.user = nil
		a.authenticated = false
		a.admin = false
		a.mu.Unlock()
		return fmt.Errorf("checking session: %w", err)
	}

	a.establish(&user)
	return nil
}

// Logout clears the credential pair, the persisted snapshot, and the local
// session.
func (a *Auth) Logout() error {
	if err := a.creds.Clear(); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	if a.persist != nil {
		if err := a.persist.ClearSession(); err != nil {
			slog.Warn("clearing persisted session", "error", err)
		}
	}

	a.mu.Lock()
	a.fulfill()
	a.user = nil
	a.authenticated = false
	a.admin = false
	a.mu.Unlock()
	return nil
}

// Rehydrate restores a persisted session snapshot. The snapshot is trusted
// until the next CheckStatus round-trip.
func (a *Auth) Rehydrate(user *model.User) {
	if user == nil {
		return
	}
	a.establish(user)
}

// Expire drops the local session without touching credentials; the client
// has already cleared them when the refresh protocol failed.
func (a *Auth) Expire() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user = nil
	a.authenticated = false
	a.admin = false
}

func (a *Auth) establish(user *model.User) {
	a.mu.Lock()
	a.fulfill()
	a.user = user
	a.authenticated = true
	a.admin = user.IsStaff
	a.mu.Unlock()

	if a.persist != nil {
		if err := a.persist.SaveSession(user); err != nil {
			slog.Warn("persisting session", "error", err)
		}
	}
}

func (a *Auth) fail(err error) {
	a.mu.Lock()
	a.reject(err)
	a.mu.Unlock()
}

// User returns the current identity, or nil.
func (a *Auth) User() *model.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

// IsAuthenticated reports whether a session is active.
func (a *Auth) IsAuthenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authenticated
}

// IsAdmin reports the mirrored staff flag.
func (a *Auth) IsAdmin() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.admin
}

// Loading reports whether an operation is in flight.
func (a *Auth) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading
}

// Err returns the stored error, unflattened.
func (a *Auth) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}
