package client

import "sync"

// Credentials stores the bearer credential pair, the local-storage analogue.
// Outside explicit login/logout, only the client's refresh path writes it.
type Credentials interface {
	Access() string
	Refresh() string
	SetAccess(access string) error
	SetPair(access, refresh string) error
	Clear() error
}

// MemCredentials keeps the pair in memory, for tests and ephemeral sessions.
type MemCredentials struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func (m *MemCredentials) Access() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access
}

func (m *MemCredentials) Refresh() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh
}

func (m *MemCredentials) SetAccess(access string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = access
	return nil
}

func (m *MemCredentials) SetPair(access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = access
	m.refresh = refresh
	return nil
}

func (m *MemCredentials) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = ""
	m.refresh = ""
	return nil
}
