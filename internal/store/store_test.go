package store

import (
	"testing"

	"github.com/erazemk/galerija/internal/apitest"
	"github.com/erazemk/galerija/internal/client"
	"github.com/erazemk/galerija/internal/model"
)

// testClient builds a client holding a freshly minted token pair for a
// seeded user, bypassing the login endpoint.
func testClient(t *testing.T, srv *apitest.Server, user model.User) (*client.Client, *client.MemCredentials) {
	t.Helper()
	creds := &client.MemCredentials{}
	if err := creds.SetPair(srv.Token(user), srv.RefreshToken(user)); err != nil {
		t.Fatalf("seeding credentials: %v", err)
	}
	return client.New(srv.URL(), creds), creds
}
