package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/galerija/internal/apitest"
	"github.com/erazemk/galerija/internal/client"
	"github.com/erazemk/galerija/internal/persist"
)

func TestLoginEstablishesSession(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedUser("ana", "secret-password", "ana@example.com", false)

	creds := &client.MemCredentials{}
	c := client.New(srv.URL(), creds)
	state := persist.NewTestState(t)
	auth := NewAuth(c, creds, state)

	require.NoError(t, auth.Login(context.Background(), "ana", "secret-password"))

	assert.True(t, auth.IsAuthenticated())
	assert.False(t, auth.IsAdmin())
	require.NotNil(t, auth.User())
	assert.Equal(t, "ana", auth.User().Username)
	assert.NotEmpty(t, creds.Access())
	assert.NotEmpty(t, creds.Refresh())

	snapshot, err := state.LoadSession()
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, "ana", snapshot.Username)
}

func TestLoginFailure(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedUser("ana", "secret-password", "", false)

	creds := &client.MemCredentials{}
	auth := NewAuth(client.New(srv.URL(), creds), creds, nil)

	err := auth.Login(context.Background(), "ana", "wrong")
	require.Error(t, err)
	assert.False(t, auth.IsAuthenticated())
	assert.Error(t, auth.Err())
}

func TestAdminFlagMirrorsStaff(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedUser("root", "secret-password", "", true)

	creds := &client.MemCredentials{}
	auth := NewAuth(client.New(srv.URL(), creds), creds, nil)

	require.NoError(t, auth.Login(context.Background(), "root", "secret-password"))
	assert.True(t, auth.IsAdmin())
}

func TestRegisterChainsLogin(t *testing.T) {
	srv := apitest.New(t)

	creds := &client.MemCredentials{}
	auth := NewAuth(client.New(srv.URL(), creds), creds, nil)

	err := auth.Register(context.Background(), RegisterInput{
		Username:        "newcomer",
		Email:           "new@example.com",
		Password:        "long-enough-pw",
		ConfirmPassword: "long-enough-pw",
	})
	require.NoError(t, err)
	assert.True(t, auth.IsAuthenticated(), "successful registration logs in")
	assert.Equal(t, 1, srv.Calls("POST /api/users/"))
	assert.Equal(t, 1, srv.Calls("POST /api/token/"))
}

func TestRegistrationAloneDoesNotAuthenticate(t *testing.T) {
	srv := apitest.New(t)
	srv.FailLogin = true

	creds := &client.MemCredentials{}
	auth := NewAuth(client.New(srv.URL(), creds), creds, nil)

	err := auth.Register(context.Background(), RegisterInput{
		Username:        "newcomer",
		Email:           "new@example.com",
		Password:        "long-enough-pw",
		ConfirmPassword: "long-enough-pw",
	})
	require.Error(t, err, "chained login fails")
	assert.False(t, auth.IsAuthenticated())

	// The account itself was created; only the chained login failed.
	srv.FailLogin = false
	require.NoError(t, auth.Login(context.Background(), "newcomer", "long-enough-pw"))
	assert.True(t, auth.IsAuthenticated())
}

func TestRegisterValidation(t *testing.T) {
	srv := apitest.New(t)

	creds := &client.MemCredentials{}
	auth := NewAuth(client.New(srv.URL(), creds), creds, nil)

	err := auth.Register(context.Background(), RegisterInput{
		Username:        "x",
		Email:           "not-an-email",
		Password:        "short",
		ConfirmPassword: "different",
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "email")
	assert.Contains(t, vErr.Fields, "password")
	assert.Contains(t, vErr.Fields, "confirm_password")
	assert.Zero(t, srv.Calls("POST /api/users/"), "invalid forms never reach the network")
}

func TestLogoutClearsEverything(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedUser("ana", "secret-password", "", false)

	creds := &client.MemCredentials{}
	state := persist.NewTestState(t)
	auth := NewAuth(client.New(srv.URL(), creds), creds, state)

	require.NoError(t, auth.Login(context.Background(), "ana", "secret-password"))
	require.NoError(t, auth.Logout())

	assert.False(t, auth.IsAuthenticated())
	assert.Nil(t, auth.User())
	assert.Empty(t, creds.Access())
	assert.Empty(t, creds.Refresh())

	snapshot, err := state.LoadSession()
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestCheckStatusClearsStaleCredentials(t *testing.T) {
	srv := apitest.New(t)
	user := srv.SeedUser("ana", "secret-password", "", false)

	// Credentials that the backend will reject on refresh as well.
	srv.FailRefresh = true
	srv.AccessTTL = -time.Minute
	c, creds := testClient(t, srv, user)
	auth := NewAuth(c, creds, nil)

	require.Error(t, auth.CheckStatus(context.Background()))
	assert.False(t, auth.IsAuthenticated())
	assert.Empty(t, creds.Access())
}
