package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/galerija/internal/apitest"
	"github.com/erazemk/galerija/internal/model"
)

func TestMessagesFetchAndMarkRead(t *testing.T) {
	srv := apitest.New(t)
	admin := srv.SeedUser("root", "secret-password", "", true)
	user := srv.SeedUser("ana", "secret-password", "", false)
	msg := srv.SeedMessage(user.ID, nil, "Question about framing", model.MessageUserToAdmin)
	srv.SeedMessage(admin.ID, nil, "Summer sale", model.MessageAdminToAll)

	c, _ := testClient(t, srv, admin)
	messages := NewMessages(c)
	ctx := context.Background()

	require.NoError(t, messages.Fetch(ctx))
	require.Len(t, messages.Messages(), 2)
	assert.Equal(t, 2, messages.Unread())

	require.NoError(t, messages.MarkRead(ctx, msg.ID))
	assert.Equal(t, 1, messages.Unread())
	for _, m := range messages.Messages() {
		if m.ID == msg.ID {
			assert.True(t, m.IsRead)
		}
	}
}

func TestMessagesVisibilityScopedByRole(t *testing.T) {
	srv := apitest.New(t)
	admin := srv.SeedUser("root", "secret-password", "", true)
	ana := srv.SeedUser("ana", "secret-password", "", false)
	bea := srv.SeedUser("bea", "secret-password", "", false)
	srv.SeedMessage(admin.ID, &bea.ID, "Your order shipped", model.MessageAdminToUser)
	srv.SeedMessage(admin.ID, nil, "Summer sale", model.MessageAdminToAll)

	c, _ := testClient(t, srv, ana)
	messages := NewMessages(c)

	require.NoError(t, messages.Fetch(context.Background()))
	got := messages.Messages()
	require.Len(t, got, 1, "only broadcasts and own threads are visible")
	assert.Equal(t, model.MessageAdminToAll, got[0].MessageType)
}

func TestSendPublicMessage(t *testing.T) {
	srv := apitest.New(t)
	admin := srv.SeedUser("root", "secret-password", "", true)

	c, _ := testClient(t, srv, admin)
	messages := NewMessages(c)
	ctx := context.Background()

	require.NoError(t, messages.Fetch(ctx))
	require.NoError(t, messages.SendPublic(ctx, "Gallery night", "Friday at 7pm"))

	sending, err, sent := messages.SendStatus()
	assert.False(t, sending)
	assert.NoError(t, err)
	assert.True(t, sent)

	got := messages.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, "Gallery night", got[0].Subject)
	assert.Equal(t, model.MessageAdminToAll, got[0].MessageType)

	messages.ResetSent()
	_, _, sent = messages.SendStatus()
	assert.False(t, sent)
}

func TestSendUserMessagePrepends(t *testing.T) {
	srv := apitest.New(t)
	admin := srv.SeedUser("root", "secret-password", "", true)
	ana := srv.SeedUser("ana", "secret-password", "", false)
	srv.SeedMessage(ana.ID, nil, "Older question", model.MessageUserToAdmin)

	c, _ := testClient(t, srv, admin)
	messages := NewMessages(c)
	ctx := context.Background()

	require.NoError(t, messages.Fetch(ctx))
	require.NoError(t, messages.SendUser(ctx, ana.ID, "Re: your question", "Happy to help"))

	got := messages.Messages()
	require.Len(t, got, 2)
	assert.Equal(t, "Re: your question", got[0].Subject, "newest first without a refetch")
	assert.Equal(t, model.MessageAdminToUser, got[0].MessageType)
	require.NotNil(t, got[0].Recipient)
	assert.Equal(t, ana.ID, *got[0].Recipient)
}
