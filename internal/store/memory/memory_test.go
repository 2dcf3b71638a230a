package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thymlegram/thymlegram/internal/models"
	"github.com/thymlegram/thymlegram/internal/store"
)

func TestProfileLookups(t *testing.T) {
	st := New()
	ctx := context.Background()

	p := &models.Profile{Username: "Mallory", Email: "mallory@example.com"}
	require.NoError(t, st.CreateProfile(ctx, p))
	assert.NotEqual(t, uuid.Nil, p.ID, "ID assigned on create")

	byName, err := st.ProfileByUsername(ctx, "mALLORY")
	require.NoError(t, err, "username lookup is case-insensitive")
	assert.Equal(t, p.ID, byName.ID)

	byEmail, err := st.ProfileByEmail(ctx, "mallory@example.com")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byEmail.ID)

	_, err = st.ProfileByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.ProfileByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestContactPairEitherDirection(t *testing.T) {
	st := New()
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	exists, err := st.ContactPairExists(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, st.CreateContactPair(ctx, a, b))

	for _, pair := range [][2]uuid.UUID{{a, b}, {b, a}} {
		exists, err := st.ContactPairExists(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.True(t, exists)
	}
}

func TestLastMessageBetween(t *testing.T) {
	st := New()
	ctx := context.Background()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	_, err := st.LastMessageBetween(ctx, a, b)
	assert.ErrorIs(t, err, store.ErrNotFound)

	base := time.Now()
	require.NoError(t, st.CreateMessage(ctx, &models.Message{SenderID: a, ReceiverID: b, Content: "first", CreatedAt: base}))
	require.NoError(t, st.CreateMessage(ctx, &models.Message{SenderID: b, ReceiverID: a, Content: "second", CreatedAt: base.Add(time.Second)}))
	// A message with a third party must not bleed into the pair.
	require.NoError(t, st.CreateMessage(ctx, &models.Message{SenderID: a, ReceiverID: c, Content: "other", CreatedAt: base.Add(time.Minute)}))

	last, err := st.LastMessageBetween(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, "second", last.Content)
}

func TestDeleteTempRowsIdempotent(t *testing.T) {
	st := New()
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	conv := uuid.New()

	require.NoError(t, st.CreateTempContactPair(ctx,
		&models.TempContact{UserID: a, ContactUserID: b, ConversationID: conv, ExpiresAt: time.Now().Add(time.Minute)},
		&models.TempContact{UserID: b, ContactUserID: a, ConversationID: conv, ExpiresAt: time.Now().Add(time.Minute)},
	))
	require.NoError(t, st.CreateTempMessage(ctx, &models.TempMessage{SenderID: a, ReceiverID: b, Content: "x", ConversationID: conv}))

	require.NoError(t, st.DeleteTempMessagesBetween(ctx, a, b))
	require.NoError(t, st.DeleteTempContactPair(ctx, a, b))

	// Deleting rows that are already gone is not an error.
	require.NoError(t, st.DeleteTempMessagesBetween(ctx, a, b))
	require.NoError(t, st.DeleteTempContactPair(ctx, a, b))
	require.NoError(t, st.DeleteTempMessagesByConversation(ctx, []uuid.UUID{conv}))

	_, _, tempContacts, tempMessages := st.Counts()
	assert.Zero(t, tempContacts)
	assert.Zero(t, tempMessages)
}

func TestExpiredTempContactsCutoff(t *testing.T) {
	st := New()
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	now := time.Now()

	require.NoError(t, st.CreateTempContactPair(ctx,
		&models.TempContact{UserID: a, ContactUserID: b, ConversationID: uuid.New(), ExpiresAt: now.Add(-time.Second)},
		&models.TempContact{UserID: b, ContactUserID: a, ConversationID: uuid.New(), ExpiresAt: now.Add(time.Hour)},
	))

	expired, err := st.ExpiredTempContacts(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, a, expired[0].UserID)

	require.NoError(t, st.DeleteExpiredTempContacts(ctx, now))
	_, _, tempContacts, _ := st.Counts()
	assert.Equal(t, 1, tempContacts)
}

func TestSubscribeReceivesInsertAndDelete(t *testing.T) {
	st := New()
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	conv := uuid.New()

	sub, err := st.Subscribe(ctx, store.TableTempMessages)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, st.CreateTempMessage(ctx, &models.TempMessage{SenderID: a, ReceiverID: b, Content: "x", ConversationID: conv}))

	select {
	case ev := <-sub.Events():
		assert.Equal(t, store.TableTempMessages, ev.Table)
		assert.Equal(t, store.OpInsert, ev.Op)
		var m models.TempMessage
		require.NoError(t, json.Unmarshal(ev.New, &m))
		assert.Equal(t, conv, m.ConversationID)
	case <-time.After(time.Second):
		t.Fatal("no insert event")
	}

	require.NoError(t, st.DeleteTempMessagesBetween(ctx, a, b))

	select {
	case ev := <-sub.Events():
		assert.Equal(t, store.OpDelete, ev.Op)
		assert.Empty(t, ev.New)
		var m models.TempMessage
		require.NoError(t, json.Unmarshal(ev.Old, &m))
		assert.Equal(t, a, m.SenderID)
	case <-time.After(time.Second):
		t.Fatal("no delete event")
	}
}

func TestSubscribeIsPerTable(t *testing.T) {
	st := New()
	ctx := context.Background()

	sub, err := st.Subscribe(ctx, store.TableMessages)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, st.CreateTempMessage(ctx, &models.TempMessage{
		SenderID: uuid.New(), ReceiverID: uuid.New(), Content: "x", ConversationID: uuid.New(),
	}))

	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event for another table: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	st := New()
	sub, err := st.Subscribe(context.Background(), store.TableMessages)
	require.NoError(t, err)

	sub.Unsubscribe()
	_, ok := <-sub.Events()
	assert.False(t, ok, "events channel closes on unsubscribe")
}
