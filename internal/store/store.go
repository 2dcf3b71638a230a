// Package store defines the boundary to the backing data service. The
// synchronizer only ever talks to these two interfaces, so the real Postgres
// backend and the in-memory test backend are interchangeable.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/thymlegram/thymlegram/internal/models"
)

// ErrNotFound marks an empty single-row lookup. Callers must treat it as an
// expected state (no profile yet, no last message yet), never as a failure.
var ErrNotFound = errors.New("store: not found")

// Table names as carried on change events.
const (
	TableMessages     = "messages"
	TableTempMessages = "temp_messages"
	TableTempContacts = "temp_contacts"
)

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Event is a row-level change pushed by the backend. New and Old hold the
// affected row as JSON; Old is empty except on update/delete.
type Event struct {
	Table string          `json:"table"`
	Op    Op              `json:"op"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
}

// Subscription is a live change feed for one table. Unsubscribe closes the
// event channel; it is safe to call more than once.
type Subscription interface {
	Events() <-chan Event
	Unsubscribe()
}

// Notifier hands out change subscriptions. Row filtering happens on the
// consumer side; a subscription sees every change on its table.
type Notifier interface {
	Subscribe(ctx context.Context, table string) (Subscription, error)
}

// Store is the row-level query and mutation surface. Multi-row operations
// (mirrored pair inserts, bulk deletes) are not atomic; callers tolerate
// partial failure and re-derive state on the next read.
type Store interface {
	ProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	// ProfileByUsername matches case-insensitively.
	ProfileByUsername(ctx context.Context, username string) (*models.Profile, error)
	ProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	CreateProfile(ctx context.Context, p *models.Profile) error

	ContactsOf(ctx context.Context, userID uuid.UUID) ([]models.Contact, error)
	// ContactPairExists reports whether either direction of the pair exists.
	ContactPairExists(ctx context.Context, a, b uuid.UUID) (bool, error)
	CreateContactPair(ctx context.Context, a, b uuid.UUID) error

	// LastMessageBetween returns the newest message between the pair in either
	// direction, or ErrNotFound when they have never exchanged one.
	LastMessageBetween(ctx context.Context, a, b uuid.UUID) (*models.Message, error)
	// MessagesBetween returns both directions ordered by creation time ascending.
	MessagesBetween(ctx context.Context, a, b uuid.UUID) ([]models.Message, error)
	CreateMessage(ctx context.Context, m *models.Message) error

	TempContactsOf(ctx context.Context, userID uuid.UUID) ([]models.TempContact, error)
	TempContactPairExists(ctx context.Context, a, b uuid.UUID) (bool, error)
	CreateTempContactPair(ctx context.Context, own, mirror *models.TempContact) error

	TempMessagesBetween(ctx context.Context, a, b uuid.UUID) ([]models.TempMessage, error)
	CreateTempMessage(ctx context.Context, m *models.TempMessage) error

	// Deletes are idempotent: removing rows that are already gone is a no-op.
	DeleteTempMessagesBetween(ctx context.Context, a, b uuid.UUID) error
	DeleteTempContactPair(ctx context.Context, a, b uuid.UUID) error

	// ExpiredTempContacts returns every row with expires_at strictly before now.
	ExpiredTempContacts(ctx context.Context, now time.Time) ([]models.TempContact, error)
	DeleteTempMessagesByConversation(ctx context.Context, conversationIDs []uuid.UUID) error
	DeleteExpiredTempContacts(ctx context.Context, now time.Time) error
}
