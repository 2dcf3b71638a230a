// Package chat implements the conversation synchronizer: the operations and
// client-side state that keep a user's contacts and messages in step with the
// backing store, over a polling floor plus push change notifications.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/thymlegram/thymlegram/internal/crypto"
	"github.com/thymlegram/thymlegram/internal/models"
	"github.com/thymlegram/thymlegram/internal/store"
)

// Validation failures reported inline to the user; none of them writes a row.
var (
	ErrEmptyUsername    = errors.New("chat: username is empty")
	ErrSelfContact      = errors.New("chat: cannot add yourself as a contact")
	ErrUnknownUser      = errors.New("chat: no user with that username")
	ErrDuplicateContact = errors.New("chat: contact already exists")
	ErrEmptyMessage     = errors.New("chat: message is empty")
)

// Preview lengths, in runes, before the "..." marker is appended.
const (
	contactPreviewLimit = 30
	alertPreviewLimit   = 50
)

// Contact is a contact-list entry: the counterpart user plus a decrypted,
// truncated preview of the newest message exchanged with them.
type Contact struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	LastMessage string    `json:"last_message,omitempty"`
}

// TempContact is a temporary-conversation entry as seen by its owner.
type TempContact struct {
	ID             uuid.UUID `json:"id"`
	ContactUserID  uuid.UUID `json:"contact_user_id"`
	Username       string    `json:"username"`
	ConversationID uuid.UUID `json:"conversation_id"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Message is a decrypted message ready for display.
type Message struct {
	ID         uuid.UUID `json:"id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Service carries the stateless operations over the store boundary. Sessions
// and HTTP handlers share one Service so validation exists in one place.
type Service struct {
	store store.Store
	key   string
}

func NewService(s store.Store, key string) *Service {
	return &Service{store: s, key: key}
}

// DerivedUsername is the automatic username for a fresh account: the local
// part of the email, or "user" when even that is missing.
func DerivedUsername(email string) string {
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		return local
	}
	return "user"
}

// LoadContacts fetches the user's contact rows and resolves, concurrently per
// contact, the counterpart profile and the decrypted last-message preview.
// A missing last message is an expected empty state; other preview errors are
// logged and leave the preview blank rather than failing the whole list.
func (s *Service) LoadContacts(ctx context.Context, userID uuid.UUID) ([]Contact, error) {
	rows, err := s.store.ContactsOf(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}

	out := make([]Contact, len(rows))
	gone := make([]bool, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	for i, row := range rows {
		g.Go(func() error {
			p, err := s.store.ProfileByID(gctx, row.ContactUserID)
			if errors.Is(err, store.ErrNotFound) {
				gone[i] = true
				return nil
			}
			if err != nil {
				return err
			}
			out[i] = Contact{ID: p.ID, Username: p.Username}

			last, err := s.store.LastMessageBetween(gctx, userID, p.ID)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			if err != nil {
				log.Printf("last message for contact %s: %v", p.ID, err)
				return nil
			}
			out[i].LastMessage = truncate(crypto.Decrypt(last.Content, s.key), contactPreviewLimit)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}

	kept := out[:0]
	for i, c := range out {
		if !gone[i] {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

// LoadMessages returns every message between the pair, oldest first, with
// bodies decrypted for display.
func (s *Service) LoadMessages(ctx context.Context, userID, contactID uuid.UUID) ([]Message, error) {
	rows, err := s.store.MessagesBetween(ctx, userID, contactID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	out := make([]Message, len(rows))
	for i, m := range rows {
		out[i] = Message{
			ID:         m.ID,
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			Content:    crypto.Decrypt(m.Content, s.key),
			CreatedAt:  m.CreatedAt,
		}
	}
	return out, nil
}

// SendMessage encrypts and stores a persistent message, returning the stored
// row with its plaintext body so the caller can append it locally without
// waiting for the next fetch.
func (s *Service) SendMessage(ctx context.Context, senderID, receiverID uuid.UUID, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	token, err := crypto.Encrypt(text, s.key)
	if err != nil {
		return nil, fmt.Errorf("encrypt message: %w", err)
	}
	m := &models.Message{SenderID: senderID, ReceiverID: receiverID, Content: token}
	if err := s.store.CreateMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &Message{
		ID:         m.ID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    text,
		CreatedAt:  m.CreatedAt,
	}, nil
}

// AddContact resolves the target username and writes the mirrored pair.
func (s *Service) AddContact(ctx context.Context, userID uuid.UUID, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrEmptyUsername
	}

	own, err := s.store.ProfileByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve own profile: %w", err)
	}
	if strings.EqualFold(username, own.Username) {
		return ErrSelfContact
	}

	target, err := s.store.ProfileByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUnknownUser
	}
	if err != nil {
		return fmt.Errorf("resolve contact: %w", err)
	}
	if target.ID == userID {
		return ErrSelfContact
	}

	exists, err := s.store.ContactPairExists(ctx, userID, target.ID)
	if err != nil {
		return fmt.Errorf("check existing contact: %w", err)
	}
	if exists {
		return ErrDuplicateContact
	}

	if err := s.store.CreateContactPair(ctx, userID, target.ID); err != nil {
		return fmt.Errorf("add contact: %w", err)
	}
	return nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
