package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thymlegram/thymlegram/internal/crypto"
	"github.com/thymlegram/thymlegram/internal/models"
	"github.com/thymlegram/thymlegram/internal/store"
)

// AddTempContact creates a temporary conversation: two mirrored rows sharing
// one conversation identifier and one expiry timestamp.
func (s *Service) AddTempContact(ctx context.Context, userID uuid.UUID, username string, duration time.Duration) (*TempContact, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrEmptyUsername
	}

	own, err := s.store.ProfileByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve own profile: %w", err)
	}

	target, err := s.store.ProfileByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("resolve contact: %w", err)
	}
	if target.ID == userID {
		return nil, ErrSelfContact
	}

	exists, err := s.store.TempContactPairExists(ctx, userID, target.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing contact: %w", err)
	}
	if exists {
		return nil, ErrDuplicateContact
	}

	expiresAt := time.Now().Add(duration)
	conversationID := uuid.New()
	ownRow := &models.TempContact{
		ID:             uuid.New(),
		UserID:         userID,
		ContactUserID:  target.ID,
		Username:       target.Username,
		ConversationID: conversationID,
		ExpiresAt:      expiresAt,
	}
	mirror := &models.TempContact{
		ID:             uuid.New(),
		UserID:         target.ID,
		ContactUserID:  userID,
		Username:       own.Username,
		ConversationID: conversationID,
		ExpiresAt:      expiresAt,
	}
	if err := s.store.CreateTempContactPair(ctx, ownRow, mirror); err != nil {
		return nil, fmt.Errorf("add temporary contact: %w", err)
	}

	return &TempContact{
		ID:             ownRow.ID,
		ContactUserID:  target.ID,
		Username:       target.Username,
		ConversationID: conversationID,
		ExpiresAt:      expiresAt,
	}, nil
}

func (s *Service) LoadTempContacts(ctx context.Context, userID uuid.UUID) ([]TempContact, error) {
	rows, err := s.store.TempContactsOf(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load temporary contacts: %w", err)
	}
	out := make([]TempContact, len(rows))
	for i, c := range rows {
		out[i] = TempContact{
			ID:             c.ID,
			ContactUserID:  c.ContactUserID,
			Username:       c.Username,
			ConversationID: c.ConversationID,
			ExpiresAt:      c.ExpiresAt,
		}
	}
	return out, nil
}

func (s *Service) LoadTempMessages(ctx context.Context, userID, contactUserID uuid.UUID) ([]Message, error) {
	rows, err := s.store.TempMessagesBetween(ctx, userID, contactUserID)
	if err != nil {
		return nil, fmt.Errorf("load temporary messages: %w", err)
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

// SendTempMessage stores a message stamped with the conversation identifier.
// Unlike the persistent path there is no optimistic local copy; the next poll
// or push cycle surfaces it.
func (s *Service) SendTempMessage(ctx context.Context, senderID, receiverID, conversationID uuid.UUID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	token, err := crypto.Encrypt(text, s.key)
	if err != nil {
		return fmt.Errorf("encrypt message: %w", err)
	}
	m := &models.TempMessage{
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        token,
		ConversationID: conversationID,
	}
	if err := s.store.CreateTempMessage(ctx, m); err != nil {
		return fmt.Errorf("send temporary message: %w", err)
	}
	return nil
}

// StopConversation tears a temporary conversation down: messages first so no
// ciphertext outlives the contact rows that identify it, then both contact
// rows. The two deletes are not atomic; an interruption between them leaves
// only benign leftovers that the next sweep removes.
func (s *Service) StopConversation(ctx context.Context, userID, contactUserID uuid.UUID) error {
	if err := s.store.DeleteTempMessagesBetween(ctx, userID, contactUserID); err != nil {
		return fmt.Errorf("delete conversation messages: %w", err)
	}
	if err := s.store.DeleteTempContactPair(ctx, userID, contactUserID); err != nil {
		return fmt.Errorf("delete conversation contacts: %w", err)
	}
	return nil
}

// CleanExpiredConversations removes every expired temporary conversation:
// messages by conversation identifier, then the expired contact rows. Safe to
// run concurrently from several clients; deleting already-deleted rows is a
// no-op. Returns how many contact rows were found expired.
func (s *Service) CleanExpiredConversations(ctx context.Context) (int, error) {
	now := time.Now()
	expired, err := s.store.ExpiredTempContacts(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("select expired conversations: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	seen := make(map[uuid.UUID]struct{})
	var conversationIDs []uuid.UUID
	for _, c := range expired {
		if _, ok := seen[c.ConversationID]; ok {
			continue
		}
		seen[c.ConversationID] = struct{}{}
		conversationIDs = append(conversationIDs, c.ConversationID)
	}

	if err := s.store.DeleteTempMessagesByConversation(ctx, conversationIDs); err != nil {
		return 0, fmt.Errorf("delete expired messages: %w", err)
	}
	if err := s.store.DeleteExpiredTempContacts(ctx, now); err != nil {
		return 0, fmt.Errorf("delete expired contacts: %w", err)
	}
	return len(expired), nil
}

// RemainingTime renders the countdown for a temporary conversation as
// "12m 34s", or "expired" once the deadline has passed.
func RemainingTime(expiresAt, now time.Time) string {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return "expired"
	}
	return fmt.Sprintf("%dm %ds", int(d/time.Minute), int(d%time.Minute/time.Second))
}
