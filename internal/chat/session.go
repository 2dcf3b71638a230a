package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thymlegram/thymlegram/internal/crypto"
	"github.com/thymlegram/thymlegram/internal/models"
	"github.com/thymlegram/thymlegram/internal/store"
)

// Alert is the user-facing notification raised when a message involving the
// user is inserted, whoever the active contact is.
type Alert struct {
	From    string
	Preview string
}

// Session is one user's live view of the persistent-message side: the contact
// list, the selected contact, and the decrypted messages of the active pair.
//
// Reconciliation is deliberately loose. The poll, the push events, and local
// sends all write the same message list, last write wins; every local mutation
// is shortly followed by a fetch that makes the store authoritative again.
type Session struct {
	svc      *Service
	notifier store.Notifier
	user     *models.Profile

	// PollInterval is the reconciliation floor for the active conversation.
	// Set before Start to override the default of one second.
	PollInterval time.Duration

	onAlert func(Alert)

	mu       sync.Mutex
	contacts []Contact
	selected *Contact
	messages []Message

	sub       store.Subscription
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewSession(svc *Service, notifier store.Notifier, user *models.Profile) *Session {
	return &Session{
		svc:          svc,
		notifier:     notifier,
		user:         user,
		PollInterval: time.Second,
		done:         make(chan struct{}),
	}
}

// OnAlert registers the notification callback. Call before Start.
func (s *Session) OnAlert(fn func(Alert)) { s.onAlert = fn }

// Start loads the contact list and begins the poll/push loop.
func (s *Session) Start(ctx context.Context) error {
	contacts, err := s.svc.LoadContacts(ctx, s.user.ID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.contacts = contacts
	s.mu.Unlock()

	sub, err := s.notifier.Subscribe(ctx, store.TableMessages)
	if err != nil {
		return fmt.Errorf("subscribe to messages: %w", err)
	}
	s.sub = sub

	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Close tears down the poll timer and the change subscription so neither can
// fire against a dead view.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	s.wg.Wait()
}

// Select makes a contact the active conversation and loads its messages.
func (s *Session) Select(ctx context.Context, contactID uuid.UUID) error {
	s.mu.Lock()
	var picked *Contact
	for i := range s.contacts {
		if s.contacts[i].ID == contactID {
			c := s.contacts[i]
			picked = &c
			break
		}
	}
	s.mu.Unlock()
	if picked == nil {
		return fmt.Errorf("select contact: %w", ErrUnknownUser)
	}

	messages, err := s.svc.LoadMessages(ctx, s.user.ID, contactID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.selected = picked
	s.messages = messages
	s.mu.Unlock()
	return nil
}

// Send encrypts and stores the message, then appends the plaintext copy to
// the local list without waiting for a round trip. Empty input or no selected
// contact is a silent no-op.
func (s *Session) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	selected := s.selected
	s.mu.Unlock()
	if selected == nil {
		return nil
	}

	sent, err := s.svc.SendMessage(ctx, s.user.ID, selected.ID, text)
	if errors.Is(err, ErrEmptyMessage) {
		return nil
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.messages = append(s.messages, *sent)
	s.mu.Unlock()

	s.refreshContacts(ctx)
	return nil
}

func (s *Session) Contacts() []Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Contact, len(s.contacts))
	copy(out, s.contacts)
	return out
}

func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) Selected() *Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return nil
	}
	c := *s.selected
	return &c
}

func (s *Session) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case ev, ok := <-s.sub.Events():
			if !ok {
				return
			}
			s.handleEvent(ctx, ev)
		case <-ticker.C:
			s.pollMessages(ctx)
		}
	}
}

// pollMessages re-fetches the active conversation wholesale. Runs every tick
// regardless of push notifications, as the reconciliation floor.
func (s *Session) pollMessages(ctx context.Context) {
	s.mu.Lock()
	selected := s.selected
	s.mu.Unlock()
	if selected == nil {
		return
	}

	messages, err := s.svc.LoadMessages(ctx, s.user.ID, selected.ID)
	if err != nil {
		log.Printf("poll messages: %v", err)
		return
	}
	s.mu.Lock()
	s.messages = messages
	s.mu.Unlock()
}

// handleEvent reacts to a pushed message insert: raise an alert, append to the
// active conversation when the row belongs to it, refresh contact previews.
func (s *Session) handleEvent(ctx context.Context, ev store.Event) {
	if ev.Op != store.OpInsert {
		return
	}
	var m models.Message
	if err := json.Unmarshal(ev.New, &m); err != nil {
		log.Printf("message event: bad row: %v", err)
		return
	}
	if m.SenderID != s.user.ID && m.ReceiverID != s.user.ID {
		return
	}

	plaintext := crypto.Decrypt(m.Content, s.svc.key)

	if s.onAlert != nil {
		from := "?"
		if p, err := s.svc.store.ProfileByID(ctx, m.SenderID); err == nil {
			from = p.Username
		}
		s.onAlert(Alert{From: from, Preview: truncate(plaintext, alertPreviewLimit)})
	}

	s.mu.Lock()
	if s.selected != nil && (m.SenderID == s.selected.ID || m.ReceiverID == s.selected.ID) {
		s.messages = append(s.messages, Message{
			ID:         m.ID,
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			Content:    plaintext,
			CreatedAt:  m.CreatedAt,
		})
	}
	s.mu.Unlock()

	s.refreshContacts(ctx)
}

func (s *Session) refreshContacts(ctx context.Context) {
	contacts, err := s.svc.LoadContacts(ctx, s.user.ID)
	if err != nil {
		log.Printf("refresh contacts: %v", err)
		return
	}
	s.mu.Lock()
	s.contacts = contacts
	s.mu.Unlock()
}

// AddContact validates and writes the mirrored pair, then refreshes the list.
func (s *Session) AddContact(ctx context.Context, username string) error {
	if err := s.svc.AddContact(ctx, s.user.ID, username); err != nil {
		return err
	}
	s.refreshContacts(ctx)
	return nil
}
