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

	"github.com/thymlegram/thymlegram/internal/models"
	"github.com/thymlegram/thymlegram/internal/store"
)

// TempSession is one user's live view of the temporary-conversation side. On
// top of the classic session's structure it keeps a per-second countdown for
// the selected conversation and periodically sweeps expired conversations.
type TempSession struct {
	svc      *Service
	notifier store.Notifier
	user     *models.Profile

	// Tunable before Start; defaults match the original client.
	MessagePollInterval    time.Duration // 3s: active-conversation refetch
	ContactRefreshInterval time.Duration // 10s: contact-list refetch
	SweepInterval          time.Duration // 30s: expired-conversation cleanup
	CountdownInterval      time.Duration // 1s: remaining-time recompute

	mu        sync.Mutex
	contacts  []TempContact
	selected  *TempContact
	messages  []Message
	remaining string

	contactSub store.Subscription
	messageSub store.Subscription
	done       chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
}

func NewTempSession(svc *Service, notifier store.Notifier, user *models.Profile) *TempSession {
	return &TempSession{
		svc:                    svc,
		notifier:               notifier,
		user:                   user,
		MessagePollInterval:    3 * time.Second,
		ContactRefreshInterval: 10 * time.Second,
		SweepInterval:          30 * time.Second,
		CountdownInterval:      time.Second,
		done:                   make(chan struct{}),
	}
}

// Start runs an initial sweep and contact load, subscribes to temp-contact and
// temp-message changes, and begins the timer loop.
func (s *TempSession) Start(ctx context.Context) error {
	if _, err := s.svc.CleanExpiredConversations(ctx); err != nil {
		log.Printf("initial sweep: %v", err)
	}
	if err := s.refreshContacts(ctx); err != nil {
		return err
	}

	contactSub, err := s.notifier.Subscribe(ctx, store.TableTempContacts)
	if err != nil {
		return fmt.Errorf("subscribe to temp contacts: %w", err)
	}
	messageSub, err := s.notifier.Subscribe(ctx, store.TableTempMessages)
	if err != nil {
		contactSub.Unsubscribe()
		return fmt.Errorf("subscribe to temp messages: %w", err)
	}
	s.contactSub = contactSub
	s.messageSub = messageSub

	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Close tears down every timer and subscription owned by the view.
func (s *TempSession) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	if s.contactSub != nil {
		s.contactSub.Unsubscribe()
	}
	if s.messageSub != nil {
		s.messageSub.Unsubscribe()
	}
	s.wg.Wait()
}

// Add creates a temporary conversation with the named user.
func (s *TempSession) Add(ctx context.Context, username string, duration time.Duration) error {
	if _, err := s.svc.AddTempContact(ctx, s.user.ID, username, duration); err != nil {
		return err
	}
	return s.refreshContacts(ctx)
}

// Select makes a temporary contact the active conversation.
func (s *TempSession) Select(ctx context.Context, contactID uuid.UUID) error {
	s.mu.Lock()
	var picked *TempContact
	for i := range s.contacts {
		if s.contacts[i].ID == contactID {
			c := s.contacts[i]
			picked = &c
			break
		}
	}
	s.mu.Unlock()
	if picked == nil {
		return fmt.Errorf("select temporary contact: %w", ErrUnknownUser)
	}

	messages, err := s.svc.LoadTempMessages(ctx, s.user.ID, picked.ContactUserID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.selected = picked
	s.messages = messages
	s.remaining = RemainingTime(picked.ExpiresAt, time.Now())
	s.mu.Unlock()
	return nil
}

// Send stores the message stamped with the active conversation identifier.
// There is no optimistic append; the next poll or push surfaces it. Empty
// input or no selection is a silent no-op.
func (s *TempSession) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	selected := s.selected
	s.mu.Unlock()
	if selected == nil {
		return nil
	}

	err := s.svc.SendTempMessage(ctx, s.user.ID, selected.ContactUserID, selected.ConversationID, text)
	if errors.Is(err, ErrEmptyMessage) {
		return nil
	}
	return err
}

// Stop terminates the active conversation: messages, then both contact rows,
// then the local selection. On a failed delete the selection is kept — the
// rows still exist, so the view stays consistent and the error is reported.
func (s *TempSession) Stop(ctx context.Context) error {
	s.mu.Lock()
	selected := s.selected
	s.mu.Unlock()
	if selected == nil {
		return nil
	}

	if err := s.svc.StopConversation(ctx, s.user.ID, selected.ContactUserID); err != nil {
		return err
	}

	s.mu.Lock()
	s.selected = nil
	s.messages = nil
	s.remaining = ""
	kept := s.contacts[:0]
	for _, c := range s.contacts {
		if c.ID != selected.ID {
			kept = append(kept, c)
		}
	}
	s.contacts = kept
	s.mu.Unlock()
	return nil
}

func (s *TempSession) Contacts() []TempContact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TempContact, len(s.contacts))
	copy(out, s.contacts)
	return out
}

func (s *TempSession) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *TempSession) Selected() *TempContact {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return nil
	}
	c := *s.selected
	return &c
}

// Remaining is the rendered countdown for the active conversation, empty when
// nothing is selected.
func (s *TempSession) Remaining() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

func (s *TempSession) loop(ctx context.Context) {
	defer s.wg.Done()
	messagePoll := time.NewTicker(s.MessagePollInterval)
	contactRefresh := time.NewTicker(s.ContactRefreshInterval)
	sweep := time.NewTicker(s.SweepInterval)
	countdown := time.NewTicker(s.CountdownInterval)
	defer messagePoll.Stop()
	defer contactRefresh.Stop()
	defer sweep.Stop()
	defer countdown.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case ev, ok := <-s.contactSub.Events():
			if !ok {
				return
			}
			s.handleContactEvent(ctx, ev)
		case ev, ok := <-s.messageSub.Events():
			if !ok {
				return
			}
			s.handleMessageEvent(ctx, ev)
		case <-messagePoll.C:
			s.pollMessages(ctx)
		case <-contactRefresh.C:
			if err := s.refreshContacts(ctx); err != nil {
				log.Printf("refresh temp contacts: %v", err)
			}
		case <-sweep.C:
			if _, err := s.svc.CleanExpiredConversations(ctx); err != nil {
				log.Printf("expiry sweep: %v", err)
				continue
			}
			if err := s.refreshContacts(ctx); err != nil {
				log.Printf("refresh temp contacts: %v", err)
			}
		case <-countdown.C:
			s.tickCountdown()
		}
	}
}

// tickCountdown recomputes the remaining-time display. Pure presentation; the
// sweep is what actually deletes expired conversations.
func (s *TempSession) tickCountdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		s.remaining = ""
		return
	}
	s.remaining = RemainingTime(s.selected.ExpiresAt, time.Now())
}

func (s *TempSession) pollMessages(ctx context.Context) {
	s.mu.Lock()
	selected := s.selected
	s.mu.Unlock()
	if selected == nil {
		return
	}

	messages, err := s.svc.LoadTempMessages(ctx, s.user.ID, selected.ContactUserID)
	if err != nil {
		log.Printf("poll temp messages: %v", err)
		return
	}
	s.mu.Lock()
	s.messages = messages
	s.mu.Unlock()
}

// refreshContacts reloads the list and clears the selection when the selected
// conversation no longer exists (stopped by the peer, or swept).
func (s *TempSession) refreshContacts(ctx context.Context) error {
	contacts, err := s.svc.LoadTempContacts(ctx, s.user.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.contacts = contacts
	if s.selected != nil {
		found := false
		for _, c := range contacts {
			if c.ID == s.selected.ID {
				found = true
				break
			}
		}
		if !found {
			s.selected = nil
			s.messages = nil
			s.remaining = ""
		}
	}
	s.mu.Unlock()
	return nil
}

// handleContactEvent fires on any temp-contact change where the user is owner
// or counterpart, on either side of the mirrored pair.
func (s *TempSession) handleContactEvent(ctx context.Context, ev store.Event) {
	row := ev.New
	if len(row) == 0 {
		row = ev.Old
	}
	var c models.TempContact
	if err := json.Unmarshal(row, &c); err != nil {
		log.Printf("temp contact event: bad row: %v", err)
		return
	}
	if c.UserID != s.user.ID && c.ContactUserID != s.user.ID {
		return
	}
	if err := s.refreshContacts(ctx); err != nil {
		log.Printf("refresh temp contacts: %v", err)
	}
}

// handleMessageEvent refetches the active conversation when a pushed insert
// belongs to it.
func (s *TempSession) handleMessageEvent(ctx context.Context, ev store.Event) {
	if ev.Op != store.OpInsert {
		return
	}
	var m models.TempMessage
	if err := json.Unmarshal(ev.New, &m); err != nil {
		log.Printf("temp message event: bad row: %v", err)
		return
	}

	s.mu.Lock()
	selected := s.selected
	s.mu.Unlock()
	if selected == nil || m.ConversationID != selected.ConversationID {
		return
	}
	s.pollMessages(ctx)
}
