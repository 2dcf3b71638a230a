// Package memory is an in-process implementation of the store boundary. It
// mirrors the Postgres backend's observable behavior — case-insensitive
// username lookup, ascending message order, idempotent deletes, change events
// on insert and delete — and backs the unit tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thymlegram/thymlegram/internal/models"
	"github.com/thymlegram/thymlegram/internal/store"
)

type Store struct {
	mu           sync.Mutex
	profiles     []models.Profile
	contacts     []models.Contact
	messages     []models.Message
	tempContacts []models.TempContact
	tempMessages []models.TempMessage

	subs map[string]map[*subscription]struct{}
}

func New() *Store {
	return &Store{subs: make(map[string]map[*subscription]struct{})}
}

func (s *Store) ProfileByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ProfileByUsername(_ context.Context, username string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if strings.EqualFold(p.Username, username) {
			p := p
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ProfileByEmail(_ context.Context, email string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.Email == email {
			p := p
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateProfile(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.profiles = append(s.profiles, *p)
	return nil
}

func (s *Store) ContactsOf(_ context.Context, userID uuid.UUID) ([]models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Contact
	for _, c := range s.contacts {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) ContactPairExists(_ context.Context, a, b uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contacts {
		if (c.UserID == a && c.ContactUserID == b) || (c.UserID == b && c.ContactUserID == a) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateContactPair(_ context.Context, a, b uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.contacts = append(s.contacts,
		models.Contact{ID: uuid.New(), UserID: a, ContactUserID: b, CreatedAt: now},
		models.Contact{ID: uuid.New(), UserID: b, ContactUserID: a, CreatedAt: now},
	)
	return nil
}

func betweenPair(sender, receiver, a, b uuid.UUID) bool {
	return (sender == a && receiver == b) || (sender == b && receiver == a)
}

func (s *Store) LastMessageBetween(_ context.Context, a, b uuid.UUID) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last *models.Message
	for i := range s.messages {
		m := s.messages[i]
		if !betweenPair(m.SenderID, m.ReceiverID, a, b) {
			continue
		}
		if last == nil || m.CreatedAt.After(last.CreatedAt) {
			m := m
			last = &m
		}
	}
	if last == nil {
		return nil, store.ErrNotFound
	}
	return last, nil
}

func (s *Store) MessagesBetween(_ context.Context, a, b uuid.UUID) ([]models.Message, error) {
	s.mu.Lock()
	var out []models.Message
	for _, m := range s.messages {
		if betweenPair(m.SenderID, m.ReceiverID, a, b) {
			out = append(out, m)
		}
	}
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateMessage(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	s.messages = append(s.messages, *m)
	s.mu.Unlock()
	s.emit(store.TableMessages, store.OpInsert, m, nil)
	return nil
}

func (s *Store) TempContactsOf(_ context.Context, userID uuid.UUID) ([]models.TempContact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TempContact
	for _, c := range s.tempContacts {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) TempContactPairExists(_ context.Context, a, b uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.tempContacts {
		if (c.UserID == a && c.ContactUserID == b) || (c.UserID == b && c.ContactUserID == a) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateTempContactPair(_ context.Context, own, mirror *models.TempContact) error {
	s.mu.Lock()
	for _, c := range []*models.TempContact{own, mirror} {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now()
		}
		s.tempContacts = append(s.tempContacts, *c)
	}
	s.mu.Unlock()
	s.emit(store.TableTempContacts, store.OpInsert, own, nil)
	s.emit(store.TableTempContacts, store.OpInsert, mirror, nil)
	return nil
}

func (s *Store) TempMessagesBetween(_ context.Context, a, b uuid.UUID) ([]models.TempMessage, error) {
	s.mu.Lock()
	var out []models.TempMessage
	for _, m := range s.tempMessages {
		if betweenPair(m.SenderID, m.ReceiverID, a, b) {
			out = append(out, m)
		}
	}
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateTempMessage(_ context.Context, m *models.TempMessage) error {
	s.mu.Lock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	s.tempMessages = append(s.tempMessages, *m)
	s.mu.Unlock()
	s.emit(store.TableTempMessages, store.OpInsert, m, nil)
	return nil
}

func (s *Store) DeleteTempMessagesBetween(_ context.Context, a, b uuid.UUID) error {
	s.mu.Lock()
	var kept []models.TempMessage
	var dropped []models.TempMessage
	for _, m := range s.tempMessages {
		if betweenPair(m.SenderID, m.ReceiverID, a, b) {
			dropped = append(dropped, m)
		} else {
			kept = append(kept, m)
		}
	}
	s.tempMessages = kept
	s.mu.Unlock()
	for i := range dropped {
		s.emit(store.TableTempMessages, store.OpDelete, nil, &dropped[i])
	}
	return nil
}

func (s *Store) DeleteTempContactPair(_ context.Context, a, b uuid.UUID) error {
	s.mu.Lock()
	var kept []models.TempContact
	var dropped []models.TempContact
	for _, c := range s.tempContacts {
		if (c.UserID == a && c.ContactUserID == b) || (c.UserID == b && c.ContactUserID == a) {
			dropped = append(dropped, c)
		} else {
			kept = append(kept, c)
		}
	}
	s.tempContacts = kept
	s.mu.Unlock()
	for i := range dropped {
		s.emit(store.TableTempContacts, store.OpDelete, nil, &dropped[i])
	}
	return nil
}

func (s *Store) ExpiredTempContacts(_ context.Context, now time.Time) ([]models.TempContact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TempContact
	for _, c := range s.tempContacts {
		if c.ExpiresAt.Before(now) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) DeleteTempMessagesByConversation(_ context.Context, conversationIDs []uuid.UUID) error {
	ids := make(map[uuid.UUID]struct{}, len(conversationIDs))
	for _, id := range conversationIDs {
		ids[id] = struct{}{}
	}
	s.mu.Lock()
	var kept []models.TempMessage
	var dropped []models.TempMessage
	for _, m := range s.tempMessages {
		if _, ok := ids[m.ConversationID]; ok {
			dropped = append(dropped, m)
		} else {
			kept = append(kept, m)
		}
	}
	s.tempMessages = kept
	s.mu.Unlock()
	for i := range dropped {
		s.emit(store.TableTempMessages, store.OpDelete, nil, &dropped[i])
	}
	return nil
}

func (s *Store) DeleteExpiredTempContacts(_ context.Context, now time.Time) error {
	s.mu.Lock()
	var kept []models.TempContact
	var dropped []models.TempContact
	for _, c := range s.tempContacts {
		if c.ExpiresAt.Before(now) {
			dropped = append(dropped, c)
		} else {
			kept = append(kept, c)
		}
	}
	s.tempContacts = kept
	s.mu.Unlock()
	for i := range dropped {
		s.emit(store.TableTempContacts, store.OpDelete, nil, &dropped[i])
	}
	return nil
}

// Counts reports live row totals per table; tests use it to assert that
// repeated sweeps do not delete anything extra.
func (s *Store) Counts() (contacts, messages, tempContacts, tempMessages int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contacts), len(s.messages), len(s.tempContacts), len(s.tempMessages)
}
