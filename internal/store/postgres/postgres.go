// Package postgres backs the store boundary with Postgres: gorm for row CRUD
// and LISTEN/NOTIFY for the change feed.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/thymlegram/thymlegram/internal/models"
	"github.com/thymlegram/thymlegram/internal/store"
)

type Store struct {
	db       *gorm.DB
	listener *listener
}

// Open connects, runs migrations, and installs the change-notification
// triggers. The returned store implements both store.Store and store.Notifier.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&models.Profile{},
		&models.Contact{},
		&models.Message{},
		&models.TempContact{},
		&models.TempMessage{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if err := installTriggers(db); err != nil {
		return nil, fmt.Errorf("install notify triggers: %w", err)
	}

	log.Println("Successfully connected to database")
	return &Store{db: db, listener: newListener(dsn)}, nil
}

// Close stops the notification listener. The gorm pool is left to the process.
func (s *Store) Close() {
	s.listener.close()
}

func (s *Store) Subscribe(ctx context.Context, table string) (store.Subscription, error) {
	return s.listener.subscribe(ctx, table)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

func (s *Store) ProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) ProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.WithContext(ctx).Where("LOWER(username) = LOWER(?)", username).First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) ProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var p models.Profile
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) CreateProfile(ctx context.Context, p *models.Profile) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *Store) ContactsOf(ctx context.Context, userID uuid.UUID) ([]models.Contact, error) {
	var out []models.Contact
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (s *Store) ContactPairExists(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Contact{}).
		Where("(user_id = ? AND contact_user_id = ?) OR (user_id = ? AND contact_user_id = ?)", a, b, b, a).
		Count(&n).Error
	return n > 0, err
}

// CreateContactPair writes both directions. The two inserts are intentionally
// not wrapped in a transaction; a half-written pair is tolerated and shows up
// as whatever subset succeeded on the next read.
func (s *Store) CreateContactPair(ctx context.Context, a, b uuid.UUID) error {
	if err := s.db.WithContext(ctx).Create(&models.Contact{UserID: a, ContactUserID: b}).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&models.Contact{UserID: b, ContactUserID: a}).Error
}

func pairClause(db *gorm.DB, a, b uuid.UUID) *gorm.DB {
	return db.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a)
}

func (s *Store) LastMessageBetween(ctx context.Context, a, b uuid.UUID) (*models.Message, error) {
	var m models.Message
	err := pairClause(s.db.WithContext(ctx), a, b).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *Store) MessagesBetween(ctx context.Context, a, b uuid.UUID) ([]models.Message, error) {
	var out []models.Message
	err := pairClause(s.db.WithContext(ctx), a, b).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (s *Store) CreateMessage(ctx context.Context, m *models.Message) error {
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *Store) TempContactsOf(ctx context.Context, userID uuid.UUID) ([]models.TempContact, error) {
	var out []models.TempContact
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (s *Store) TempContactPairExists(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.TempContact{}).
		Where("(user_id = ? AND contact_user_id = ?) OR (user_id = ? AND contact_user_id = ?)", a, b, b, a).
		Count(&n).Error
	return n > 0, err
}

func (s *Store) CreateTempContactPair(ctx context.Context, own, mirror *models.TempContact) error {
	if err := s.db.WithContext(ctx).Create(own).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(mirror).Error
}

func (s *Store) TempMessagesBetween(ctx context.Context, a, b uuid.UUID) ([]models.TempMessage, error) {
	var out []models.TempMessage
	err := pairClause(s.db.WithContext(ctx).Model(&models.TempMessage{}), a, b).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (s *Store) CreateTempMessage(ctx context.Context, m *models.TempMessage) error {
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *Store) DeleteTempMessagesBetween(ctx context.Context, a, b uuid.UUID) error {
	return pairClause(s.db.WithContext(ctx), a, b).Delete(&models.TempMessage{}).Error
}

func (s *Store) DeleteTempContactPair(ctx context.Context, a, b uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("(user_id = ? AND contact_user_id = ?) OR (user_id = ? AND contact_user_id = ?)", a, b, b, a).
		Delete(&models.TempContact{}).Error
}

func (s *Store) ExpiredTempContacts(ctx context.Context, now time.Time) ([]models.TempContact, error) {
	var out []models.TempContact
	err := s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Find(&out).Error
	return out, err
}

func (s *Store) DeleteTempMessagesByConversation(ctx context.Context, conversationIDs []uuid.UUID) error {
	if len(conversationIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("conversation_id IN ?", conversationIDs).
		Delete(&models.TempMessage{}).Error
}

func (s *Store) DeleteExpiredTempContacts(ctx context.Context, now time.Time) error {
	return s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.TempContact{}).Error
}
