package models

import (
	"time"

	"github.com/google/uuid"
)

// TempContact is one direction of a temporary relationship. Both rows of a
// pair carry the same ConversationID and ExpiresAt; Username is a snapshot of
// the counterpart's name taken when the conversation was created.
type TempContact struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	UserID         uuid.UUID `json:"user_id" gorm:"type:uuid;index;not null"`
	ContactUserID  uuid.UUID `json:"contact_user_id" gorm:"type:uuid;index;not null"`
	Username       string    `json:"username" gorm:"not null"`
	ConversationID uuid.UUID `json:"conversation_id" gorm:"type:uuid;index;not null"`
	ExpiresAt      time.Time `json:"expires_at" gorm:"index;not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}
