package models

import (
	"time"

	"github.com/google/uuid"
)

// Contact is one direction of a persistent relationship. Adding a contact
// always writes the mirrored pair, one row per direction.
type Contact struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	UserID        uuid.UUID `json:"user_id" gorm:"type:uuid;index;not null"`
	ContactUserID uuid.UUID `json:"contact_user_id" gorm:"type:uuid;index;not null"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}
