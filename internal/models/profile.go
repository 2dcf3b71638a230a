package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the account row. The original kept auth users and public
// profiles in separate tables; with auth self-hosted they collapse into one.
type Profile struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Username  string    `json:"username" gorm:"uniqueIndex;not null"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
