package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a persistent direct message. Content is always ciphertext at
// rest; plaintext exists only in memory after decryption for display.
type Message struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	SenderID   uuid.UUID `json:"sender_id" gorm:"type:uuid;index;not null"`
	ReceiverID uuid.UUID `json:"receiver_id" gorm:"type:uuid;index;not null"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}
