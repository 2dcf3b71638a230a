package models

import (
	"time"

	"github.com/google/uuid"
)

// TempMessage is a message scoped to a temporary conversation. The
// ConversationID ties it to the TempContact pair so expiry cleanup and
// stop-conversation can delete the whole conversation in bulk.
type TempMessage struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	SenderID       uuid.UUID `json:"sender_id" gorm:"type:uuid;index;not null"`
	ReceiverID     uuid.UUID `json:"receiver_id" gorm:"type:uuid;index;not null"`
	Content        string    `json:"content" gorm:"type:text;not null"`
	ConversationID uuid.UUID `json:"conversation_id" gorm:"type:uuid;index;not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}
