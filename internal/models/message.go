package models

import (
	"time"

	"gorm.io/gorm"
)

// UserMessage logs every inbound WhatsApp message for auditing
type UserMessage struct {
	gorm.Model

	Phone      string    `json:"phone" gorm:"index"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}
