package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Citizen is an end user of the bot, created on first contact.
type Citizen struct {
	// ID is the internal UUID used as the foreign key from complaints.
	ID string `gorm:"primaryKey" json:"id"`
	// TelegramID is the chat identifier messages are delivered to.
	TelegramID int64 `gorm:"uniqueIndex"`
	// Username is the Telegram handle without the "@", may be empty.
	Username  string
	CreatedAt time.Time
}

// BeforeCreate is a GORM hook generating the UUID when none is set.
func (c *Citizen) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// DisplayName is the handle stored on complaints for the dashboard.
func (c *Citizen) DisplayName() string {
	if c.Username == "" {
		return "Anonymous"
	}
	return "@" + c.Username
}
