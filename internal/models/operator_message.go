package models

import (
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// SenderOperator is the only sender role this process writes or relays.
const SenderOperator = "operator"

// OperatorMessage is a dashboard reply addressed to the citizen behind a
// complaint. Delivered flips false→true exactly once: the relay loop marks it
// after a successful send, the push gateway writes it already true because
// delivery happened synchronously.
type OperatorMessage struct {
	gorm.Model

	ComplaintID uint   `gorm:"not null;index"`
	Sender      string `gorm:"default:operator"`
	Text        string `gorm:"type:text"`
	// Attachments holds Telegram file IDs sent as photos.
	Attachments pq.StringArray `gorm:"type:text[]"`
	Delivered   bool           `gorm:"index"`
}
