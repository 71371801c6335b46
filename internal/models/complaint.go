package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Complaint statuses. "new" and "in_work" are set by this process; the rest
// are driven from the operator dashboard.
const (
	StatusNew           = "new"
	StatusInWork        = "in_work"
	StatusResolved      = "resolved"
	StatusRejected      = "rejected"
	StatusClarification = "clarification_needed"
)

// KnownStatus reports whether s is one of the complaint statuses.
func KnownStatus(s string) bool {
	switch s {
	case StatusNew, StatusInWork, StatusResolved, StatusRejected, StatusClarification:
		return true
	}
	return false
}

// ExtraData is a free-form key/value blob stored as jsonb (e.g. the transport
// route info collected at the extra-field step).
type ExtraData map[string]string

// Value implements driver.Valuer for jsonb columns.
func (e ExtraData) Value() (driver.Value, error) {
	if e == nil {
		return "{}", nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for jsonb columns.
func (e *ExtraData) Scan(value interface{}) error {
	if value == nil {
		*e = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("extra_data: unsupported scan type %T", value)
	}
	return json.Unmarshal(b, e)
}

// Complaint is a submitted service request. Immutable once created except for
// Status, which the dashboard and the message relay advance.
type Complaint struct {
	gorm.Model

	// CitizenID references the submitting citizen.
	CitizenID string `gorm:"type:uuid;not null;index"`
	// Username is the citizen's display handle at submission time.
	Username     string
	ContactPhone string
	// Category and SubCategory are display names from the catalog.
	Category    string `gorm:"not null"`
	SubCategory string
	// Location is either "lat,long", a free-text address, or the
	// "Не указано" sentinel. Empty for simple-flow categories.
	Location    string
	Description string    `gorm:"type:text"`
	ExtraData   ExtraData `gorm:"type:jsonb"`
	// Photos holds Telegram file IDs, proxied on demand via /images.
	Photos   pq.StringArray `gorm:"type:text[]"`
	Status   string         `gorm:"default:new;index"`
	Priority string         `gorm:"default:medium"`
}
