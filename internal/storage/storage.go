// Package storage is the complaint repository: citizens, complaints and
// operator messages in PostgreSQL behind a narrow interface. Every method
// returns an error instead of panicking so a dead backend degrades to an
// apology message, and ErrNotFound lets callers tell "unknown ticket" apart
// from "database down".
package storage

import (
	"context"
	"errors"
	"log"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"cityhelper/backend/internal/models"
)

// ErrNotFound marks lookups that matched no row.
var ErrNotFound = errors.New("record not found")

// UndeliveredMessage is an operator message joined with the Telegram chat ID
// it must be delivered to.
type UndeliveredMessage struct {
	ID          uint
	ComplaintID uint
	Text        string
	Attachments pq.StringArray `gorm:"type:text[]"`
	ChatID      int64          `gorm:"column:telegram_id"`
}

// Repository is everything the bot needs from the backing store.
type Repository interface {
	SaveCitizenIfNotExists(ctx context.Context, telegramID int64, username string) (*models.Citizen, error)

	CreateComplaint(ctx context.Context, complaint *models.Complaint) error
	FindCitizenByComplaint(ctx context.Context, complaintID uint) (*models.Citizen, error)
	ListRecentComplaints(ctx context.Context, citizenID string, limit int) ([]models.Complaint, error)
	SetComplaintStatus(ctx context.Context, complaintID uint, status string) error

	AppendOperatorMessage(ctx context.Context, complaintID uint, text string, attachments []string, delivered bool) (*models.OperatorMessage, error)
	ListUndelivered(ctx context.Context) ([]UndeliveredMessage, error)
	MarkDelivered(ctx context.Context, messageID uint) error
	RequeueMessage(ctx context.Context, messageID uint) error
}

// Service implements Repository over GORM.
type Service struct {
	DB *gorm.DB
}

// NewService wraps an open gorm connection.
func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// SaveCitizenIfNotExists bootstraps a citizen record on first contact and
// keeps the username current.
func (s *Service) SaveCitizenIfNotExists(ctx context.Context, telegramID int64, username string) (*models.Citizen, error) {
	var citizen models.Citizen
	defaults := models.Citizen{TelegramID: telegramID, Username: username}

	result := s.DB.WithContext(ctx).Where("telegram_id = ?", telegramID).FirstOrCreate(&citizen, defaults)
	if result.Error != nil {
		log.Printf("ERROR: failed to save citizen %d on first contact: %v", telegramID, result.Error)
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("New citizen %s saved (telegram id %d)", citizen.ID, telegramID)
	}

	if citizen.Username != username {
		citizen.Username = username
		if err := s.DB.WithContext(ctx).Model(&citizen).Update("username", username).Error; err != nil {
			log.Printf("WARN: failed to refresh username for citizen %s: %v", citizen.ID, err)
		}
	}
	return &citizen, nil
}

// CreateComplaint persists a completed intake.
func (s *Service) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	if complaint.Status == "" {
		complaint.Status = models.StatusNew
	}
	if complaint.Priority == "" {
		complaint.Priority = "medium"
	}

	if err := s.DB.WithContext(ctx).Create(complaint).Error; err != nil {
		log.Printf("ERROR: failed to create complaint for citizen %s: %v", complaint.CitizenID, err)
		return err
	}
	return nil
}

// FindCitizenByComplaint resolves the citizen a dashboard reply must reach.
func (s *Service) FindCitizenByComplaint(ctx context.Context, complaintID uint) (*models.Citizen, error) {
	var complaint models.Complaint
	if err := s.DB.WithContext(ctx).First(&complaint, complaintID).Error; err != nil {
		return nil, notFound(err)
	}

	var citizen models.Citizen
	if err := s.DB.WithContext(ctx).Where("id = ?", complaint.CitizenID).First(&citizen).Error; err != nil {
		return nil, notFound(err)
	}
	return &citizen, nil
}

// ListRecentComplaints returns the citizen's complaints, newest first.
func (s *Service) ListRecentComplaints(ctx context.Context, citizenID string, limit int) ([]models.Complaint, error) {
	var complaints []models.Complaint
	err := s.DB.WithContext(ctx).
		Where("citizen_id = ?", citizenID).
		Order("created_at DESC").
		Limit(limit).
		Find(&complaints).Error
	if err != nil {
		log.Printf("ERROR: failed to list complaints for citizen %s: %v", citizenID, err)
		return nil, err
	}
	return complaints, nil
}

// SetComplaintStatus updates the status field only.
func (s *Service) SetComplaintStatus(ctx context.Context, complaintID uint, status string) error {
	result := s.DB.WithContext(ctx).
		Model(&models.Complaint{}).
		Where("id = ?", complaintID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendOperatorMessage records a dashboard reply. The complaint status flips
// to in_work in a second write; the two writes are intentionally not one
// transaction (the status may lag a crash, which the dashboard tolerates).
func (s *Service) AppendOperatorMessage(ctx context.Context, complaintID uint, text string, attachments []string, delivered bool) (*models.OperatorMessage, error) {
	msg := models.OperatorMessage{
		ComplaintID: complaintID,
		Sender:      models.SenderOperator,
		Text:        text,
		Attachments: attachments,
		Delivered:   delivered,
	}
	if err := s.DB.WithContext(ctx).Create(&msg).Error; err != nil {
		log.Printf("ERROR: failed to save operator message for complaint %d: %v", complaintID, err)
		return nil, err
	}

	if err := s.SetComplaintStatus(ctx, complaintID, models.StatusInWork); err != nil && !errors.Is(err, ErrNotFound) {
		log.Printf("WARN: message %d saved but status update for complaint %d failed: %v", msg.ID, complaintID, err)
	}
	return &msg, nil
}

// ListUndelivered fetches pending operator messages joined with the target
// chat ID, oldest first.
func (s *Service) ListUndelivered(ctx context.Context) ([]UndeliveredMessage, error) {
	var rows []UndeliveredMessage
	err := s.DB.WithContext(ctx).
		Table("operator_messages").
		Select("operator_messages.id, operator_messages.complaint_id, operator_messages.text, operator_messages.attachments, citizens.telegram_id").
		Joins("JOIN complaints ON complaints.id = operator_messages.complaint_id").
		Joins("JOIN citizens ON citizens.id = complaints.citizen_id").
		Where("operator_messages.sender = ? AND operator_messages.delivered = ? AND operator_messages.deleted_at IS NULL",
			models.SenderOperator, false).
		Order("operator_messages.id ASC").
		Scan(&rows).Error
	if err != nil {
		log.Printf("ERROR: failed to list undelivered operator messages: %v", err)
		return nil, err
	}
	return rows, nil
}

// MarkDelivered flips the delivered flag. Already-delivered rows are left
// untouched so the flip stays a single false→true transition.
func (s *Service) MarkDelivered(ctx context.Context, messageID uint) error {
	result := s.DB.WithContext(ctx).
		Model(&models.OperatorMessage{}).
		Where("id = ? AND delivered = ?", messageID, false).
		Update("delivered", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RequeueMessage puts a message back on the undelivered queue (admin tool).
func (s *Service) RequeueMessage(ctx context.Context, messageID uint) error {
	result := s.DB.WithContext(ctx).
		Model(&models.OperatorMessage{}).
		Where("id = ?", messageID).
		Update("delivered", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
