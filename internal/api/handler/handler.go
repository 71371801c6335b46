// Package handler exposes the thin HTTP surface of the bot: the health
// probe, the image proxy for stored photo references, and the inbound reply
// gateway the dashboard posts to.
package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"cityhelper/backend/internal/models"
	"cityhelper/backend/internal/storage"
	"cityhelper/backend/internal/telegram"
)

// captionLimit is the Telegram photo caption cap; longer reply text is sent
// as a separate message instead.
const captionLimit = 1000

// requestTimeout bounds repository calls per request.
const requestTimeout = 5 * time.Second

// Transport is the slice of the chat transport the HTTP surface needs.
type Transport interface {
	SendText(chatID int64, text string) error
	UploadPhoto(chatID int64, name string, data []byte, caption string) (string, error)
	DownloadFile(fileID string) ([]byte, error)
}

// Repository is the slice of the complaint store the HTTP surface needs.
type Repository interface {
	FindCitizenByComplaint(ctx context.Context, complaintID uint) (*models.Citizen, error)
	AppendOperatorMessage(ctx context.Context, complaintID uint, text string, attachments []string, delivered bool) (*models.OperatorMessage, error)
}

// Handler carries the shared dependencies of all routes.
type Handler struct {
	Repo      Repository
	Transport Transport
}

// NewHandler creates the HTTP handler set.
func NewHandler(repo Repository, transport Transport) *Handler {
	return &Handler{Repo: repo, Transport: transport}
}

// Register mounts all routes on the engine.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/", h.Health)
	r.GET("/health", h.Health)
	r.GET("/images/:file_id", h.ImageProxy)
	r.POST("/api/reply", h.Reply)
}

// Health answers the liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// ImageProxy streams the bytes behind a stored Telegram file reference, so
// the dashboard can show photos without talking to Telegram itself.
func (h *Handler) ImageProxy(c *gin.Context) {
	fileID := c.Param("file_id")

	data, err := h.Transport.DownloadFile(fileID)
	if errors.Is(err, telegram.ErrFileNotFound) {
		c.String(http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		log.Printf("ERROR: image proxy failed for file %s: %v", fileID, err)
		c.String(http.StatusInternalServerError, "image proxy error")
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}

// Reply is the push path for operator replies: deliver to the citizen right
// now, then record the message with the delivered flag already set so the
// relay loop can never send it a second time.
func (h *Handler) Reply(c *gin.Context) {
	ticketIDStr := c.PostForm("ticket_id")
	if ticketIDStr == "" {
		c.String(http.StatusBadRequest, "Missing ticket_id")
		return
	}
	text := c.PostForm("text")

	ticketID, err := strconv.ParseUint(ticketIDStr, 10, 64)
	if err != nil {
		c.String(http.StatusNotFound, "User not found for ticket")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	citizen, err := h.Repo.FindCitizenByComplaint(ctx, uint(ticketID))
	if errors.Is(err, storage.ErrNotFound) {
		c.String(http.StatusNotFound, "User not found for ticket")
		return
	}
	if err != nil {
		log.Printf("ERROR: reply gateway: citizen lookup for ticket %d failed: %v", ticketID, err)
		c.String(http.StatusInternalServerError, "internal error")
		return
	}

	var attachments []string
	remaining := text
	if fileHeader, err := c.FormFile("file"); err == nil {
		data, err := readUpload(fileHeader.Open())
		if err != nil {
			log.Printf("ERROR: reply gateway: failed to read upload for ticket %d: %v", ticketID, err)
			c.String(http.StatusInternalServerError, "internal error")
			return
		}

		caption := truncateRunes(text, captionLimit)
		fileID, err := h.Transport.UploadPhoto(citizen.TelegramID, fileHeader.Filename, data, caption)
		if err != nil {
			log.Printf("ERROR: reply gateway: photo send for ticket %d failed: %v", ticketID, err)
			c.String(http.StatusInternalServerError, "internal error")
			return
		}
		if fileID != "" {
			attachments = append(attachments, fileID)
		}
		if caption != "" {
			// The text already went out as the caption.
			remaining = ""
		}
	}

	if remaining != "" {
		if err := h.Transport.SendText(citizen.TelegramID, remaining); err != nil {
			log.Printf("ERROR: reply gateway: text send for ticket %d failed: %v", ticketID, err)
			c.String(http.StatusInternalServerError, "internal error")
			return
		}
	}

	if _, err := h.Repo.AppendOperatorMessage(ctx, uint(ticketID), text, attachments, true); err != nil {
		// Delivery happened but the record write failed; surface it so the
		// dashboard can retry deliberately.
		c.String(http.StatusInternalServerError, "internal error")
		return
	}

	c.String(http.StatusOK, "OK")
}

func readUpload(f io.ReadCloser, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
