// Package relay pushes operator replies from the store to citizens. The pull
// path (Loop) polls for undelivered messages; the push path (the HTTP reply
// gateway) reuses Deliver and writes its record already marked delivered, so
// both paths share one idempotent delivered-flag transition.
package relay

import (
	"context"
	"log"
	"time"

	"cityhelper/backend/internal/storage"
)

// Sender is the slice of the chat transport the relay needs.
type Sender interface {
	SendText(chatID int64, text string) error
	SendPhoto(chatID int64, fileID, caption string) error
}

// MessageSource is the slice of the repository the relay needs.
type MessageSource interface {
	ListUndelivered(ctx context.Context) ([]storage.UndeliveredMessage, error)
	MarkDelivered(ctx context.Context, messageID uint) error
}

// Loop is the long-running poller for undelivered operator messages.
type Loop struct {
	Repo     MessageSource
	Sender   Sender
	Interval time.Duration
}

// NewLoop creates a relay loop. interval <= 0 falls back to 5 seconds.
func NewLoop(repo MessageSource, sender Sender, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Loop{Repo: repo, Sender: sender, Interval: interval}
}

// Run polls until ctx is cancelled. A failing cycle is logged and retried on
// the next tick; it never takes the loop down.
func (l *Loop) Run(ctx context.Context) {
	log.Println("Reply relay loop started.")
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Reply relay loop stopped.")
			return
		case <-ticker.C:
			l.Cycle(ctx)
		}
	}
}

// Cycle runs one poll-and-deliver pass over the undelivered queue.
func (l *Loop) Cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: relay cycle panicked: %v", r)
		}
	}()

	listCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	rows, err := l.Repo.ListUndelivered(listCtx)
	cancel()
	if err != nil {
		log.Printf("ERROR: relay: failed to fetch undelivered messages: %v", err)
		return
	}

	for _, row := range rows {
		// One stuck message must not block the rest of the queue.
		if err := Deliver(l.Sender, row.ChatID, row.Text, row.Attachments); err != nil {
			log.Printf("ERROR: relay: delivery of message %d to chat %d failed, will retry: %v",
				row.ID, row.ChatID, err)
			continue
		}

		markCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := l.Repo.MarkDelivered(markCtx, row.ID)
		cancel()
		if err != nil {
			// Delivered but not marked: the flag flip is retried next cycle.
			log.Printf("ERROR: relay: failed to mark message %d delivered: %v", row.ID, err)
		}
	}
}

// Deliver sends one operator message to a citizen chat. Attachments go first
// as photos; the text rides as the caption of the first one and is not
// repeated on the rest. Bare text is sent only when no attachment consumed it.
func Deliver(s Sender, chatID int64, text string, attachments []string) error {
	remaining := text
	for _, fileID := range attachments {
		if err := s.SendPhoto(chatID, fileID, remaining); err != nil {
			return err
		}
		remaining = ""
	}
	if remaining != "" {
		return s.SendText(chatID, remaining)
	}
	return nil
}
