package telegram

import (
	"log"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// chatLocks serializes update handling per chat. The draft store does a
// read-modify-write on every turn; without this, two concurrent updates for
// one citizen could lose photo appends. Entries are never evicted: the map
// grows with the number of chats ever seen, one mutex each.
type chatLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (c *chatLocks) get(chatID int64) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks == nil {
		c.locks = make(map[int64]*sync.Mutex)
	}
	l, ok := c.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[chatID] = l
	}
	return l
}

// dispatch runs one update under its chat lock. Panics are contained here so
// no citizen input can take the whole dispatcher down.
func (s *BotService) dispatch(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: update handler panicked: %v", r)
		}
	}()

	chatID := updateChatID(update)
	if chatID == 0 {
		return
	}
	lock := s.locks.get(chatID)
	lock.Lock()
	defer lock.Unlock()

	switch {
	case update.Message != nil:
		s.handleMessage(update.Message)
	case update.CallbackQuery != nil:
		s.handleCallback(update.CallbackQuery)
	}
}

func updateChatID(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.Message.Chat.ID
	default:
		return 0
	}
}
