// Package telegram handles the integration with the Telegram Bot API: it
// receives updates, feeds them to the intake state machine, and renders the
// machine's replies back into messages and keyboards.
package telegram

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cityhelper/backend/internal/intake"
	"cityhelper/backend/internal/models"
	"cityhelper/backend/internal/storage"
)

// requestTimeout bounds every store call made on behalf of one update.
const requestTimeout = 5 * time.Second

// BotService receives Telegram updates and routes them to the intake machine.
type BotService struct {
	bot     *tgbotapi.BotAPI
	client  *Client
	Repo    storage.Repository
	Machine *intake.Machine
	locks   chatLocks
}

// NewBotService authorizes the bot and wires it to the repository and the
// intake machine.
func NewBotService(token string, repo storage.Repository, machine *intake.Machine) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, newHTTPClient())
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Printf("✅ Authorized on account %s", bot.Self.UserName)

	return &BotService{
		bot:     bot,
		client:  NewClient(bot),
		Repo:    repo,
		Machine: machine,
	}, nil
}

// Client exposes the transport for the relay loop and the HTTP gateway.
func (s *BotService) Client() *Client {
	return s.client
}

// Run is the main loop for receiving Telegram updates. Each update is handled
// on its own goroutine under a per-chat lock, so turns of one citizen never
// run concurrently while different citizens proceed in parallel. Lock
// acquisition is not FIFO, so two near-simultaneous updates from one chat may
// be handled in either order.
func (s *BotService) Run() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.bot.GetUpdatesChan(u)

	for update := range updates {
		go s.dispatch(update)
	}
}

// handleMessage processes one regular message or command.
func (s *BotService) handleMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	username := ""
	if msg.From != nil {
		username = msg.From.UserName
	}
	citizen, err := s.Repo.SaveCitizenIfNotExists(ctx, msg.Chat.ID, username)
	if err != nil {
		s.sendPlain(msg.Chat.ID, msgBackendDown)
		return
	}

	if msg.IsCommand() {
		// /start and anything unknown both land on the menu.
		s.sendMenu(msg.Chat.ID, msgGreeting)
		return
	}

	switch msg.Text {
	case BtnNewComplaint:
		reply, err := s.Machine.Start(ctx, citizen)
		s.deliverReply(msg.Chat.ID, 0, reply, err)
		return
	case BtnMyComplaints:
		s.sendHistory(ctx, msg.Chat.ID, citizen)
		return
	}

	reply, err := s.Machine.Handle(ctx, citizen, inputFromMessage(msg))
	if err == nil && !reply.Handled() {
		// No active draft and not a menu button.
		s.sendMenu(msg.Chat.ID, msgMenuHint)
		return
	}
	s.deliverReply(msg.Chat.ID, 0, reply, err)
}

// handleCallback processes inline keyboard taps (category and subcategory
// selection).
func (s *BotService) handleCallback(cb *tgbotapi.CallbackQuery) {
	// Answer first so the button stops spinning even if handling fails.
	if _, err := s.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("WARN: failed to answer callback query: %v", err)
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	citizen, err := s.Repo.SaveCitizenIfNotExists(ctx, chatID, cb.From.UserName)
	if err != nil {
		s.sendPlain(chatID, msgBackendDown)
		return
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, callbackCategoryPrefix):
		reply, err := s.Machine.SelectCategory(ctx, citizen, strings.TrimPrefix(data, callbackCategoryPrefix))
		s.deliverReply(chatID, cb.Message.MessageID, reply, err)
	case strings.HasPrefix(data, callbackSubPrefix):
		index, convErr := strconv.Atoi(strings.TrimPrefix(data, callbackSubPrefix))
		if convErr != nil {
			log.Printf("WARN: malformed subcategory callback %q from chat %d", data, chatID)
			return
		}
		reply, err := s.Machine.SelectSubcategory(ctx, citizen, index)
		s.deliverReply(chatID, cb.Message.MessageID, reply, err)
	case data == callbackBackToCats:
		reply, err := s.Machine.Start(ctx, citizen)
		s.deliverReply(chatID, 0, reply, err)
	}
}

// inputFromMessage strips an update down to what the machine understands.
func inputFromMessage(msg *tgbotapi.Message) intake.Input {
	in := intake.Input{Text: msg.Text}
	if len(msg.Photo) > 0 {
		in.PhotoID = msg.Photo[len(msg.Photo)-1].FileID
		if in.Text == "" {
			in.Text = msg.Caption
		}
	}
	if msg.Location != nil {
		in.Location = &intake.Geo{Lat: msg.Location.Latitude, Long: msg.Location.Longitude}
	}
	if msg.Contact != nil {
		in.Phone = msg.Contact.PhoneNumber
	}
	return in
}

// deliverReply turns a machine result into outbound traffic. Backend errors
// become a generic apology; the draft is left as it was, so the citizen can
// just retry.
func (s *BotService) deliverReply(chatID int64, editMessageID int, reply intake.Reply, err error) {
	if err != nil {
		log.Printf("ERROR: intake turn failed for chat %d: %v", chatID, err)
		s.sendPlain(chatID, msgBackendDown)
		return
	}
	if !reply.Handled() {
		return
	}
	s.sendReply(chatID, editMessageID, reply)
}

func (s *BotService) sendReply(chatID int64, editMessageID int, r intake.Reply) {
	if r.EditMessage && editMessageID != 0 {
		if markup, ok := inlineMarkupFor(r); ok {
			edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, editMessageID, r.Text, markup)
			if r.HTML {
				edit.ParseMode = tgbotapi.ModeHTML
			}
			if _, err := s.bot.Send(edit); err == nil {
				return
			}
			// Editing can fail on old messages; fall back to a fresh send.
		}
	}

	msg := tgbotapi.NewMessage(chatID, r.Text)
	if r.HTML {
		msg.ParseMode = tgbotapi.ModeHTML
	}
	switch r.Keyboard {
	case intake.KeyboardMain:
		msg.ReplyMarkup = MainMenuKeyboard()
	case intake.KeyboardCategories:
		msg.ReplyMarkup = CategoriesKeyboard()
	case intake.KeyboardSubcategories:
		if markup, ok := SubcategoriesKeyboard(r.CategoryKey); ok {
			msg.ReplyMarkup = markup
		}
	case intake.KeyboardSkip:
		msg.ReplyMarkup = SkipKeyboard()
	case intake.KeyboardGeo:
		msg.ReplyMarkup = GeoKeyboard(r.GeoRequired)
	case intake.KeyboardPhone:
		msg.ReplyMarkup = PhoneKeyboard()
	case intake.KeyboardRemove:
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	}

	if _, err := s.bot.Send(msg); err != nil {
		log.Printf("ERROR: failed to send message to chat %d: %v", chatID, err)
	}
}

func inlineMarkupFor(r intake.Reply) (tgbotapi.InlineKeyboardMarkup, bool) {
	switch r.Keyboard {
	case intake.KeyboardCategories:
		return CategoriesKeyboard(), true
	case intake.KeyboardSubcategories:
		return SubcategoriesKeyboard(r.CategoryKey)
	default:
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
}

func (s *BotService) sendHistory(ctx context.Context, chatID int64, citizen *models.Citizen) {
	complaints, err := s.Repo.ListRecentComplaints(ctx, citizen.ID, historyLimit)
	if err != nil {
		s.sendPlain(chatID, msgBackendDown)
		return
	}
	if len(complaints) == 0 {
		s.sendPlain(chatID, msgNoComplaints)
		return
	}

	msg := tgbotapi.NewMessage(chatID, FormatHistory(complaints))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := s.bot.Send(msg); err != nil {
		log.Printf("ERROR: failed to send history to chat %d: %v", chatID, err)
	}
}

func (s *BotService) sendMenu(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = MainMenuKeyboard()
	if _, err := s.bot.Send(msg); err != nil {
		log.Printf("ERROR: failed to send menu to chat %d: %v", chatID, err)
	}
}

func (s *BotService) sendPlain(chatID int64, text string) {
	if err := s.client.SendText(chatID, text); err != nil {
		log.Printf("ERROR: failed to send message to chat %d: %v", chatID, err)
	}
}
