package telegram

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrFileNotFound marks a file reference Telegram does not recognize.
var ErrFileNotFound = errors.New("file not found")

// apiTimeout bounds every outbound Telegram call, API requests and file
// downloads alike. A hung call fails here instead of wedging a relay cycle or
// a dispatcher turn.
const apiTimeout = 30 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: apiTimeout}
}

// Client is the outbound half of the chat transport. tgbotapi.BotAPI is safe
// for concurrent use, so the relay loop, the update dispatcher and the HTTP
// gateway all share one Client.
type Client struct {
	bot  *tgbotapi.BotAPI
	http *http.Client
}

// NewClient wraps an authorized bot.
func NewClient(bot *tgbotapi.BotAPI) *Client {
	return &Client{
		bot:  bot,
		http: newHTTPClient(),
	}
}

// SendText sends a plain text message.
func (c *Client) SendText(chatID int64, text string) error {
	_, err := c.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SendPhoto re-sends a photo the platform already knows by its file ID.
func (c *Client) SendPhoto(chatID int64, fileID, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	photo.Caption = caption
	_, err := c.bot.Send(photo)
	return err
}

// UploadPhoto sends raw image bytes and returns the file ID Telegram assigned
// to the largest rendition, for persisting on the message record.
func (c *Client) UploadPhoto(chatID int64, name string, data []byte, caption string) (string, error) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	photo.Caption = caption
	sent, err := c.bot.Send(photo)
	if err != nil {
		return "", err
	}
	if len(sent.Photo) == 0 {
		return "", nil
	}
	return sent.Photo[len(sent.Photo)-1].FileID, nil
}

// DownloadFile fetches the bytes behind a Telegram file reference.
func (c *Client) DownloadFile(fileID string) ([]byte, error) {
	url, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}

	resp, err := c.http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrFileNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download: unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
