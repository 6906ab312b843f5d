// Package telegram wraps the Telegram Bot API behind the messenger port and
// a normalized update stream for the bot conversation layer.
package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/webgradeuz/fuelbonus/internal/application/port"
)

// Update is a normalized incoming bot update
type Update struct {
	ChatID       int64
	TelegramID   string
	Username     string
	Text         string
	Command      string
	CommandArgs  string
	ContactPhone string
}

// UpdateHandler consumes normalized updates from the polling loop
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update Update)
}

// Client implements port.Messenger and runs the long-polling loop
type Client struct {
	api         *tgbotapi.BotAPI
	logger      *zap.Logger
	pollTimeout int
}

// NewClient creates a new Telegram client
func NewClient(token string, pollTimeoutSeconds int, logger *zap.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	if pollTimeoutSeconds <= 0 {
		pollTimeoutSeconds = 30
	}

	logger.Info("Telegram bot authorized", zap.String("username", api.Self.UserName))
	return &Client{
		api:         api,
		logger:      logger,
		pollTimeout: pollTimeoutSeconds,
	}, nil
}

// SendMessage delivers a plain text message to a telegram user id
func (c *Client) SendMessage(ctx context.Context, recipientID, text string) error {
	chatID, err := strconv.ParseInt(recipientID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram id %q: %w", recipientID, err)
	}
	return c.SendText(chatID, text)
}

// SendText sends a message to a chat, dropping any custom keyboard
func (c *Client) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendContactRequest sends a message with a share-contact keyboard button
func (c *Client) SendContactRequest(chatID int64, text, buttonLabel string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(buttonLabel)),
	)
	keyboard.OneTimeKeyboard = true
	keyboard.ResizeKeyboard = true
	msg.ReplyMarkup = keyboard
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send contact request: %w", err)
	}
	return nil
}

// SendPhoto sends a PNG image with a caption
func (c *Client) SendPhoto(chatID int64, caption string, png []byte) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "qr.png", Bytes: png})
	photo.Caption = caption
	if _, err := c.api.Send(photo); err != nil {
		return fmt.Errorf("failed to send photo: %w", err)
	}
	return nil
}

// Poll runs the long-polling loop until the context is cancelled. Each
// message is normalized and handed to the handler synchronously.
func (c *Client) Poll(ctx context.Context, handler UpdateHandler) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = c.pollTimeout
	updates := c.api.GetUpdatesChan(cfg)

	c.logger.Info("Telegram polling started")
	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			c.logger.Info("Telegram polling stopped")
			return
		case upd, ok := <-updates:
			if !ok {
				c.logger.Info("Telegram update channel closed")
				return
			}
			if upd.Message == nil || upd.Message.From == nil {
				continue
			}
			handler.HandleUpdate(ctx, normalize(upd.Message))
		}
	}
}

func normalize(msg *tgbotapi.Message) Update {
	update := Update{
		ChatID:     msg.Chat.ID,
		TelegramID: strconv.FormatInt(msg.From.ID, 10),
		Username:   msg.From.UserName,
		Text:       msg.Text,
	}
	if msg.IsCommand() {
		update.Command = msg.Command()
		update.CommandArgs = msg.CommandArguments()
	}
	if msg.Contact != nil {
		update.ContactPhone = msg.Contact.PhoneNumber
	}
	return update
}

// Verify interface compliance
var _ port.Messenger = (*Client)(nil)
