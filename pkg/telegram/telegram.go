// Package telegram delivers alert messages through the Telegram Bot API.
// A sender built without credentials stays usable: every Send becomes a
// logged no-op, so alert triage keeps running and ledgers alerts with a
// null message id.
package telegram

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const sendTimeout = 15 * time.Second

// Sender posts HTML messages to a single chat or channel.
type Sender struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	channel string
	logger  *slog.Logger
}

// NewSender builds a Sender for the given bot token and chat id. The chat
// id may be numeric or an @channel username. Missing credentials or a
// failed bot handshake disable delivery instead of returning an error.
func NewSender(token, chatID string) *Sender {
	logger := slog.Default().With("component", "telegram")
	s := &Sender{logger: logger}

	if token == "" || chatID == "" {
		logger.Warn("Telegram not configured, alerts will not be delivered")
		return s
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: sendTimeout})
	if err != nil {
		logger.Error("Telegram bot handshake failed, alerts disabled", "error", err)
		return s
	}

	if id, parseErr := strconv.ParseInt(chatID, 10, 64); parseErr == nil {
		s.chatID = id
	} else {
		s.channel = chatID
	}
	s.bot = bot
	return s
}

// Enabled reports whether messages will actually be delivered.
func (s *Sender) Enabled() bool {
	return s.bot != nil
}

// Send delivers one HTML-formatted message and returns its Telegram message
// id. Failures are logged and reported as nil, never as an error: the alert
// ledger records the attempt either way.
func (s *Sender) Send(text string) *int {
	if s.bot == nil {
		s.logger.Warn("Telegram not configured, skipping message")
		return nil
	}

	var msg tgbotapi.MessageConfig
	if s.channel != "" {
		msg = tgbotapi.NewMessageToChannel(s.channel, text)
	} else {
		msg = tgbotapi.NewMessage(s.chatID, text)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	sent, err := s.bot.Send(msg)
	if err != nil {
		s.logger.Error("Telegram send failed", "error", err)
		return nil
	}

	s.logger.Info("Telegram message sent", "message_id", sent.MessageID)
	id := sent.MessageID
	return &id
}
