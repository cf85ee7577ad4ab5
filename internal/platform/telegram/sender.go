// Package telegram implements delivery.Sender on top of the Telegram Bot API.
// Each credential is a bot token; each target is a numeric chat id or a
// public @channel username.
package telegram

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/phrazzld/relay-api/internal/delivery"
	"github.com/phrazzld/relay-api/internal/redact"
)

// Config configures the Telegram sender.
type Config struct {
	// Endpoint is the Bot API URL template with two %s verbs (token, method)
	Endpoint string

	// RequestTimeout bounds each HTTP call to the Bot API
	RequestTimeout time.Duration
}

// botAPI is the subset of *tgbotapi.BotAPI the sender needs.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type botFactory func(token string) (botAPI, error)

// Sender delivers campaign messages through Telegram bots. Bots are created
// lazily per credential and cached for the life of the sender.
type Sender struct {
	mu     sync.Mutex
	bots   map[string]botAPI
	newBot botFactory
	logger *slog.Logger
}

var _ delivery.Sender = (*Sender)(nil)

// NewSender creates a Sender. If logger is nil, a default logger will be used.
func NewSender(cfg Config, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	client := &http.Client{Timeout: cfg.RequestTimeout}
	return newSenderWithFactory(func(token string) (botAPI, error) {
		return tgbotapi.NewBotAPIWithClient(token, cfg.Endpoint, client)
	}, logger)
}

func newSenderWithFactory(factory botFactory, logger *slog.Logger) *Sender {
	return &Sender{
		bots:   make(map[string]botAPI),
		newBot: factory,
		logger: logger.With(slog.String("component", "telegram_sender")),
	}
}

// Send implements delivery.Sender.
//
// The Bot API client has no context support, so the call runs in its own
// goroutine and Send returns as soon as ctx is done. The abandoned call is
// still bounded by the HTTP client timeout.
func (s *Sender) Send(ctx context.Context, credential, target, message string) error {
	msg, err := newMessage(target, message)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return delivery.NetworkError(err)
	}

	result := make(chan error, 1)
	go func() {
		bot, err := s.bot(credential)
		if err == nil {
			_, err = bot.Send(msg)
		}
		result <- err
	}()

	select {
	case <-ctx.Done():
		return delivery.NetworkError(ctx.Err())
	case err := <-result:
		if err != nil {
			s.logger.Debug("telegram delivery failed",
				slog.String("credential", redact.Credential(credential)),
				slog.String("target", target),
				slog.String("error", redact.Error(err)))
		}
		return mapError(err)
	}
}

// bot returns the cached client for a token, creating it on first use.
// Failed creations are not cached so a transient error can recover.
func (s *Sender) bot(token string) (botAPI, error) {
	s.mu.Lock()
	bot, ok := s.bots[token]
	s.mu.Unlock()
	if ok {
		return bot, nil
	}

	bot, err := s.newBot(token)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.bots[token]; ok {
		return existing, nil
	}
	s.bots[token] = bot
	return bot, nil
}

func newMessage(target, text string) (tgbotapi.MessageConfig, error) {
	target = strings.TrimSpace(target)
	if chatID, err := strconv.ParseInt(target, 10, 64); err == nil {
		return tgbotapi.NewMessage(chatID, text), nil
	}
	if strings.HasPrefix(target, "@") && len(target) > 1 {
		return tgbotapi.NewMessageToChannel(target, text), nil
	}
	return tgbotapi.MessageConfig{}, &delivery.RejectedError{
		Code:   http.StatusBadRequest,
		Reason: "target must be a chat id or @channel",
	}
}

// mapError converts Bot API errors into delivery errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErrPtr *tgbotapi.Error
	if errors.As(err, &apiErrPtr) {
		return &delivery.RejectedError{Code: apiErrPtr.Code, Reason: apiErrPtr.Message}
	}
	var apiErr tgbotapi.Error
	if errors.As(err, &apiErr) {
		return &delivery.RejectedError{Code: apiErr.Code, Reason: apiErr.Message}
	}
	return delivery.NetworkError(err)
}
