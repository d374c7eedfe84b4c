// Package bot is the Telegram delivery surface: a Notifier implementation
// for the monitor plus a small set of interactive commands over the watch
// list. The daemon runs headless when no token is configured.
package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Init connects to the Telegram API with the given token.
func Init(token string, log zerolog.Logger) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("no Telegram token configured")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to Telegram: %w", err)
	}

	api.Debug = false
	log.Info().Str("username", api.Self.UserName).Msg("bot authorized")
	return api, nil
}

// Notifier sends monitor notifications to a fixed chat.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewNotifier creates a Notifier for the given chat.
func NewNotifier(api *tgbotapi.BotAPI, chatID int64) *Notifier {
	return &Notifier{api: api, chatID: chatID}
}

// Notify implements monitor.Notifier.
func (n *Notifier) Notify(message string) error {
	_, err := n.api.Send(tgbotapi.NewMessage(n.chatID, message))
	return err
}
