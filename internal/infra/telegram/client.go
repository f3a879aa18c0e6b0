// internal/infra/telegram/client.go
package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// NewBot creates the Telegram bot. With poll set it long-polls for admin
// commands once Start is called, otherwise it is send-only.
func NewBot(token string, poll bool, logger *logrus.Entry) (*telebot.Bot, error) {
	pref := telebot.Settings{Token: token}
	if poll {
		pref.Poller = &telebot.LongPoller{Timeout: 10 * time.Second}
		pref.OnError = func(err error, c telebot.Context) { // Global error handler
			log := logger.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				log = log.WithFields(logrus.Fields{
					"text":      c.Text(),
					"sender_id": c.Sender().ID,
					"chat_id":   c.Chat().ID,
				})
			}
			log.Error("Telegram handler failed")
		}
	}
	b, err := telebot.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("could not create Telegram bot: %w", err)
	}
	return b, nil
}

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a plain text message to the specified chat.
func (tba *TelebotAdapter) SendMessage(ctx context.Context, recipientChatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	recipient := &telebot.Chat{ID: recipientChatID}
	if _, err := tba.bot.Send(recipient, text, &telebot.SendOptions{DisableWebPagePreview: true}); err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", recipientChatID, err)
	}
	return nil
}
