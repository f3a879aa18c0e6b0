package telegram

import "context"

// Client delivers plain text run reports to a Telegram chat.
// A nil Client means reports are disabled.
type Client interface {
	SendMessage(ctx context.Context, recipientChatID int64, text string) error
}
