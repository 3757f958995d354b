// Package notify reports job outcomes to operators.
package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ambitious/internal/logging"
	"ambitious/internal/util"
)

// Notifier delivers one short text message.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Nop drops every message.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }

// Telegram posts to a single chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// maxMessage is Telegram's message length limit in characters.
const maxMessage = 4096

// clip fits text into one message, cutting on a character boundary.
func clip(text string) string {
	return util.Truncate(text, maxMessage-1)
}

func (t *Telegram) Notify(_ context.Context, text string) error {
	_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, clip(text)))
	return err
}

// New returns a Telegram notifier when token and chat are set, Nop otherwise.
// A bad token is logged and degrades to Nop.
func New(token string, chatID int64) Notifier {
	if token == "" || chatID == 0 {
		return Nop{}
	}
	t, err := NewTelegram(token, chatID)
	if err != nil {
		logging.Warn("telegram notifier disabled", map[string]any{"error": err})
		return Nop{}
	}
	return t
}

// Summary renders a job outcome: a title line, key=value counts, then up to five errors.
func Summary(title string, counts map[string]int, keys []string, errs []string) string {
	var b strings.Builder
	b.WriteString(title)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %d", k, counts[k])
	}
	if len(errs) > 0 {
		fmt.Fprintf(&b, "\nerrors: %d", len(errs))
		for i, e := range errs {
			if i == 5 {
				fmt.Fprintf(&b, "\n… %d more", len(errs)-5)
				break
			}
			fmt.Fprintf(&b, "\n- %s", e)
		}
	}
	return b.String()
}
