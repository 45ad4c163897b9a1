package telegram

import (
	"context"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vitality-score/internal/domain"
	"vitality-score/internal/infra/metrics"
)

// Sender отправляет сообщения Bot API. Реализуется *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier отправляет HTML сообщения в Telegram.
type Notifier struct {
	bot Sender
}

var _ domain.Notifier = (*Notifier)(nil)

// NewNotifier создаёт отправителя уведомлений.
func NewNotifier(bot Sender) *Notifier {
	return &Notifier{bot: bot}
}

// NewBotNotifier создаёт клиента Bot API по токену.
func NewBotNotifier(token string) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return NewNotifier(bot), nil
}

// SendHTML отправляет текст частями с учётом лимита Telegram.
func (n *Notifier) SendHTML(ctx context.Context, chatID int64, text string) error {
	for _, part := range SplitMessage(text, messageLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		start := time.Now()
		_, err := n.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			return err
		}
	}
	return nil
}
