package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"vitality-score/internal/adapters/telegram"
	"vitality-score/internal/domain"
	"vitality-score/internal/infra/metrics"
	"vitality-score/internal/usecase/score"
)

const weekDays = 7

// Scores чтение оценок для ответов бота.
type Scores interface {
	GetDaily(ctx context.Context, userID, date string) (domain.DailyScoreRecord, error)
	History(ctx context.Context, userID, from, to string) (domain.ScoreHistory, error)
}

// ChatLinks привязки чатов с поиском пользователя по чату.
type ChatLinks interface {
	domain.NotificationLinkRepo
	UserByTelegramChat(ctx context.Context, chatID int64) (string, error)
}

// TokenParser проверяет токен доступа и возвращает UUID пользователя.
type TokenParser interface {
	ParseUserID(raw string) (string, error)
}

// Handler обслуживает вебхук бота.
type Handler struct {
	bot    telegram.Sender
	log    zerolog.Logger
	scores Scores
	links  ChatLinks
	tokens TokenParser
	now    func() time.Time
}

// NewHandler создаёт обработчик.
func NewHandler(bot telegram.Sender, log zerolog.Logger, scores Scores, links ChatLinks, tokens TokenParser) *Handler {
	return &Handler{
		bot:    bot,
		log:    log,
		scores: scores,
		links:  links,
		tokens: tokens,
		now:    time.Now,
	}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		h.handleMessage(ctx, upd.Message)
	} else if upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil {
		h.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"):
		payload := strings.TrimSpace(strings.TrimPrefix(text, "/start"))
		if payload != "" {
			h.handleLink(ctx, chatID, payload)
			return
		}
		h.reply(chatID, buildStartMessage(), mainKeyboard())
	case strings.HasPrefix(text, "/help"):
		h.reply(chatID, buildHelpMessage(), mainKeyboard())
	case strings.HasPrefix(text, "/link"):
		h.handleLink(ctx, chatID, strings.TrimSpace(strings.TrimPrefix(text, "/link")))
	case strings.HasPrefix(text, "/today"):
		h.handleToday(ctx, chatID)
	case strings.HasPrefix(text, "/week"):
		h.handleWeek(ctx, chatID)
	default:
		h.reply(chatID, "Unknown command. Use /help", nil)
	}
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	switch cb.Data {
	case "today":
		h.handleToday(ctx, chatID)
	case "week":
		h.handleWeek(ctx, chatID)
	case "help_menu":
		h.reply(chatID, buildHelpMessage(), mainKeyboard())
	default:
		h.log.Debug().Str("data", cb.Data).Msg("bot: неизвестный callback")
	}
}

func (h *Handler) handleLink(ctx context.Context, chatID int64, token string) {
	if token == "" {
		h.reply(chatID, "Send /link <token> with the access token from the app", nil)
		return
	}
	userID, err := h.tokens.ParseUserID(token)
	if err != nil {
		h.log.Debug().Err(err).Int64("chat", chatID).Msg("bot: неверный токен привязки")
		h.reply(chatID, "The token is invalid or expired. Request a new one in the app", nil)
		return
	}
	if err := h.links.LinkTelegramChat(ctx, userID, chatID); err != nil {
		h.log.Error().Err(err).Str("user", userID).Int64("chat", chatID).Msg("bot: не удалось привязать чат")
		h.reply(chatID, "Could not link this chat. Try again later", nil)
		return
	}
	h.log.Info().Str("user", userID).Int64("chat", chatID).Msg("bot: чат привязан")
	h.reply(chatID, "✅ Chat linked. Daily scores will arrive here.", mainKeyboard())
}

func (h *Handler) handleToday(ctx context.Context, chatID int64) {
	userID, ok := h.linkedUser(ctx, chatID)
	if !ok {
		return
	}
	record, err := h.scores.GetDaily(ctx, userID, h.today())
	if errors.Is(err, domain.ErrScoreNotFound) {
		h.reply(chatID, "No score for today yet. Submit today's metrics in the app.", nil)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("user", userID).Msg("bot: не удалось получить оценку дня")
		h.reply(chatID, "Could not load today's score. Try again later", nil)
		return
	}
	h.replyHTML(chatID, score.FormatDailyScore(record))
}

func (h *Handler) handleWeek(ctx context.Context, chatID int64) {
	userID, ok := h.linkedUser(ctx, chatID)
	if !ok {
		return
	}
	to := h.now().UTC()
	from := to.AddDate(0, 0, -(weekDays - 1))
	history, err := h.scores.History(ctx, userID, from.Format(domain.DateLayout), to.Format(domain.DateLayout))
	if err != nil {
		h.log.Error().Err(err).Str("user", userID).Msg("bot: не удалось получить историю")
		h.reply(chatID, "Could not load your history. Try again later", nil)
		return
	}
	h.replyHTML(chatID, FormatHistory(history))
}

func (h *Handler) linkedUser(ctx context.Context, chatID int64) (string, bool) {
	userID, err := h.links.UserByTelegramChat(ctx, chatID)
	if errors.Is(err, domain.ErrNotificationLinkNotFound) {
		h.reply(chatID, "This chat is not linked yet. Send /link <token> first", nil)
		return "", false
	}
	if err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("bot: не удалось найти привязку чата")
		h.reply(chatID, "Something went wrong. Try again later", nil)
		return "", false
	}
	return userID, true
}

func (h *Handler) today() string {
	return h.now().UTC().Format(domain.DateLayout)
}

// FormatHistory возвращает HTML сводку за период.
func FormatHistory(history domain.ScoreHistory) string {
	if history.DaysScored == 0 {
		return fmt.Sprintf("No scores between %s and %s.", history.From, history.To)
	}
	lines := []string{
		fmt.Sprintf("📈 <b>Your week · %s..%s</b>", history.From, history.To),
		fmt.Sprintf("Days scored: %d (🟢 %d / 🔴 %d)", history.DaysScored, history.GreenDays, history.RedDays),
		fmt.Sprintf("Average score: <b>%.1f</b>/100", history.AverageScore),
		fmt.Sprintf("Biological age impact: <b>%+.2f days</b>", history.CumulativeImpactDays),
	}
	if history.CurrentGreenStreak > 1 {
		lines = append(lines, fmt.Sprintf("🔥 Green streak: %d days", history.CurrentGreenStreak))
	}
	return strings.Join(lines, "\n")
}

func (h *Handler) replyHTML(chatID int64, text string) {
	h.send(chatID, text, tgbotapi.ModeHTML, mainKeyboard())
}

func (h *Handler) reply(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	h.send(chatID, text, "", keyboard)
}

func (h *Handler) send(chatID int64, text, parseMode string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	parts := telegram.SplitMessage(text, 0)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = parseMode
		if i == len(parts)-1 && keyboard != nil {
			msg.ReplyMarkup = keyboard
		}
		start := time.Now()
		_, err := h.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			h.log.Error().Err(err).Msg("bot: не удалось отправить сообщение")
			return
		}
	}
}

func mainKeyboard() *tgbotapi.InlineKeyboardMarkup {
	buttons := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Today", "today"),
			tgbotapi.NewInlineKeyboardButtonData("📈 Week", "week"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❓ Help", "help_menu"),
		),
	)
	return &buttons
}

func buildStartMessage() string {
	return strings.Join([]string{
		"👋 Hi! I send your daily longevity score every time it is calculated.",
		"",
		"Open the app, copy your access token and send /link <token> to connect this chat.",
	}, "\n")
}

func buildHelpMessage() string {
	sections := []string{
		"📖 Commands:",
		"• /link <token>: connect this chat to your account.",
		"• /today: today's score and pillar breakdown.",
		"• /week: summary of the last 7 days.",
		"• /help: this message.",
	}
	return strings.Join(sections, "\n")
}
