package alert

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Telegram chat messages are capped at 4096 characters; keep headroom for the
// header lines.
const maxMessageLen = 3500

// TelegramSink sends error logs to a Telegram chat.
type TelegramSink struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zap.Logger
}

// NewTelegramSink authorizes the bot once at startup. A failed authorization
// is returned to the caller, who typically falls back to Nop.
func NewTelegramSink(token string, chatID int64, log *zap.Logger) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	log.Info("Telegram alert sink ready", zap.String("bot", bot.Self.UserName))
	return &TelegramSink{bot: bot, chatID: chatID, log: log}, nil
}

func (s *TelegramSink) Error(_ context.Context, kind, message string, userID int64, extra map[string]string) {
	var b strings.Builder
	fmt.Fprintf(&b, "🔴 <b>%s</b>\n", kind)
	fmt.Fprintf(&b, "🕐 %s\n", time.Now().Format("2006-01-02 15:04:05"))
	if userID != 0 {
		fmt.Fprintf(&b, "👤 User ID: <code>%d</code>\n", userID)
	}
	fmt.Fprintf(&b, "\n<b>Error:</b>\n<code>%s</code>\n", message)

	if len(extra) > 0 {
		b.WriteString("\n<b>Details:</b>\n")
		keys := make([]string, 0, len(extra))
		for k := range extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  • %s: <code>%s</code>\n", k, extra[k])
		}
	}

	text := b.String()
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen]
	}

	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := s.bot.Send(msg); err != nil {
		s.log.Warn("Failed to send telegram alert",
			zap.String("kind", kind),
			zap.Error(err))
	}
}
