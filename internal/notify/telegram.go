package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// TelegramNotifier отправляет итоги запусков автопланирования в админский чат.
// Ошибки отправки только логируются: уведомления не должны влиять на запуски.
type TelegramNotifier struct {
	bot    *bot.Bot
	chatID int64
	logger *zap.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *zap.Logger) (*TelegramNotifier, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:    b,
		chatID: chatID,
		logger: logger,
	}, nil
}

// RunCompleted сообщает об успешно завершившемся запуске
func (n *TelegramNotifier) RunCompleted(ctx context.Context, appointmentsCreated int) {
	text := "ℹ️ Auto-scheduling: no new appointments needed"
	if appointmentsCreated > 0 {
		text = fmt.Sprintf("✅ Auto-scheduling: created %d new appointments", appointmentsCreated)
	}
	n.send(ctx, text)
}

// RunFailed сообщает о неудавшемся запуске
func (n *TelegramNotifier) RunFailed(ctx context.Context, err error) {
	n.send(ctx, fmt.Sprintf("❌ Auto-scheduling run failed: %v", err))
}

func (n *TelegramNotifier) send(ctx context.Context, text string) {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   text,
	})
	if err != nil {
		n.logger.Warn("Failed to send telegram notification", zap.Error(err))
	}
}
