package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/digkill/TGCreatorPayBot/internal/models"
)

// AdminNotifier forwards every submission that reached the view-count
// step to the administrator chat for manual review.
type AdminNotifier struct {
	api      *tgbotapi.BotAPI
	chatID   int64
	currency string
}

func NewAdminNotifier(api *tgbotapi.BotAPI, chatID int64, currency string) *AdminNotifier {
	return &AdminNotifier{api: api, chatID: chatID, currency: currency}
}

func (n *AdminNotifier) NotifySubmission(_ context.Context, sub models.Submission, displayName string) error {
	kpiMark := "НЕТ"
	if sub.Qualified {
		kpiMark = "ДА"
	}
	text := fmt.Sprintf(
		"Заявка от %s (%s)\nПлатформа: %s\nСсылка: %s\nПросмотры: %d\nKPI: %s\nНачисление: %s %s",
		displayName, sub.UserID, sub.Platform, sub.Link, sub.Views,
		kpiMark, sub.Amount.StringFixed(2), n.currency,
	)
	if _, err := n.api.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		return fmt.Errorf("notify admin: %w", err)
	}
	return nil
}
