package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/digkill/TGCreatorPayBot/internal/config"
	"github.com/digkill/TGCreatorPayBot/internal/models"
	"github.com/digkill/TGCreatorPayBot/internal/workflow"
)

// Bot is the long-polling transport adapter: it converts Telegram updates
// into workflow events and renders the replies the orchestrator returns.
type Bot struct {
	cfg          config.Config
	api          *tgbotapi.BotAPI
	log          *slog.Logger
	orchestrator *workflow.Orchestrator
}

func NewBot(cfg config.Config, api *tgbotapi.BotAPI, log *slog.Logger, orchestrator *workflow.Orchestrator) *Bot {
	return &Bot{
		cfg:          cfg,
		api:          api,
		log:          log,
		orchestrator: orchestrator,
	}
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("telegram bot started")

	for {
		select {
		case update := <-updates:
			if update.Message != nil {
				b.handleMessage(ctx, update.Message)
			} else if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
			}
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := userIDOf(msg.From, msg.Chat.ID)

	if msg.IsCommand() {
		b.handleCommand(ctx, msg, userID)
		return
	}

	replies := b.orchestrator.HandleEvent(ctx, models.Event{
		UserID: userID,
		Kind:   models.EventText,
		Data:   msg.Text,
	})
	b.send(msg.Chat.ID, replies)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, userID string) {
	switch msg.Command() {
	case "start":
		replies := b.orchestrator.HandleEvent(ctx, models.Event{
			UserID: userID,
			Kind:   models.EventCommand,
			Data:   workflow.CommandStart,
		})
		b.send(msg.Chat.ID, replies)
	case "recent":
		b.handleRecent(ctx, msg.Chat.ID, userID)
	case "balances":
		b.handleBalances(ctx, msg.Chat.ID, userID)
	case "outstanding":
		b.handleOutstanding(ctx, msg.Chat.ID, userID)
	case "reconcile":
		b.handleReconcile(ctx, msg.Chat.ID, userID)
	default:
		b.sendText(msg.Chat.ID, "Неизвестная команда. Используйте /start.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Error("callback ack", "err", err)
	}
	if cb.Message == nil {
		return
	}
	userID := userIDOf(cb.From, cb.Message.Chat.ID)
	replies := b.orchestrator.HandleEvent(ctx, models.Event{
		UserID: userID,
		Kind:   models.EventSelect,
		Data:   cb.Data,
	})
	b.send(cb.Message.Chat.ID, replies)
}

func (b *Bot) handleRecent(ctx context.Context, chatID int64, userID string) {
	subs, err := b.orchestrator.RecentSubmissions(ctx, userID, b.cfg.RecentLimit)
	if err != nil {
		b.replyAdminError(chatID, err)
		return
	}
	if len(subs) == 0 {
		b.sendText(chatID, "Заявок пока нет.")
		return
	}
	var sb strings.Builder
	sb.WriteString("Последние заявки:\n")
	for _, sub := range subs {
		kpiMark := "НЕТ"
		if sub.Qualified {
			kpiMark = "ДА"
		}
		fmt.Fprintf(&sb, "%s | %s | %s | %d | KPI: %s | %s %s\n",
			sub.CreatedAt.Format("02.01.2006"), sub.UserID, sub.Platform, sub.Views,
			kpiMark, sub.Amount.StringFixed(2), b.cfg.Currency)
	}
	b.sendText(chatID, sb.String())
}

func (b *Bot) handleBalances(ctx context.Context, chatID int64, userID string) {
	users, err := b.orchestrator.Balances(ctx, userID)
	if err != nil {
		b.replyAdminError(chatID, err)
		return
	}
	if len(users) == 0 {
		b.sendText(chatID, "Пользователей пока нет.")
		return
	}
	var sb strings.Builder
	sb.WriteString("Балансы:\n")
	for _, u := range users {
		fmt.Fprintf(&sb, "%s (%s): %s %s\n", u.FullName, u.ExternalID, u.Balance.StringFixed(2), b.cfg.Currency)
	}
	b.sendText(chatID, sb.String())
}

func (b *Bot) handleOutstanding(ctx context.Context, chatID int64, userID string) {
	total, err := b.orchestrator.Outstanding(ctx, userID)
	if err != nil {
		b.replyAdminError(chatID, err)
		return
	}
	b.sendText(chatID, fmt.Sprintf("Всего к выплате: %s %s", total.StringFixed(2), b.cfg.Currency))
}

func (b *Bot) handleReconcile(ctx context.Context, chatID int64, userID string) {
	checked, err := b.orchestrator.Reconcile(ctx, userID)
	if err != nil {
		b.replyAdminError(chatID, err)
		return
	}
	b.sendText(chatID, fmt.Sprintf("Сверка завершена, проверено балансов: %d.", checked))
}

func (b *Bot) replyAdminError(chatID int64, err error) {
	if errors.Is(err, workflow.ErrPermissionDenied) {
		b.sendText(chatID, "Команда недоступна.")
		return
	}
	b.log.Error("admin command failed", "err", err)
	b.sendText(chatID, "Произошла ошибка. Попробуйте позже.")
}

func (b *Bot) send(chatID int64, replies []models.Message) {
	for _, reply := range replies {
		msg := tgbotapi.NewMessage(chatID, reply.Text)
		if len(reply.Menu) > 0 {
			rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(reply.Menu))
			for _, opt := range reply.Menu {
				rows = append(rows, tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData(opt.Label, opt.Data),
				))
			}
			msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
		}
		if _, err := b.api.Send(msg); err != nil {
			b.log.Error("send message", "err", err)
		}
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send text", "err", err)
	}
}

func userIDOf(from *tgbotapi.User, chatID int64) string {
	if from != nil {
		return fmt.Sprintf("%d", from.ID)
	}
	return fmt.Sprintf("%d", chatID)
}
