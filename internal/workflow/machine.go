package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/digkill/TGCreatorPayBot/internal/kpi"
	"github.com/digkill/TGCreatorPayBot/internal/ledger"
	"github.com/digkill/TGCreatorPayBot/internal/models"
	"github.com/digkill/TGCreatorPayBot/internal/service"
)

// Menu tokens understood by the machine. The transport adapter maps its
// native selection mechanism (inline keyboard callbacks) onto these.
const (
	SelectAddVideo     = "add_video"
	SelectCheckBalance = "check_balance"
	selectPlatformPfx  = "plat:"
)

const CommandStart = "start"

// Machine sequences the registration/submission conversation. It owns no
// session storage; the orchestrator hands it a locked session per event.
type Machine struct {
	users       *service.UserService
	submissions *service.SubmissionService
	currency    string
}

func NewMachine(users *service.UserService, submissions *service.SubmissionService, currency string) *Machine {
	return &Machine{users: users, submissions: submissions, currency: currency}
}

// Advance applies one event to the session and returns the replies.
// Errors it cannot recover into a user message bubble up to the
// orchestrator; in that case the step has not been advanced, so the same
// input can be retried.
func (m *Machine) Advance(ctx context.Context, session *Session, ev models.Event) ([]models.Message, error) {
	switch session.Step {
	case StepAwaitingName:
		return m.handleName(ctx, session, ev)
	case StepAwaitingPlatform:
		return m.handlePlatform(ctx, session, ev)
	case StepAwaitingLink:
		return m.handleLink(ctx, session, ev)
	case StepAwaitingViews:
		return m.handleViews(ctx, session, ev)
	default:
		return m.handleIdle(ctx, session, ev)
	}
}

func (m *Machine) handleIdle(ctx context.Context, session *Session, ev models.Event) ([]models.Message, error) {
	user, err := m.users.Get(ctx, ev.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		session.Step = StepAwaitingName
		return []models.Message{{Text: "Добро пожаловать! Введите ваше имя и фамилию для регистрации:"}}, nil
	}

	switch {
	case ev.Kind == models.EventSelect && ev.Data == SelectAddVideo:
		session.Step = StepAwaitingPlatform
		return []models.Message{platformMenu(m.submissions.Rules())}, nil
	case ev.Kind == models.EventSelect && ev.Data == SelectCheckBalance:
		return []models.Message{
			{Text: fmt.Sprintf("Ваш баланс: %s %s", user.Balance.StringFixed(2), m.currency), Menu: mainMenu()},
		}, nil
	default:
		return []models.Message{{Text: "Выберите действие:", Menu: mainMenu()}}, nil
	}
}

func (m *Machine) handleName(ctx context.Context, session *Session, ev models.Event) ([]models.Message, error) {
	if ev.Kind != models.EventText {
		return []models.Message{{Text: "Введите ваше имя и фамилию для регистрации:"}}, nil
	}
	user, err := m.users.Register(ctx, ev.UserID, ev.Data)
	if err != nil {
		if errors.Is(err, service.ErrEmptyName) {
			return []models.Message{{Text: "Имя не может быть пустым. Введите ваше имя и фамилию:"}}, nil
		}
		return nil, err
	}
	session.reset()
	return []models.Message{
		{Text: fmt.Sprintf("Спасибо, %s! Вы зарегистрированы.", user.FullName), Menu: mainMenu()},
	}, nil
}

func (m *Machine) handlePlatform(_ context.Context, session *Session, ev models.Event) ([]models.Message, error) {
	if ev.Kind != models.EventSelect || !strings.HasPrefix(ev.Data, selectPlatformPfx) {
		// Anything but a platform pick is ignored, no transition.
		return nil, nil
	}
	platform := strings.TrimPrefix(ev.Data, selectPlatformPfx)
	if !m.submissions.Rules().Known(platform) {
		return nil, nil
	}
	session.Platform = platform
	session.Step = StepAwaitingLink
	return []models.Message{{Text: "Отправьте ссылку на видео:"}}, nil
}

func (m *Machine) handleLink(ctx context.Context, session *Session, ev models.Event) ([]models.Message, error) {
	if ev.Kind != models.EventText {
		return []models.Message{{Text: "Отправьте ссылку на видео:"}}, nil
	}
	link := strings.TrimSpace(ev.Data)
	if link == "" {
		return []models.Message{{Text: "Ссылка не может быть пустой. Отправьте ссылку на видео:"}}, nil
	}

	taken, err := m.submissions.LinkTaken(ctx, link)
	if err != nil {
		return nil, err
	}
	if taken {
		// A reused link ends the whole attempt rather than re-prompting.
		session.reset()
		return []models.Message{{Text: "Вы уже добавляли эту ссылку.", Menu: mainMenu()}}, nil
	}

	session.Link = link
	session.Step = StepAwaitingViews
	return []models.Message{{Text: "Введите точное количество просмотров:"}}, nil
}

func (m *Machine) handleViews(ctx context.Context, session *Session, ev models.Event) ([]models.Message, error) {
	if ev.Kind != models.EventText {
		return []models.Message{{Text: "Введите число просмотров цифрами."}}, nil
	}
	views, err := strconv.ParseInt(strings.TrimSpace(ev.Data), 10, 64)
	if err != nil || views < 0 {
		return []models.Message{{Text: "Введите число просмотров цифрами."}}, nil
	}

	sub, err := m.submissions.Build(ctx, ev.UserID, session.Platform, session.Link, views)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrDuplicateLink):
			session.reset()
			return []models.Message{{Text: "Вы уже добавляли эту ссылку.", Menu: mainMenu()}}, nil
		case errors.Is(err, service.ErrIncompleteWorkflow), errors.Is(err, kpi.ErrUnknownPlatform):
			session.reset()
			return []models.Message{{Text: "Произошла ошибка. Попробуйте заново.", Menu: mainMenu()}}, nil
		case errors.Is(err, kpi.ErrInvalidViewCount):
			return []models.Message{{Text: "Введите число просмотров цифрами."}}, nil
		default:
			return nil, err
		}
	}

	session.reset()
	if !sub.Qualified {
		return []models.Message{{Text: "У вас недостаточно просмотров для KPI.", Menu: mainMenu()}}, nil
	}
	return []models.Message{
		{
			Text: fmt.Sprintf("Заявка отправлена на проверку. Возможная выплата: %s %s",
				sub.Amount.StringFixed(2), m.currency),
			Menu: mainMenu(),
		},
	}, nil
}

func mainMenu() []models.MenuOption {
	return []models.MenuOption{
		{Label: "Добавить видео", Data: SelectAddVideo},
		{Label: "Баланс", Data: SelectCheckBalance},
	}
}

func platformMenu(rules kpi.Rules) models.Message {
	msg := models.Message{Text: "Выберите платформу:"}
	for _, platform := range rules.Platforms() {
		msg.Menu = append(msg.Menu, models.MenuOption{Label: platform, Data: selectPlatformPfx + platform})
	}
	return msg
}
