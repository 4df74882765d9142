package workflow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/digkill/TGCreatorPayBot/internal/models"
	"github.com/digkill/TGCreatorPayBot/internal/service"
)

// ErrPermissionDenied reports an administrative query from anyone but
// the configured administrator identity.
var ErrPermissionDenied = errors.New("permission denied")

// Orchestrator binds the conversation machine to the session store and
// recovers every classified failure into a user-facing reply. It is the
// transport-agnostic entry point: adapters feed it events and render the
// returned messages.
type Orchestrator struct {
	log      *slog.Logger
	machine  *Machine
	sessions *SessionManager
	users    *service.UserService
	subs     *service.SubmissionService
	adminID  string
}

func NewOrchestrator(log *slog.Logger, machine *Machine, sessions *SessionManager, users *service.UserService, subs *service.SubmissionService, adminID string) *Orchestrator {
	return &Orchestrator{
		log:      log,
		machine:  machine,
		sessions: sessions,
		users:    users,
		subs:     subs,
		adminID:  adminID,
	}
}

// HandleEvent applies one inbound event under the user's session lane and
// returns the ordered replies. It never lets a failure escape as a crash:
// unrecoverable errors become a transient-failure message and the session
// step stays put so the same input can be retried.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev models.Event) []models.Message {
	if ev.UserID == "" {
		return nil
	}

	session, release := o.sessions.Acquire(ev.UserID)
	defer release()

	msgs, err := o.machine.Advance(ctx, session, ev)
	if err != nil {
		o.log.Error("event processing failed", "user", ev.UserID, "step", session.Step, "err", err)
		return []models.Message{{Text: "Произошла ошибка. Попробуйте позже."}}
	}
	return msgs
}

func (o *Orchestrator) authorize(requesterID string) error {
	if requesterID == "" || requesterID != o.adminID {
		return ErrPermissionDenied
	}
	return nil
}

// RecentSubmissions is an administrative read of the newest ledger rows.
func (o *Orchestrator) RecentSubmissions(ctx context.Context, requesterID string, n int) ([]models.Submission, error) {
	if err := o.authorize(requesterID); err != nil {
		return nil, err
	}
	return o.subs.ListRecent(ctx, n)
}

// Balances dumps every user with their current payable balance.
func (o *Orchestrator) Balances(ctx context.Context, requesterID string) ([]models.User, error) {
	if err := o.authorize(requesterID); err != nil {
		return nil, err
	}
	return o.users.ListBalances(ctx)
}

// Outstanding is the aggregate amount owed across all users.
func (o *Orchestrator) Outstanding(ctx context.Context, requesterID string) (decimal.Decimal, error) {
	if err := o.authorize(requesterID); err != nil {
		return decimal.Zero, err
	}
	return o.users.Outstanding(ctx)
}

// Reconcile recomputes every balance from the submission history.
func (o *Orchestrator) Reconcile(ctx context.Context, requesterID string) (int, error) {
	if err := o.authorize(requesterID); err != nil {
		return 0, err
	}
	return o.users.ReconcileAll(ctx)
}
