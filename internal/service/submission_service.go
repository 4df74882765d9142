package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/digkill/TGCreatorPayBot/internal/kpi"
	"github.com/digkill/TGCreatorPayBot/internal/ledger"
	"github.com/digkill/TGCreatorPayBot/internal/models"
)

// ErrIncompleteWorkflow reports that the session reached the pricing step
// without a platform or link, which means its state is stale or corrupted.
var ErrIncompleteWorkflow = errors.New("incomplete workflow state")

var ErrUserNotFound = errors.New("user not found")

// Notifier delivers the per-submission review message to the
// administrator. Delivery is best effort and never blocks a commit.
type Notifier interface {
	NotifySubmission(ctx context.Context, sub models.Submission, displayName string) error
}

// SubmissionService assembles priced, immutable submission records and
// keeps the user's payable balance in step with them.
type SubmissionService struct {
	log         *slog.Logger
	rules       kpi.Rules
	users       ledger.UserStore
	submissions ledger.SubmissionStore
	notifier    Notifier
}

func NewSubmissionService(log *slog.Logger, rules kpi.Rules, users ledger.UserStore, submissions ledger.SubmissionStore, notifier Notifier) *SubmissionService {
	return &SubmissionService{
		log:         log,
		rules:       rules,
		users:       users,
		submissions: submissions,
		notifier:    notifier,
	}
}

func (s *SubmissionService) Rules() kpi.Rules {
	return s.rules
}

// LinkTaken checks the full submission history, not just the session.
func (s *SubmissionService) LinkTaken(ctx context.Context, link string) (bool, error) {
	return s.submissions.LinkExists(ctx, strings.TrimSpace(link))
}

// Build prices the submission, appends it to the ledger and, when it
// qualifies, credits the user's balance. The append is the durable side:
// if the credit fails afterwards the record stands and Reconcile restores
// the balance invariant from history.
func (s *SubmissionService) Build(ctx context.Context, userID, platform, link string, views int64) (*models.Submission, error) {
	link = strings.TrimSpace(link)
	if platform == "" || link == "" {
		return nil, ErrIncompleteWorkflow
	}

	taken, err := s.submissions.LinkExists(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("check link: %w", err)
	}
	if taken {
		return nil, ledger.ErrDuplicateLink
	}

	result, err := s.rules.Evaluate(platform, views)
	if err != nil {
		return nil, err
	}

	sub := &models.Submission{
		ID:        uuid.NewString(),
		UserID:    userID,
		Platform:  platform,
		Link:      link,
		Views:     views,
		Qualified: result.Qualifies,
		Amount:    result.Amount,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.submissions.Append(ctx, sub); err != nil {
		return nil, fmt.Errorf("append submission: %w", err)
	}

	if result.Qualifies {
		if err := s.creditBalance(ctx, userID, sub); err != nil {
			// The submission is already durable; the balance is a derived
			// aggregate and a reconciliation pass restores it.
			s.log.Warn("balance credit failed after append", "user", userID, "submission", sub.ID, "err", err)
		}
	}

	s.notify(ctx, sub)
	return sub, nil
}

func (s *SubmissionService) creditBalance(ctx context.Context, userID string, sub *models.Submission) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	if err := s.users.UpdateBalance(ctx, userID, user.Balance.Add(sub.Amount)); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return nil
}

func (s *SubmissionService) notify(ctx context.Context, sub *models.Submission) {
	if s.notifier == nil {
		return
	}
	displayName := sub.UserID
	if user, err := s.users.Get(ctx, sub.UserID); err == nil && user != nil {
		displayName = user.FullName
	}
	if err := s.notifier.NotifySubmission(ctx, *sub, displayName); err != nil {
		s.log.Warn("admin notification failed", "submission", sub.ID, "err", err)
	}
}

func (s *SubmissionService) ListRecent(ctx context.Context, n int) ([]models.Submission, error) {
	if n <= 0 {
		n = 10
	}
	subs, err := s.submissions.ListRecent(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	return subs, nil
}
