package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/digkill/TGCreatorPayBot/internal/ledger"
	"github.com/digkill/TGCreatorPayBot/internal/models"
)

var ErrEmptyName = errors.New("display name is empty")

type UserService struct {
	users       ledger.UserStore
	submissions ledger.SubmissionStore
}

func NewUserService(users ledger.UserStore, submissions ledger.SubmissionStore) *UserService {
	return &UserService{users: users, submissions: submissions}
}

func (s *UserService) Get(ctx context.Context, externalID string) (*models.User, error) {
	user, err := s.users.Get(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Register creates the user with a zero balance. The display name is
// captured once and never changed afterwards.
func (s *UserService) Register(ctx context.Context, externalID, fullName string) (*models.User, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, ErrEmptyName
	}
	user, err := s.users.Create(ctx, externalID, fullName)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *UserService) ListBalances(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Outstanding is the aggregate payable balance across all users.
func (s *UserService) Outstanding(ctx context.Context) (decimal.Decimal, error) {
	total, err := s.users.SumBalances(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum balances: %w", err)
	}
	return total, nil
}

// Reconcile recomputes one user's balance from the qualifying entries in
// the submission history and writes it back. The history is the source of
// truth; the stored balance is only a cached aggregate.
func (s *UserService) Reconcile(ctx context.Context, externalID string) (decimal.Decimal, error) {
	user, err := s.users.Get(ctx, externalID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return decimal.Zero, ErrUserNotFound
	}

	subs, err := s.submissions.ListByUser(ctx, externalID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list submissions: %w", err)
	}
	total := decimal.Zero
	for _, sub := range subs {
		if sub.Qualified {
			total = total.Add(sub.Amount)
		}
	}

	if !total.Equal(user.Balance) {
		if err := s.users.UpdateBalance(ctx, externalID, total); err != nil {
			return decimal.Zero, fmt.Errorf("write reconciled balance: %w", err)
		}
	}
	return total, nil
}

// ReconcileAll runs Reconcile for every known user and returns how many
// balances were checked.
func (s *UserService) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := s.users.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list user ids: %w", err)
	}
	for _, id := range ids {
		if _, err := s.Reconcile(ctx, id); err != nil {
			return 0, fmt.Errorf("reconcile %s: %w", id, err)
		}
	}
	return len(ids), nil
}
