package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/digkill/TGCreatorPayBot/internal/models"
)

func TestRegisterTrimsName(t *testing.T) {
	users := &userStoreMock{
		createFn: func(_ context.Context, externalID, fullName string) (*models.User, error) {
			return &models.User{ExternalID: externalID, FullName: fullName, Balance: decimal.Zero}, nil
		},
	}
	svc := NewUserService(users, &submissionStoreMock{})

	user, err := svc.Register(context.Background(), "42", "  Иван Иванов  ")
	require.NoError(t, err)
	require.Equal(t, "Иван Иванов", user.FullName)
	require.True(t, user.Balance.IsZero())
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	svc := NewUserService(&userStoreMock{}, &submissionStoreMock{})

	_, err := svc.Register(context.Background(), "42", "   ")
	require.ErrorIs(t, err, ErrEmptyName)
}

func TestReconcileRestoresBalanceFromHistory(t *testing.T) {
	// The stored balance is stale after a simulated credit failure; the
	// submission history is the source of truth.
	stored := decimal.NewFromInt(1)
	users := &userStoreMock{
		getFn: func(_ context.Context, externalID string) (*models.User, error) {
			return &models.User{ExternalID: externalID, Balance: stored}, nil
		},
		updateBalanceFn: func(_ context.Context, _ string, balance decimal.Decimal) error {
			stored = balance
			return nil
		},
	}
	subs := &submissionStoreMock{
		listByUserFn: func(_ context.Context, _ string) ([]models.Submission, error) {
			return []models.Submission{
				{Qualified: true, Amount: decimal.NewFromInt(2)},
				{Qualified: false, Amount: decimal.Zero},
				{Qualified: true, Amount: decimal.NewFromInt(3)},
			}, nil
		},
	}
	svc := NewUserService(users, subs)

	total, err := svc.Reconcile(context.Background(), "42")
	require.NoError(t, err)
	require.Equal(t, "5.00", total.StringFixed(2))
	require.Equal(t, "5.00", stored.StringFixed(2))
}

func TestReconcileSkipsWriteWhenBalanceMatches(t *testing.T) {
	writes := 0
	users := &userStoreMock{
		getFn: func(_ context.Context, externalID string) (*models.User, error) {
			return &models.User{ExternalID: externalID, Balance: decimal.NewFromInt(5)}, nil
		},
		updateBalanceFn: func(_ context.Context, _ string, _ decimal.Decimal) error {
			writes++
			return nil
		},
	}
	subs := &submissionStoreMock{
		listByUserFn: func(_ context.Context, _ string) ([]models.Submission, error) {
			return []models.Submission{{Qualified: true, Amount: decimal.NewFromInt(5)}}, nil
		},
	}
	svc := NewUserService(users, subs)

	_, err := svc.Reconcile(context.Background(), "42")
	require.NoError(t, err)
	require.Zero(t, writes)
}

func TestReconcileUnknownUser(t *testing.T) {
	svc := NewUserService(&userStoreMock{}, &submissionStoreMock{})

	_, err := svc.Reconcile(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestReconcileAll(t *testing.T) {
	balances := map[string]decimal.Decimal{
		"1": decimal.Zero,
		"2": decimal.NewFromInt(7),
	}
	users := &userStoreMock{
		listIDsFn: func(_ context.Context) ([]string, error) {
			return []string{"1", "2"}, nil
		},
		getFn: func(_ context.Context, externalID string) (*models.User, error) {
			return &models.User{ExternalID: externalID, Balance: balances[externalID]}, nil
		},
		updateBalanceFn: func(_ context.Context, externalID string, balance decimal.Decimal) error {
			balances[externalID] = balance
			return nil
		},
	}
	subs := &submissionStoreMock{
		listByUserFn: func(_ context.Context, externalID string) ([]models.Submission, error) {
			if externalID == "1" {
				return []models.Submission{{Qualified: true, Amount: decimal.NewFromInt(4)}}, nil
			}
			return nil, nil
		},
	}
	svc := NewUserService(users, subs)

	checked, err := svc.ReconcileAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, checked)
	require.Equal(t, "4.00", balances["1"].StringFixed(2))
	require.Equal(t, "0.00", balances["2"].StringFixed(2))
}
