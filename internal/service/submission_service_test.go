package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/digkill/TGCreatorPayBot/internal/kpi"
	"github.com/digkill/TGCreatorPayBot/internal/ledger"
	"github.com/digkill/TGCreatorPayBot/internal/models"
)

type userStoreMock struct {
	listIDsFn       func(ctx context.Context) ([]string, error)
	getFn           func(ctx context.Context, externalID string) (*models.User, error)
	createFn        func(ctx context.Context, externalID, fullName string) (*models.User, error)
	updateBalanceFn func(ctx context.Context, externalID string, balance decimal.Decimal) error
	listFn          func(ctx context.Context) ([]models.User, error)
	sumBalancesFn   func(ctx context.Context) (decimal.Decimal, error)
}

func (m *userStoreMock) ListIDs(ctx context.Context) ([]string, error) {
	if m.listIDsFn != nil {
		return m.listIDsFn(ctx)
	}
	return nil, nil
}

func (m *userStoreMock) Get(ctx context.Context, externalID string) (*models.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, externalID)
	}
	return nil, nil
}

func (m *userStoreMock) Create(ctx context.Context, externalID, fullName string) (*models.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, externalID, fullName)
	}
	return &models.User{ExternalID: externalID, FullName: fullName, Balance: decimal.Zero}, nil
}

func (m *userStoreMock) UpdateBalance(ctx context.Context, externalID string, balance decimal.Decimal) error {
	if m.updateBalanceFn != nil {
		return m.updateBalanceFn(ctx, externalID, balance)
	}
	return nil
}

func (m *userStoreMock) List(ctx context.Context) ([]models.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *userStoreMock) SumBalances(ctx context.Context) (decimal.Decimal, error) {
	if m.sumBalancesFn != nil {
		return m.sumBalancesFn(ctx)
	}
	return decimal.Zero, nil
}

type submissionStoreMock struct {
	appendFn     func(ctx context.Context, sub *models.Submission) error
	linkExistsFn func(ctx context.Context, link string) (bool, error)
	listRecentFn func(ctx context.Context, n int) ([]models.Submission, error)
	listByUserFn func(ctx context.Context, externalID string) ([]models.Submission, error)
}

func (m *submissionStoreMock) Append(ctx context.Context, sub *models.Submission) error {
	if m.appendFn != nil {
		return m.appendFn(ctx, sub)
	}
	return nil
}

func (m *submissionStoreMock) LinkExists(ctx context.Context, link string) (bool, error) {
	if m.linkExistsFn != nil {
		return m.linkExistsFn(ctx, link)
	}
	return false, nil
}

func (m *submissionStoreMock) ListRecent(ctx context.Context, n int) ([]models.Submission, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, n)
	}
	return nil, nil
}

func (m *submissionStoreMock) ListByUser(ctx context.Context, externalID string) ([]models.Submission, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, externalID)
	}
	return nil, nil
}

type notifierMock struct {
	calls []models.Submission
	err   error
}

func (n *notifierMock) NotifySubmission(_ context.Context, sub models.Submission, _ string) error {
	n.calls = append(n.calls, sub)
	return n.err
}

func newTestService(users ledger.UserStore, subs ledger.SubmissionStore, notifier Notifier) *SubmissionService {
	return NewSubmissionService(slog.New(slog.NewTextHandler(io.Discard, nil)), kpi.DefaultRules(), users, subs, notifier)
}

func TestBuildQualifyingSubmission(t *testing.T) {
	balance := decimal.NewFromInt(3)
	var appended *models.Submission
	var credited decimal.Decimal

	users := &userStoreMock{
		getFn: func(_ context.Context, externalID string) (*models.User, error) {
			return &models.User{ExternalID: externalID, FullName: "Иван Иванов", Balance: balance}, nil
		},
		updateBalanceFn: func(_ context.Context, _ string, newBalance decimal.Decimal) error {
			credited = newBalance
			return nil
		},
	}
	subs := &submissionStoreMock{
		appendFn: func(_ context.Context, sub *models.Submission) error {
			appended = sub
			return nil
		},
	}
	notifier := &notifierMock{}
	svc := newTestService(users, subs, notifier)

	sub, err := svc.Build(context.Background(), "42", "YouTube Shorts", "https://youtu.be/abc", 20000)
	require.NoError(t, err)
	require.NotNil(t, appended)
	require.True(t, sub.Qualified)
	require.Equal(t, "2.00", sub.Amount.StringFixed(2))
	require.Equal(t, "5.00", credited.StringFixed(2))
	require.Len(t, notifier.calls, 1)
	require.NotEmpty(t, sub.ID)
}

func TestBuildNonQualifyingStillRecordsAndNotifies(t *testing.T) {
	var appended *models.Submission
	balanceTouched := false

	users := &userStoreMock{
		getFn: func(_ context.Context, externalID string) (*models.User, error) {
			return &models.User{ExternalID: externalID, FullName: "Пётр", Balance: decimal.Zero}, nil
		},
		updateBalanceFn: func(_ context.Context, _ string, _ decimal.Decimal) error {
			balanceTouched = true
			return nil
		},
	}
	subs := &submissionStoreMock{
		appendFn: func(_ context.Context, sub *models.Submission) error {
			appended = sub
			return nil
		},
	}
	notifier := &notifierMock{}
	svc := newTestService(users, subs, notifier)

	sub, err := svc.Build(context.Background(), "42", "TikTok", "https://tiktok.com/v/1", 10000)
	require.NoError(t, err)
	require.False(t, sub.Qualified)
	require.True(t, sub.Amount.IsZero())
	require.NotNil(t, appended)
	require.False(t, balanceTouched)
	require.Len(t, notifier.calls, 1)
}

func TestBuildDuplicateLink(t *testing.T) {
	appendCalled := false
	subs := &submissionStoreMock{
		linkExistsFn: func(_ context.Context, _ string) (bool, error) {
			return true, nil
		},
		appendFn: func(_ context.Context, _ *models.Submission) error {
			appendCalled = true
			return nil
		},
	}
	svc := newTestService(&userStoreMock{}, subs, nil)

	_, err := svc.Build(context.Background(), "42", "Instagram", "https://insta.com/p/1", 20000)
	require.ErrorIs(t, err, ledger.ErrDuplicateLink)
	require.False(t, appendCalled)
}

func TestBuildDuplicateLinkFromStoreRace(t *testing.T) {
	subs := &submissionStoreMock{
		appendFn: func(_ context.Context, _ *models.Submission) error {
			return ledger.ErrDuplicateLink
		},
	}
	svc := newTestService(&userStoreMock{}, subs, nil)

	_, err := svc.Build(context.Background(), "42", "Instagram", "https://insta.com/p/2", 20000)
	require.ErrorIs(t, err, ledger.ErrDuplicateLink)
}

func TestBuildIncompleteWorkflow(t *testing.T) {
	svc := newTestService(&userStoreMock{}, &submissionStoreMock{}, nil)

	_, err := svc.Build(context.Background(), "42", "", "https://insta.com/p/3", 20000)
	require.ErrorIs(t, err, ErrIncompleteWorkflow)

	_, err = svc.Build(context.Background(), "42", "Instagram", "   ", 20000)
	require.ErrorIs(t, err, ErrIncompleteWorkflow)
}

func TestBuildUnknownPlatform(t *testing.T) {
	svc := newTestService(&userStoreMock{}, &submissionStoreMock{}, nil)

	_, err := svc.Build(context.Background(), "42", "Vimeo", "https://vimeo.com/1", 20000)
	require.ErrorIs(t, err, kpi.ErrUnknownPlatform)
}

func TestBuildSurvivesCreditFailure(t *testing.T) {
	var appended *models.Submission
	users := &userStoreMock{
		getFn: func(_ context.Context, externalID string) (*models.User, error) {
			return &models.User{ExternalID: externalID, Balance: decimal.Zero}, nil
		},
		updateBalanceFn: func(_ context.Context, _ string, _ decimal.Decimal) error {
			return errors.New("store down")
		},
	}
	subs := &submissionStoreMock{
		appendFn: func(_ context.Context, sub *models.Submission) error {
			appended = sub
			return nil
		},
	}
	svc := newTestService(users, subs, nil)

	sub, err := svc.Build(context.Background(), "42", "YouTube Shorts", "https://youtu.be/xyz", 22500)
	require.NoError(t, err, "the appended submission stands even when crediting fails")
	require.NotNil(t, appended)
	require.True(t, sub.Qualified)
}

func TestBuildNotificationFailureDoesNotRollBack(t *testing.T) {
	users := &userStoreMock{
		getFn: func(_ context.Context, externalID string) (*models.User, error) {
			return &models.User{ExternalID: externalID, Balance: decimal.Zero}, nil
		},
	}
	notifier := &notifierMock{err: errors.New("telegram down")}
	svc := newTestService(users, &submissionStoreMock{}, notifier)

	sub, err := svc.Build(context.Background(), "42", "TikTok", "https://tiktok.com/v/2", 15000)
	require.NoError(t, err)
	require.True(t, sub.Qualified)
	require.Len(t, notifier.calls, 1)
}
