// Package ledger defines the store-agnostic contracts the workflow core
// uses to read and append Users and Submissions. The MySQL implementation
// lives in internal/repository; tests supply in-memory fakes.
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/digkill/TGCreatorPayBot/internal/models"
)

// ErrDuplicateLink reports that a submission link has already been
// claimed, by any user, at any point in history.
var ErrDuplicateLink = errors.New("submission link already recorded")

// ErrStoreUnavailable classifies timeouts and transport failures talking
// to the backing store; callers treat it as transient and retryable.
var ErrStoreUnavailable = errors.New("ledger store unavailable")

type UserStore interface {
	ListIDs(ctx context.Context) ([]string, error)
	Get(ctx context.Context, externalID string) (*models.User, error)
	Create(ctx context.Context, externalID, fullName string) (*models.User, error)
	UpdateBalance(ctx context.Context, externalID string, balance decimal.Decimal) error
	List(ctx context.Context) ([]models.User, error)
	SumBalances(ctx context.Context) (decimal.Decimal, error)
}

type SubmissionStore interface {
	// Append records an immutable submission; returns ErrDuplicateLink
	// when the link is already claimed.
	Append(ctx context.Context, sub *models.Submission) error
	LinkExists(ctx context.Context, link string) (bool, error)
	ListRecent(ctx context.Context, n int) ([]models.Submission, error)
	ListByUser(ctx context.Context, externalID string) ([]models.Submission, error)
}
