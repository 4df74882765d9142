package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/digkill/TGCreatorPayBot/internal/ledger"
)

// withTimeout bounds every store call so a stalled MySQL connection
// surfaces as a transient failure instead of hanging the user's lane.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// classify folds deadline errors into the transient store-unavailable
// category the workflow layer knows how to report and retry.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}
	return err
}
