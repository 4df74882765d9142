package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/digkill/TGCreatorPayBot/internal/ledger"
	"github.com/digkill/TGCreatorPayBot/internal/models"
)

const mysqlDuplicateEntry = 1062

type SubmissionRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewSubmissionRepository(db *sql.DB, timeout time.Duration) *SubmissionRepository {
	return &SubmissionRepository{db: db, timeout: timeout}
}

func (r *SubmissionRepository) Append(ctx context.Context, sub *models.Submission) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
INSERT INTO submissions (id, user_id, platform, link, views, qualified, amount, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	qualified := 0
	if sub.Qualified {
		qualified = 1
	}
	_, err := r.db.ExecContext(ctx, query,
		sub.ID, sub.UserID, sub.Platform, sub.Link, sub.Views, qualified, sub.Amount.StringFixed(2), sub.CreatedAt)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ledger.ErrDuplicateLink
		}
		return classify(fmt.Errorf("insert submission: %w", err))
	}
	return nil
}

func (r *SubmissionRepository) LinkExists(ctx context.Context, link string) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	const query = `SELECT 1 FROM submissions WHERE link = ? LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, link)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, classify(fmt.Errorf("check link: %w", err))
	}
	return true, nil
}

func (r *SubmissionRepository) ListRecent(ctx context.Context, n int) ([]models.Submission, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
SELECT id, user_id, platform, link, views, qualified, amount, created_at
FROM submissions ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, classify(fmt.Errorf("list recent submissions: %w", err))
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (r *SubmissionRepository) ListByUser(ctx context.Context, externalID string) ([]models.Submission, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
SELECT id, user_id, platform, link, views, qualified, amount, created_at
FROM submissions WHERE user_id = ? ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, externalID)
	if err != nil {
		return nil, classify(fmt.Errorf("list user submissions: %w", err))
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func scanSubmissions(rows *sql.Rows) ([]models.Submission, error) {
	var subs []models.Submission
	for rows.Next() {
		var s models.Submission
		var qualified int
		var amount string
		if err := rows.Scan(&s.ID, &s.UserID, &s.Platform, &s.Link, &s.Views, &qualified, &amount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		s.Qualified = qualified != 0
		s.Amount = parsed
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

var _ ledger.SubmissionStore = (*SubmissionRepository)(nil)
