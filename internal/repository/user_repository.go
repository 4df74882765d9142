package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/digkill/TGCreatorPayBot/internal/ledger"
	"github.com/digkill/TGCreatorPayBot/internal/models"
)

type UserRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewUserRepository(db *sql.DB, timeout time.Duration) *UserRepository {
	return &UserRepository{db: db, timeout: timeout}
}

func (r *UserRepository) Get(ctx context.Context, externalID string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
SELECT id, external_id, full_name, balance, created_at, updated_at
FROM users WHERE external_id = ?`
	row := r.db.QueryRowContext(ctx, query, externalID)
	var u models.User
	var balance string
	if err := row.Scan(&u.ID, &u.ExternalID, &u.FullName, &balance, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(fmt.Errorf("scan user: %w", err))
	}
	parsed, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	u.Balance = parsed
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, externalID, fullName string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	const query = `INSERT INTO users (external_id, full_name, balance) VALUES (?, ?, 0)`
	res, err := r.db.ExecContext(ctx, query, externalID, fullName)
	if err != nil {
		return nil, classify(fmt.Errorf("insert user: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &models.User{
		ID:         id,
		ExternalID: externalID,
		FullName:   fullName,
		Balance:    decimal.Zero,
	}, nil
}

func (r *UserRepository) UpdateBalance(ctx context.Context, externalID string, balance decimal.Decimal) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	const query = `UPDATE users SET balance = ?, updated_at = NOW() WHERE external_id = ?`
	if _, err := r.db.ExecContext(ctx, query, balance.StringFixed(2), externalID); err != nil {
		return classify(fmt.Errorf("update balance: %w", err))
	}
	return nil
}

func (r *UserRepository) ListIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	const query = `SELECT external_id FROM users ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classify(fmt.Errorf("list user ids: %w", err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
SELECT id, external_id, full_name, balance, created_at, updated_at
FROM users ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classify(fmt.Errorf("list users: %w", err))
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		var balance string
		if err := rows.Scan(&u.ID, &u.ExternalID, &u.FullName, &balance, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		parsed, err := decimal.NewFromString(balance)
		if err != nil {
			return nil, fmt.Errorf("parse balance %q: %w", balance, err)
		}
		u.Balance = parsed
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) SumBalances(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	const query = `SELECT COALESCE(SUM(balance), 0) FROM users`
	row := r.db.QueryRowContext(ctx, query)
	var total string
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, classify(fmt.Errorf("sum balances: %w", err))
	}
	parsed, err := decimal.NewFromString(total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse total %q: %w", total, err)
	}
	return parsed, nil
}

var _ ledger.UserStore = (*UserRepository)(nil)
