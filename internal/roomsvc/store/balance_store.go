package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// BalanceStore keeps player balances as a dr/cr ledger: every credit inserts
// a dr row, every debit a cr row, and the balance is SUM(dr) - SUM(cr).
type BalanceStore struct {
	db *pgxpool.Pool
}

func NewBalanceStore(db *pgxpool.Pool) *BalanceStore {
	return &BalanceStore{db: db}
}

func (s *BalanceStore) Get(ctx context.Context, handle string) (decimal.Decimal, error) {
	var totalDr, totalCr decimal.Decimal

	err := s.db.QueryRow(ctx, `
        SELECT
            COALESCE(SUM(dr), 0),
            COALESCE(SUM(cr), 0)
        FROM balances
        WHERE handle = $1 AND status = 'completed'
    `, handle).Scan(&totalDr, &totalCr)

	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance for %s: %w", handle, err)
	}

	return totalDr.Sub(totalCr), nil
}

func (s *BalanceStore) Credit(ctx context.Context, handle string, amount decimal.Decimal, tref string) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO balances (handle, ttype, dr, cr, tref, status)
        VALUES ($1, 'credit', $2, 0, $3, 'completed')
    `, handle, amount, tref)

	if err != nil {
		return fmt.Errorf("failed to credit %s: %w", handle, err)
	}
	return nil
}

// Debit inserts a cr row only when the resulting balance stays non-negative.
// The balance check and the insert run in one statement so two debits for the
// same handle cannot both pass the check.
func (s *BalanceStore) Debit(ctx context.Context, handle string, amount decimal.Decimal, tref string) error {
	var id int64
	err := s.db.QueryRow(ctx, `
        WITH bal AS (
            SELECT COALESCE(SUM(dr), 0) - COALESCE(SUM(cr), 0) AS amount
            FROM balances
            WHERE handle = $1 AND status = 'completed'
        )
        INSERT INTO balances (handle, ttype, dr, cr, tref, status)
        SELECT $1, 'debit', 0, $2, $3, 'completed'
        FROM bal
        WHERE bal.amount >= $2
        RETURNING id
    `, handle, amount, tref).Scan(&id)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInsufficientBalance
		}
		return fmt.Errorf("failed to debit %s: %w", handle, err)
	}
	return nil
}

// HasTRef reports whether a completed ledger row with the given transaction
// reference already exists, used for at-most-once deposit crediting.
func (s *BalanceStore) HasTRef(ctx context.Context, tref string) (bool, error) {
	var count int
	err := s.db.QueryRow(ctx, `
        SELECT COUNT(1) FROM balances WHERE tref = $1
    `, tref).Scan(&count)

	if err != nil {
		return false, fmt.Errorf("failed to check tref %s: %w", tref, err)
	}
	return count > 0, nil
}
