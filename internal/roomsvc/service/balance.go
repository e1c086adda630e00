package service

import (
	"context"

	"github.com/shopspring/decimal"
)

// BalanceStore is the persistence collaborator for player balances. Debit
// must fail with store.ErrInsufficientBalance when funds do not cover the
// amount.
type BalanceStore interface {
	Get(ctx context.Context, handle string) (decimal.Decimal, error)
	Credit(ctx context.Context, handle string, amount decimal.Decimal, tref string) error
	Debit(ctx context.Context, handle string, amount decimal.Decimal, tref string) error
	HasTRef(ctx context.Context, tref string) (bool, error)
}

type BalanceService struct {
	store BalanceStore
}

func NewBalanceService(store BalanceStore) *BalanceService {
	return &BalanceService{store: store}
}

func (s *BalanceService) Get(ctx context.Context, handle string) (decimal.Decimal, error) {
	return s.store.Get(ctx, handle)
}

func (s *BalanceService) Credit(ctx context.Context, handle string, amount decimal.Decimal, tref string) error {
	return s.store.Credit(ctx, handle, amount, tref)
}

func (s *BalanceService) Debit(ctx context.Context, handle string, amount decimal.Decimal, tref string) error {
	return s.store.Debit(ctx, handle, amount, tref)
}
