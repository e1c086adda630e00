package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/bingo-rooms/internal/roomsvc/store"
	log "github.com/sirupsen/logrus"
)

// ErrDuplicateDeposit is returned when the transaction id was already
// credited or recorded; crediting stays at-most-once per transaction.
var ErrDuplicateDeposit = errors.New("duplicate transaction reference")

// RequestLedger is the append-only record of inbound deposit requests.
type RequestLedger interface {
	Append(ctx context.Context, rec store.DepositRequest) error
	HasTRef(ctx context.Context, tref string) (bool, error)
}

type DepositService struct {
	ledger   RequestLedger
	balances BalanceStore
}

func NewDepositService(ledger RequestLedger, balances BalanceStore) *DepositService {
	return &DepositService{ledger: ledger, balances: balances}
}

// Process parses a raw payment message and credits the handle once per
// transaction id. The request is recorded before crediting; a failed credit
// is propagated to the caller, never retried here.
func (s *DepositService) Process(ctx context.Context, handle, rawText string) (Payment, error) {
	payment, err := ParsePayment(rawText)
	if err != nil {
		return Payment{}, err
	}

	if seen, err := s.ledger.HasTRef(ctx, payment.TransactionId); err != nil {
		return Payment{}, fmt.Errorf("deposit not recorded: %w", err)
	} else if seen {
		return Payment{}, ErrDuplicateDeposit
	}
	if seen, err := s.balances.HasTRef(ctx, payment.TransactionId); err != nil {
		return Payment{}, fmt.Errorf("deposit not recorded: %w", err)
	} else if seen {
		return Payment{}, ErrDuplicateDeposit
	}

	rec := store.DepositRequest{
		Handle:    handle,
		TRef:      payment.TransactionId,
		Amount:    payment.Amount.StringFixed(2),
		Recipient: payment.Recipient,
		RawText:   rawText,
		Status:    "received",
	}
	if err := s.ledger.Append(ctx, rec); err != nil {
		return Payment{}, fmt.Errorf("deposit not recorded: %w", err)
	}

	if err := s.balances.Credit(ctx, handle, payment.Amount, payment.TransactionId); err != nil {
		log.Errorf("deposit %s recorded but credit failed for %s: %v", payment.TransactionId, handle, err)
		return Payment{}, fmt.Errorf("deposit not credited: %w", err)
	}

	return payment, nil
}
