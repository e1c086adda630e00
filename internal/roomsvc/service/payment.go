package service

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnparsablePayment is returned when no supported payment-message format
// matches the text.
var ErrUnparsablePayment = errors.New("unrecognized payment message")

// Payment is the result of parsing a payment confirmation message.
type Payment struct {
	Amount        decimal.Decimal
	TransactionId string
	Recipient     string
}

var (
	amountRe = regexp.MustCompile(`(?i)(?:ETB|Birr)\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)
	trefRe   = regexp.MustCompile(`(?i)transaction (?:number|id|ref(?:erence)?)[:\s]+([A-Z0-9]{6,})`)
	recipRe  = regexp.MustCompile(`(?i)\bto\s+([A-Za-z][A-Za-z .'-]*?)(?:\s+(?:on|at|with)\b|[,.\n]|$)`)
)

// ParsePayment extracts amount, transaction id and recipient name from a raw
// payment confirmation text (telebirr / bank SMS style). It fails when any of
// the three fields is missing or the amount is not positive.
func ParsePayment(rawText string) (Payment, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return Payment{}, ErrUnparsablePayment
	}

	am := amountRe.FindStringSubmatch(text)
	tr := trefRe.FindStringSubmatch(text)
	rc := recipRe.FindStringSubmatch(text)
	if am == nil || tr == nil || rc == nil {
		return Payment{}, ErrUnparsablePayment
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(am[1], ",", ""))
	if err != nil || !amount.IsPositive() {
		return Payment{}, ErrUnparsablePayment
	}

	return Payment{
		Amount:        amount,
		TransactionId: strings.ToUpper(tr[1]),
		Recipient:     strings.TrimSpace(rc[1]),
	}, nil
}
