package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaymentTelebirrStyle(t *testing.T) {
	text := "You have transferred ETB 250.00 to Abe Kebede on 21/05/2025. Transaction number: AB12CD34EF."

	p, err := ParsePayment(text)
	require.NoError(t, err)
	assert.Equal(t, "250", p.Amount.String())
	assert.Equal(t, "AB12CD34EF", p.TransactionId)
	assert.Equal(t, "Abe Kebede", p.Recipient)
}

func TestParsePaymentBankStyle(t *testing.T) {
	text := "Dear customer, Birr 1,500.50 has been paid to Sara T. with transaction ref CBE998877A"

	p, err := ParsePayment(text)
	require.NoError(t, err)
	assert.Equal(t, "1500.5", p.Amount.String())
	assert.Equal(t, "CBE998877A", p.TransactionId)
	assert.Equal(t, "Sara T", p.Recipient)
}

func TestParsePaymentLowercaseTRefIsUppercased(t *testing.T) {
	text := "ETB 10 sent to Mulu, transaction id ab99xx11."
	p, err := ParsePayment(text)
	require.NoError(t, err)
	assert.Equal(t, "AB99XX11", p.TransactionId)
}

func TestParsePaymentFailures(t *testing.T) {
	cases := []string{
		"",
		"hello there",
		"ETB 100 paid, transaction number QQ11WW22",          // no recipient
		"transferred to Abebe, transaction number QQ11WW22",  // no amount
		"ETB 100 to Abebe",                                   // no transaction id
		"ETB 100 to Abebe transaction number 123",            // tref too short
	}
	for _, text := range cases {
		_, err := ParsePayment(text)
		assert.ErrorIs(t, err, ErrUnparsablePayment, "text: %q", text)
	}
}
