package wallet

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    Amount
		wantErr bool
	}{
		{in: "400", want: 40000},
		{in: "1,250.50", want: 125050},
		{in: " 0.01 ", want: 1},
		{in: "12.5", want: 1250},
		{in: "-3", want: -300},
		{in: "0.001", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
		{in: "99999999999999999999", wantErr: true},
		{in: "1e3", want: 100000},
		{in: "1e999999999", wantErr: true},
		{in: "1e-999999999", wantErr: true},
		{in: "-1E30000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmountLargeExponentIsCheap(t *testing.T) {
	start := time.Now()
	_, err := ParseAmount("1e2147483647")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestAmountString(t *testing.T) {
	assert.Equal(t, "600.00", Major(600).String())
	assert.Equal(t, "0.05", Amount(5).String())
	assert.Equal(t, "1250.50", Amount(125050).String())
	assert.True(t, decimal.RequireFromString("12.34").Equal(Amount(1234).Decimal()))
}

func TestHandleFor(t *testing.T) {
	h, err := HandleFor("  Jane\tMary  Doe ")
	require.NoError(t, err)
	assert.Equal(t, "janemarydoe@qp", h)

	_, err = HandleFor(" \n ")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestNewAccount(t *testing.T) {
	acc, err := NewAccount(" discord:42 ", "Jane  Doe")
	require.NoError(t, err)
	assert.Equal(t, "discord:42", acc.Owner)
	assert.Equal(t, "Jane Doe", acc.Name)
	assert.Equal(t, "janedoe@qp", acc.Handle)
	assert.Zero(t, acc.Balance)

	_, err = NewAccount("", "Jane")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestTransactionEffect(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	transfer := Transaction{SenderID: a, ReceiverID: b, Amount: 500, Kind: KindTransfer, Status: StatusSuccess}
	assert.Equal(t, Amount(-500), transfer.Effect(a))
	assert.Equal(t, Amount(500), transfer.Effect(b))

	deposit := Transaction{SenderID: a, ReceiverID: a, Amount: 300, Kind: KindDeposit, Status: StatusSuccess}
	assert.Equal(t, Amount(300), deposit.Effect(a))
	assert.Zero(t, deposit.Effect(b))

	transfer.Status = StatusFailed
	assert.Zero(t, transfer.Effect(a))
	assert.True(t, transfer.Involves(b))
}

func TestErrorCodes(t *testing.T) {
	assert.Equal(t, "INSUFFICIENT_FUNDS", Code(ErrInsufficientFunds))
	sf := &SimulatedFailureError{TransactionID: "QP1"}
	assert.Equal(t, "SIMULATED_FAILURE", Code(sf))
	assert.True(t, Recorded(sf))
	assert.False(t, Recorded(ErrInsufficientFunds))
	assert.Equal(t, "INTERNAL", Code(assert.AnError))
}
