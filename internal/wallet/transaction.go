package wallet

import (
	"time"

	"github.com/google/uuid"
)

// Kind is the type of ledger record.
type Kind string

const (
	KindDeposit  Kind = "DEPOSIT"
	KindTransfer Kind = "TRANSFER"
)

// Status is the outcome of a ledger record.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Transaction is an immutable ledger record. Deposits carry the same account
// as sender and receiver.
type Transaction struct {
	ID          string
	SenderID    uuid.UUID
	ReceiverID  uuid.UUID
	Amount      Amount
	Kind        Kind
	Status      Status
	Description string
	Flagged     bool
	Reference   string
	CreatedAt   time.Time
}

// Involves reports whether the account is the sender or receiver.
func (t *Transaction) Involves(id uuid.UUID) bool {
	return t.SenderID == id || t.ReceiverID == id
}

// Effect returns the signed change this record made to the account's
// balance. FAILED records never moved money.
func (t *Transaction) Effect(id uuid.UUID) Amount {
	if t.Status != StatusSuccess {
		return 0
	}
	switch {
	case t.Kind == KindDeposit && t.ReceiverID == id:
		return t.Amount
	case t.SenderID == id:
		return -t.Amount
	case t.ReceiverID == id:
		return t.Amount
	}
	return 0
}
