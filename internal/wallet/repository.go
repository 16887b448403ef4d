package wallet

import (
	"context"

	"github.com/google/uuid"
)

// AccountStore holds accounts and their materialised balances.
type AccountStore interface {
	Create(ctx context.Context, account *Account) error
	Get(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByHandle(ctx context.Context, handle string) (*Account, error)
	FindByOwner(ctx context.Context, owner string) (*Account, error)
	List(ctx context.Context) ([]Account, error)
	// AdjustBalance applies delta and returns the new balance. A debit that
	// would take the balance below zero fails with ErrInsufficientFunds.
	AdjustBalance(ctx context.Context, id uuid.UUID, delta Amount) (Amount, error)
}

// LedgerStore is the append-only transaction log.
type LedgerStore interface {
	// Append stores rec; an existing ID fails with ErrDuplicateTransactionID.
	Append(ctx context.Context, rec *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	// ListFor returns the records involving the account, newest first.
	ListFor(ctx context.Context, accountID uuid.UUID) ([]Transaction, error)
}

// Store groups both stores and runs work atomically across them.
type Store interface {
	Accounts() AccountStore
	Ledger() LedgerStore
	// Atomically runs fn in a single transaction. The Store passed to fn is
	// bound to that transaction; any error rolls back all of fn's effects.
	Atomically(ctx context.Context, fn func(tx Store) error) error
}
