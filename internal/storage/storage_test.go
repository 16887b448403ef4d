package storage

import (
	"context"
	"testing"
	"time"

	"github.com/NgigiN/paywallet/internal/wallet"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createAccount(t *testing.T, db *Database, owner, name string) *wallet.Account {
	t.Helper()
	acc, err := wallet.NewAccount(owner, name)
	require.NoError(t, err)
	require.NoError(t, db.Accounts().Create(context.Background(), acc))
	return acc
}

func TestAccountStore(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	acc := createAccount(t, db, "discord:1", "Jane Doe")

	t.Run("lookups", func(t *testing.T) {
		got, err := db.Accounts().Get(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, "janedoe@qp", got.Handle)

		got, err = db.Accounts().FindByHandle(ctx, " JaneDoe@QP ")
		require.NoError(t, err)
		assert.Equal(t, acc.ID, got.ID)

		got, err = db.Accounts().FindByOwner(ctx, "discord:1")
		require.NoError(t, err)
		assert.Equal(t, acc.ID, got.ID)

		_, err = db.Accounts().Get(ctx, uuid.New())
		assert.ErrorIs(t, err, wallet.ErrAccountNotFound)
		_, err = db.Accounts().FindByHandle(ctx, "nobody@qp")
		assert.ErrorIs(t, err, wallet.ErrAccountNotFound)
	})

	t.Run("duplicates", func(t *testing.T) {
		dup, err := wallet.NewAccount("discord:2", "jane doe")
		require.NoError(t, err)
		assert.ErrorIs(t, db.Accounts().Create(ctx, dup), wallet.ErrDuplicateHandle)

		dup, err = wallet.NewAccount("discord:1", "Someone Else")
		require.NoError(t, err)
		assert.ErrorIs(t, db.Accounts().Create(ctx, dup), wallet.ErrDuplicateIdentity)
	})

	t.Run("adjust balance", func(t *testing.T) {
		b, err := db.Accounts().AdjustBalance(ctx, acc.ID, 1000)
		require.NoError(t, err)
		assert.Equal(t, wallet.Amount(1000), b)

		b, err = db.Accounts().AdjustBalance(ctx, acc.ID, -400)
		require.NoError(t, err)
		assert.Equal(t, wallet.Amount(600), b)

		_, err = db.Accounts().AdjustBalance(ctx, acc.ID, -601)
		assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)

		_, err = db.Accounts().AdjustBalance(ctx, uuid.New(), 10)
		assert.ErrorIs(t, err, wallet.ErrAccountNotFound)

		got, err := db.Accounts().Get(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, wallet.Amount(600), got.Balance)
	})

	t.Run("list", func(t *testing.T) {
		createAccount(t, db, "discord:3", "Bob")
		accounts, err := db.Accounts().List(ctx)
		require.NoError(t, err)
		assert.Len(t, accounts, 2)
	})
}

func TestLedgerStore(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	a := createAccount(t, db, "a", "Alice")
	b := createAccount(t, db, "b", "Bob")
	c := createAccount(t, db, "c", "Carol")

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	records := []*wallet.Transaction{
		{ID: "QP1", SenderID: a.ID, ReceiverID: a.ID, Amount: 100, Kind: wallet.KindDeposit, Status: wallet.StatusSuccess, CreatedAt: at},
		{ID: "QP2", SenderID: a.ID, ReceiverID: b.ID, Amount: 40, Kind: wallet.KindTransfer, Status: wallet.StatusSuccess, CreatedAt: at},
		{ID: "QP3", SenderID: b.ID, ReceiverID: c.ID, Amount: 10, Kind: wallet.KindTransfer, Status: wallet.StatusFailed, CreatedAt: at.Add(time.Minute)},
	}
	for _, rec := range records {
		require.NoError(t, db.Ledger().Append(ctx, rec))
	}

	err := db.Ledger().Append(ctx, &wallet.Transaction{ID: "QP1", SenderID: c.ID, ReceiverID: c.ID, Amount: 1, Kind: wallet.KindDeposit, Status: wallet.StatusSuccess})
	assert.ErrorIs(t, err, wallet.ErrDuplicateTransactionID)

	got, err := db.Ledger().Get(ctx, "QP3")
	require.NoError(t, err)
	assert.Equal(t, wallet.StatusFailed, got.Status)
	assert.Equal(t, c.ID, got.ReceiverID)

	_, err = db.Ledger().Get(ctx, "QP404")
	assert.ErrorIs(t, err, wallet.ErrTransactionNotFound)

	// Same timestamp falls back to insertion order.
	list, err := db.Ledger().ListFor(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "QP2", list[0].ID)
	assert.Equal(t, "QP1", list[1].ID)

	list, err = db.Ledger().ListFor(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "QP3", list[0].ID)
	assert.Equal(t, "QP2", list[1].ID)
}

func TestAtomicallyRollsBack(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	a := createAccount(t, db, "a", "Alice")

	err := db.Atomically(ctx, func(tx wallet.Store) error {
		if _, err := tx.Accounts().AdjustBalance(ctx, a.ID, 500); err != nil {
			return err
		}
		return wallet.ErrReceiverNotFound
	})
	assert.ErrorIs(t, err, wallet.ErrReceiverNotFound)

	got, err := db.Accounts().Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Balance)
	assert.NoError(t, db.Ping(ctx))
}
