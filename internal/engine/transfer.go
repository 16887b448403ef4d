package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NgigiN/paywallet/internal/wallet"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DepositRequest adds money to an account.
type DepositRequest struct {
	AccountID   uuid.UUID
	Amount      wallet.Amount
	Description string
	// Reference is an optional external receipt, e.g. an M-Pesa code.
	Reference string
}

// TransferRequest moves money from SenderID to the account behind
// ReceiverHandle.
type TransferRequest struct {
	SenderID       uuid.UUID
	ReceiverHandle string
	Amount         wallet.Amount
}

// Receipt describes a committed operation. NewBalance is the balance of the
// depositing or sending account after commit.
type Receipt struct {
	TransactionID string
	Status        wallet.Status
	Flagged       bool
	NewBalance    wallet.Amount
	CreatedAt     time.Time
}

// Deposit credits an account and records a SUCCESS/DEPOSIT record.
func (e *Engine) Deposit(ctx context.Context, req DepositRequest) (*Receipt, error) {
	if err := e.validAmount(req.Amount); err != nil {
		return nil, err
	}
	acc, err := e.store.Accounts().Get(ctx, req.AccountID)
	if err != nil {
		return nil, unavailable(err)
	}

	description := req.Description
	if description == "" {
		description = "Added money to wallet"
	}
	rec := wallet.Transaction{
		SenderID:    acc.ID,
		ReceiverID:  acc.ID,
		Amount:      req.Amount,
		Kind:        wallet.KindDeposit,
		Status:      wallet.StatusSuccess,
		Description: description,
		Flagged:     req.Amount > e.policy.FlagThreshold,
		Reference:   req.Reference,
	}

	var balance wallet.Amount
	release := e.locks.acquire(acc.ID)
	err = e.commit(ctx, &rec, func(tx wallet.Store) error {
		b, err := tx.Accounts().AdjustBalance(ctx, acc.ID, req.Amount)
		balance = b
		return err
	})
	release()
	if err != nil {
		return nil, unavailable(err)
	}

	e.logger(ctx).Info("deposit committed",
		zap.String("tx_id", rec.ID),
		zap.String("account", acc.Handle),
		zap.Stringer("amount", rec.Amount),
		zap.Bool("flagged", rec.Flagged),
	)
	e.notifyFlagged(ctx, rec)

	return &Receipt{
		TransactionID: rec.ID,
		Status:        rec.Status,
		Flagged:       rec.Flagged,
		NewBalance:    balance,
		CreatedAt:     rec.CreatedAt,
	}, nil
}

// Transfer moves money between two accounts. A fault-injected attempt is
// recorded as FAILED and reported with *wallet.SimulatedFailureError; every
// other error means nothing was written.
func (e *Engine) Transfer(ctx context.Context, req TransferRequest) (*Receipt, error) {
	if err := e.validAmount(req.Amount); err != nil {
		return nil, err
	}
	sender, err := e.store.Accounts().Get(ctx, req.SenderID)
	if errors.Is(err, wallet.ErrAccountNotFound) {
		return nil, wallet.ErrSenderNotFound
	} else if err != nil {
		return nil, unavailable(err)
	}
	receiver, err := e.store.Accounts().FindByHandle(ctx, req.ReceiverHandle)
	if errors.Is(err, wallet.ErrAccountNotFound) {
		return nil, wallet.ErrReceiverNotFound
	} else if err != nil {
		return nil, unavailable(err)
	}
	if sender.ID == receiver.ID {
		return nil, wallet.ErrSelfTransfer
	}

	rec := wallet.Transaction{
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Amount:     req.Amount,
		Kind:       wallet.KindTransfer,
		Flagged:    req.Amount > e.policy.FlagThreshold,
	}

	// Drawn at most once per call, even if the unit is retried after an
	// identifier collision.
	var drawn, fail bool
	simulateFailure := func() bool {
		if !drawn {
			fail = e.random.Float64() < e.policy.FailureRate
			drawn = true
		}
		return fail
	}

	var balance wallet.Amount
	release := e.locks.acquire(sender.ID, receiver.ID)
	err = e.commit(ctx, &rec, func(tx wallet.Store) error {
		current, err := tx.Accounts().Get(ctx, sender.ID)
		if errors.Is(err, wallet.ErrAccountNotFound) {
			return wallet.ErrSenderNotFound
		} else if err != nil {
			return err
		}
		if current.Balance < req.Amount {
			return wallet.ErrInsufficientFunds
		}

		if simulateFailure() {
			rec.Status = wallet.StatusFailed
			rec.Description = fmt.Sprintf("Failed transfer to %s", receiver.Name)
			balance = current.Balance
			return nil
		}

		rec.Status = wallet.StatusSuccess
		rec.Description = fmt.Sprintf("Sent to %s", receiver.Name)
		if balance, err = tx.Accounts().AdjustBalance(ctx, sender.ID, -req.Amount); err != nil {
			return err
		}
		if _, err := tx.Accounts().AdjustBalance(ctx, receiver.ID, req.Amount); err != nil {
			if errors.Is(err, wallet.ErrAccountNotFound) {
				return wallet.ErrReceiverNotFound
			}
			return err
		}
		return nil
	})
	release()
	if err != nil {
		return nil, unavailable(err)
	}

	log := e.logger(ctx).With(
		zap.String("tx_id", rec.ID),
		zap.String("from", sender.Handle),
		zap.String("to", receiver.Handle),
		zap.Stringer("amount", rec.Amount),
		zap.Bool("flagged", rec.Flagged),
	)
	e.notifyFlagged(ctx, rec)

	if rec.Status == wallet.StatusFailed {
		log.Warn("transfer failed (simulated)")
		return nil, &wallet.SimulatedFailureError{TransactionID: rec.ID}
	}
	log.Info("transfer committed")

	return &Receipt{
		TransactionID: rec.ID,
		Status:        rec.Status,
		Flagged:       rec.Flagged,
		NewBalance:    balance,
		CreatedAt:     rec.CreatedAt,
	}, nil
}

// Register opens a zero-balance account for owner with a handle derived from
// name.
func (e *Engine) Register(ctx context.Context, owner, name string) (*wallet.Account, error) {
	acc, err := wallet.NewAccount(owner, name)
	if err != nil {
		return nil, err
	}
	acc.CreatedAt = e.now()
	if err := e.store.Accounts().Create(ctx, acc); err != nil {
		return nil, unavailable(err)
	}
	e.logger(ctx).Info("account registered",
		zap.String("account_id", acc.ID.String()),
		zap.String("handle", acc.Handle),
	)
	return acc, nil
}

// Account returns the account with its current balance.
func (e *Engine) Account(ctx context.Context, id uuid.UUID) (*wallet.Account, error) {
	acc, err := e.store.Accounts().Get(ctx, id)
	if err != nil {
		return nil, unavailable(err)
	}
	return acc, nil
}

// AccountByOwner resolves a front end's caller identity to an account.
func (e *Engine) AccountByOwner(ctx context.Context, owner string) (*wallet.Account, error) {
	acc, err := e.store.Accounts().FindByOwner(ctx, owner)
	if err != nil {
		return nil, unavailable(err)
	}
	return acc, nil
}
