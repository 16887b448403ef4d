package engine

import (
	"context"

	"github.com/NgigiN/paywallet/internal/wallet"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mismatch is an account whose stored balance differs from the balance
// derived from its ledger records.
type Mismatch struct {
	AccountID uuid.UUID
	Handle    string
	Stored    wallet.Amount
	Derived   wallet.Amount
}

// VerifyBalances folds every account's successful ledger records and
// compares the result with the stored balance, inside one snapshot.
func (e *Engine) VerifyBalances(ctx context.Context) ([]Mismatch, error) {
	var mismatches []Mismatch
	err := e.store.Atomically(ctx, func(tx wallet.Store) error {
		accounts, err := tx.Accounts().List(ctx)
		if err != nil {
			return err
		}
		for _, acc := range accounts {
			records, err := tx.Ledger().ListFor(ctx, acc.ID)
			if err != nil {
				return err
			}
			var derived wallet.Amount
			for i := range records {
				derived += records[i].Effect(acc.ID)
			}
			if derived != acc.Balance {
				mismatches = append(mismatches, Mismatch{
					AccountID: acc.ID,
					Handle:    acc.Handle,
					Stored:    acc.Balance,
					Derived:   derived,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	for _, m := range mismatches {
		e.logger(ctx).Error("balance does not match ledger",
			zap.String("handle", m.Handle),
			zap.Stringer("stored", m.Stored),
			zap.Stringer("derived", m.Derived),
		)
	}
	return mismatches, nil
}
