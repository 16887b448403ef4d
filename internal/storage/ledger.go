package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/NgigiN/paywallet/internal/wallet"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerStore implements wallet.LedgerStore. It has no update or delete
// path.
type LedgerStore struct {
	db *gorm.DB
}

func (s *LedgerStore) Append(ctx context.Context, rec *wallet.Transaction) error {
	if err := s.db.WithContext(ctx).Create(transactionFromDomain(rec)).Error; err != nil {
		if _, ok := uniqueViolation(err); ok {
			return wallet.ErrDuplicateTransactionID
		}
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

func (s *LedgerStore) Get(ctx context.Context, id string) (*wallet.Transaction, error) {
	var m TransactionModel
	if err := s.db.WithContext(ctx).Where("tx_id = ?", id).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wallet.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	t := m.toDomain()
	return &t, nil
}

func (s *LedgerStore) ListFor(ctx context.Context, accountID uuid.UUID) ([]wallet.Transaction, error) {
	var models []TransactionModel
	err := s.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", accountID, accountID).
		Order("created_at DESC").
		Order("seq DESC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	txs := make([]wallet.Transaction, len(models))
	for i := range models {
		txs[i] = models[i].toDomain()
	}
	return txs, nil
}

var _ wallet.LedgerStore = (*LedgerStore)(nil)
var _ wallet.Store = (*Database)(nil)
