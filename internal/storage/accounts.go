package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NgigiN/paywallet/internal/wallet"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountStore implements wallet.AccountStore.
type AccountStore struct {
	db *gorm.DB
}

func (s *AccountStore) Create(ctx context.Context, account *wallet.Account) error {
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	if err := s.db.WithContext(ctx).Create(accountFromDomain(account)).Error; err != nil {
		if column, ok := uniqueViolation(err); ok {
			if strings.Contains(column, "handle") {
				return wallet.ErrDuplicateHandle
			}
			return wallet.ErrDuplicateIdentity
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *AccountStore) Get(ctx context.Context, id uuid.UUID) (*wallet.Account, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *AccountStore) FindByHandle(ctx context.Context, handle string) (*wallet.Account, error) {
	return s.first(ctx, "handle = ?", wallet.NormalizeHandle(handle))
}

func (s *AccountStore) FindByOwner(ctx context.Context, owner string) (*wallet.Account, error) {
	return s.first(ctx, "owner = ?", strings.TrimSpace(owner))
}

func (s *AccountStore) List(ctx context.Context) ([]wallet.Account, error) {
	var models []AccountModel
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	accounts := make([]wallet.Account, len(models))
	for i := range models {
		accounts[i] = *models[i].toDomain()
	}
	return accounts, nil
}

// AdjustBalance applies delta with a single UPDATE. Debits carry a
// balance >= amount guard, so a concurrent writer can never push the
// balance below zero even without the engine's locks.
func (s *AccountStore) AdjustBalance(ctx context.Context, id uuid.UUID, delta wallet.Amount) (wallet.Amount, error) {
	q := s.db.WithContext(ctx).Model(&AccountModel{}).Where("id = ?", id)
	if delta < 0 {
		q = q.Where("balance >= ?", int64(-delta))
	}
	res := q.Updates(map[string]any{
		"balance":    gorm.Expr("balance + ?", int64(delta)),
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to adjust balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return 0, err
		}
		return 0, wallet.ErrInsufficientFunds
	}

	var m AccountModel
	if err := s.db.WithContext(ctx).Select("balance").Where("id = ?", id).Take(&m).Error; err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return wallet.Amount(m.Balance), nil
}

func (s *AccountStore) first(ctx context.Context, query string, arg any) (*wallet.Account, error) {
	var m AccountModel
	if err := s.db.WithContext(ctx).Where(query, arg).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wallet.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return m.toDomain(), nil
}

var _ wallet.AccountStore = (*AccountStore)(nil)
