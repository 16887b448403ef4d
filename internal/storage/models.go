package storage

import (
	"time"

	"github.com/NgigiN/paywallet/internal/wallet"
	"github.com/google/uuid"
)

// AccountModel is the persisted form of wallet.Account.
type AccountModel struct {
	ID        uuid.UUID `gorm:"type:text;primaryKey"`
	Owner     string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	Handle    string    `gorm:"uniqueIndex;not null"`
	Balance   int64     `gorm:"not null;default:0;check:balance >= 0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (AccountModel) TableName() string { return "accounts" }

// TransactionModel is the persisted form of wallet.Transaction. Seq records
// insertion order and breaks CreatedAt ties.
type TransactionModel struct {
	Seq         uint64    `gorm:"primaryKey;autoIncrement"`
	TxID        string    `gorm:"column:tx_id;uniqueIndex;not null"`
	SenderID    uuid.UUID `gorm:"type:text;index;not null"`
	ReceiverID  uuid.UUID `gorm:"type:text;index;not null"`
	Amount      int64     `gorm:"not null"`
	Kind        string    `gorm:"size:16;not null"`
	Status      string    `gorm:"size:16;not null"`
	Description string
	Flagged     bool      `gorm:"not null;default:false"`
	Reference   string    `gorm:"index"`
	CreatedAt   time.Time `gorm:"index"`
}

func (TransactionModel) TableName() string { return "transactions" }

func accountFromDomain(a *wallet.Account) *AccountModel {
	return &AccountModel{
		ID:        a.ID,
		Owner:     a.Owner,
		Name:      a.Name,
		Handle:    a.Handle,
		Balance:   int64(a.Balance),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (m *AccountModel) toDomain() *wallet.Account {
	return &wallet.Account{
		ID:        m.ID,
		Owner:     m.Owner,
		Name:      m.Name,
		Handle:    m.Handle,
		Balance:   wallet.Amount(m.Balance),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func transactionFromDomain(t *wallet.Transaction) *TransactionModel {
	return &TransactionModel{
		TxID:        t.ID,
		SenderID:    t.SenderID,
		ReceiverID:  t.ReceiverID,
		Amount:      int64(t.Amount),
		Kind:        string(t.Kind),
		Status:      string(t.Status),
		Description: t.Description,
		Flagged:     t.Flagged,
		Reference:   t.Reference,
		CreatedAt:   t.CreatedAt,
	}
}

func (m *TransactionModel) toDomain() wallet.Transaction {
	return wallet.Transaction{
		ID:          m.TxID,
		SenderID:    m.SenderID,
		ReceiverID:  m.ReceiverID,
		Amount:      wallet.Amount(m.Amount),
		Kind:        wallet.Kind(m.Kind),
		Status:      wallet.Status(m.Status),
		Description: m.Description,
		Flagged:     m.Flagged,
		Reference:   m.Reference,
		CreatedAt:   m.CreatedAt,
	}
}
