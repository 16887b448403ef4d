// Package history provides read-only projections over the ledger.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NgigiN/paywallet/internal/wallet"
	"github.com/google/uuid"
)

// Direction is how a record affected the viewing account.
type Direction string

const (
	DirectionAdded    Direction = "ADDED"
	DirectionSent     Direction = "SENT"
	DirectionReceived Direction = "RECEIVED"
)

// Summary is one history line as seen by a single account.
type Summary struct {
	TransactionID      string
	CounterpartyHandle string
	CounterpartyName   string
	Amount             wallet.Amount
	Direction          Direction
	Status             wallet.Status
	Kind               wallet.Kind
	Flagged            bool
	Description        string
	Timestamp          time.Time
}

// Filter narrows a history listing. Zero values match everything.
type Filter struct {
	Status    wallet.Status
	Direction Direction
	// Search matches counterparty handle, counterparty name or transaction
	// id, case-insensitively.
	Search string
	Limit  int
}

// Service answers history queries.
type Service struct {
	store wallet.Store
}

func New(store wallet.Store) *Service {
	return &Service{store: store}
}

// History returns the records visible to accountID, newest first. Records
// and counterparties are read from a single snapshot.
func (s *Service) History(ctx context.Context, accountID uuid.UUID, filter Filter) ([]Summary, error) {
	var out []Summary
	err := s.store.Atomically(ctx, func(tx wallet.Store) error {
		if _, err := tx.Accounts().Get(ctx, accountID); err != nil {
			return err
		}
		records, err := tx.Ledger().ListFor(ctx, accountID)
		if err != nil {
			return err
		}

		counterparties := make(map[uuid.UUID]*wallet.Account)
		for i := range records {
			rec := &records[i]
			sum := summarize(rec, accountID)

			otherID := rec.ReceiverID
			if sum.Direction == DirectionReceived {
				otherID = rec.SenderID
			}
			other, ok := counterparties[otherID]
			if !ok {
				if other, err = tx.Accounts().Get(ctx, otherID); err != nil {
					return err
				}
				counterparties[otherID] = other
			}
			sum.CounterpartyHandle = other.Handle
			sum.CounterpartyName = other.Name

			if !filter.matches(&sum) {
				continue
			}
			out = append(out, sum)
			if filter.Limit > 0 && len(out) == filter.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		var de *wallet.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", wallet.ErrEngineUnavailable, err)
	}
	return out, nil
}

func summarize(rec *wallet.Transaction, viewer uuid.UUID) Summary {
	dir := DirectionSent
	switch {
	case rec.Kind == wallet.KindDeposit:
		dir = DirectionAdded
	case rec.ReceiverID == viewer:
		dir = DirectionReceived
	}
	return Summary{
		TransactionID: rec.ID,
		Amount:        rec.Amount,
		Direction:     dir,
		Status:        rec.Status,
		Kind:          rec.Kind,
		Flagged:       rec.Flagged,
		Description:   rec.Description,
		Timestamp:     rec.CreatedAt,
	}
}

func (f Filter) matches(s *Summary) bool {
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Direction != "" && s.Direction != f.Direction {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		return strings.Contains(strings.ToLower(s.CounterpartyHandle), q) ||
			strings.Contains(strings.ToLower(s.CounterpartyName), q) ||
			strings.Contains(strings.ToLower(s.TransactionID), q)
	}
	return true
}
