// Package engine validates, executes and records balance-changing
// operations. Every balance mutation is committed in the same database
// transaction as exactly one ledger record, under per-account locks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/NgigiN/paywallet/internal/logger"
	"github.com/NgigiN/paywallet/internal/wallet"
	"go.uber.org/zap"
)

// RandomSource yields uniform values in [0, 1) for fault injection.
type RandomSource interface {
	Float64() float64
}

// RandomFunc adapts a function to RandomSource.
type RandomFunc func() float64

func (f RandomFunc) Float64() float64 { return f() }

// Notifier is told about flagged records after they are committed.
type Notifier interface {
	TransactionFlagged(ctx context.Context, tx wallet.Transaction) error
}

// Policy holds the tunable limits of the engine.
type Policy struct {
	// FailureRate is the probability that a transfer takes the simulated
	// settlement failure path. Clamped to [0, 1].
	FailureRate float64
	// FlagThreshold marks records with a larger amount for review.
	FlagThreshold wallet.Amount
	// MaxAmount is the largest amount accepted for a single operation.
	MaxAmount wallet.Amount
	// MaxIDAttempts bounds identifier regeneration after collisions.
	MaxIDAttempts int
}

// DefaultPolicy returns the production defaults.
func DefaultPolicy() Policy {
	return Policy{
		FailureRate:   0.10,
		FlagThreshold: wallet.Major(50000),
		MaxAmount:     wallet.Major(1000000),
		MaxIDAttempts: 5,
	}
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	switch {
	case math.IsNaN(p.FailureRate) || p.FailureRate < 0:
		p.FailureRate = 0
	case p.FailureRate > 1:
		p.FailureRate = 1
	}
	if p.FlagThreshold <= 0 {
		p.FlagThreshold = def.FlagThreshold
	}
	if p.MaxAmount <= 0 {
		p.MaxAmount = def.MaxAmount
	}
	if p.MaxIDAttempts <= 0 {
		p.MaxIDAttempts = def.MaxIDAttempts
	}
	return p
}

// Engine is the transfer engine. It is safe for concurrent use.
type Engine struct {
	store    wallet.Store
	policy   Policy
	random   RandomSource
	newID    IDGenerator
	now      func() time.Time
	log      *zap.Logger
	notifier Notifier
	locks    *lockTable
}

// Option configures an Engine.
type Option func(*Engine)

func WithPolicy(p Policy) Option { return func(e *Engine) { e.policy = p } }

func WithRandom(r RandomSource) Option { return func(e *Engine) { e.random = r } }

func WithIDGenerator(g IDGenerator) Option { return func(e *Engine) { e.newID = g } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.log = l } }

func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

// New creates an engine over store.
func New(store wallet.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		policy: DefaultPolicy(),
		random: RandomFunc(rand.Float64),
		newID:  NewTransactionID,
		now:    func() time.Time { return time.Now().UTC() },
		log:    zap.NewNop(),
		locks:  newLockTable(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.policy = e.policy.normalized()
	return e
}

// Policy returns the effective policy after clamping and defaults.
func (e *Engine) Policy() Policy {
	return e.policy
}

func (e *Engine) logger(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, e.log)
}

func (e *Engine) validAmount(a wallet.Amount) error {
	if a <= 0 || a > e.policy.MaxAmount {
		return wallet.ErrInvalidAmount
	}
	return nil
}

// commit runs apply and the ledger append for rec as one atomic unit. A
// duplicate identifier rolls the unit back and retries it with a fresh one.
// The unit is detached from caller cancellation: once started it runs to a
// terminal state.
func (e *Engine) commit(ctx context.Context, rec *wallet.Transaction, apply func(tx wallet.Store) error) error {
	ctx = context.WithoutCancel(ctx)
	for attempt := 1; attempt <= e.policy.MaxIDAttempts; attempt++ {
		rec.ID = e.newID()
		rec.CreatedAt = e.now()
		err := e.store.Atomically(ctx, func(tx wallet.Store) error {
			if err := apply(tx); err != nil {
				return err
			}
			return tx.Ledger().Append(ctx, rec)
		})
		if !errors.Is(err, wallet.ErrDuplicateTransactionID) {
			return err
		}
		e.logger(ctx).Warn("transaction id collision, regenerating",
			zap.String("tx_id", rec.ID),
			zap.Int("attempt", attempt),
		)
	}
	return fmt.Errorf("%w: %d transaction id collisions", wallet.ErrEngineUnavailable, e.policy.MaxIDAttempts)
}

func (e *Engine) notifyFlagged(ctx context.Context, rec wallet.Transaction) {
	if !rec.Flagged || e.notifier == nil {
		return
	}
	if err := e.notifier.TransactionFlagged(ctx, rec); err != nil {
		e.logger(ctx).Error("failed to notify flagged transaction",
			zap.String("tx_id", rec.ID),
			zap.Error(err),
		)
	}
}

// unavailable passes domain errors through and wraps everything else, so
// callers only ever see the documented taxonomy.
func unavailable(err error) error {
	var de *wallet.Error
	if errors.As(err, &de) {
		return err
	}
	return fmt.Errorf("%w: %w", wallet.ErrEngineUnavailable, err)
}
