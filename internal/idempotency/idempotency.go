// Package idempotency guards against the same request being submitted
// twice. Front ends claim a caller-supplied key before calling the engine.
package idempotency

import (
	"context"
	"time"

	"github.com/NgigiN/paywallet/internal/wallet"
)

// DefaultTTL is how long a claimed key is remembered.
const DefaultTTL = 24 * time.Hour

// Store remembers claimed keys.
type Store interface {
	// MarkProcessed records key for ttl. It returns false when key was
	// already recorded and has not expired.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Forget removes key so it can be claimed again.
	Forget(ctx context.Context, key string) error
	Close() error
}

// Guard claims keys in a Store.
type Guard struct {
	store Store
	ttl   time.Duration
}

func NewGuard(store Store, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{store: store, ttl: ttl}
}

// Claim reserves key for one request. An empty key is always accepted.
// A key seen before fails with wallet.ErrDuplicateRequest.
func (g *Guard) Claim(ctx context.Context, scope, key string) error {
	if key == "" {
		return nil
	}
	fresh, err := g.store.MarkProcessed(ctx, scope+":"+key, g.ttl)
	if err != nil {
		return err
	}
	if !fresh {
		return wallet.ErrDuplicateRequest
	}
	return nil
}

// Release gives a claimed key back, for requests that were rejected without
// leaving any trace so the caller may retry with the same key. It runs even
// when ctx is already cancelled, since that is how most such requests end.
func (g *Guard) Release(ctx context.Context, scope, key string) error {
	if key == "" {
		return nil
	}
	return g.store.Forget(context.WithoutCancel(ctx), scope+":"+key)
}
