package wallet

import (
	"context"
	"sync"
	"time"

	"storyai/internal/logging"
)

// BalanceOracle reports an address's token balance.
type BalanceOracle interface {
	Balance(ctx context.Context, address string) (float64, error)
}

// StaticOracle answers from configuration: a default balance plus
// per-address overrides.
type StaticOracle struct {
	Default   float64
	Overrides map[string]float64
}

func (o StaticOracle) Balance(ctx context.Context, address string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if v, ok := o.Overrides[address]; ok {
		return v, nil
	}
	return o.Default, nil
}

// DefaultCacheTTL is how long a fetched balance is reused.
const DefaultCacheTTL = 30 * time.Second

type cachedBalance struct {
	value   float64
	fetched time.Time
}

// CachingOracle remembers successful lookups for TTL. Failures are not
// cached.
type CachingOracle struct {
	next BalanceOracle
	ttl  time.Duration
	now  func() time.Time

	mu    sync.Mutex
	cache map[string]cachedBalance
}

// NewCachingOracle wraps next. A non-positive ttl uses DefaultCacheTTL.
func NewCachingOracle(next BalanceOracle, ttl time.Duration) *CachingOracle {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachingOracle{next: next, ttl: ttl, now: time.Now, cache: make(map[string]cachedBalance)}
}

func (o *CachingOracle) Balance(ctx context.Context, address string) (float64, error) {
	o.mu.Lock()
	if c, ok := o.cache[address]; ok && o.now().Sub(c.fetched) < o.ttl {
		o.mu.Unlock()
		logging.WalletDebug("balance cache hit for %s", Shorten(address))
		return c.value, nil
	}
	o.mu.Unlock()

	v, err := o.next.Balance(ctx, address)
	if err != nil {
		return 0, err
	}

	o.mu.Lock()
	o.cache[address] = cachedBalance{value: v, fetched: o.now()}
	o.mu.Unlock()
	return v, nil
}

// Invalidate drops a cached balance, e.g. after a submission.
func (o *CachingOracle) Invalidate(address string) {
	o.mu.Lock()
	delete(o.cache, address)
	o.mu.Unlock()
}
