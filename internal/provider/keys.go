package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"stealthnote/internal/domain"
)

// DefaultRetention is how long a key stays acceptable for old proofs after it
// disappears from the published set.
const DefaultRetention = 7 * 24 * time.Hour

// RefreshObserver is told about every refresh attempt.
type RefreshObserver func(provider domain.ProviderID, err error)

type keySnapshot struct {
	set     domain.IssuerKeySet
	retired map[string]time.Time
}

// KeyCache holds one provider's issuer keys. Readers see whole snapshots,
// swapped atomically by Refresh.
type KeyCache struct {
	provider  domain.ProviderConfig
	source    domain.IssuerKeySource
	retention time.Duration
	now       func() time.Time
	log       *slog.Logger
	observe   RefreshObserver

	refreshMu sync.Mutex
	snap      atomic.Pointer[keySnapshot]
}

// NewKeyCache returns an empty cache for p.
func NewKeyCache(p domain.ProviderConfig, source domain.IssuerKeySource, log *slog.Logger) *KeyCache {
	if log == nil {
		log = slog.Default()
	}
	return &KeyCache{
		provider:  p,
		source:    source,
		retention: DefaultRetention,
		now:       time.Now,
		log:       log.With("provider", string(p.ID)),
	}
}

// Refresh fetches the current key set and publishes it. On failure the
// previous snapshot stays in place.
func (c *KeyCache) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	set, err := c.source.FetchKeys(ctx, c.provider)
	if c.observe != nil {
		c.observe(c.provider.ID, err)
	}
	if err != nil {
		c.log.Warn("issuer key refresh failed", "err", err)
		return err
	}

	now := c.now()
	retired := make(map[string]time.Time)
	if prev := c.snap.Load(); prev != nil {
		for kid, at := range prev.retired {
			if now.Sub(at) < c.retention {
				retired[kid] = at
			}
		}
		for _, k := range prev.set.Keys {
			if _, still := set.Lookup(k.ID); !still {
				retired[k.ID] = now
			}
		}
	}
	for _, k := range set.Keys {
		delete(retired, k.ID)
	}
	c.snap.Store(&keySnapshot{set: set, retired: retired})
	c.log.Debug("issuer keys refreshed", "keys", len(set.Keys), "retired", len(retired))
	return nil
}

// Current returns the latest published set.
func (c *KeyCache) Current() (domain.IssuerKeySet, bool) {
	s := c.snap.Load()
	if s == nil {
		return domain.IssuerKeySet{}, false
	}
	return s.set, true
}

// Lookup finds kid in the current set only.
func (c *KeyCache) Lookup(kid string) (domain.IssuerKey, bool) {
	s := c.snap.Load()
	if s == nil {
		return domain.IssuerKey{}, false
	}
	return s.set.Lookup(kid)
}

// TrustedSince reports whether kid is currently published, or was retired no
// earlier than since.
func (c *KeyCache) TrustedSince(kid string, since time.Time) bool {
	s := c.snap.Load()
	if s == nil {
		return false
	}
	if _, ok := s.set.Lookup(kid); ok {
		return true
	}
	at, ok := s.retired[kid]
	return ok && !at.Before(since)
}

// Retention is how long a retired key stays trusted for older proofs.
func (c *KeyCache) Retention() time.Duration { return c.retention }

// Run refreshes every interval until ctx is done.
func (c *KeyCache) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = c.Refresh(ctx)
		}
	}
}

// Keyring is the set of key caches for every provider in a registry.
type Keyring struct {
	caches map[domain.ProviderID]*KeyCache
}

// KeyringOption configures a Keyring.
type KeyringOption func(*KeyCache)

// WithRetention sets how long retired keys stay trusted for old proofs.
func WithRetention(d time.Duration) KeyringOption {
	return func(c *KeyCache) { c.retention = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) KeyringOption {
	return func(c *KeyCache) { c.now = now }
}

// WithObserver installs a refresh observer, e.g. a metrics counter.
func WithObserver(o RefreshObserver) KeyringOption {
	return func(c *KeyCache) { c.observe = o }
}

// NewKeyring builds one cache per registered provider.
func NewKeyring(reg *Registry, source domain.IssuerKeySource, log *slog.Logger, opts ...KeyringOption) *Keyring {
	k := &Keyring{caches: make(map[domain.ProviderID]*KeyCache)}
	for _, p := range reg.Providers() {
		c := NewKeyCache(p, source, log)
		for _, opt := range opts {
			opt(c)
		}
		k.caches[p.ID] = c
	}
	return k
}

// Cache returns the cache for a provider.
func (k *Keyring) Cache(id domain.ProviderID) (*KeyCache, error) {
	c, ok := k.caches[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, id)
	}
	return c, nil
}

// Keys returns the provider's current set, fetching it first if the cache
// has never been filled.
func (k *Keyring) Keys(ctx context.Context, id domain.ProviderID) (domain.IssuerKeySet, error) {
	c, err := k.Cache(id)
	if err != nil {
		return domain.IssuerKeySet{}, err
	}
	if set, ok := c.Current(); ok {
		return set, nil
	}
	if err := c.Refresh(ctx); err != nil {
		return domain.IssuerKeySet{}, err
	}
	set, _ := c.Current()
	return set, nil
}

// RefreshAll refreshes every cache once and returns the first error.
func (k *Keyring) RefreshAll(ctx context.Context) error {
	var first error
	for _, c := range k.caches {
		if err := c.Refresh(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RunAll refreshes every cache on its own ticker until ctx is done.
func (k *Keyring) RunAll(ctx context.Context, interval time.Duration) {
	var wg sync.WaitGroup
	for _, c := range k.caches {
		wg.Add(1)
		go func(c *KeyCache) {
			defer wg.Done()
			c.Run(ctx, interval)
		}(c)
	}
	wg.Wait()
}
