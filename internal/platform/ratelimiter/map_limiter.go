// Package ratelimiter throttles board submissions per identity.
package ratelimiter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"stealthnote/internal/domain"
)

// MapLimiter applies a token bucket per string key and periodically evicts
// idle entries.
type MapLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu    sync.Mutex
	byKey map[string]*entry
	hits  uint64
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a key-based limiter. It returns nil, which allows everything,
// if rps or burst is not positive.
func New(rps float64, burst int, idleTTL time.Duration) *MapLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &MapLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
		byKey:   make(map[string]*entry),
	}
}

// Allow reports whether one token can be consumed for key at now.
func (l *MapLimiter) Allow(key string, now time.Time) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byKey[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byKey {
			if v.lastSeen.Before(cutoff) {
				delete(l.byKey, k)
			}
		}
	}
	return allowed
}

// AllowSubmission implements domain.SubmissionGate. Submissions are keyed
// by the proof's key commitment, so each identity epoch has its own
// bucket and nothing about the author beyond the commitment is needed.
func (l *MapLimiter) AllowSubmission(_ context.Context, signed domain.SignedMessageWithProof) error {
	if l == nil {
		return nil
	}
	key := string(signed.Proof.PublicInputs.PubkeyCommitment)
	if !l.Allow(key, l.now()) {
		return fmt.Errorf("%w: rate limit", domain.ErrRejectedByGate)
	}
	return nil
}

var _ domain.SubmissionGate = (*MapLimiter)(nil)
