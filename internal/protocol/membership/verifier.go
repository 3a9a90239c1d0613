package membership

import (
	"context"
	"fmt"
	"time"

	"stealthnote/internal/domain"
	"stealthnote/internal/protocol/binding"
	"stealthnote/internal/provider"
)

// DefaultMaxProofAge bounds how old an accepted proof may be.
const DefaultMaxProofAge = 7 * 24 * time.Hour

// clockSkew tolerates provers whose clocks run slightly ahead.
const clockSkew = 5 * time.Minute

// Verifier decides whether a proof is acceptable: the backend must verify
// it, the issuer key must have been trusted when it was made, and it must
// not be too old.
type Verifier struct {
	keyring  *provider.Keyring
	backends map[string]Backend
	maxAge   time.Duration
	now      func() time.Time
}

// NewVerifier returns a verifier accepting proofs from backends. A
// non-positive maxAge selects DefaultMaxProofAge.
func NewVerifier(keys *provider.Keyring, maxAge time.Duration, backends ...Backend) *Verifier {
	if maxAge <= 0 {
		maxAge = DefaultMaxProofAge
	}
	v := &Verifier{
		keyring:  keys,
		backends: make(map[string]Backend, len(backends)),
		maxAge:   maxAge,
		now:      time.Now,
	}
	for _, b := range backends {
		v.backends[b.Name()] = b
	}
	return v
}

// WithClock overrides the time source and returns v.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify returns nil if proof is acceptable, ErrInvalidProof if it is not,
// or a transient error if the issuer keys could not be loaded.
func (v *Verifier) Verify(ctx context.Context, proof domain.MembershipProof) error {
	in := proof.PublicInputs
	b, ok := v.backends[proof.Backend]
	if !ok {
		return fmt.Errorf("%w: unsupported backend %q", domain.ErrInvalidProof, proof.Backend)
	}
	if !binding.WellFormed(in.PubkeyCommitment) {
		return fmt.Errorf("%w: malformed commitment", domain.ErrInvalidProof)
	}
	if err := b.Verify(proof); err != nil {
		return err
	}

	issued := time.Unix(in.IssuedAt, 0)
	now := v.now()
	if issued.After(now.Add(clockSkew)) {
		return fmt.Errorf("%w: issued in the future", domain.ErrInvalidProof)
	}
	if now.Sub(issued) > v.maxAge {
		return fmt.Errorf("%w: older than %s", domain.ErrInvalidProof, v.maxAge)
	}

	cache, err := v.keyring.Cache(in.ProviderID)
	if err != nil {
		return err
	}
	if _, loaded := cache.Current(); !loaded {
		if _, err := v.keyring.Keys(ctx, in.ProviderID); err != nil {
			return err
		}
	}
	if !cache.TrustedSince(in.IssuerKeyID, issued) {
		return fmt.Errorf("%w: issuer key %q not trusted", domain.ErrInvalidProof, in.IssuerKeyID)
	}
	return nil
}
