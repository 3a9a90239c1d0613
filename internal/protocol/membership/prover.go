package membership

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stealthnote/internal/domain"
	"stealthnote/internal/protocol/idtoken"
	"stealthnote/internal/provider"
)

// Prover validates identity tokens and runs the proving backend.
type Prover struct {
	registry *provider.Registry
	keyring  *provider.Keyring
	backend  Backend
	now      func() time.Time
	log      *slog.Logger
}

// NewProver returns a prover. log may be nil.
func NewProver(reg *provider.Registry, keys *provider.Keyring, backend Backend, log *slog.Logger) *Prover {
	if log == nil {
		log = slog.Default()
	}
	return &Prover{registry: reg, keyring: keys, backend: backend, now: time.Now, log: log}
}

// WithClock overrides the time source and returns p.
func (p *Prover) WithClock(now func() time.Time) *Prover {
	p.now = now
	return p
}

type proveResult struct {
	paramsID string
	proof    []byte
	err      error
}

// Prove checks token for pub under providerID and returns a proof of
// membership in the derived group. Token problems surface as their own
// sentinel errors; anything that goes wrong inside the backend, including
// cancellation, is ErrProofGeneration.
func (p *Prover) Prove(
	ctx context.Context,
	token string,
	providerID domain.ProviderID,
	pub domain.EphemeralPublic,
) (domain.MembershipProof, error) {
	cfg, err := p.registry.Resolve(providerID)
	if err != nil {
		return domain.MembershipProof{}, err
	}
	keys, err := p.keyring.Keys(ctx, providerID)
	if err != nil {
		return domain.MembershipProof{}, err
	}
	now := p.now()
	claims, err := idtoken.Validate(token, cfg, keys, pub, now)
	if err != nil {
		return domain.MembershipProof{}, err
	}
	group, err := p.registry.DeriveGroup(providerID, claims.Organization)
	if err != nil {
		return domain.MembershipProof{}, err
	}

	in := domain.ProofPublicInputs{
		IssuerKeyID:      claims.KeyID,
		GroupID:          group.ID,
		ProviderID:       providerID,
		PubkeyCommitment: domain.PubkeyCommitment(claims.Nonce),
		IssuedAt:         now.Unix(),
	}
	w := Witness{Token: token, Claims: claims, PublicKey: pub, Provider: cfg, Keys: keys, Group: group}

	proveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan proveResult, 1)
	start := time.Now()
	go func() {
		id, proof, err := p.backend.Prove(proveCtx, w, in)
		done <- proveResult{paramsID: id, proof: proof, err: err}
	}()

	select {
	case <-ctx.Done():
		p.log.Info("proof generation cancelled", "backend", p.backend.Name())
		return domain.MembershipProof{}, fmt.Errorf("%w: %w", domain.ErrProofGeneration, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return domain.MembershipProof{}, fmt.Errorf("%w: %w", domain.ErrProofGeneration, r.err)
		}
		p.log.Debug("proof generated",
			"backend", p.backend.Name(),
			"group_id", string(group.ID),
			"duration", time.Since(start))
		return domain.MembershipProof{
			Backend:      p.backend.Name(),
			ParamsID:     r.paramsID,
			Proof:        r.proof,
			PublicInputs: in,
		}, nil
	}
}

// Compile-time assertion that Prover implements domain.MembershipProver.
var _ domain.MembershipProver = (*Prover)(nil)
