package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stealthnote/internal/crypto"
	"stealthnote/internal/domain"
	"stealthnote/internal/protocol/binding"
	"stealthnote/internal/protocol/canonical"
	"stealthnote/internal/protocol/idtoken"
)

// AttestedName is the backend name of AttestedBackend proofs.
const AttestedName = "attested"

var errVerifyOnly = errors.New("attested backend has no prover key")

// AttestedBackend signs public inputs with an Ed25519 prover key after
// re-checking the witness.
type AttestedBackend struct {
	priv    *domain.Ed25519Private
	id      string
	trusted map[string]domain.Ed25519Public
}

// NewAttested returns a backend that proves with priv and accepts proofs
// from pub and any of also.
func NewAttested(priv domain.Ed25519Private, pub domain.Ed25519Public, also ...domain.Ed25519Public) *AttestedBackend {
	b := NewAttestedVerifier(append([]domain.Ed25519Public{pub}, also...)...)
	b.priv = &priv
	b.id = ParamsID(pub)
	return b
}

// NewAttestedVerifier returns a verify-only backend trusting pubs.
func NewAttestedVerifier(pubs ...domain.Ed25519Public) *AttestedBackend {
	b := &AttestedBackend{trusted: make(map[string]domain.Ed25519Public, len(pubs))}
	for _, p := range pubs {
		b.trusted[ParamsID(p)] = p
	}
	return b
}

// ParamsID names a prover public key inside proofs.
func ParamsID(pub domain.Ed25519Public) string {
	return string(crypto.Fingerprint(pub.Slice()))
}

// Name implements Backend.
func (b *AttestedBackend) Name() string { return AttestedName }

// Prove implements Backend.
func (b *AttestedBackend) Prove(ctx context.Context, w Witness, in domain.ProofPublicInputs) (string, []byte, error) {
	if b.priv == nil {
		return "", nil, errVerifyOnly
	}
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	if err := checkWitness(w, in); err != nil {
		return "", nil, err
	}
	sig := crypto.SignEd25519(*b.priv, canonical.PublicInputs(AttestedName, b.id, in))
	return b.id, sig, nil
}

// checkWitness re-validates the token and checks that every public input
// follows from the witness. The backend signs nothing it has not checked.
func checkWitness(w Witness, in domain.ProofPublicInputs) error {
	claims, err := idtoken.Validate(w.Token, w.Provider, w.Keys, w.PublicKey, time.Unix(in.IssuedAt, 0))
	if err != nil {
		return err
	}
	switch {
	case in.PubkeyCommitment != binding.BindNonce(w.PublicKey):
		return fmt.Errorf("commitment does not match witness key")
	case in.IssuerKeyID != claims.KeyID:
		return fmt.Errorf("issuer key id does not match token")
	case in.ProviderID != w.Provider.ID || w.Group.ProviderID != w.Provider.ID:
		return fmt.Errorf("provider does not match witness")
	case in.GroupID != w.Group.ID:
		return fmt.Errorf("group does not match witness")
	}
	return nil
}

// Verify implements Backend.
func (b *AttestedBackend) Verify(proof domain.MembershipProof) error {
	if proof.Backend != AttestedName {
		return fmt.Errorf("%w: backend %q", domain.ErrInvalidProof, proof.Backend)
	}
	pub, ok := b.trusted[proof.ParamsID]
	if !ok {
		return fmt.Errorf("%w: unknown prover %q", domain.ErrInvalidProof, proof.ParamsID)
	}
	msg := canonical.PublicInputs(proof.Backend, proof.ParamsID, proof.PublicInputs)
	if !crypto.VerifyEd25519(pub, msg, proof.Proof) {
		return fmt.Errorf("%w: prover signature", domain.ErrInvalidProof)
	}
	return nil
}

var _ Backend = (*AttestedBackend)(nil)
