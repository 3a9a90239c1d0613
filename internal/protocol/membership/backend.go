package membership

import (
	"context"

	"stealthnote/internal/domain"
	"stealthnote/internal/protocol/idtoken"
)

// Witness is the private input to proof generation.
type Witness struct {
	Token     string
	Claims    idtoken.Claims
	PublicKey domain.EphemeralPublic
	Provider  domain.ProviderConfig
	Keys      domain.IssuerKeySet
	Group     domain.AnonGroup
}

// Backend produces and checks proofs for one proving system.
type Backend interface {
	// Name is stored in every proof the backend produces.
	Name() string
	// Prove returns the parameter id and proof bytes for in. Implementations
	// should return promptly once ctx is done.
	Prove(ctx context.Context, w Witness, in domain.ProofPublicInputs) (paramsID string, proof []byte, err error)
	// Verify checks proof against its own public inputs. It does not decide
	// whether the inputs are acceptable; see Verifier.
	Verify(proof domain.MembershipProof) error
}
