package interfaces

import (
	"context"

	domaintypes "stealthnote/internal/domain/types"
)

// TokenSource obtains an identity token whose nonce claim is nonce.
type TokenSource interface {
	AcquireToken(
		ctx context.Context,
		provider domaintypes.ProviderConfig,
		nonce domaintypes.PubkeyCommitment,
	) (string, error)
}

// IssuerKeySource fetches a provider's currently published signing keys.
type IssuerKeySource interface {
	FetchKeys(ctx context.Context, provider domaintypes.ProviderConfig) (domaintypes.IssuerKeySet, error)
}

// BoardClient is how clients talk to the message board.
type BoardClient interface {
	SubmitMessage(ctx context.Context, signed domaintypes.SignedMessageWithProof) error
	ListMessages(ctx context.Context, q domaintypes.MessageQuery) ([]domaintypes.BoardMessage, error)
}

// MembershipProver turns an identity token bound to pub into a membership
// proof. It is either the in-process prover or a client of a remote one.
type MembershipProver interface {
	Prove(
		ctx context.Context,
		token string,
		providerID domaintypes.ProviderID,
		pub domaintypes.EphemeralPublic,
	) (domaintypes.MembershipProof, error)
}
