package interfaces

import (
	"context"

	domaintypes "stealthnote/internal/domain/types"
)

// IdentityManager holds at most one ephemeral key per session.
type IdentityManager interface {
	Generate(sess domaintypes.SessionContext) (domaintypes.EphemeralKeyPair, error)
	Current(sess domaintypes.SessionContext) (domaintypes.EphemeralKeyPair, bool, error)
	Discard(sess domaintypes.SessionContext) error
	State(sess domaintypes.SessionContext) (domaintypes.SessionState, error)
}

// RegistrationService runs key generation through proof generation.
type RegistrationService interface {
	Register(
		ctx context.Context,
		sess domaintypes.SessionContext,
		provider domaintypes.ProviderID,
	) (domaintypes.AnonGroup, error)
}

// MessageService signs and posts messages for a registered session.
type MessageService interface {
	Submit(
		ctx context.Context,
		sess domaintypes.SessionContext,
		text string,
		internal bool,
	) (domaintypes.SignedMessageWithProof, error)
}

// MessageVerifier accepts or rejects a submitted artifact. A nil error is
// acceptance.
type MessageVerifier interface {
	Verify(ctx context.Context, signed domaintypes.SignedMessageWithProof) error
}

// SubmissionGate is the hook a rate-limiting or revocation subsystem plugs
// into. It sees only public fields.
type SubmissionGate interface {
	AllowSubmission(ctx context.Context, signed domaintypes.SignedMessageWithProof) error
}
