package types

// ProviderID names an identity provider, e.g. "google-oauth".
type ProviderID string

// String returns the string form of the provider identifier.
func (p ProviderID) String() string { return string(p) }

// GroupID identifies an anonymous group within a provider's group space.
type GroupID string

// String returns the string form of the group identifier.
func (g GroupID) String() string { return string(g) }

// PubkeyCommitment is the public, deterministic commitment to an ephemeral
// public key. The same value is embedded as the identity token nonce.
type PubkeyCommitment string

// String returns the string form of the commitment.
func (c PubkeyCommitment) String() string { return string(c) }

// SessionID names a client session.
type SessionID string

// String returns the string form of the session identifier.
func (id SessionID) String() string { return string(id) }

// MessageID identifies a posted message.
type MessageID string

// String returns the string form of the message identifier.
func (id MessageID) String() string { return string(id) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
