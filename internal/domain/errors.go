package domain

import (
	"context"
	"errors"
)

// Cryptographic and protocol failures. All are terminal for the operation
// that raised them and are never retried automatically.
var (
	ErrEntropy             = errors.New("secure randomness unavailable")
	ErrUnknownProvider     = errors.New("unknown identity provider")
	ErrUntrustedIssuerKey  = errors.New("identity token not signed by a trusted issuer key")
	ErrExpiredToken        = errors.New("identity token expired")
	ErrNonceMismatch       = errors.New("identity token nonce does not match ephemeral key")
	ErrProofGeneration     = errors.New("membership proof generation failed")
	ErrKeyProofMismatch    = errors.New("signing key does not match proof commitment")
	ErrInvalidProof        = errors.New("membership proof is invalid")
	ErrInvalidSignature    = errors.New("message signature is invalid")
	ErrGroupMismatch       = errors.New("group does not match proof")
	ErrMessageConstraint   = errors.New("message violates constraints")
	ErrInvalidOrganization = errors.New("organization claim cannot be normalized")
)

// Session and collaborator conditions.
var (
	ErrBusy              = errors.New("proof generation already in progress")
	ErrNotRegistered     = errors.New("session is not registered")
	ErrInvalidTransition = errors.New("invalid identity state transition")
	ErrNotFound          = errors.New("not found")
	ErrRejectedByGate    = errors.New("submission refused")
	ErrDuplicateMessage  = errors.New("message already posted")
	ErrMembersOnly       = errors.New("internal board is visible to group members only")
)

// cryptographic lists errors that must never be marked transient.
var cryptographic = []error{
	ErrUntrustedIssuerKey,
	ErrExpiredToken,
	ErrNonceMismatch,
	ErrProofGeneration,
	ErrKeyProofMismatch,
	ErrInvalidProof,
	ErrInvalidSignature,
	ErrGroupMismatch,
}

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks a collaborator failure (network, fetch) as safe to retry.
// Cryptographic failures are returned unchanged.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	for _, c := range cryptographic {
		if errors.Is(err, c) {
			return err
		}
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked with Transient.
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

type reasonEntry struct {
	err    error
	code   string
	reason string
}

// Order matters: the first match wins, so more specific errors come first.
var reasons = []reasonEntry{
	{ErrEntropy, "entropy", "could not obtain secure randomness"},
	{ErrUnknownProvider, "unknown_provider", "this sign-in provider is not supported"},
	{ErrUntrustedIssuerKey, "untrusted_issuer_key", "sign-in token is not signed by a trusted key"},
	{ErrExpiredToken, "expired_token", "sign-in token has expired, sign in again"},
	{ErrNonceMismatch, "nonce_mismatch", "sign-in token was issued for a different key"},
	{ErrProofGeneration, "proof_generation", "could not generate membership proof"},
	{ErrKeyProofMismatch, "key_proof_mismatch", "your key does not match your membership proof"},
	{ErrInvalidProof, "invalid_proof", "membership proof did not verify"},
	{ErrInvalidSignature, "invalid_signature", "message signature did not verify"},
	{ErrGroupMismatch, "group_mismatch", "message group does not match membership proof"},
	{ErrMessageConstraint, "message_constraint", "message is empty or too long"},
	{ErrInvalidOrganization, "invalid_organization", "organization could not be recognised"},
	{ErrBusy, "busy", "a membership proof is already being generated"},
	{ErrNotRegistered, "not_registered", "sign in before posting"},
	{ErrInvalidTransition, "invalid_transition", "identity is not in a state that allows this"},
	{ErrNotFound, "not_found", "not found"},
	{ErrRejectedByGate, "refused", "submission refused, try again later"},
	{ErrDuplicateMessage, "duplicate", "this message was already posted"},
	{ErrMembersOnly, "members_only", "only members of this group can read its internal board"},
	{context.Canceled, "canceled", "operation cancelled"},
	{context.DeadlineExceeded, "timeout", "operation timed out"},
}

// Code returns a stable machine-readable code for err.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.code
		}
	}
	if IsTransient(err) {
		return "unavailable"
	}
	return "internal"
}

// Reason returns a short human-readable reason for err.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	if IsTransient(err) {
		return "a service is temporarily unavailable, try again"
	}
	return "internal error"
}

// FromCode returns the sentinel error for a code produced by Code, or nil
// if the code is unknown.
func FromCode(code string) error {
	for _, r := range reasons {
		if r.code == code {
			return r.err
		}
	}
	return nil
}
