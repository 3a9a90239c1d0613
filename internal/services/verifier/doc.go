// Package verifier is the board side of the protocol: it decides whether a
// submitted SignedMessageWithProof is acceptable and stores accepted ones.
//
// Verification needs no per-request state and may run in parallel. The only
// shared state is the issuer key cache held by the membership verifier.
package verifier
