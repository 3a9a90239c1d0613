// Package crypto exposes the minimal primitives used by StealthNote.
//
// Contents
//
//   - secp256k1 ephemeral key generation, compact recoverable signing and
//     public-key recovery (GenerateEphemeral, SignCompact, RecoverCompact)
//   - Ed25519 key generation, signing and verification for proof attestation
//     keys (GenerateEd25519, SignEd25519, VerifyEd25519)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//   - Short public-key fingerprints and pseudonyms for display/logging
//     (Fingerprint, SenderName)
//
// # Notes
//
// All functions return fixed-size array types defined in internal/domain to
// avoid accidental reallocations. Callers should treat returned secrets as
// sensitive and rely on Wipe when practical to reduce lifetime in memory.
package crypto
