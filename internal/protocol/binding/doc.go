// Package binding derives the identity-token nonce from an ephemeral public
// key.
//
// The nonce is base58(BLAKE2b-256 keyed with a fixed domain tag over the
// compressed public key). The same value is the pubkey commitment carried in
// membership proofs, so a token minted for one key cannot authorize another.
package binding
