// Package membership turns a validated identity token into a membership
// proof and checks such proofs.
//
// Proving is split in two. The Prover validates the token against the
// provider's published keys, derives the group and builds the public inputs.
// A Backend then produces the proof bytes from the witness. The witness
// (raw token, subject, email) never leaves the backend; only the public
// inputs travel with the proof.
//
// The shipped backend, "attested", is a trusted prover: it re-checks the
// witness and signs the canonical public inputs with an Ed25519 key whose
// public half verifiers are configured with. A succinct-proof backend can be
// registered under a different name without changing either side.
package membership
