// Package provider is the registry of supported identity providers.
//
// It resolves provider configuration, turns organization claims into
// AnonGroup descriptors, and caches each issuer's published signing keys.
//
// # Normalization
//
// Prover and verifier both call NormalizeOrganization, so they agree on group
// ids without communicating:
//
//   - domain rule: trim spaces and one trailing dot, keep the part after the
//     last "@" if an address was given, map through IDNA lookup (lower-case,
//     punycode), then reduce to the registrable domain (eTLD+1) using the
//     public suffix list. "ENG.Acme.com." becomes "acme.com".
//   - tenant rule: the claim must parse as a UUID and is returned in
//     canonical lower-case form.
//
// The group id is the normalized value itself. The mapping is injective, so
// distinct organizations never share an id, and a group id is valid exactly
// when normalizing it returns it unchanged.
package provider
