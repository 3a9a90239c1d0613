// Package tokensource obtains provider-signed identity tokens whose nonce
// claim carries the ephemeral key commitment.
//
// Static returns a token acquired out of band. Prompt prints the provider's
// authorization URL with the nonce filled in and reads the id_token the user
// pastes back from the redirect.
package tokensource
