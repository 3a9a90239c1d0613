// Package identity owns the per-session ephemeral signing key.
//
// A session moves between three states:
//
//	Unregistered --Begin--> Registering --Complete--> Registered
//	      ^                      |                        |
//	      +--------Fail----------+                        |
//	      +--------Discard--------------------------------+
//
// Begin always generates a fresh key, so re-registering is also how an
// identity is refreshed. Every Begin and Discard bumps the session's
// generation counter; Complete and Fail must name the generation they belong
// to, which lets a late proving result be told apart from a current one.
// State is persisted through domain.SessionStore, sealed with the session
// passphrase.
package identity
