// Package store provides file-based persistence for client session state.
//
// Each session lives in its own file under sessions/, sealed with a key
// derived from the session passphrase (scrypt, then XChaCha20-Poly1305).
// The session id is authenticated as associated data, so a file copied
// over another session's fails to open.
// Writes go through a temp file and rename, so a crash never leaves a
// half-written session behind. All methods are safe for concurrent use.
//
// The board's message store lives in the sqlite subpackage.
package store
