// Command board serves the StealthNote message board.
//
// It verifies every submitted message (membership proof, signature, group
// and text rules) before storing it in SQLite, and refreshes each provider's
// issuer keys in the background. Configuration comes from STEALTHNOTE_*
// environment variables; see internal/app.Config.
//
// Endpoints:
//
//	POST /messages                  submit a signed message
//	GET  /messages                  list (?provider=&group=&internal=&limit=&before=)
//	GET  /messages/{id}             one message
//	GET  /groups/{slug}/{groupID}   group descriptor
//	GET  /livez, /readyz, /metrics
//
// Internal lists and internal messages need an X-StealthNote-Read header
// signed by a member of the group.
package main
