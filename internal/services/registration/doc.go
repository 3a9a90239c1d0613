// Package registration runs the path from a fresh ephemeral key to a stored
// membership proof: generate a key, bind it into a token nonce, obtain the
// token, prove membership and record the result.
//
// At most one registration runs per session. Discarding the identity while
// a registration is in flight cancels it, and a result that arrives for a
// key that is no longer current is dropped.
package registration
