// Package message signs messages with a session's ephemeral key and posts
// them to the board together with the session's membership proof.
package message
