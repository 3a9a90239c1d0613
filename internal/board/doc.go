// Package board is the message board's HTTP surface: a chi server that
// verifies and stores submissions and lists accepted messages, and the
// JSON client the CLI talks to it with.
//
// Errors travel as {"code": ..., "error": ...} where code is the stable
// domain.Code of the failure, so clients can rebuild the typed error.
package board
