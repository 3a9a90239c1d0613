// Package app wires application dependencies for the CLI, the board and the
// prover.
//
// Config is read from STEALTHNOTE_* environment variables. NewApp builds the
// client graph (session store, identity manager, prover client,
// registration, message service, board client). NewBoard builds the server
// graph (issuer keyring, membership verifier, submission gate, SQLite store,
// HTTP server). NewProver builds the proving service, the only graph that
// reads the prover seed.
package app
