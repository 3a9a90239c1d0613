// Command prover runs the trusted proving service. It validates identity
// tokens against the issuers' published keys and attests membership with
// the key in STEALTHNOTE_PROVER_SEED. Boards trust it through
// STEALTHNOTE_PROVER_KEYS; clients reach it through STEALTHNOTE_PROVER_URL.
package main
