package board

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"stealthnote/internal/crypto"
	"stealthnote/internal/domain"
)

// maxProofRequestBytes bounds a POST /proofs body. Identity tokens are a few KiB.
const maxProofRequestBytes = 16 << 10

// ProofRequest asks the prover to attest a token bound to PublicKey.
type ProofRequest struct {
	ProviderID domain.ProviderID `json:"provider_id"`
	Token      string            `json:"token"`
	PublicKey  string            `json:"public_key"` // base64 compressed secp256k1
}

// ProverServer exposes a membership prover over HTTP. It is the only
// component that holds the attestation key, and the only one that ever
// sees identity tokens.
type ProverServer struct {
	prover domain.MembershipProver
	log    *slog.Logger
}

// NewProverServer wraps prover. log may be nil.
func NewProverServer(prover domain.MembershipProver, log *slog.Logger) *ProverServer {
	if log == nil {
		log = slog.Default()
	}
	return &ProverServer{prover: prover, log: log}
}

// Handler returns the prover router.
func (p *ProverServer) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Post("/proofs", p.handleProve)
	mux.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})
	return mux
}

func (p *ProverServer) handleProve(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxProofRequestBytes)
	var req ProofRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	pub, err := decodeEphemeral(req.PublicKey)
	if err != nil {
		writeError(w, err)
		return
	}
	start := time.Now()
	proof, err := p.prover.Prove(r.Context(), req.Token, req.ProviderID, pub)
	if err != nil {
		p.log.Info("proof refused", "provider", string(req.ProviderID), "code", domain.Code(err), "err", err)
		writeError(w, err)
		return
	}
	p.log.Info("proof issued",
		"provider", string(req.ProviderID),
		"group_id", string(proof.PublicInputs.GroupID),
		"duration", time.Since(start))
	writeJSON(w, http.StatusOK, proof)
}

func decodeEphemeral(raw string) (domain.EphemeralPublic, error) {
	var pub domain.EphemeralPublic
	b, err := crypto.DecodeB64(strings.TrimSpace(raw))
	if err != nil {
		return pub, fmt.Errorf("%w: public_key: %v", errBadRequest, err)
	}
	if len(b) != len(pub) {
		return pub, fmt.Errorf("%w: public_key: want %d bytes, got %d", errBadRequest, len(pub), len(b))
	}
	copy(pub[:], b)
	if !crypto.ValidEphemeralPublic(pub) {
		return pub, fmt.Errorf("%w: public_key is not a curve point", errBadRequest)
	}
	return pub, nil
}

// ProverClient asks a remote ProverServer for proofs.
type ProverClient struct {
	*HTTPClient
}

// NewProverClient returns a client for the prover at base.
func NewProverClient(base string) *ProverClient {
	c := NewHTTPClient(base)
	// Proving is slower than a board round trip.
	c.HTTP.Timeout = 2 * time.Minute
	return &ProverClient{HTTPClient: c}
}

// Prove sends token and pub to the prover. Token failures come back as
// their own sentinels; cancellation is ErrProofGeneration.
func (c *ProverClient) Prove(
	ctx context.Context,
	token string,
	providerID domain.ProviderID,
	pub domain.EphemeralPublic,
) (domain.MembershipProof, error) {
	var proof domain.MembershipProof
	req := ProofRequest{ProviderID: providerID, Token: token, PublicKey: crypto.B64(pub[:])}
	if err := c.post(ctx, "/proofs", req, &proof); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.MembershipProof{}, fmt.Errorf("%w: %w", domain.ErrProofGeneration, ctxErr)
		}
		return domain.MembershipProof{}, err
	}
	return proof, nil
}

// Compile-time assertion that ProverClient implements domain.MembershipProver.
var _ domain.MembershipProver = (*ProverClient)(nil)
