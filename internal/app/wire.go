package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"stealthnote/internal/board"
	"stealthnote/internal/crypto"
	"stealthnote/internal/platform/ratelimiter"
	"stealthnote/internal/protocol/membership"
	"stealthnote/internal/provider"
	"stealthnote/internal/services/verifier"
	"stealthnote/internal/store/sqlite"
)

// Board bundles the board server and the resources its lifetime owns.
type Board struct {
	Config  Config
	Log     *slog.Logger
	Server  *board.Server
	Keys    *provider.Keyring
	Store   *sqlite.Store
	Metrics *board.Metrics
}

// NewBoard constructs the server dependency graph from cfg. The caller owns
// Close.
func NewBoard(ctx context.Context, cfg Config, log *slog.Logger) (*Board, error) {
	if log == nil {
		log = slog.Default()
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	trusted, err := cfg.TrustedProvers()
	if err != nil {
		return nil, err
	}
	if len(trusted) == 0 {
		return nil, fmt.Errorf("board needs at least one prover key in STEALTHNOTE_PROVER_KEYS")
	}

	metrics := board.NewMetrics()
	keys := provider.NewKeyring(reg, provider.NewHTTPKeySource(cfg.httpClient()), log,
		provider.WithObserver(metrics.ObserveKeyRefresh),
		provider.WithRetention(cfg.ProofAge()))

	db, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	proofs := membership.NewVerifier(keys, cfg.ProofAge(), membership.NewAttestedVerifier(trusted...))
	v := verifier.New(reg, proofs, db, log,
		verifier.WithGate(ratelimiter.New(cfg.RateRPS, cfg.RateBurst, 0)),
		verifier.WithObserver(metrics.ObserveVerification))

	keysLoaded := func(context.Context) error {
		for _, p := range reg.Providers() {
			c, err := keys.Cache(p.ID)
			if err != nil {
				return err
			}
			if _, ok := c.Current(); !ok {
				return fmt.Errorf("issuer keys for %s not loaded", p.ID)
			}
		}
		return nil
	}

	return &Board{
		Config:  cfg,
		Log:     log,
		Server:  board.NewServer(v, db, reg, metrics, log, db.Ping, keysLoaded),
		Keys:    keys,
		Store:   db,
		Metrics: metrics,
	}, nil
}

// HTTPServer returns an http.Server for the board handler on the listen
// address.
func (b *Board) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              b.Config.ListenAddr,
		Handler:           b.Server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Close releases the store.
func (b *Board) Close() error { return b.Store.Close() }

// Prover bundles the proving service. It alone reads the prover seed.
type Prover struct {
	Config Config
	Log    *slog.Logger
	Server *board.ProverServer
	Keys   *provider.Keyring
	// PublicKey is the base64 key boards list in STEALTHNOTE_PROVER_KEYS.
	PublicKey string
}

// NewProver constructs the prover service from cfg.
func NewProver(cfg Config, log *slog.Logger) (*Prover, error) {
	if log == nil {
		log = slog.Default()
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	priv, pub, err := cfg.ProverKey()
	if err != nil {
		return nil, err
	}
	keys := provider.NewKeyring(reg, provider.NewHTTPKeySource(cfg.httpClient()), log,
		provider.WithRetention(cfg.ProofAge()))
	p := membership.NewProver(reg, keys, membership.NewAttested(priv, pub), log)
	return &Prover{
		Config:    cfg,
		Log:       log,
		Server:    board.NewProverServer(p, log),
		Keys:      keys,
		PublicKey: crypto.B64(pub[:]),
	}, nil
}

// HTTPServer returns an http.Server for the prover on its listen address.
func (p *Prover) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              p.Config.ProverListen,
		Handler:           p.Server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
