package app

import (
	"log/slog"

	"stealthnote/internal/board"
	"stealthnote/internal/domain"
	"stealthnote/internal/protocol/membership"
	"stealthnote/internal/provider"
	"stealthnote/internal/services/identity"
	"stealthnote/internal/services/message"
	"stealthnote/internal/services/registration"
	"stealthnote/internal/services/verifier"
	"stealthnote/internal/store"
)

// App bundles the client-side services the CLI commands use.
type App struct {
	Config       Config
	Log          *slog.Logger
	Registry     *provider.Registry
	Identity     *identity.Manager
	Registration *registration.Service
	Messages     *message.Service
	Verifier     *verifier.Service
	Board        *board.HTTPClient
}

// NewApp constructs the client dependency graph from cfg. tokens supplies
// identity tokens during registration.
func NewApp(cfg Config, tokens domain.TokenSource, log *slog.Logger) (*App, error) {
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
	// The client never holds the attestation key: tokens go to the prover
	// service and proofs are checked against the published prover keys.
	backend := membership.NewAttestedVerifier(trusted...)
	prover := board.NewProverClient(cfg.ProverURL)

	keys := provider.NewKeyring(reg, provider.NewHTTPKeySource(cfg.httpClient()), log,
		provider.WithRetention(cfg.ProofAge()))
	ids := identity.New(store.NewSessionFileStore(cfg.Home), log)

	bc := board.NewHTTPClient(cfg.BoardURL)
	if cfg.HTTP != nil {
		bc.HTTP = cfg.HTTP
		prover.HTTP = cfg.HTTP
	}

	return &App{
		Config:       cfg,
		Log:          log,
		Registry:     reg,
		Identity:     ids,
		Registration: registration.New(ids, tokens, reg, prover, log),
		Messages:     message.New(ids, bc, log),
		Verifier:     verifier.New(reg, membership.NewVerifier(keys, cfg.ProofAge(), backend), nil, log),
		Board:        bc,
	}, nil
}
