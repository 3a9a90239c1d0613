package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"stealthnote/internal/crypto"
	"stealthnote/internal/domain"
	"stealthnote/internal/platform/privacylog"
	"stealthnote/internal/protocol/membership"
	"stealthnote/internal/provider"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home       string `env:"STEALTHNOTE_HOME"` // config directory, default $HOME/.stealthnote
	BoardURL   string `env:"STEALTHNOTE_BOARD_URL" envDefault:"http://127.0.0.1:8080"`
	Session    string `env:"STEALTHNOTE_SESSION" envDefault:"default"`
	Passphrase string `env:"STEALTHNOTE_PASSPHRASE"`

	GoogleClientID    string `env:"STEALTHNOTE_GOOGLE_CLIENT_ID"`
	MicrosoftClientID string `env:"STEALTHNOTE_MICROSOFT_CLIENT_ID"`
	RedirectURL       string `env:"STEALTHNOTE_REDIRECT_URL"`
	DirectoryPath     string `env:"STEALTHNOTE_DIRECTORY"`

	// ProverURL is where clients send identity tokens to be proven.
	ProverURL string `env:"STEALTHNOTE_PROVER_URL" envDefault:"http://127.0.0.1:8081"`
	// ProverSeed is the base64 Ed25519 seed of the attesting prover. Only the
	// prover process reads it.
	ProverSeed   string `env:"STEALTHNOTE_PROVER_SEED"`
	ProverListen string `env:"STEALTHNOTE_PROVER_LISTEN" envDefault:":8081"`
	// ProverKeys are base64 Ed25519 public keys whose attestations the board
	// accepts.
	ProverKeys []string `env:"STEALTHNOTE_PROVER_KEYS" envSeparator:","`

	ListenAddr   string        `env:"STEALTHNOTE_LISTEN" envDefault:":8080"`
	DBPath       string        `env:"STEALTHNOTE_DB" envDefault:"stealthnote.db"`
	KeyRefresh   time.Duration `env:"STEALTHNOTE_KEY_REFRESH" envDefault:"1h"`
	MaxProofAge  time.Duration `env:"STEALTHNOTE_MAX_PROOF_AGE" envDefault:"168h"`
	RateRPS      float64       `env:"STEALTHNOTE_RATE_RPS" envDefault:"0.2"`
	RateBurst    int           `env:"STEALTHNOTE_RATE_BURST" envDefault:"5"`
	ShutdownWait time.Duration `env:"STEALTHNOTE_SHUTDOWN_WAIT" envDefault:"10s"`

	LogLevel string `env:"STEALTHNOTE_LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"STEALTHNOTE_LOG_JSON"`

	HTTP *http.Client `env:"-"` // optional; defaults to http.DefaultClient
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ResolveHome fills in the default home directory and creates it.
func (c *Config) ResolveHome() error {
	if c.Home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		c.Home = filepath.Join(dir, ".stealthnote")
	}
	return os.MkdirAll(c.Home, 0o700)
}

// SessionContext returns the session the CLI acts on.
func (c Config) SessionContext() domain.SessionContext {
	return domain.SessionContext{ID: domain.SessionID(c.Session), Passphrase: c.Passphrase}
}

// Logger builds the privacy-sanitizing logger at the configured level.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return privacylog.NewLogger(w, level, c.LogJSON), nil
}

// Registry builds the provider registry. A built-in provider is enabled
// when its client id is set.
func (c Config) Registry() (*provider.Registry, error) {
	var configs []domain.ProviderConfig
	if c.GoogleClientID != "" {
		configs = append(configs, provider.Google(c.GoogleClientID))
	}
	if c.MicrosoftClientID != "" {
		configs = append(configs, provider.Microsoft(c.MicrosoftClientID))
	}
	if len(configs) == 0 {
		return nil, errors.New("no identity provider configured: set STEALTHNOTE_GOOGLE_CLIENT_ID or STEALTHNOTE_MICROSOFT_CLIENT_ID")
	}
	dir, err := provider.LoadDirectory(c.DirectoryPath)
	if err != nil {
		return nil, err
	}
	return provider.NewRegistry(configs, dir)
}

// ProverKey decodes the prover seed.
func (c Config) ProverKey() (domain.Ed25519Private, domain.Ed25519Public, error) {
	if c.ProverSeed == "" {
		return domain.Ed25519Private{}, domain.Ed25519Public{}, errors.New("STEALTHNOTE_PROVER_SEED is not set")
	}
	seed, err := crypto.DecodeB64(c.ProverSeed)
	if err != nil {
		return domain.Ed25519Private{}, domain.Ed25519Public{}, fmt.Errorf("prover seed: %w", err)
	}
	defer crypto.Wipe(seed)
	return crypto.Ed25519FromSeed(seed)
}

// TrustedProvers decodes the prover public keys.
func (c Config) TrustedProvers() ([]domain.Ed25519Public, error) {
	out := make([]domain.Ed25519Public, 0, len(c.ProverKeys))
	for _, raw := range c.ProverKeys {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		b, err := crypto.DecodeB64(raw)
		if err != nil {
			return nil, fmt.Errorf("prover key %q: %w", raw, err)
		}
		var pub domain.Ed25519Public
		if len(b) != len(pub) {
			return nil, fmt.Errorf("prover key %q: want %d bytes, got %d", raw, len(pub), len(b))
		}
		copy(pub[:], b)
		out = append(out, pub)
	}
	return out, nil
}

// ProofAge is the oldest proof the verifier accepts. Retired issuer keys are
// remembered for the same span so proofs made before a rotation stay valid.
func (c Config) ProofAge() time.Duration {
	if c.MaxProofAge > 0 {
		return c.MaxProofAge
	}
	return membership.DefaultMaxProofAge
}

func (c Config) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}
