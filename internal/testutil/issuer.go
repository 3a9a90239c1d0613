package testutil

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"stealthnote/internal/domain"
	"stealthnote/internal/provider"
)

// ClientID is the audience tokens are minted for.
const ClientID = "stealthnote-test.apps.example.com"

// Issuer is an in-process identity provider.
type Issuer struct {
	Server   *httptest.Server
	Provider domain.ProviderConfig

	mu     sync.Mutex
	keys   map[string]*rsa.PrivateKey
	active string
	serial int
	fails  bool
}

// NewIssuer starts an issuer posing as the google-oauth provider.
func NewIssuer(t *testing.T) *Issuer {
	t.Helper()
	iss := &Issuer{keys: make(map[string]*rsa.PrivateKey)}
	iss.Rotate(t)
	iss.Server = httptest.NewServer(http.HandlerFunc(iss.serveJWKS))
	t.Cleanup(iss.Server.Close)

	p := provider.Google(ClientID)
	p.JWKSURL = iss.Server.URL + "/certs"
	iss.Provider = p
	return iss
}

// Registry returns a registry holding only this issuer's provider.
func (i *Issuer) Registry(t *testing.T) *provider.Registry {
	t.Helper()
	reg, err := provider.NewRegistry([]domain.ProviderConfig{i.Provider}, nil)
	require.NoError(t, err)
	return reg
}

// KeyID returns the id of the active signing key.
func (i *Issuer) KeyID() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.active
}

// Rotate adds a new signing key and makes it active. Old keys stay published.
func (i *Issuer) Rotate(t *testing.T) string {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	i.mu.Lock()
	defer i.mu.Unlock()
	i.serial++
	kid := fmt.Sprintf("test-key-%d", i.serial)
	i.keys[kid] = k
	i.active = kid
	return kid
}

// Unpublish removes kid from the served JWKS.
func (i *Issuer) Unpublish(kid string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.keys, kid)
}

// FailFetches makes the JWKS endpoint return 503 while on is true.
func (i *Issuer) FailFetches(on bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.fails = on
}

// Claims returns a valid default claim set for org and nonce.
func (i *Issuer) Claims(org string, nonce domain.PubkeyCommitment) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            ClientID,
		"sub":            "1234567890",
		"email":          "alice@" + org,
		"email_verified": true,
		"hd":             org,
		"nonce":          string(nonce),
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
}

// Mint signs claims with the active key.
func (i *Issuer) Mint(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	i.mu.Lock()
	kid := i.active
	key := i.keys[kid]
	i.mu.Unlock()
	return MintWith(t, key, kid, claims)
}

// Token mints a default token for org bound to nonce.
func (i *Issuer) Token(t *testing.T, org string, nonce domain.PubkeyCommitment) string {
	t.Helper()
	return i.Mint(t, i.Claims(org, nonce))
}

// MintWith signs claims with an arbitrary key.
func MintWith(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := mint(key, kid, claims)
	require.NoError(t, err)
	return s
}

func mint(key *rsa.PrivateKey, kid string, claims jwt.MapClaims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	return tok.SignedString(key)
}

func (i *Issuer) serveJWKS(w http.ResponseWriter, _ *http.Request) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.fails {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	type key struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		Use string `json:"use"`
		Alg string `json:"alg"`
		N   string `json:"n"`
		E   string `json:"e"`
	}
	doc := struct {
		Keys []key `json:"keys"`
	}{}
	for kid, k := range i.keys {
		doc.Keys = append(doc.Keys, key{
			Kty: "RSA",
			Kid: kid,
			Use: "sig",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(k.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(k.E)).Bytes()),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

// Tokens is a TokenSource that mints a fresh token for every request, so
// the nonce always matches the requested one. It is safe to call from any
// goroutine.
type Tokens struct {
	Issuer *Issuer
	Org    string
	// Edit, when set, adjusts the claims before signing.
	Edit func(jwt.MapClaims)
	// Gate, when set, blocks each request until it receives a value.
	Gate chan struct{}

	mu    sync.Mutex
	calls int
}

// AcquireToken implements domain.TokenSource.
func (s *Tokens) AcquireToken(ctx context.Context, _ domain.ProviderConfig, nonce domain.PubkeyCommitment) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	claims := s.Issuer.Claims(s.Org, nonce)
	if s.Edit != nil {
		s.Edit(claims)
	}
	s.Issuer.mu.Lock()
	kid := s.Issuer.active
	key := s.Issuer.keys[kid]
	s.Issuer.mu.Unlock()
	return mint(key, kid, claims)
}

// Calls returns how many tokens were requested.
func (s *Tokens) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
