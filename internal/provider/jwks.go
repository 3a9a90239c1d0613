package provider

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"stealthnote/internal/domain"
)

// maxJWKSBytes bounds the size of a fetched key document.
const maxJWKSBytes = 1 << 20

// HTTPKeySource fetches a provider's JSON Web Key Set over HTTP.
type HTTPKeySource struct {
	HTTP *http.Client
	Now  func() time.Time
}

// NewHTTPKeySource returns a key source using client, or http.DefaultClient.
func NewHTTPKeySource(client *http.Client) *HTTPKeySource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPKeySource{HTTP: client, Now: time.Now}
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// FetchKeys downloads and parses the provider's JWKS. Network and HTTP
// failures are transient.
func (s *HTTPKeySource) FetchKeys(ctx context.Context, p domain.ProviderConfig) (domain.IssuerKeySet, error) {
	if p.JWKSURL == "" {
		return domain.IssuerKeySet{}, fmt.Errorf("provider %q has no jwks_url", p.ID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.JWKSURL, nil)
	if err != nil {
		return domain.IssuerKeySet{}, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return domain.IssuerKeySet{}, domain.Transient(fmt.Errorf("fetch jwks %s: %w", p.JWKSURL, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return domain.IssuerKeySet{}, domain.Transient(fmt.Errorf("fetch jwks %s: %s", p.JWKSURL, resp.Status))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBytes))
	if err != nil {
		return domain.IssuerKeySet{}, domain.Transient(fmt.Errorf("read jwks %s: %w", p.JWKSURL, err))
	}
	keys, err := ParseJWKS(body)
	if err != nil {
		return domain.IssuerKeySet{}, err
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return domain.IssuerKeySet{Provider: p.ID, Keys: keys, FetchedAt: now().UTC()}, nil
}

// ParseJWKS extracts RSA signing keys from a JWKS document. Keys of other
// types or uses are skipped.
func ParseJWKS(data []byte) ([]domain.IssuerKey, error) {
	var doc jwksDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse jwks: %w", err)
	}
	out := make([]domain.IssuerKey, 0, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := rsaKey(k.N, k.E)
		if err != nil {
			return nil, fmt.Errorf("jwks key %q: %w", k.Kid, err)
		}
		alg := k.Alg
		if alg == "" {
			alg = "RS256"
		}
		out = append(out, domain.IssuerKey{ID: k.Kid, Algorithm: alg, Key: pub})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("jwks contains no usable signing keys")
	}
	return out, nil
}

func rsaKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	if len(eb) == 0 || len(eb) > 4 {
		return nil, fmt.Errorf("exponent has %d bytes", len(eb))
	}
	exp := int(new(big.Int).SetBytes(eb).Int64())
	mod := new(big.Int).SetBytes(nb)
	if mod.BitLen() < 2048 {
		return nil, fmt.Errorf("modulus is %d bits, need at least 2048", mod.BitLen())
	}
	return &rsa.PublicKey{N: mod, E: exp}, nil
}
