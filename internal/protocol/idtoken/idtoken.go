// Package idtoken validates identity-provider tokens before they are used as
// proof witnesses.
package idtoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"stealthnote/internal/domain"
	"stealthnote/internal/protocol/binding"
	"stealthnote/internal/provider"
)

// Claims are the token fields the prover needs. Subject and Email are
// witness data and must never leave the prover.
type Claims struct {
	KeyID        string
	Issuer       string
	Subject      string
	Email        string
	Organization string
	Nonce        string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// Validate checks raw against the provider's published keys and binds it to
// pub. Checks run in order: expiry read from the unverified claims
// (ErrExpiredToken), signature under a published key
// (ErrUntrustedIssuerKey), issuer and audience (ErrUntrustedIssuerKey),
// expiry again from the verified claims, nonce (ErrNonceMismatch).
//
// An expired token is reported as expired whatever its signature.
func Validate(
	raw string,
	p domain.ProviderConfig,
	keys domain.IssuerKeySet,
	pub domain.EphemeralPublic,
	now time.Time,
) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, fmt.Errorf("%w: empty token", domain.ErrUntrustedIssuerKey)
	}
	if exp, ok := unverifiedExpiry(raw); ok && !exp.After(now) {
		return Claims{}, fmt.Errorf("%w: expired at %s", domain.ErrExpiredToken, exp.UTC().Format(time.RFC3339))
	}

	var kid string
	tok, err := jwt.ParseWithClaims(raw, jwt.MapClaims{}, func(token *jwt.Token) (any, error) {
		kid, _ = token.Header["kid"].(string)
		key, ok := keys.Lookup(kid)
		if !ok {
			return nil, fmt.Errorf("%w: key id %q is not published by %s", domain.ErrUntrustedIssuerKey, kid, p.ID)
		}
		if key.Algorithm != "" && key.Algorithm != token.Method.Alg() {
			return nil, fmt.Errorf("%w: key %q is for %s", domain.ErrUntrustedIssuerKey, kid, key.Algorithm)
		}
		return key.Key, nil
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}
	parsed, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("%w: unexpected claims type", domain.ErrUntrustedIssuerKey)
	}

	c := Claims{KeyID: kid}
	c.Issuer, _ = parsed.GetIssuer()
	c.Subject, _ = parsed.GetSubject()
	c.Email, _ = parsed["email"].(string)
	c.Organization, _ = parsed[p.OrganizationClaim].(string)
	c.Nonce, _ = parsed[p.NonceClaim].(string)

	if !provider.IssuerAllowed(p, c.Issuer, c.Organization) {
		return Claims{}, fmt.Errorf("%w: issuer %q is not trusted for %s", domain.ErrUntrustedIssuerKey, c.Issuer, p.ID)
	}
	if p.Audience != "" {
		aud, _ := parsed.GetAudience()
		if !audienceContains(aud, p.Audience) {
			return Claims{}, fmt.Errorf("%w: token audience does not include this application", domain.ErrUntrustedIssuerKey)
		}
	}

	exp, err := parsed.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, fmt.Errorf("%w: token has no expiry", domain.ErrExpiredToken)
	}
	c.ExpiresAt = exp.Time.UTC()
	if !c.ExpiresAt.After(now) {
		return Claims{}, fmt.Errorf("%w: expired at %s", domain.ErrExpiredToken, c.ExpiresAt.Format(time.RFC3339))
	}
	if iat, err := parsed.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time.UTC()
	}

	if !binding.Matches(pub, c.Nonce) {
		return Claims{}, domain.ErrNonceMismatch
	}
	if c.Organization == "" {
		return Claims{}, fmt.Errorf("%w: token has no %q claim", domain.ErrInvalidOrganization, p.OrganizationClaim)
	}
	return c, nil
}

// KeyID returns the unverified "kid" header of raw, for log context only.
func KeyID(raw string) string {
	tok, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(raw), jwt.MapClaims{})
	if err != nil {
		return ""
	}
	kid, _ := tok.Header["kid"].(string)
	return kid
}

// unverifiedExpiry reads "exp" without checking the signature. It is used
// only to reject; acceptance always goes through the verified claims.
func unverifiedExpiry(raw string) (time.Time, bool) {
	tok, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := tok.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// mapJWTError translates jwt library errors to domain errors.
func mapJWTError(err error) error {
	if errors.Is(err, domain.ErrUntrustedIssuerKey) {
		return err
	}
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return fmt.Errorf("%w: signature does not verify", domain.ErrUntrustedIssuerKey)
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return fmt.Errorf("%w: unsupported signing algorithm", domain.ErrUntrustedIssuerKey)
	}
	return fmt.Errorf("%w: malformed token", domain.ErrUntrustedIssuerKey)
}

func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}
