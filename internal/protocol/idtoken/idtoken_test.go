package idtoken_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stealthnote/internal/crypto"
	"stealthnote/internal/domain"
	"stealthnote/internal/protocol/binding"
	"stealthnote/internal/protocol/idtoken"
	"stealthnote/internal/provider"
	"stealthnote/internal/testutil"
)

type fixture struct {
	iss  *testutil.Issuer
	keys domain.IssuerKeySet
	pub  domain.EphemeralPublic
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	iss := testutil.NewIssuer(t)
	keys, err := provider.NewHTTPKeySource(iss.Server.Client()).FetchKeys(context.Background(), iss.Provider)
	require.NoError(t, err)
	_, pub, err := crypto.GenerateEphemeral(nil)
	require.NoError(t, err)
	return fixture{iss: iss, keys: keys, pub: pub}
}

func TestValidate_OK(t *testing.T) {
	f := newFixture(t)
	raw := f.iss.Token(t, "acme.com", binding.BindNonce(f.pub))

	c, err := idtoken.Validate(raw, f.iss.Provider, f.keys, f.pub, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "acme.com", c.Organization)
	assert.Equal(t, f.iss.KeyID(), c.KeyID)
	assert.Equal(t, f.iss.KeyID(), idtoken.KeyID(raw))
}

func TestValidate_NonceMismatch(t *testing.T) {
	f := newFixture(t)
	_, other, err := crypto.GenerateEphemeral(nil)
	require.NoError(t, err)
	raw := f.iss.Token(t, "acme.com", binding.BindNonce(other))

	_, err = idtoken.Validate(raw, f.iss.Provider, f.keys, f.pub, time.Now())
	require.ErrorIs(t, err, domain.ErrNonceMismatch)
}

func TestValidate_Expired(t *testing.T) {
	f := newFixture(t)
	claims := f.iss.Claims("acme.com", binding.BindNonce(f.pub))
	claims["exp"] = time.Now().Add(-time.Minute).Unix()
	raw := f.iss.Mint(t, claims)

	_, err := idtoken.Validate(raw, f.iss.Provider, f.keys, f.pub, time.Now())
	require.ErrorIs(t, err, domain.ErrExpiredToken)
}

func TestValidate_ExpiredWinsOverBadSignature(t *testing.T) {
	f := newFixture(t)
	stranger, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	claims := f.iss.Claims("acme.com", binding.BindNonce(f.pub))
	claims["exp"] = time.Now().Add(-time.Minute).Unix()

	for name, kid := range map[string]string{"published kid": f.iss.KeyID(), "unknown kid": "rogue"} {
		raw := testutil.MintWith(t, stranger, kid, claims)
		_, err = idtoken.Validate(raw, f.iss.Provider, f.keys, f.pub, time.Now())
		require.ErrorIs(t, err, domain.ErrExpiredToken, name)
	}
}

func TestValidate_UnknownKeyID(t *testing.T) {
	f := newFixture(t)
	stranger, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	raw := testutil.MintWith(t, stranger, "rogue", f.iss.Claims("acme.com", binding.BindNonce(f.pub)))

	_, err = idtoken.Validate(raw, f.iss.Provider, f.keys, f.pub, time.Now())
	require.ErrorIs(t, err, domain.ErrUntrustedIssuerKey)
}

func TestValidate_ForgedWithKnownKeyID(t *testing.T) {
	f := newFixture(t)
	stranger, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	raw := testutil.MintWith(t, stranger, f.iss.KeyID(), f.iss.Claims("acme.com", binding.BindNonce(f.pub)))

	_, err = idtoken.Validate(raw, f.iss.Provider, f.keys, f.pub, time.Now())
	require.ErrorIs(t, err, domain.ErrUntrustedIssuerKey)
}

func TestValidate_WrongIssuerOrAudience(t *testing.T) {
	f := newFixture(t)
	claims := f.iss.Claims("acme.com", binding.BindNonce(f.pub))
	claims["iss"] = "https://evil.example.com"
	_, err := idtoken.Validate(f.iss.Mint(t, claims), f.iss.Provider, f.keys, f.pub, time.Now())
	require.ErrorIs(t, err, domain.ErrUntrustedIssuerKey)

	claims = f.iss.Claims("acme.com", binding.BindNonce(f.pub))
	claims["aud"] = "someone-else"
	_, err = idtoken.Validate(f.iss.Mint(t, claims), f.iss.Provider, f.keys, f.pub, time.Now())
	require.ErrorIs(t, err, domain.ErrUntrustedIssuerKey)
}

func TestValidate_Garbage(t *testing.T) {
	f := newFixture(t)
	for _, raw := range []string{"", "abc", "a.b.c"} {
		_, err := idtoken.Validate(raw, f.iss.Provider, f.keys, f.pub, time.Now())
		require.ErrorIs(t, err, domain.ErrUntrustedIssuerKey, raw)
	}
}

func TestValidate_MissingOrganization(t *testing.T) {
	f := newFixture(t)
	claims := f.iss.Claims("acme.com", binding.BindNonce(f.pub))
	delete(claims, "hd")
	_, err := idtoken.Validate(f.iss.Mint(t, claims), f.iss.Provider, f.keys, f.pub, time.Now())
	require.ErrorIs(t, err, domain.ErrInvalidOrganization)
}
