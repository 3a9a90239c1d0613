// Package testutil provides a fake identity provider for tests: an RSA
// issuer that serves its JWKS over httptest and mints signed id tokens.
package testutil
