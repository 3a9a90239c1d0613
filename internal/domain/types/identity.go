package types

import (
	"crypto"
	"time"
)

// EphemeralKeyPair is the signing key for one identity epoch. Only the public
// half is ever disclosed, and only through commitments and signatures.
type EphemeralKeyPair struct {
	PublicKey  EphemeralPublic  `json:"public_key"`
	PrivateKey EphemeralPrivate `json:"private_key"`
	CreatedAt  time.Time        `json:"created_at"`
}

// GroupRule selects how an organization claim becomes a group id.
type GroupRule string

const (
	// GroupRuleDomain maps an email domain to its registrable domain.
	GroupRuleDomain GroupRule = "domain"
	// GroupRuleTenant maps a directory tenant UUID to its canonical form.
	GroupRuleTenant GroupRule = "tenant"
)

// ProviderConfig describes one supported identity provider.
type ProviderConfig struct {
	ID                ProviderID `yaml:"id"`
	Slug              string     `yaml:"slug"`
	Issuers           []string   `yaml:"issuers"`
	Audience          string     `yaml:"audience"`
	JWKSURL           string     `yaml:"jwks_url"`
	AuthURL           string     `yaml:"auth_url"`
	OrganizationClaim string     `yaml:"organization_claim"`
	NonceClaim        string     `yaml:"nonce_claim"`
	GroupRule         GroupRule  `yaml:"group_rule"`
	LogoTemplate      string     `yaml:"logo_template"`
}

// IssuerKey is one token-signing key published by an issuer.
type IssuerKey struct {
	ID        string
	Algorithm string
	Key       crypto.PublicKey
}

// IssuerKeySet is a provider's published key set at a point in time.
type IssuerKeySet struct {
	Provider  ProviderID
	Keys      []IssuerKey
	FetchedAt time.Time
}

// Lookup returns the key with the given id.
func (s IssuerKeySet) Lookup(kid string) (IssuerKey, bool) {
	for _, k := range s.Keys {
		if k.ID == kid {
			return k, true
		}
	}
	return IssuerKey{}, false
}

// AnonGroup is the public descriptor of an organization-derived anonymity set.
type AnonGroup struct {
	ID         GroupID    `json:"id" yaml:"id"`
	Title      string     `json:"title" yaml:"title"`
	LogoURL    string     `json:"logo_url,omitempty" yaml:"logo_url"`
	ProviderID ProviderID `json:"provider_id" yaml:"provider_id"`
}
