package provider

import (
	"fmt"
	"slices"
	"strings"

	"stealthnote/internal/domain"
)

// Registry is the immutable set of supported providers.
type Registry struct {
	providers map[domain.ProviderID]domain.ProviderConfig
	bySlug    map[string]domain.ProviderID
	directory *Directory
}

// NewRegistry validates configs and builds a registry. dir may be nil.
func NewRegistry(configs []domain.ProviderConfig, dir *Directory) (*Registry, error) {
	r := &Registry{
		providers: make(map[domain.ProviderID]domain.ProviderConfig, len(configs)),
		bySlug:    make(map[string]domain.ProviderID, len(configs)),
		directory: dir,
	}
	for _, c := range configs {
		if c.ID == "" {
			return nil, fmt.Errorf("provider config without id")
		}
		if _, dup := r.providers[c.ID]; dup {
			return nil, fmt.Errorf("duplicate provider %q", c.ID)
		}
		if len(c.Issuers) == 0 || c.OrganizationClaim == "" || c.NonceClaim == "" {
			return nil, fmt.Errorf("provider %q: issuers, organization_claim and nonce_claim are required", c.ID)
		}
		if c.GroupRule != domain.GroupRuleDomain && c.GroupRule != domain.GroupRuleTenant {
			return nil, fmt.Errorf("provider %q: unknown group rule %q", c.ID, c.GroupRule)
		}
		c.Issuers = slices.Clone(c.Issuers)
		r.providers[c.ID] = c
		if c.Slug != "" {
			r.bySlug[c.Slug] = c.ID
		}
	}
	return r, nil
}

// Resolve returns the configuration for id.
func (r *Registry) Resolve(id domain.ProviderID) (domain.ProviderConfig, error) {
	c, ok := r.providers[id]
	if !ok {
		return domain.ProviderConfig{}, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, id)
	}
	c.Issuers = slices.Clone(c.Issuers)
	return c, nil
}

// BySlug resolves a provider by its URL slug, e.g. "google".
func (r *Registry) BySlug(slug string) (domain.ProviderConfig, error) {
	id, ok := r.bySlug[slug]
	if !ok {
		return domain.ProviderConfig{}, fmt.Errorf("%w: slug %q", domain.ErrUnknownProvider, slug)
	}
	return r.Resolve(id)
}

// Providers lists every configured provider, sorted by id.
func (r *Registry) Providers() []domain.ProviderConfig {
	out := make([]domain.ProviderConfig, 0, len(r.providers))
	for _, c := range r.providers {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.ProviderConfig) int { return strings.Compare(string(a.ID), string(b.ID)) })
	return out
}

// DeriveGroup maps an organization claim to its group. It is pure: equal
// inputs always yield the same group.
func (r *Registry) DeriveGroup(id domain.ProviderID, organizationClaim string) (domain.AnonGroup, error) {
	c, err := r.Resolve(id)
	if err != nil {
		return domain.AnonGroup{}, err
	}
	gid, err := NormalizeOrganization(c.GroupRule, organizationClaim)
	if err != nil {
		return domain.AnonGroup{}, err
	}
	return r.describe(c, gid), nil
}

// ValidGroup checks that groupID lies in the provider's group space.
func (r *Registry) ValidGroup(id domain.ProviderID, groupID domain.GroupID) error {
	c, err := r.Resolve(id)
	if err != nil {
		return err
	}
	return validGroup(c, groupID)
}

// Group returns the descriptor for an existing group id.
func (r *Registry) Group(id domain.ProviderID, groupID domain.GroupID) (domain.AnonGroup, error) {
	c, err := r.Resolve(id)
	if err != nil {
		return domain.AnonGroup{}, err
	}
	if err := validGroup(c, groupID); err != nil {
		return domain.AnonGroup{}, err
	}
	return r.describe(c, groupID), nil
}

func validGroup(c domain.ProviderConfig, groupID domain.GroupID) error {
	norm, err := NormalizeOrganization(c.GroupRule, string(groupID))
	if err != nil || norm != groupID {
		return fmt.Errorf("%w: %q is not a %s group", domain.ErrGroupMismatch, groupID, c.ID)
	}
	return nil
}

func (r *Registry) describe(c domain.ProviderConfig, gid domain.GroupID) domain.AnonGroup {
	g := domain.AnonGroup{ID: gid, ProviderID: c.ID}
	if entry, ok := r.directory.Lookup(c.ID, gid); ok {
		g.Title = entry.Title
		g.LogoURL = entry.LogoURL
	}
	if g.Title == "" {
		g.Title = defaultTitle(c.GroupRule, gid)
	}
	if g.LogoURL == "" && c.LogoTemplate != "" {
		g.LogoURL = strings.ReplaceAll(c.LogoTemplate, "{group}", string(gid))
	}
	return g
}

// IssuerAllowed reports whether iss is one of c's issuers. Issuers with a
// tenant placeholder match when the placeholder equals the organization
// claim.
func IssuerAllowed(c domain.ProviderConfig, iss, organizationClaim string) bool {
	for _, want := range c.Issuers {
		if strings.Contains(want, tenantPlaceholder) {
			if organizationClaim != "" && iss == strings.ReplaceAll(want, tenantPlaceholder, organizationClaim) {
				return true
			}
			continue
		}
		if iss == want {
			return true
		}
	}
	return false
}
