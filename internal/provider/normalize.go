package provider

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"stealthnote/internal/domain"
)

// NormalizeOrganization applies rule to an organization claim.
func NormalizeOrganization(rule domain.GroupRule, claim string) (domain.GroupID, error) {
	switch rule {
	case domain.GroupRuleDomain:
		d, err := normalizeDomain(claim)
		return domain.GroupID(d), err
	case domain.GroupRuleTenant:
		t, err := normalizeTenant(claim)
		return domain.GroupID(t), err
	default:
		return "", fmt.Errorf("%w: unknown group rule %q", domain.ErrInvalidOrganization, rule)
	}
}

func normalizeDomain(claim string) (string, error) {
	s := strings.TrimSpace(claim)
	if at := strings.LastIndex(s, "@"); at >= 0 {
		s = s[at+1:]
	}
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return "", fmt.Errorf("%w: empty domain", domain.ErrInvalidOrganization)
	}
	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidOrganization, err)
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(ascii)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidOrganization, err)
	}
	return registrable, nil
}

func normalizeTenant(claim string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(claim))
	if err != nil {
		return "", fmt.Errorf("%w: tenant id: %v", domain.ErrInvalidOrganization, err)
	}
	return id.String(), nil
}

// defaultTitle derives a display title when the directory has none.
func defaultTitle(rule domain.GroupRule, id domain.GroupID) string {
	if rule == domain.GroupRuleTenant {
		s := string(id)
		if len(s) > 8 {
			s = s[:8]
		}
		return "Tenant " + s
	}
	label, _, _ := strings.Cut(string(id), ".")
	if u, err := idna.ToUnicode(label); err == nil {
		label = u
	}
	return cases.Title(language.Und).String(label)
}
