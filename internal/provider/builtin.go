package provider

import "stealthnote/internal/domain"

// Built-in provider ids.
const (
	GoogleOAuth    domain.ProviderID = "google-oauth"
	MicrosoftOAuth domain.ProviderID = "microsoft-oauth"
)

// tenantPlaceholder in an issuer is replaced by the token's tenant claim.
const tenantPlaceholder = "{tenantid}"

// Google returns the configuration for Google Workspace sign-in. The "hd"
// claim carries the hosted domain.
func Google(clientID string) domain.ProviderConfig {
	return domain.ProviderConfig{
		ID:                GoogleOAuth,
		Slug:              "google",
		Issuers:           []string{"https://accounts.google.com", "accounts.google.com"},
		Audience:          clientID,
		JWKSURL:           "https://www.googleapis.com/oauth2/v3/certs",
		AuthURL:           "https://accounts.google.com/o/oauth2/v2/auth",
		OrganizationClaim: "hd",
		NonceClaim:        "nonce",
		GroupRule:         domain.GroupRuleDomain,
		LogoTemplate:      "https://www.google.com/s2/favicons?sz=64&domain={group}",
	}
}

// Microsoft returns the configuration for Microsoft Entra sign-in. Groups are
// directory tenants.
func Microsoft(clientID string) domain.ProviderConfig {
	return domain.ProviderConfig{
		ID:                MicrosoftOAuth,
		Slug:              "microsoft",
		Issuers:           []string{"https://login.microsoftonline.com/" + tenantPlaceholder + "/v2.0"},
		Audience:          clientID,
		JWKSURL:           "https://login.microsoftonline.com/common/discovery/v2.0/keys",
		AuthURL:           "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
		OrganizationClaim: "tid",
		NonceClaim:        "nonce",
		GroupRule:         domain.GroupRuleTenant,
	}
}
