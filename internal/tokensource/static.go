package tokensource

import (
	"context"
	"errors"
	"strings"

	"stealthnote/internal/domain"
)

// Static hands out one fixed token. The token must already carry the nonce
// of the key being registered; otherwise proving fails with
// domain.ErrNonceMismatch.
type Static struct {
	Token string
}

// AcquireToken implements domain.TokenSource.
func (s Static) AcquireToken(ctx context.Context, _ domain.ProviderConfig, _ domain.PubkeyCommitment) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok := strings.TrimSpace(s.Token)
	if tok == "" {
		return "", errors.New("no identity token configured")
	}
	return tok, nil
}

var _ domain.TokenSource = Static{}
