package tokensource

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"stealthnote/internal/domain"
)

// Prompt runs the implicit OpenID flow by hand: it prints the authorization
// URL and reads the id_token pasted on In.
type Prompt struct {
	In          io.Reader
	Out         io.Writer
	RedirectURL string
}

// AuthURL builds the authorization request for p with nonce bound into it.
func AuthURL(p domain.ProviderConfig, redirect string, nonce domain.PubkeyCommitment) (string, error) {
	if p.AuthURL == "" {
		return "", fmt.Errorf("provider %s has no authorization endpoint", p.ID)
	}
	u, err := url.Parse(p.AuthURL)
	if err != nil {
		return "", fmt.Errorf("provider %s auth url: %w", p.ID, err)
	}
	q := u.Query()
	q.Set("client_id", p.Audience)
	q.Set("response_type", "id_token")
	q.Set("scope", "openid email")
	q.Set("nonce", string(nonce))
	q.Set("prompt", "select_account")
	if redirect != "" {
		q.Set("redirect_uri", redirect)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// AcquireToken implements domain.TokenSource. A pasted redirect URL is
// accepted as well as a bare token.
func (p *Prompt) AcquireToken(ctx context.Context, cfg domain.ProviderConfig, nonce domain.PubkeyCommitment) (string, error) {
	link, err := AuthURL(cfg, p.RedirectURL, nonce)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(p.Out, "Sign in with %s:\n\n  %s\n\nPaste the id_token (or the full redirect URL): ", cfg.Slug, link)

	type result struct {
		line string
		err  error
	}
	// The read cannot be interrupted; on cancel the goroutine stays parked
	// on In until it yields a line or EOF.
	ch := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		if errors.Is(err, io.EOF) && line != "" {
			err = nil
		}
		ch <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return "", fmt.Errorf("read token: %w", r.err)
		}
		tok := extract(strings.TrimSpace(r.line))
		if tok == "" {
			return "", errors.New("no identity token entered")
		}
		return tok, nil
	}
}

// extract pulls id_token out of a redirect URL fragment or query, or returns
// s unchanged.
func extract(s string) string {
	if !strings.Contains(s, "id_token=") {
		return s
	}
	_, rest, _ := strings.Cut(s, "#")
	if rest == "" {
		if u, err := url.Parse(s); err == nil {
			rest = u.RawQuery
		}
	}
	v, err := url.ParseQuery(rest)
	if err != nil {
		return ""
	}
	return v.Get("id_token")
}

var _ domain.TokenSource = (*Prompt)(nil)
