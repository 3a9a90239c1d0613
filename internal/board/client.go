package board

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stealthnote/internal/domain"
)

// HTTPClient talks to a board over HTTP.
type HTTPClient struct {
	Base string
	HTTP *http.Client
}

// NewHTTPClient returns a client for the board at base.
func NewHTTPClient(base string) *HTTPClient {
	return &HTTPClient{
		Base: strings.TrimRight(base, "/"),
		HTTP: &http.Client{Timeout: 30 * time.Second},
	}
}

// SubmitMessage posts a signed message for verification and storage.
func (c *HTTPClient) SubmitMessage(ctx context.Context, signed domain.SignedMessageWithProof) error {
	return c.post(ctx, "/messages", signed, nil)
}

// ListMessages fetches messages matching q, newest first.
func (c *HTTPClient) ListMessages(ctx context.Context, q domain.MessageQuery) ([]domain.BoardMessage, error) {
	v := url.Values{}
	if q.ProviderID != "" {
		v.Set("provider", string(q.ProviderID))
	}
	if q.GroupID != "" {
		v.Set("group", string(q.GroupID))
	}
	if q.Internal {
		v.Set("internal", "true")
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if !q.Before.IsZero() {
		v.Set("before", q.Before.UTC().Format(time.RFC3339Nano))
	}
	path := "/messages"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return nil, err
	}
	if q.Auth != nil {
		b, err := json.Marshal(q.Auth)
		if err != nil {
			return nil, err
		}
		req.Header.Set(ReadAuthHeader, base64.RawURLEncoding.EncodeToString(b))
	}
	var out []domain.BoardMessage
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Group looks up a group's public descriptor by provider slug.
func (c *HTTPClient) Group(ctx context.Context, slug string, id domain.GroupID) (GroupInfo, error) {
	var out GroupInfo
	err := c.getJSON(ctx, "/groups/"+url.PathEscape(slug)+"/"+url.PathEscape(string(id)), &out)
	return out, err
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return domain.Transient(fmt.Errorf("board %s %s: %w", req.Method, req.URL.Path, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return decodeError(req, resp)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// decodeError rebuilds the typed error from the board's error body.
func decodeError(req *http.Request, resp *http.Response) error {
	var body errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &body)

	err := fmt.Errorf("board %s %s: %s", req.Method, req.URL.Path, resp.Status)
	if body.Error != "" {
		err = fmt.Errorf("board %s %s: %s", req.Method, req.URL.Path, body.Error)
	}
	if sentinel := domain.FromCode(body.Code); sentinel != nil {
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return domain.Transient(err)
	}
	return err
}

// Compile-time assertion that HTTPClient implements domain.BoardClient.
var _ domain.BoardClient = (*HTTPClient)(nil)
