package board_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stealthnote/internal/board"
	"stealthnote/internal/crypto"
	"stealthnote/internal/domain"
	"stealthnote/internal/protocol/membership"
	"stealthnote/internal/provider"
	"stealthnote/internal/services/identity"
	"stealthnote/internal/services/message"
	"stealthnote/internal/services/registration"
	"stealthnote/internal/services/verifier"
	"stealthnote/internal/store"
	"stealthnote/internal/store/sqlite"
	"stealthnote/internal/testutil"
)

var (
	alice = domain.SessionContext{ID: "alice", Passphrase: "pw"}
	bob   = domain.SessionContext{ID: "bob", Passphrase: "pw"}
)

type env struct {
	srv    *board.Server
	http   *httptest.Server
	client *board.HTTPClient
	msgs   *message.Service
	id     *identity.Manager
	down   atomic.Bool
}

func newEnv(t *testing.T) *env {
	t.Helper()
	iss := testutil.NewIssuer(t)
	reg := iss.Registry(t)
	metrics := board.NewMetrics()
	keys := provider.NewKeyring(reg, provider.NewHTTPKeySource(iss.Server.Client()), nil,
		provider.WithObserver(metrics.ObserveKeyRefresh))
	priv, pub, err := crypto.GenerateEd25519(nil)
	require.NoError(t, err)

	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e := &env{}
	v := verifier.New(reg, membership.NewVerifier(keys, 0, membership.NewAttestedVerifier(pub)), db, nil,
		verifier.WithObserver(metrics.ObserveVerification))
	e.srv = board.NewServer(v, db, reg, metrics, nil, db.Ping, func(context.Context) error {
		if e.down.Load() {
			return errors.New("keys not loaded")
		}
		return nil
	})
	e.http = httptest.NewServer(e.srv.Handler())
	t.Cleanup(e.http.Close)
	e.client = board.NewHTTPClient(e.http.URL)

	id := identity.New(store.NewSessionFileStore(t.TempDir(), store.WithScryptParams(1<<10, 8, 1)), nil)
	prover := membership.NewProver(reg, keys, membership.NewAttested(priv, pub), nil)
	_, err = registration.New(id, &testutil.Tokens{Issuer: iss, Org: "acme.com"}, reg, prover, nil).
		Register(context.Background(), alice, provider.GoogleOAuth)
	require.NoError(t, err)
	_, err = registration.New(id, &testutil.Tokens{Issuer: iss, Org: "globex.com"}, reg, prover, nil).
		Register(context.Background(), bob, provider.GoogleOAuth)
	require.NoError(t, err)
	e.id = id
	e.msgs = message.New(id, e.client, nil)
	return e
}

func TestSubmitAndList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.msgs.Submit(ctx, alice, "hello", false)
	require.NoError(t, err)
	internal, err := e.msgs.Submit(ctx, alice, "just us", true)
	require.NoError(t, err)

	public, err := e.client.ListMessages(ctx, domain.MessageQuery{})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "hello", public[0].Signed.Message.Text)

	inside, err := e.msgs.ListInternal(ctx, alice, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, inside, 1)
	assert.Equal(t, internal.Message.ID, inside[0].Signed.Message.ID)
	assert.NotEmpty(t, inside[0].SenderName)
}

func TestInternalBoard_MembersOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	public, err := e.msgs.Submit(ctx, alice, "hello", false)
	require.NoError(t, err)
	internal, err := e.msgs.Submit(ctx, alice, "just us", true)
	require.NoError(t, err)
	acme := domain.MessageQuery{ProviderID: provider.GoogleOAuth, GroupID: "acme.com", Internal: true}

	_, err = e.client.ListMessages(ctx, acme)
	require.ErrorIs(t, err, domain.ErrMembersOnly)

	// A member of another group holds a valid proof, just not for acme.com.
	kp, proof, err := e.id.Registered(bob)
	require.NoError(t, err)
	auth, err := message.SignRead(kp, proof, time.Now())
	require.NoError(t, err)
	intruder := acme
	intruder.Auth = &auth
	_, err = e.client.ListMessages(ctx, intruder)
	require.ErrorIs(t, err, domain.ErrMembersOnly)

	own, err := e.msgs.ListInternal(ctx, bob, time.Time{}, 0)
	require.NoError(t, err)
	assert.Empty(t, own)

	get := func(id domain.MessageID, header string) int {
		req, err := http.NewRequest(http.MethodGet, e.http.URL+"/messages/"+string(id), nil)
		require.NoError(t, err)
		if header != "" {
			req.Header.Set(board.ReadAuthHeader, header)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusOK, get(public.Message.ID, ""))
	assert.Equal(t, http.StatusForbidden, get(internal.Message.ID, ""))
	assert.Equal(t, http.StatusBadRequest, get(internal.Message.ID, "%%%"))

	b, err := json.Marshal(auth)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(internal.Message.ID, base64.RawURLEncoding.EncodeToString(b)))

	kp, proof, err = e.id.Registered(alice)
	require.NoError(t, err)
	mine, err := message.SignRead(kp, proof, time.Now())
	require.NoError(t, err)
	b, err = json.Marshal(mine)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(internal.Message.ID, base64.RawURLEncoding.EncodeToString(b)))
}

func TestSubmit_TypedErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	signed, err := e.msgs.Compose(alice, "hello", false)
	require.NoError(t, err)

	tampered := signed
	tampered.Message.Text = "goodbye"
	err = e.client.SubmitMessage(ctx, tampered)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
	assert.False(t, domain.IsTransient(err))

	flipped := signed
	flipped.Message.GroupID = "globex.com"
	require.ErrorIs(t, e.client.SubmitMessage(ctx, flipped), domain.ErrGroupMismatch)

	require.NoError(t, e.client.SubmitMessage(ctx, signed))
	require.ErrorIs(t, e.client.SubmitMessage(ctx, signed), domain.ErrDuplicateMessage)
}

func TestSubmit_BadBody(t *testing.T) {
	e := newEnv(t)
	resp, err := http.Post(e.http.URL+"/messages", "application/json", strings.NewReader(`{"nope":1}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"code":"bad_request"`)
}

func TestList_InternalNeedsGroup(t *testing.T) {
	e := newEnv(t)
	resp, err := http.Get(e.http.URL + "/messages?internal=true")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp2, err := http.Get(e.http.URL + "/messages?provider=google&group=ACME.com")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestGroupLookup(t *testing.T) {
	e := newEnv(t)
	info, err := e.client.Group(context.Background(), "google", "acme.com")
	require.NoError(t, err)
	assert.Equal(t, "Acme", info.Group.Title)
	assert.Equal(t, "google", info.Provider)

	_, err = e.client.Group(context.Background(), "google", "ACME.com")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.client.Group(context.Background(), "github", "acme.com")
	require.ErrorIs(t, err, domain.ErrUnknownProvider)
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t)
	_, err := e.msgs.Submit(context.Background(), alice, "hello", false)
	require.NoError(t, err)

	get := func(path string) (int, string) {
		resp, err := http.Get(e.http.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(b)
	}

	code, _ := get("/livez")
	assert.Equal(t, http.StatusOK, code)
	code, _ = get("/readyz")
	assert.Equal(t, http.StatusOK, code)

	e.down.Store(true)
	code, _ = get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	e.down.Store(false)

	e.srv.SetDraining(true)
	code, _ = get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, body := get("/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `stealthnote_verifications_total{result="accepted"} 1`)
	assert.Contains(t, body, `stealthnote_issuer_key_refresh_total{provider="google-oauth",result="ok"}`)
	assert.Contains(t, body, "stealthnote_verify_seconds")
}

func TestClient_UnreachableIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := board.NewHTTPClient(url).SubmitMessage(context.Background(), domain.SignedMessageWithProof{})
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}
