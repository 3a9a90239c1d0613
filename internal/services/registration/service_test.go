package registration_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stealthnote/internal/crypto"
	"stealthnote/internal/domain"
	"stealthnote/internal/protocol/binding"
	"stealthnote/internal/protocol/membership"
	"stealthnote/internal/provider"
	"stealthnote/internal/services/identity"
	"stealthnote/internal/services/registration"
	"stealthnote/internal/store"
	"stealthnote/internal/testutil"
)

var sess = domain.SessionContext{ID: "alice", Passphrase: "pw"}

type env struct {
	iss    *testutil.Issuer
	tokens *testutil.Tokens
	id     *identity.Manager
	svc    *registration.Service
}

func newEnv(t *testing.T, org string) *env {
	t.Helper()
	iss := testutil.NewIssuer(t)
	reg := iss.Registry(t)
	keys := provider.NewKeyring(reg, provider.NewHTTPKeySource(iss.Server.Client()), nil)
	priv, pub, err := crypto.GenerateEd25519(nil)
	require.NoError(t, err)
	prover := membership.NewProver(reg, keys, membership.NewAttested(priv, pub), nil)

	id := identity.New(store.NewSessionFileStore(t.TempDir(), store.WithScryptParams(1<<10, 8, 1)), nil)
	tokens := &testutil.Tokens{Issuer: iss, Org: org}
	return &env{iss: iss, tokens: tokens, id: id, svc: registration.New(id, tokens, reg, prover, nil)}
}

func TestRegister_OK(t *testing.T) {
	e := newEnv(t, "acme.com")

	group, err := e.svc.Register(context.Background(), sess, provider.GoogleOAuth)
	require.NoError(t, err)
	assert.Equal(t, domain.GroupID("acme.com"), group.ID)
	assert.Equal(t, "Acme", group.Title)

	kp, proof, err := e.id.Registered(sess)
	require.NoError(t, err)
	assert.Equal(t, binding.BindNonce(kp.PublicKey), proof.PublicInputs.PubkeyCommitment)
	assert.False(t, e.svc.Busy(sess.ID))
}

func TestRegister_UnknownProvider(t *testing.T) {
	e := newEnv(t, "acme.com")
	_, err := e.svc.Register(context.Background(), sess, "github-oauth")
	require.ErrorIs(t, err, domain.ErrUnknownProvider)
	assert.Equal(t, 0, e.tokens.Calls())
}

func TestRegister_Busy(t *testing.T) {
	e := newEnv(t, "acme.com")
	e.tokens.Gate = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := e.svc.Register(context.Background(), sess, provider.GoogleOAuth)
		done <- err
	}()
	require.Eventually(t, func() bool { return e.tokens.Calls() == 1 }, time.Second, 5*time.Millisecond)

	_, err := e.svc.Register(context.Background(), sess, provider.GoogleOAuth)
	require.ErrorIs(t, err, domain.ErrBusy)

	other := domain.SessionContext{ID: "bob", Passphrase: "pw"}
	e.tokens.Gate <- struct{}{}
	require.NoError(t, <-done)

	go func() { e.tokens.Gate <- struct{}{} }()
	_, err = e.svc.Register(context.Background(), other, provider.GoogleOAuth)
	require.NoError(t, err, "other sessions are not blocked")
}

func TestRegister_DiscardCancels(t *testing.T) {
	e := newEnv(t, "acme.com")
	e.tokens.Gate = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := e.svc.Register(context.Background(), sess, provider.GoogleOAuth)
		done <- err
	}()
	require.Eventually(t, func() bool { return e.tokens.Calls() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, e.svc.Discard(sess))
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("registration did not stop after discard")
	}

	st, err := e.id.State(sess)
	require.NoError(t, err)
	assert.Equal(t, domain.Unregistered, st.Status)
	assert.Nil(t, st.Key)
	assert.Nil(t, st.Proof)
}

func TestRegister_FailureResetsIdentity(t *testing.T) {
	e := newEnv(t, "acme.com")
	e.tokens.Edit = func(c jwt.MapClaims) { c["nonce"] = "not-the-commitment" }

	_, err := e.svc.Register(context.Background(), sess, provider.GoogleOAuth)
	require.ErrorIs(t, err, domain.ErrNonceMismatch)

	st, err := e.id.State(sess)
	require.NoError(t, err)
	assert.Equal(t, domain.Unregistered, st.Status)

	e.tokens.Edit = nil
	_, err = e.svc.Register(context.Background(), sess, provider.GoogleOAuth)
	require.NoError(t, err)
}

func TestRegister_RefreshIsUnlinkable(t *testing.T) {
	e := newEnv(t, "acme.com")

	_, err := e.svc.Register(context.Background(), sess, provider.GoogleOAuth)
	require.NoError(t, err)
	kp1, p1, err := e.id.Registered(sess)
	require.NoError(t, err)

	_, err = e.svc.Register(context.Background(), sess, provider.GoogleOAuth)
	require.NoError(t, err)
	kp2, p2, err := e.id.Registered(sess)
	require.NoError(t, err)

	assert.NotEqual(t, kp1.PublicKey, kp2.PublicKey)
	assert.NotEqual(t, p1.PublicInputs.PubkeyCommitment, p2.PublicInputs.PubkeyCommitment)
	assert.NotEqual(t, p1.Proof, p2.Proof)
	assert.Equal(t, p1.PublicInputs.GroupID, p2.PublicInputs.GroupID)
}

func TestRegister_RecoversInterruptedRun(t *testing.T) {
	e := newEnv(t, "acme.com")
	_, _, err := e.id.Begin(sess)
	require.NoError(t, err)

	_, err = e.svc.Register(context.Background(), sess, provider.GoogleOAuth)
	require.NoError(t, err)
}
