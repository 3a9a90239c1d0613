package identity_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stealthnote/internal/domain"
	"stealthnote/internal/protocol/binding"
	"stealthnote/internal/services/identity"
	"stealthnote/internal/store"
)

var sess = domain.SessionContext{ID: "test", Passphrase: "correct horse"}

func newManager(t *testing.T) *identity.Manager {
	t.Helper()
	s := store.NewSessionFileStore(t.TempDir(), store.WithScryptParams(1<<10, 8, 1))
	return identity.New(s, nil)
}

func proofFor(kp domain.EphemeralKeyPair) domain.MembershipProof {
	return domain.MembershipProof{
		Backend: "attested",
		PublicInputs: domain.ProofPublicInputs{
			GroupID:          "acme.com",
			ProviderID:       "google-oauth",
			PubkeyCommitment: binding.BindNonce(kp.PublicKey),
		},
	}
}

func TestLifecycle(t *testing.T) {
	m := newManager(t)

	st, err := m.State(sess)
	require.NoError(t, err)
	assert.Equal(t, domain.Unregistered, st.Status)

	kp, gen, err := m.Begin(sess)
	require.NoError(t, err)
	st, err = m.State(sess)
	require.NoError(t, err)
	assert.Equal(t, domain.Registering, st.Status)

	require.NoError(t, m.Complete(sess, gen, proofFor(kp)))
	gotKey, proof, err := m.Registered(sess)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey, gotKey.PublicKey)
	assert.Equal(t, domain.GroupID("acme.com"), proof.PublicInputs.GroupID)

	require.NoError(t, m.Discard(sess))
	_, ok, err := m.Current(sess)
	require.NoError(t, err)
	assert.False(t, ok)
	_, _, err = m.Registered(sess)
	require.ErrorIs(t, err, domain.ErrNotRegistered)
}

func TestBegin_WhileRegistering(t *testing.T) {
	m := newManager(t)
	_, _, err := m.Begin(sess)
	require.NoError(t, err)
	_, _, err = m.Begin(sess)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestComplete_StaleGeneration(t *testing.T) {
	m := newManager(t)
	kp, gen, err := m.Begin(sess)
	require.NoError(t, err)
	require.NoError(t, m.Discard(sess))

	err = m.Complete(sess, gen, proofFor(kp))
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	err = m.Fail(sess, gen)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	st, err := m.State(sess)
	require.NoError(t, err)
	assert.Equal(t, domain.Unregistered, st.Status)
	assert.Nil(t, st.Key)
}

func TestComplete_WithoutBegin(t *testing.T) {
	m := newManager(t)
	kp, err := m.Generate(sess)
	require.NoError(t, err)
	st, err := m.State(sess)
	require.NoError(t, err)
	require.ErrorIs(t, m.Complete(sess, st.Generation, proofFor(kp)), domain.ErrInvalidTransition)
}

func TestFail_DropsKey(t *testing.T) {
	m := newManager(t)
	_, gen, err := m.Begin(sess)
	require.NoError(t, err)
	require.NoError(t, m.Fail(sess, gen))

	st, err := m.State(sess)
	require.NoError(t, err)
	assert.Equal(t, domain.Unregistered, st.Status)
	assert.Nil(t, st.Key)

	_, _, err = m.Begin(sess)
	require.NoError(t, err, "a failed registration can be retried")
}

func TestGenerate_ReplacesKey(t *testing.T) {
	m := newManager(t)
	first, err := m.Generate(sess)
	require.NoError(t, err)
	second, err := m.Generate(sess)
	require.NoError(t, err)
	assert.NotEqual(t, first.PublicKey, second.PublicKey)

	cur, ok, err := m.Current(sess)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.PublicKey, cur.PublicKey)
}

func TestRefresh_IsUnlinkable(t *testing.T) {
	m := newManager(t)
	kp1, gen, err := m.Begin(sess)
	require.NoError(t, err)
	require.NoError(t, m.Complete(sess, gen, proofFor(kp1)))

	kp2, _, err := m.Begin(sess)
	require.NoError(t, err)
	assert.NotEqual(t, kp1.PublicKey, kp2.PublicKey)
	assert.NotEqual(t, binding.BindNonce(kp1.PublicKey), binding.BindNonce(kp2.PublicKey))
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestGenerate_EntropyFailure(t *testing.T) {
	m := newManager(t).WithRand(brokenReader{})
	_, err := m.Generate(sess)
	require.ErrorIs(t, err, domain.ErrEntropy)
	_, _, err = m.Begin(sess)
	require.ErrorIs(t, err, domain.ErrEntropy)

	st, err := m.State(sess)
	require.NoError(t, err)
	assert.Equal(t, domain.Unregistered, st.Status)
}

func TestState_WrongPassphrase(t *testing.T) {
	m := newManager(t)
	_, err := m.Generate(sess)
	require.NoError(t, err)
	_, err = m.State(domain.SessionContext{ID: sess.ID, Passphrase: "nope"})
	require.ErrorIs(t, err, store.ErrWrongPassphrase)
}
