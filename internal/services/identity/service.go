package identity

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"stealthnote/internal/crypto"
	"stealthnote/internal/domain"
)

// Manager holds at most one ephemeral key per session.
type Manager struct {
	store domain.SessionStore
	rand  io.Reader
	now   func() time.Time
	log   *slog.Logger

	// mu serialises load-modify-save cycles on the store.
	mu sync.Mutex
}

// New returns a manager backed by the given store. log may be nil.
func New(s domain.SessionStore, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: s, now: time.Now, log: log}
}

// WithRand sets the entropy source used for key generation and returns m.
func (m *Manager) WithRand(r io.Reader) *Manager {
	m.rand = r
	return m
}

// Generate replaces the session's key with a fresh one. Any registration is
// dropped with the old key.
func (m *Manager) Generate(sess domain.SessionContext) (domain.EphemeralKeyPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.load(sess)
	if err != nil {
		return domain.EphemeralKeyPair{}, err
	}
	kp, err := m.newKey()
	if err != nil {
		return domain.EphemeralKeyPair{}, err
	}
	st = domain.SessionState{Status: domain.Unregistered, Generation: st.Generation + 1, Key: &kp}
	if err := m.store.SaveSession(sess, st); err != nil {
		return domain.EphemeralKeyPair{}, err
	}
	return kp, nil
}

// Begin starts a registration: it generates a new key and moves the session
// to Registering. It returns the key and the generation the caller must pass
// to Complete or Fail.
func (m *Manager) Begin(sess domain.SessionContext) (domain.EphemeralKeyPair, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.load(sess)
	if err != nil {
		return domain.EphemeralKeyPair{}, 0, err
	}
	if st.Status == domain.Registering {
		return domain.EphemeralKeyPair{}, 0, fmt.Errorf("%w: already registering", domain.ErrInvalidTransition)
	}
	kp, err := m.newKey()
	if err != nil {
		return domain.EphemeralKeyPair{}, 0, err
	}
	st = domain.SessionState{Status: domain.Registering, Generation: st.Generation + 1, Key: &kp}
	if err := m.store.SaveSession(sess, st); err != nil {
		return domain.EphemeralKeyPair{}, 0, err
	}
	m.log.Debug("registration started", "generation", st.Generation)
	return kp, st.Generation, nil
}

// Complete records a successful registration for generation.
func (m *Manager) Complete(sess domain.SessionContext, generation uint64, proof domain.MembershipProof) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.expect(sess, generation)
	if err != nil {
		return err
	}
	st.Status = domain.Registered
	st.ProviderID = proof.PublicInputs.ProviderID
	st.GroupID = proof.PublicInputs.GroupID
	st.Proof = &proof
	return m.store.SaveSession(sess, st)
}

// Fail abandons the registration for generation and drops its key.
func (m *Manager) Fail(sess domain.SessionContext, generation uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.expect(sess, generation)
	if err != nil {
		return err
	}
	return m.store.SaveSession(sess, domain.SessionState{Status: domain.Unregistered, Generation: st.Generation})
}

// Discard drops the key and any registration. Signatures already made with
// the key stay verifiable; nothing can sign with it again.
func (m *Manager) Discard(sess domain.SessionContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.load(sess)
	if err != nil {
		return err
	}
	if st.Key != nil {
		crypto.Wipe(st.Key.PrivateKey[:])
	}
	return m.store.SaveSession(sess, domain.SessionState{Status: domain.Unregistered, Generation: st.Generation + 1})
}

// Current returns the session's key, if it has one.
func (m *Manager) Current(sess domain.SessionContext) (domain.EphemeralKeyPair, bool, error) {
	st, err := m.State(sess)
	if err != nil || st.Key == nil {
		return domain.EphemeralKeyPair{}, false, err
	}
	return *st.Key, true, nil
}

// State returns the persisted state. A session never seen is Unregistered.
func (m *Manager) State(sess domain.SessionContext) (domain.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(sess)
}

// Registered returns the key and proof of a registered session.
func (m *Manager) Registered(sess domain.SessionContext) (domain.EphemeralKeyPair, domain.MembershipProof, error) {
	st, err := m.State(sess)
	if err != nil {
		return domain.EphemeralKeyPair{}, domain.MembershipProof{}, err
	}
	if st.Status != domain.Registered || st.Key == nil || st.Proof == nil {
		return domain.EphemeralKeyPair{}, domain.MembershipProof{}, domain.ErrNotRegistered
	}
	return *st.Key, *st.Proof, nil
}

func (m *Manager) load(sess domain.SessionContext) (domain.SessionState, error) {
	st, ok, err := m.store.LoadSession(sess)
	if err != nil {
		return domain.SessionState{}, err
	}
	if !ok {
		return domain.SessionState{Status: domain.Unregistered}, nil
	}
	return st, nil
}

func (m *Manager) expect(sess domain.SessionContext, generation uint64) (domain.SessionState, error) {
	st, err := m.load(sess)
	if err != nil {
		return domain.SessionState{}, err
	}
	if st.Status != domain.Registering || st.Generation != generation {
		return domain.SessionState{}, fmt.Errorf("%w: %s at generation %d, want registering at %d",
			domain.ErrInvalidTransition, st.Status, st.Generation, generation)
	}
	return st, nil
}

func (m *Manager) newKey() (domain.EphemeralKeyPair, error) {
	priv, pub, err := crypto.GenerateEphemeral(m.rand)
	if err != nil {
		return domain.EphemeralKeyPair{}, err
	}
	return domain.EphemeralKeyPair{PublicKey: pub, PrivateKey: priv, CreatedAt: m.now().UTC()}, nil
}

// Compile-time assertion that Manager implements domain.IdentityManager.
var _ domain.IdentityManager = (*Manager)(nil)
