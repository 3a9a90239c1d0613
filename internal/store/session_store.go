package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"stealthnote/internal/domain"
)

const (
	sessionsDir       = "sessions"
	sessionFileSuffix = ".json.enc"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ErrBadSessionID is returned for ids that cannot be used as file names.
var ErrBadSessionID = errors.New("session id must be 1-64 letters, digits, '-' or '_'")

// SessionFileStore persists per-session identity state, one sealed file per
// session.
type SessionFileStore struct {
	dir    string
	params scryptParams
	mu     sync.Mutex
}

// Option configures a SessionFileStore.
type Option func(*SessionFileStore)

// WithScryptParams overrides the key derivation cost for newly written
// sessions. Tests use it to keep runs fast.
func WithScryptParams(n, r, p int) Option {
	return func(s *SessionFileStore) { s.params = scryptParams{N: n, R: r, P: p} }
}

// NewSessionFileStore returns a SessionFileStore rooted at dir.
func NewSessionFileStore(dir string, opts ...Option) *SessionFileStore {
	s := &SessionFileStore{dir: dir, params: scryptParamsDefault()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveSession seals state with the session passphrase and writes it.
func (s *SessionFileStore) SaveSession(sess domain.SessionContext, state domain.SessionState) error {
	path, err := s.path(sess.ID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	blob, err := sealSession(sess.Passphrase, sess.ID, raw, s.params)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return writeFile(path, blob, 0o600)
}

// LoadSession reads and opens the session's state. A missing session is
// reported with ok == false.
func (s *SessionFileStore) LoadSession(sess domain.SessionContext) (domain.SessionState, bool, error) {
	path, err := s.path(sess.ID)
	if err != nil {
		return domain.SessionState{}, false, err
	}

	s.mu.Lock()
	blob, err := readFile(path)
	s.mu.Unlock()
	if err != nil {
		return domain.SessionState{}, false, err
	}
	if blob == nil {
		return domain.SessionState{}, false, nil
	}

	raw, err := openSession(sess.Passphrase, sess.ID, blob)
	if err != nil {
		return domain.SessionState{}, false, fmt.Errorf("session %s: %w", sess.ID, err)
	}
	var st domain.SessionState
	if err := json.Unmarshal(raw, &st); err != nil {
		return domain.SessionState{}, false, fmt.Errorf("session %s: %w", sess.ID, err)
	}
	return st, true, nil
}

// DeleteSession removes the session file. Deleting a missing session is
// not an error.
func (s *SessionFileStore) DeleteSession(sess domain.SessionContext) error {
	path, err := s.path(sess.ID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *SessionFileStore) path(id domain.SessionID) (string, error) {
	if !sessionIDPattern.MatchString(string(id)) {
		return "", fmt.Errorf("%w: %q", ErrBadSessionID, id)
	}
	return filepath.Join(s.dir, sessionsDir, string(id)+sessionFileSuffix), nil
}

// Compile-time assertion that SessionFileStore implements domain.SessionStore.
var _ domain.SessionStore = (*SessionFileStore)(nil)
