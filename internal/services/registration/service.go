package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"stealthnote/internal/domain"
	"stealthnote/internal/protocol/binding"
	"stealthnote/internal/provider"
	"stealthnote/internal/services/identity"
)

// Service registers sessions with an identity provider.
type Service struct {
	identity *identity.Manager
	tokens   domain.TokenSource
	registry *provider.Registry
	prover   domain.MembershipProver
	log      *slog.Logger

	mu       sync.Mutex
	inflight map[domain.SessionID]context.CancelFunc
}

// New constructs a registration service. log may be nil.
func New(
	id *identity.Manager,
	tokens domain.TokenSource,
	reg *provider.Registry,
	prover domain.MembershipProver,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		identity: id,
		tokens:   tokens,
		registry: reg,
		prover:   prover,
		log:      log,
		inflight: make(map[domain.SessionID]context.CancelFunc),
	}
}

// Register generates a new key for sess and proves membership with
// providerID. A session that is already registered is refreshed: its old
// key is replaced and cannot be linked to the new one. A second call for
// the same session while one is running returns ErrBusy.
func (s *Service) Register(
	ctx context.Context,
	sess domain.SessionContext,
	providerID domain.ProviderID,
) (domain.AnonGroup, error) {
	cfg, err := s.registry.Resolve(providerID)
	if err != nil {
		return domain.AnonGroup{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !s.claim(sess.ID, cancel) {
		return domain.AnonGroup{}, domain.ErrBusy
	}
	defer s.release(sess.ID)

	// Nothing runs for this session in this process, so a persisted
	// Registering state was left by an interrupted run.
	if st, err := s.identity.State(sess); err != nil {
		return domain.AnonGroup{}, err
	} else if st.Status == domain.Registering {
		s.log.Info("discarding interrupted registration", "generation", st.Generation)
		if err := s.identity.Discard(sess); err != nil {
			return domain.AnonGroup{}, err
		}
	}

	kp, gen, err := s.identity.Begin(sess)
	if err != nil {
		return domain.AnonGroup{}, err
	}
	log := s.log.With("provider", string(providerID), "generation", gen)
	log.Info("registration started")

	fail := func(err error) (domain.AnonGroup, error) {
		if ferr := s.identity.Fail(sess, gen); ferr != nil && !errors.Is(ferr, domain.ErrInvalidTransition) {
			log.Warn("could not reset identity after failed registration", "err", ferr)
		}
		log.Info("registration failed", "code", domain.Code(err))
		return domain.AnonGroup{}, err
	}

	nonce := binding.BindNonce(kp.PublicKey)
	token, err := s.tokens.AcquireToken(ctx, cfg, nonce)
	if err != nil {
		return fail(fmt.Errorf("acquire token: %w", err))
	}
	proof, err := s.prover.Prove(ctx, token, providerID, kp.PublicKey)
	if err != nil {
		return fail(err)
	}
	group, err := s.registry.Group(providerID, proof.PublicInputs.GroupID)
	if err != nil {
		return fail(err)
	}
	if err := s.identity.Complete(sess, gen, proof); err != nil {
		// The key was discarded while proving; the proof is for a key nobody holds.
		if errors.Is(err, domain.ErrInvalidTransition) {
			log.Info("registration result dropped for discarded key")
			return domain.AnonGroup{}, fmt.Errorf("%w: %w", domain.ErrProofGeneration, context.Canceled)
		}
		return domain.AnonGroup{}, err
	}
	log.Info("registration complete", "group_id", string(group.ID))
	return group, nil
}

// Discard cancels any registration in flight for sess and drops its key.
func (s *Service) Discard(sess domain.SessionContext) error {
	s.mu.Lock()
	if cancel, ok := s.inflight[sess.ID]; ok {
		cancel()
	}
	s.mu.Unlock()
	return s.identity.Discard(sess)
}

// Busy reports whether a registration is running for id.
func (s *Service) Busy(id domain.SessionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[id]
	return ok
}

func (s *Service) claim(id domain.SessionID, cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return false
	}
	s.inflight[id] = cancel
	return true
}

func (s *Service) release(id domain.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}

// Compile-time assertion that Service implements domain.RegistrationService.
var _ domain.RegistrationService = (*Service)(nil)
