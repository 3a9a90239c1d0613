package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stealthnote/internal/crypto"
	"stealthnote/internal/domain"
	"stealthnote/internal/protocol/binding"
	"stealthnote/internal/protocol/canonical"
	"stealthnote/internal/protocol/membership"
	"stealthnote/internal/provider"
	"stealthnote/internal/services/message"
)

// ResultAccepted is the result label of a successful verification.
const ResultAccepted = "accepted"

// ReadSkew bounds how far a read authorization's time may sit from the
// board clock.
const ReadSkew = 5 * time.Minute

// Observer is told the outcome of every verification: ResultAccepted or
// the error's domain.Code.
type Observer func(result string, elapsed time.Duration)

// Service verifies and accepts submissions.
type Service struct {
	registry *provider.Registry
	proofs   *membership.Verifier
	store    domain.MessageStore
	gate     domain.SubmissionGate
	observe  Observer
	now      func() time.Time
	log      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithGate installs a submission gate consulted after verification.
func WithGate(g domain.SubmissionGate) Option { return func(s *Service) { s.gate = g } }

// WithObserver installs a verification observer.
func WithObserver(o Observer) Option { return func(s *Service) { s.observe = o } }

// WithClock overrides the time source used for ReceivedAt.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// New constructs a verifier. store may be nil when only Verify is used.
func New(reg *provider.Registry, proofs *membership.Verifier, store domain.MessageStore, log *slog.Logger, opts ...Option) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{registry: reg, proofs: proofs, store: store, now: time.Now, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify returns nil if signed is acceptable. Checks run in a fixed order
// and the first failure is returned:
//
//  1. the proof names a known provider and a group in its space, and the
//     message claims that same provider and group;
//  2. the membership proof verifies;
//  3. the signature recovers a key whose commitment is the proof's;
//  4. the message text satisfies the length rules.
func (s *Service) Verify(ctx context.Context, signed domain.SignedMessageWithProof) (err error) {
	start := time.Now()
	defer func() {
		if s.observe != nil {
			result := ResultAccepted
			if err != nil {
				result = domain.Code(err)
			}
			s.observe(result, time.Since(start))
		}
	}()

	in := signed.Proof.PublicInputs
	if _, err := s.registry.Resolve(in.ProviderID); err != nil {
		return err
	}
	if err := s.registry.ValidGroup(in.ProviderID, in.GroupID); err != nil {
		return err
	}
	if signed.Message.GroupID != in.GroupID || signed.Message.ProviderID != in.ProviderID {
		return fmt.Errorf("%w: message for %s/%s, proof for %s/%s", domain.ErrGroupMismatch,
			signed.Message.ProviderID, signed.Message.GroupID, in.ProviderID, in.GroupID)
	}

	if err := s.proofs.Verify(ctx, signed.Proof); err != nil {
		return err
	}

	pub, err := crypto.RecoverCompact(signed.Signature, canonical.MessageDigest(signed.Message))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	if !binding.Matches(pub, string(in.PubkeyCommitment)) {
		return domain.ErrInvalidSignature
	}

	return message.Check(signed.Message, in)
}

// Accept verifies signed, passes it through the submission gate and stores
// it. The stored artifact is exactly the one submitted.
func (s *Service) Accept(ctx context.Context, signed domain.SignedMessageWithProof) (domain.BoardMessage, error) {
	if err := s.Verify(ctx, signed); err != nil {
		s.log.Info("submission rejected", "code", domain.Code(err), "err", err)
		return domain.BoardMessage{}, err
	}
	if s.gate != nil {
		if err := s.gate.AllowSubmission(ctx, signed); err != nil {
			s.log.Info("submission refused by gate", "err", err)
			return domain.BoardMessage{}, err
		}
	}
	bm := domain.BoardMessage{Signed: signed, ReceivedAt: s.now().UTC()}
	if signed.Message.Internal {
		bm.SenderName = crypto.SenderName(string(signed.Proof.PublicInputs.PubkeyCommitment))
	}
	if err := s.store.SaveMessage(ctx, bm); err != nil {
		return domain.BoardMessage{}, err
	}
	s.log.Info("submission accepted",
		"message_id", string(signed.Message.ID),
		"group_id", string(signed.Message.GroupID),
		"internal", signed.Message.Internal)
	return bm, nil
}

// VerifyRead admits a read of the internal board named by q. It needs a
// member's proof for exactly that provider and group, and a recent
// signature over the request by the key the proof commits to. Failures
// wrap domain.ErrMembersOnly unless they are transient.
func (s *Service) VerifyRead(ctx context.Context, q domain.MessageQuery) error {
	if q.Auth == nil {
		return fmt.Errorf("%w: no read authorization", domain.ErrMembersOnly)
	}
	in := q.Auth.Proof.PublicInputs
	if in.ProviderID != q.ProviderID || in.GroupID != q.GroupID {
		return fmt.Errorf("%w: proof for %s/%s, read of %s/%s", domain.ErrMembersOnly,
			in.ProviderID, in.GroupID, q.ProviderID, q.GroupID)
	}
	if skew := s.now().Sub(q.Auth.At); skew > ReadSkew || skew < -ReadSkew {
		return fmt.Errorf("%w: read signed at %s", domain.ErrMembersOnly, q.Auth.At.UTC().Format(time.RFC3339))
	}
	if err := s.proofs.Verify(ctx, q.Auth.Proof); err != nil {
		if domain.IsTransient(err) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrMembersOnly, err)
	}
	pub, err := crypto.RecoverCompact(q.Auth.Signature, canonical.ReadDigest(q.ProviderID, q.GroupID, q.Auth.At))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMembersOnly, err)
	}
	if !binding.Matches(pub, string(in.PubkeyCommitment)) {
		return fmt.Errorf("%w: read not signed by the proven key", domain.ErrMembersOnly)
	}
	return nil
}

// Compile-time assertion that Service implements domain.MessageVerifier.
var _ domain.MessageVerifier = (*Service)(nil)
