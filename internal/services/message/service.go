package message

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"stealthnote/internal/domain"
	"stealthnote/internal/services/identity"
)

// Service signs and posts messages for registered sessions.
type Service struct {
	identity *identity.Manager
	board    domain.BoardClient
	now      func() time.Time
	log      *slog.Logger
}

// New constructs a message service. log may be nil.
func New(id *identity.Manager, board domain.BoardClient, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{identity: id, board: board, now: time.Now, log: log}
}

// NewID returns a short random message id: the first two groups of a
// random UUID, without the separator.
func NewID() domain.MessageID {
	parts := strings.SplitN(uuid.NewString(), "-", 3)
	return domain.MessageID(parts[0] + parts[1])
}

// Compose builds, signs and returns a message for sess without posting it.
func (s *Service) Compose(sess domain.SessionContext, text string, internal bool) (domain.SignedMessageWithProof, error) {
	kp, proof, err := s.identity.Registered(sess)
	if err != nil {
		return domain.SignedMessageWithProof{}, err
	}
	msg := domain.Message{
		ID:         NewID(),
		CreatedAt:  s.now().UTC().Truncate(time.Millisecond),
		Text:       strings.TrimSpace(text),
		Internal:   internal,
		GroupID:    proof.PublicInputs.GroupID,
		ProviderID: proof.PublicInputs.ProviderID,
	}
	return Sign(msg, kp, proof)
}

// Submit signs text as the session's identity and posts it to the board.
func (s *Service) Submit(
	ctx context.Context,
	sess domain.SessionContext,
	text string,
	internal bool,
) (domain.SignedMessageWithProof, error) {
	signed, err := s.Compose(sess, text, internal)
	if err != nil {
		return domain.SignedMessageWithProof{}, err
	}
	if err := s.board.SubmitMessage(ctx, signed); err != nil {
		return domain.SignedMessageWithProof{}, err
	}
	s.log.Debug("message posted", "message_id", string(signed.Message.ID), "internal", internal)
	return signed, nil
}

// ListInternal fetches the internal board of the session's group. The
// request carries a fresh read authorization signed with the session key.
func (s *Service) ListInternal(
	ctx context.Context,
	sess domain.SessionContext,
	before time.Time,
	limit int,
) ([]domain.BoardMessage, error) {
	kp, proof, err := s.identity.Registered(sess)
	if err != nil {
		return nil, err
	}
	auth, err := SignRead(kp, proof, s.now())
	if err != nil {
		return nil, err
	}
	return s.board.ListMessages(ctx, domain.MessageQuery{
		ProviderID: proof.PublicInputs.ProviderID,
		GroupID:    proof.PublicInputs.GroupID,
		Internal:   true,
		Before:     before,
		Limit:      limit,
		Auth:       &auth,
	})
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
