package interfaces

import (
	"context"

	domaintypes "stealthnote/internal/domain/types"
)

// SessionStore persists per-session identity state.
type SessionStore interface {
	SaveSession(sess domaintypes.SessionContext, state domaintypes.SessionState) error
	LoadSession(sess domaintypes.SessionContext) (domaintypes.SessionState, bool, error)
	DeleteSession(sess domaintypes.SessionContext) error
}

// MessageStore persists accepted messages. Stored artifacts are never updated.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg domaintypes.BoardMessage) error
	GetMessage(ctx context.Context, id domaintypes.MessageID) (domaintypes.BoardMessage, error)
	ListMessages(ctx context.Context, q domaintypes.MessageQuery) ([]domaintypes.BoardMessage, error)
}
