// Package sqlite provides the board's SQLite-backed message store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"stealthnote/internal/domain"
	"stealthnote/internal/platform/sqlitemigrate"
	"stealthnote/internal/store/sqlite/migrations"
)

const (
	// DefaultListLimit applies when a query sets no limit.
	DefaultListLimit = 50
	// MaxListLimit caps any query's limit.
	MaxListLimit = 200
)

// ErrInternalNeedsGroup is returned for internal listings without a group.
var ErrInternalNeedsGroup = errors.New("internal messages are listed per group")

// Store persists accepted messages in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite message store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// SaveMessage inserts an accepted message. Messages are never updated; a
// second message with the same id fails with domain.ErrDuplicateMessage.
func (s *Store) SaveMessage(ctx context.Context, msg domain.BoardMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := msg.Signed.Message
	if m.ID == "" {
		return fmt.Errorf("message id is required")
	}
	artifact, err := json.Marshal(msg.Signed)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO messages (
		   id, provider_id, group_id, internal, created_at, received_at,
		   commitment, sender_name, artifact
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(m.ID),
		string(m.ProviderID),
		string(m.GroupID),
		boolToInt(m.Internal),
		toMillis(m.CreatedAt),
		toMillis(receivedAt),
		string(msg.Signed.Proof.PublicInputs.PubkeyCommitment),
		msg.SenderName,
		artifact,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateMessage, m.ID)
		}
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// GetMessage returns one message by id.
func (s *Store) GetMessage(ctx context.Context, id domain.MessageID) (domain.BoardMessage, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT artifact, sender_name, received_at FROM messages WHERE id = ?`, string(id))
	bm, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BoardMessage{}, fmt.Errorf("%w: message %s", domain.ErrNotFound, id)
	}
	return bm, err
}

// ListMessages returns messages newest first. Public listings may be
// narrowed by provider and group; internal listings require both.
func (s *Store) ListMessages(ctx context.Context, q domain.MessageQuery) ([]domain.BoardMessage, error) {
	if q.Internal && (q.GroupID == "" || q.ProviderID == "") {
		return nil, ErrInternalNeedsGroup
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	where := []string{"internal = ?"}
	args := []any{boolToInt(q.Internal)}
	if q.ProviderID != "" {
		where = append(where, "provider_id = ?")
		args = append(args, string(q.ProviderID))
	}
	if q.GroupID != "" {
		where = append(where, "group_id = ?")
		args = append(args, string(q.GroupID))
	}
	if !q.Before.IsZero() {
		where = append(where, "received_at < ?")
		args = append(args, toMillis(q.Before))
	}
	args = append(args, limit)

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT artifact, sender_name, received_at FROM messages
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY received_at DESC, id DESC
		 LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []domain.BoardMessage
	for rows.Next() {
		bm, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (domain.BoardMessage, error) {
	var (
		artifact   []byte
		senderName string
		receivedAt int64
	)
	if err := row.Scan(&artifact, &senderName, &receivedAt); err != nil {
		return domain.BoardMessage{}, err
	}
	var signed domain.SignedMessageWithProof
	if err := json.Unmarshal(artifact, &signed); err != nil {
		return domain.BoardMessage{}, fmt.Errorf("decode artifact: %w", err)
	}
	return domain.BoardMessage{Signed: signed, SenderName: senderName, ReceivedAt: fromMillis(receivedAt)}, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// Compile-time assertion that Store implements domain.MessageStore.
var _ domain.MessageStore = (*Store)(nil)
