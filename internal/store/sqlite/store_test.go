package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"stealthnote/internal/domain"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "board.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func boardMessage(id string, group domain.GroupID, internal bool, received time.Time) domain.BoardMessage {
	return domain.BoardMessage{
		Signed: domain.SignedMessageWithProof{
			Message: domain.Message{
				ID:         domain.MessageID(id),
				CreatedAt:  received.Add(-time.Second),
				Text:       "hello from " + id,
				Internal:   internal,
				GroupID:    group,
				ProviderID: "google-oauth",
			},
			Signature: []byte{1, 2, 3},
			Proof: domain.MembershipProof{
				Backend:      "attested",
				Proof:        []byte{9},
				PublicInputs: domain.ProofPublicInputs{GroupID: group, ProviderID: "google-oauth", PubkeyCommitment: "c"},
			},
		},
		ReceivedAt: received,
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenTwiceKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	if err := s.SaveMessage(context.Background(), boardMessage("a", "acme.com", false, now)); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = s.Close()

	s, err = Open(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.GetMessage(context.Background(), "a"); err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
}

func TestSaveGetRoundTrip(t *testing.T) {
	s := openTempStore(t)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	in := boardMessage("a1", "acme.com", true, now)
	in.SenderName = "Quiet Heron"

	if err := s.SaveMessage(context.Background(), in); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.GetMessage(context.Background(), "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SenderName != "Quiet Heron" || !got.ReceivedAt.Equal(now) {
		t.Fatalf("metadata mismatch: %+v", got)
	}
	if got.Signed.Message.Text != in.Signed.Message.Text || !got.Signed.Message.CreatedAt.Equal(in.Signed.Message.CreatedAt) {
		t.Fatalf("artifact mismatch: %+v", got.Signed.Message)
	}
	if string(got.Signed.Signature) != string(in.Signed.Signature) {
		t.Fatalf("signature changed in storage")
	}
}

func TestSaveDuplicate(t *testing.T) {
	s := openTempStore(t)
	now := time.Now()
	if err := s.SaveMessage(context.Background(), boardMessage("dup", "acme.com", false, now)); err != nil {
		t.Fatalf("save: %v", err)
	}
	err := s.SaveMessage(context.Background(), boardMessage("dup", "acme.com", false, now))
	if !errors.Is(err, domain.ErrDuplicateMessage) {
		t.Fatalf("expected ErrDuplicateMessage, got %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTempStore(t)
	if _, err := s.GetMessage(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListMessages(t *testing.T) {
	s := openTempStore(t)
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	msgs := []domain.BoardMessage{
		boardMessage("p1", "acme.com", false, base),
		boardMessage("p2", "globex.com", false, base.Add(time.Minute)),
		boardMessage("p3", "acme.com", false, base.Add(2*time.Minute)),
		boardMessage("i1", "acme.com", true, base.Add(3*time.Minute)),
		boardMessage("i2", "globex.com", true, base.Add(4*time.Minute)),
	}
	for _, m := range msgs {
		if err := s.SaveMessage(context.Background(), m); err != nil {
			t.Fatalf("save %s: %v", m.Signed.Message.ID, err)
		}
	}

	ids := func(q domain.MessageQuery) []domain.MessageID {
		t.Helper()
		got, err := s.ListMessages(context.Background(), q)
		if err != nil {
			t.Fatalf("list %+v: %v", q, err)
		}
		var out []domain.MessageID
		for _, m := range got {
			out = append(out, m.Signed.Message.ID)
		}
		return out
	}
	equal := func(got []domain.MessageID, want ...domain.MessageID) {
		t.Helper()
		if len(got) != len(want) {
			t.Fatalf("ids = %v, want %v", got, want)
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("ids = %v, want %v", got, want)
			}
		}
	}

	equal(ids(domain.MessageQuery{}), "p3", "p2", "p1")
	equal(ids(domain.MessageQuery{ProviderID: "google-oauth", GroupID: "acme.com"}), "p3", "p1")
	equal(ids(domain.MessageQuery{Limit: 1}), "p3")
	equal(ids(domain.MessageQuery{Before: base.Add(2 * time.Minute)}), "p2", "p1")
	equal(ids(domain.MessageQuery{ProviderID: "google-oauth", GroupID: "acme.com", Internal: true}), "i1")

	if _, err := s.ListMessages(context.Background(), domain.MessageQuery{Internal: true}); !errors.Is(err, ErrInternalNeedsGroup) {
		t.Fatalf("expected ErrInternalNeedsGroup, got %v", err)
	}
}
