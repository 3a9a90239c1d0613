package privacylog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}
	return payload
}

func TestSanitizingHandlerRedactsSecretsAndFingerprintsIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo, true)
	logger.Info("test",
		"id_token", "eyJhbGciOi",
		"passphrase", "hunter2",
		"group_id", "acme.com",
		"commitment", "3xYz",
		"provider", "google-oauth")

	payload := decode(t, &buf)
	for _, k := range []string{"id_token", "passphrase"} {
		if got, _ := payload[k].(string); got != redactedValue {
			t.Fatalf("%s = %q, want redacted", k, got)
		}
	}
	for _, k := range []string{"group_id", "commitment"} {
		if _, ok := payload[k]; ok {
			t.Fatalf("%s should not be present", k)
		}
		if got, _ := payload[k+"_fp"].(string); !strings.HasPrefix(got, "fp_") {
			t.Fatalf("%s_fp = %q", k, got)
		}
	}
	if got, _ := payload["provider"].(string); got != "google-oauth" {
		t.Fatalf("provider should pass through, got %q", got)
	}
}

func TestSanitizingHandlerWithAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo, true).With("session_id", "alice")
	logger.Info("nested", slog.Group("req", slog.String("authorization", "Bearer x"), slog.String("path", "/messages")))

	out := buf.String()
	if strings.Contains(out, "alice") || strings.Contains(out, "Bearer") {
		t.Fatalf("identifying values leaked: %s", out)
	}
	if !strings.Contains(out, "/messages") {
		t.Fatalf("plain value dropped: %s", out)
	}
}

func TestFingerprintStable(t *testing.T) {
	if Fingerprint("acme.com") != Fingerprint(" acme.com ") {
		t.Fatal("fingerprint should ignore surrounding space")
	}
	if Fingerprint("acme.com") == Fingerprint("globex.com") {
		t.Fatal("distinct values share a fingerprint")
	}
	if Fingerprint("") != "" {
		t.Fatal("empty value should stay empty")
	}
}

func TestSanitizingHandlerImplementsSlogHandlerContract(t *testing.T) {
	var buf bytes.Buffer
	h := WrapHandler(slog.NewJSONHandler(&buf, nil))
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected handler enabled for info")
	}
	rec := slog.NewRecord(time.Now().UTC(), slog.LevelInfo, "msg", 0)
	rec.AddAttrs(slog.String("message_id", "3f2a1b9c"))
	if err := h.Handle(context.Background(), rec); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if !strings.Contains(buf.String(), "message_id_fp") {
		t.Fatalf("expected sanitized message_id key, got %s", buf.String())
	}
}
