package canonical_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stealthnote/internal/domain"
	"stealthnote/internal/protocol/canonical"
)

func sampleMessage() domain.Message {
	return domain.Message{
		ID:         "a1b2c3d4e5f6",
		CreatedAt:  time.UnixMilli(1_700_000_000_123),
		Text:       "hello",
		GroupID:    "acme.com",
		ProviderID: "google-oauth",
	}
}

func TestMessage_StableAcrossTimezones(t *testing.T) {
	m := sampleMessage()
	local := m
	local.CreatedAt = m.CreatedAt.In(time.FixedZone("X", 5*3600))
	assert.Equal(t, canonical.Message(m), canonical.Message(local))
}

func TestMessage_FieldBoundariesAreUnambiguous(t *testing.T) {
	a := sampleMessage()
	b := sampleMessage()
	a.GroupID, a.ProviderID = "acme.comg", "oogle-oauth"
	assert.NotEqual(t, canonical.Message(a), canonical.Message(b))
}

func TestMessageDigest_ChangesWithEveryField(t *testing.T) {
	base := canonical.MessageDigest(sampleMessage())
	mutations := []func(*domain.Message){
		func(m *domain.Message) { m.ID = "other" },
		func(m *domain.Message) { m.CreatedAt = m.CreatedAt.Add(time.Millisecond) },
		func(m *domain.Message) { m.Text = "hellp" },
		func(m *domain.Message) { m.Internal = true },
		func(m *domain.Message) { m.GroupID = "evil.com" },
		func(m *domain.Message) { m.ProviderID = "microsoft-oauth" },
	}
	for _, mutate := range mutations {
		m := sampleMessage()
		mutate(&m)
		assert.NotEqual(t, base, canonical.MessageDigest(m))
	}
}

func TestReadRequest_DistinctFromMessage(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_123)
	read := canonical.ReadDigest("google-oauth", "acme.com", at)
	assert.NotEqual(t, read, canonical.ReadDigest("google-oauth", "globex.com", at))
	assert.NotEqual(t, read, canonical.ReadDigest("google-oauth", "acme.com", at.Add(time.Millisecond)))
	assert.NotEqual(t, read, canonical.MessageDigest(sampleMessage()))
}
