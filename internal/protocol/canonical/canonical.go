// Package canonical produces the byte encodings that get signed.
//
// Every encoding starts with a version tag and writes each field as a
// big-endian uint32 length followed by its bytes, so no two distinct values
// share an encoding.
package canonical

import (
	"crypto/sha256"
	"encoding/binary"
	"time"

	"stealthnote/internal/domain"
)

const (
	messageTag      = "stealthnote/message/v1"
	publicInputsTag = "stealthnote/proof-inputs/v1"
	readTag         = "stealthnote/read/v1"
)

// Message encodes the signed fields of msg.
func Message(msg domain.Message) []byte {
	var b encoder
	b.field([]byte(messageTag))
	b.field([]byte(msg.ID))
	b.uint64(uint64(msg.CreatedAt.UTC().UnixMilli()))
	b.field([]byte(msg.Text))
	b.bool(msg.Internal)
	b.field([]byte(msg.GroupID))
	b.field([]byte(msg.ProviderID))
	return b.buf
}

// MessageDigest is SHA-256 over Message(msg).
func MessageDigest(msg domain.Message) []byte {
	sum := sha256.Sum256(Message(msg))
	return sum[:]
}

// PublicInputs encodes a proof's public inputs together with the backend
// name and parameter id they are checked under.
func PublicInputs(backend, paramsID string, in domain.ProofPublicInputs) []byte {
	var b encoder
	b.field([]byte(publicInputsTag))
	b.field([]byte(backend))
	b.field([]byte(paramsID))
	b.field([]byte(in.IssuerKeyID))
	b.field([]byte(in.GroupID))
	b.field([]byte(in.ProviderID))
	b.field([]byte(in.PubkeyCommitment))
	b.uint64(uint64(in.IssuedAt))
	return b.buf
}

// ReadRequest encodes a member's request to read a group's internal board
// at a given time.
func ReadRequest(providerID domain.ProviderID, groupID domain.GroupID, at time.Time) []byte {
	var b encoder
	b.field([]byte(readTag))
	b.field([]byte(providerID))
	b.field([]byte(groupID))
	b.uint64(uint64(at.UTC().UnixMilli()))
	return b.buf
}

// ReadDigest is SHA-256 over ReadRequest.
func ReadDigest(providerID domain.ProviderID, groupID domain.GroupID, at time.Time) []byte {
	sum := sha256.Sum256(ReadRequest(providerID, groupID, at))
	return sum[:]
}

type encoder struct{ buf []byte }

func (e *encoder) field(p []byte) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(len(p)))
	e.buf = append(e.buf, p...)
}

func (e *encoder) uint64(v uint64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, v)
}

func (e *encoder) bool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
		return
	}
	e.buf = append(e.buf, 0)
}
