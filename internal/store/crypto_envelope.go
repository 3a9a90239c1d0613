package store

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"stealthnote/internal/crypto"
	"stealthnote/internal/domain"
)

// envelopeVersion is the version of the sealed session format on disk.
const envelopeVersion = 1

// sessionBindingTag prefixes the associated data of every sealed session.
const sessionBindingTag = "stealthnote/session/v1"

// ErrWrongPassphrase is returned when the passphrase is incorrect, or the
// file was modified, corrupted or belongs to another session.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted session")

// scryptParams are the key derivation cost parameters for new envelopes.
// Existing envelopes carry their own.
type scryptParams struct {
	N int `json:"n"`
	R int `json:"r"`
	P int `json:"p"`
}

func scryptParamsDefault() scryptParams { return scryptParams{N: 1 << 15, R: 8, P: 1} }

// envelope is the JSON document written for one session.
type envelope struct {
	V     int          `json:"v"`
	KDF   scryptParams `json:"kdf"`
	Salt  []byte       `json:"salt"`
	Nonce []byte       `json:"nonce"`
	Data  []byte       `json:"data"`
}

// sealSession encrypts plain under a key derived from passphrase. The
// session id is authenticated with the ciphertext, so an envelope only
// opens under the id it was sealed for.
func sealSession(passphrase string, id domain.SessionID, plain []byte, params scryptParams) ([]byte, error) {
	env := envelope{
		V:     envelopeVersion,
		KDF:   params,
		Salt:  make([]byte, 16),
		Nonce: make([]byte, chacha20poly1305.NonceSizeX),
	}
	if _, err := rand.Read(env.Salt); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEntropy, err)
	}
	if _, err := rand.Read(env.Nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEntropy, err)
	}
	key, err := deriveKey(passphrase, env)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	env.Data = aead.Seal(nil, env.Nonce, plain, associatedData(id, env))
	return json.Marshal(env)
}

// openSession reverses sealSession.
func openSession(passphrase string, id domain.SessionID, sealed []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(sealed, &env); err != nil {
		return nil, ErrWrongPassphrase
	}
	if env.V != envelopeVersion {
		return nil, fmt.Errorf("unsupported session format %d", env.V)
	}
	if len(env.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrWrongPassphrase
	}
	key, err := deriveKey(passphrase, env)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, env.Nonce, env.Data, associatedData(id, env))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plain, nil
}

func deriveKey(passphrase string, env envelope) ([]byte, error) {
	key, err := scrypt.Key([]byte(passphrase), env.Salt, env.KDF.N, env.KDF.R, env.KDF.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return key, nil
}

// associatedData covers the tag, the session id and the KDF inputs, each
// length-prefixed.
func associatedData(id domain.SessionID, env envelope) []byte {
	var ad []byte
	for _, part := range [][]byte{[]byte(sessionBindingTag), []byte(id), env.Salt} {
		ad = binary.BigEndian.AppendUint32(ad, uint32(len(part)))
		ad = append(ad, part...)
	}
	for _, v := range []int{env.KDF.N, env.KDF.R, env.KDF.P} {
		ad = binary.BigEndian.AppendUint64(ad, uint64(v))
	}
	return ad
}
