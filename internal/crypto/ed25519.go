package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"

	"stealthnote/internal/domain"
)

// GenerateEd25519 returns a new Ed25519 signing key pair read from r, or
// from crypto/rand when r is nil.
func GenerateEd25519(r io.Reader) (priv domain.Ed25519Private, pub domain.Ed25519Public, err error) {
	if r == nil {
		r = rand.Reader
	}
	pk, sk, err := ed25519.GenerateKey(r)
	if err != nil {
		return priv, pub, fmt.Errorf("%w: %v", domain.ErrEntropy, err)
	}
	copy(priv[:], sk)
	copy(pub[:], pk)
	Wipe(sk)
	return priv, pub, nil
}

// Ed25519FromSeed expands a 32-byte seed into a key pair.
func Ed25519FromSeed(seed []byte) (priv domain.Ed25519Private, pub domain.Ed25519Public, err error) {
	if len(seed) != ed25519.SeedSize {
		return priv, pub, fmt.Errorf("ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	sk := ed25519.NewKeyFromSeed(seed)
	copy(priv[:], sk)
	copy(pub[:], sk.Public().(ed25519.PublicKey))
	Wipe(sk)
	return priv, pub, nil
}

// SignEd25519 signs msg with priv and returns the signature.
func SignEd25519(priv domain.Ed25519Private, msg []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv[:]), msg)
}

// VerifyEd25519 verifies sig over msg with pub.
func VerifyEd25519(pub domain.Ed25519Public, msg, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig)
}
