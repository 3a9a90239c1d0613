package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"stealthnote/internal/domain"
)

// CompactSignatureSize is the length of a recoverable compact signature.
const CompactSignatureSize = 65

var errBadDigest = errors.New("digest must be 32 bytes")

// GenerateEphemeral returns a fresh secp256k1 key pair read from r, or from
// crypto/rand when r is nil. RNG failures are reported as domain.ErrEntropy.
func GenerateEphemeral(r io.Reader) (priv domain.EphemeralPrivate, pub domain.EphemeralPublic, err error) {
	if r == nil {
		r = rand.Reader
	}
	sk, err := secp256k1.GeneratePrivateKeyFromRand(r)
	if err != nil {
		return priv, pub, fmt.Errorf("%w: %v", domain.ErrEntropy, err)
	}
	defer sk.Zero()

	raw := sk.Serialize()
	copy(priv[:], raw)
	Wipe(raw)
	copy(pub[:], sk.PubKey().SerializeCompressed())
	return priv, pub, nil
}

// PublicFromPrivate derives the compressed public key for priv.
func PublicFromPrivate(priv domain.EphemeralPrivate) domain.EphemeralPublic {
	sk := secp256k1.PrivKeyFromBytes(priv.Slice())
	defer sk.Zero()
	var pub domain.EphemeralPublic
	copy(pub[:], sk.PubKey().SerializeCompressed())
	return pub
}

// SignCompact signs a 32-byte digest and returns a 65-byte signature from
// which the compressed public key can be recovered.
func SignCompact(priv domain.EphemeralPrivate, digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, errBadDigest
	}
	sk := secp256k1.PrivKeyFromBytes(priv.Slice())
	defer sk.Zero()
	return ecdsa.SignCompact(sk, digest, true), nil
}

// RecoverCompact returns the public key that produced sig over digest.
func RecoverCompact(sig, digest []byte) (domain.EphemeralPublic, error) {
	var pub domain.EphemeralPublic
	if len(digest) != 32 {
		return pub, errBadDigest
	}
	if len(sig) != CompactSignatureSize {
		return pub, fmt.Errorf("compact signature must be %d bytes, got %d", CompactSignatureSize, len(sig))
	}
	pk, compressed, err := ecdsa.RecoverCompact(sig, digest)
	if err != nil {
		return pub, err
	}
	if !compressed {
		return pub, errors.New("signature recovers an uncompressed key")
	}
	copy(pub[:], pk.SerializeCompressed())
	return pub, nil
}

// ValidEphemeralPublic reports whether pub is a point on the curve.
func ValidEphemeralPublic(pub domain.EphemeralPublic) bool {
	_, err := secp256k1.ParsePubKey(pub.Slice())
	return err == nil
}
