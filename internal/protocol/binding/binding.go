package binding

import (
	"crypto/subtle"

	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/blake2b"

	"stealthnote/internal/domain"
)

// nonceKey domain-separates the commitment from every other BLAKE2b use.
var nonceKey = []byte("stealthnote/nonce/v1")

// BindNonce returns the deterministic commitment to pub.
func BindNonce(pub domain.EphemeralPublic) domain.PubkeyCommitment {
	h, err := blake2b.New256(nonceKey)
	if err != nil {
		// Only returned for keys longer than 64 bytes.
		panic(err)
	}
	h.Write(pub.Slice())
	return domain.PubkeyCommitment(base58.Encode(h.Sum(nil)))
}

// Matches reports whether nonce commits to pub, in constant time.
func Matches(pub domain.EphemeralPublic, nonce string) bool {
	want := BindNonce(pub)
	return subtle.ConstantTimeCompare([]byte(want), []byte(nonce)) == 1
}

// WellFormed reports whether c has the shape of a commitment.
func WellFormed(c domain.PubkeyCommitment) bool {
	raw, err := base58.Decode(string(c))
	return err == nil && len(raw) == blake2b.Size256 && base58.Encode(raw) == string(c)
}
