package types

// EphemeralPublic is a compressed secp256k1 public key.
type EphemeralPublic [33]byte

// Slice returns the key as a []byte.
func (p EphemeralPublic) Slice() []byte { return p[:] }

// IsZero reports whether the key is unset.
func (p EphemeralPublic) IsZero() bool { return p == EphemeralPublic{} }

// EphemeralPrivate is a secp256k1 private scalar.
type EphemeralPrivate [32]byte

// Slice returns the key as a []byte.
func (k EphemeralPrivate) Slice() []byte { return k[:] }

// Ed25519Public is an Ed25519 signing public key.
type Ed25519Public [32]byte

// Slice returns the key as a []byte.
func (p Ed25519Public) Slice() []byte { return p[:] }

// Ed25519Private is an Ed25519 signing private key.
type Ed25519Private [64]byte

// Slice returns the key as a []byte.
func (k Ed25519Private) Slice() []byte { return k[:] }
