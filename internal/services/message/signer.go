package message

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"stealthnote/internal/crypto"
	"stealthnote/internal/domain"
	"stealthnote/internal/protocol/binding"
	"stealthnote/internal/protocol/canonical"
)

// Sign binds msg to proof with kp. It refuses to sign with a key the proof
// was not made for.
func Sign(msg domain.Message, kp domain.EphemeralKeyPair, proof domain.MembershipProof) (domain.SignedMessageWithProof, error) {
	if !binding.Matches(kp.PublicKey, string(proof.PublicInputs.PubkeyCommitment)) {
		return domain.SignedMessageWithProof{}, domain.ErrKeyProofMismatch
	}
	if err := Check(msg, proof.PublicInputs); err != nil {
		return domain.SignedMessageWithProof{}, err
	}
	sig, err := crypto.SignCompact(kp.PrivateKey, canonical.MessageDigest(msg))
	if err != nil {
		return domain.SignedMessageWithProof{}, fmt.Errorf("sign message: %w", err)
	}
	return domain.SignedMessageWithProof{Message: msg, Signature: sig, Proof: proof}, nil
}

// Check enforces the structural rules on a message and its consistency
// with the proof's public inputs. Signer and verifier share it.
//
// CreatedAt must be UTC and whole milliseconds: the signature covers only
// the millisecond, so any finer or re-zoned value would let the artifact
// change after signing.
func Check(msg domain.Message, in domain.ProofPublicInputs) error {
	_, offset := msg.CreatedAt.Zone()
	switch {
	case msg.ID == "":
		return fmt.Errorf("%w: missing id", domain.ErrMessageConstraint)
	case msg.CreatedAt.IsZero():
		return fmt.Errorf("%w: missing timestamp", domain.ErrMessageConstraint)
	case !msg.CreatedAt.Equal(msg.CreatedAt.Truncate(time.Millisecond)):
		return fmt.Errorf("%w: timestamp finer than a millisecond", domain.ErrMessageConstraint)
	case offset != 0:
		return fmt.Errorf("%w: timestamp not in UTC", domain.ErrMessageConstraint)
	case !utf8.ValidString(msg.Text):
		return fmt.Errorf("%w: text is not valid UTF-8", domain.ErrMessageConstraint)
	case strings.TrimSpace(msg.Text) == "":
		return fmt.Errorf("%w: empty text", domain.ErrMessageConstraint)
	case utf8.RuneCountInString(msg.Text) > domain.MaxMessageLength:
		return fmt.Errorf("%w: text longer than %d characters", domain.ErrMessageConstraint, domain.MaxMessageLength)
	}
	if msg.GroupID != in.GroupID || msg.ProviderID != in.ProviderID {
		return fmt.Errorf("%w: message for %s/%s, proof for %s/%s",
			domain.ErrGroupMismatch, msg.ProviderID, msg.GroupID, in.ProviderID, in.GroupID)
	}
	return nil
}

// SignRead authorizes kp's holder to read the internal board of the group
// proof is for, as of at.
func SignRead(kp domain.EphemeralKeyPair, proof domain.MembershipProof, at time.Time) (domain.ReadAuth, error) {
	if !binding.Matches(kp.PublicKey, string(proof.PublicInputs.PubkeyCommitment)) {
		return domain.ReadAuth{}, domain.ErrKeyProofMismatch
	}
	at = at.UTC().Truncate(time.Millisecond)
	in := proof.PublicInputs
	sig, err := crypto.SignCompact(kp.PrivateKey, canonical.ReadDigest(in.ProviderID, in.GroupID, at))
	if err != nil {
		return domain.ReadAuth{}, fmt.Errorf("sign read: %w", err)
	}
	return domain.ReadAuth{At: at, Signature: sig, Proof: proof}, nil
}
