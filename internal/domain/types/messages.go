package types

import "time"

// MaxMessageLength caps message text in Unicode code points.
const MaxMessageLength = 280

// ProofPublicInputs are the values a membership proof discloses.
type ProofPublicInputs struct {
	IssuerKeyID      string           `json:"issuer_key_id"`
	GroupID          GroupID          `json:"group_id"`
	ProviderID       ProviderID       `json:"provider_id"`
	PubkeyCommitment PubkeyCommitment `json:"pubkey_commitment"`
	IssuedAt         int64            `json:"issued_at"`
}

// MembershipProof is an opaque proof plus its public inputs. ParamsID names
// the verification parameters the backend needs to check Proof.
type MembershipProof struct {
	Backend      string            `json:"backend"`
	ParamsID     string            `json:"params_id"`
	Proof        []byte            `json:"proof"`
	PublicInputs ProofPublicInputs `json:"public_inputs"`
}

// Message is a post before signing. It is never mutated once signed.
type Message struct {
	ID         MessageID  `json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	Text       string     `json:"text"`
	Internal   bool       `json:"internal"`
	GroupID    GroupID    `json:"group_id"`
	ProviderID ProviderID `json:"provider_id"`
}

// SignedMessageWithProof is the only artifact that crosses the trust boundary.
type SignedMessageWithProof struct {
	Message   Message         `json:"message"`
	Signature []byte          `json:"signature"`
	Proof     MembershipProof `json:"proof"`
}

// BoardMessage is an accepted message as listed by the board.
type BoardMessage struct {
	Signed     SignedMessageWithProof `json:"signed"`
	SenderName string                 `json:"sender_name"`
	ReceivedAt time.Time              `json:"received_at"`
}

// ReadAuth shows the reader of an internal board is a group member: a
// signature over the board being read and the time, by the key the proof
// commits to.
type ReadAuth struct {
	At        time.Time       `json:"at"`
	Signature []byte          `json:"signature"`
	Proof     MembershipProof `json:"proof"`
}

// MessageQuery selects messages from the board. Internal queries need Auth.
type MessageQuery struct {
	ProviderID ProviderID
	GroupID    GroupID
	Internal   bool
	Before     time.Time
	Limit      int
	Auth       *ReadAuth
}
