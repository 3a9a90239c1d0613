package types

// RegistrationStatus is the identity manager's state for a session.
type RegistrationStatus int

const (
	Unregistered RegistrationStatus = iota
	Registering
	Registered
)

// String returns a lower-case name for the status.
func (s RegistrationStatus) String() string {
	switch s {
	case Registering:
		return "registering"
	case Registered:
		return "registered"
	default:
		return "unregistered"
	}
}

// SessionContext identifies the caller's session and unlocks its storage.
type SessionContext struct {
	ID         SessionID
	Passphrase string
}

// SessionState is what the identity manager persists per session.
type SessionState struct {
	Status     RegistrationStatus `json:"status"`
	Generation uint64             `json:"generation"`
	Key        *EphemeralKeyPair  `json:"key,omitempty"`
	ProviderID ProviderID         `json:"provider_id,omitempty"`
	GroupID    GroupID            `json:"group_id,omitempty"`
	Proof      *MembershipProof   `json:"proof,omitempty"`
}
