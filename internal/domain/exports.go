package domain

import (
	interfaces "stealthnote/internal/domain/interfaces"
	types "stealthnote/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	ProviderID             = types.ProviderID
	GroupID                = types.GroupID
	PubkeyCommitment       = types.PubkeyCommitment
	SessionID              = types.SessionID
	MessageID              = types.MessageID
	Fingerprint            = types.Fingerprint
	EphemeralPublic        = types.EphemeralPublic
	EphemeralPrivate       = types.EphemeralPrivate
	Ed25519Public          = types.Ed25519Public
	Ed25519Private         = types.Ed25519Private
	EphemeralKeyPair       = types.EphemeralKeyPair
	GroupRule              = types.GroupRule
	ProviderConfig         = types.ProviderConfig
	IssuerKey              = types.IssuerKey
	IssuerKeySet           = types.IssuerKeySet
	AnonGroup              = types.AnonGroup
	ProofPublicInputs      = types.ProofPublicInputs
	MembershipProof        = types.MembershipProof
	Message                = types.Message
	SignedMessageWithProof = types.SignedMessageWithProof
	BoardMessage           = types.BoardMessage
	MessageQuery           = types.MessageQuery
	ReadAuth               = types.ReadAuth
	RegistrationStatus     = types.RegistrationStatus
	SessionContext         = types.SessionContext
	SessionState           = types.SessionState
)

// Constants re-exported from the types subpackage.
const (
	GroupRuleDomain  = types.GroupRuleDomain
	GroupRuleTenant  = types.GroupRuleTenant
	MaxMessageLength = types.MaxMessageLength
	Unregistered     = types.Unregistered
	Registering      = types.Registering
	Registered       = types.Registered
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	IdentityManager     = interfaces.IdentityManager
	RegistrationService = interfaces.RegistrationService
	MessageService      = interfaces.MessageService
	MessageVerifier     = interfaces.MessageVerifier
	SubmissionGate      = interfaces.SubmissionGate
	SessionStore        = interfaces.SessionStore
	MessageStore        = interfaces.MessageStore
	TokenSource         = interfaces.TokenSource
	IssuerKeySource     = interfaces.IssuerKeySource
	BoardClient         = interfaces.BoardClient
	MembershipProver    = interfaces.MembershipProver
)
