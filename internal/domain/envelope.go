package domain

import "fmt"

// EnvelopeKind tags which record an Envelope carries.
type EnvelopeKind string

const (
	KindMessage          EnvelopeKind = "message"
	KindGrant            EnvelopeKind = "grant"
	KindMembershipChange EnvelopeKind = "membership"
)

// Envelope is the single shape the delivery channel pushes at the core. It
// carries exactly one record, selected by Kind; Validate rejects anything
// else, so a malformed or mixed envelope never reaches a handler.
type Envelope struct {
	Kind       EnvelopeKind           `json:"kind"`
	Message    *EncryptedMessage      `json:"message,omitempty"`
	Grant      *EncryptedRoomKeyGrant `json:"grant,omitempty"`
	Membership *MembershipChange      `json:"membership,omitempty"`
}

// NewMessageEnvelope wraps an encrypted message for delivery.
func NewMessageEnvelope(msg EncryptedMessage) Envelope {
	return Envelope{Kind: KindMessage, Message: &msg}
}

// NewGrantEnvelope wraps a room key grant for delivery.
func NewGrantEnvelope(grant EncryptedRoomKeyGrant) Envelope {
	return Envelope{Kind: KindGrant, Grant: &grant}
}

// NewMembershipEnvelope wraps a membership change notification.
func NewMembershipEnvelope(change MembershipChange) Envelope {
	return Envelope{Kind: KindMembershipChange, Membership: &change}
}

// Validate checks that the envelope carries exactly the record its Kind
// announces and nothing else.
func (e Envelope) Validate() error {
	set := 0
	if e.Message != nil {
		set++
	}
	if e.Grant != nil {
		set++
	}
	if e.Membership != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("envelope carries %d records, want exactly 1", set)
	}
	switch e.Kind {
	case KindMessage:
		if e.Message == nil {
			return fmt.Errorf("envelope kind %q without message record", e.Kind)
		}
	case KindGrant:
		if e.Grant == nil {
			return fmt.Errorf("envelope kind %q without grant record", e.Kind)
		}
	case KindMembershipChange:
		if e.Membership == nil {
			return fmt.Errorf("envelope kind %q without membership record", e.Kind)
		}
	default:
		return fmt.Errorf("unknown envelope kind %q", e.Kind)
	}
	return nil
}
