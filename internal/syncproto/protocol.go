package syncproto

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"sealroom/internal/domain"
	"sealroom/internal/message"
	"sealroom/internal/roomkey"
)

// Handlers carries the callbacks the boundary application registers for
// decrypted traffic. Any nil callback is skipped.
type Handlers struct {
	// OnMessage receives each successfully decrypted message body.
	OnMessage func(msg domain.EncryptedMessage, plaintext []byte)
	// OnGap fires when a message references a key version this device has
	// not received. The application should render a placeholder and initiate
	// an asynchronous grant fetch; redelivering the message after the grant
	// arrives resolves the gap.
	OnGap func(msg domain.EncryptedMessage, gap *domain.GapError)
	// OnTamper fires when a message fails authentication. The state is
	// permanent for that record; it must never render as content.
	OnTamper func(msg domain.EncryptedMessage)
}

// Protocol wires the cipher and room-key manager to the delivery channel.
type Protocol struct {
	log       zerolog.Logger
	cipher    *message.Cipher
	rooms     *roomkey.Manager
	delivery  domain.Delivery
	directory domain.MembershipDirectory
	handlers  Handlers
}

// New constructs the protocol. The directory is consulted only when a
// membership change forces a rotation.
func New(
	log zerolog.Logger,
	cipher *message.Cipher,
	rooms *roomkey.Manager,
	delivery domain.Delivery,
	directory domain.MembershipDirectory,
	handlers Handlers,
) *Protocol {
	return &Protocol{
		log:       log,
		cipher:    cipher,
		rooms:     rooms,
		delivery:  delivery,
		directory: directory,
		handlers:  handlers,
	}
}

// ShareRoom creates a room keyed for the given members and pushes every
// grant to the delivery channel for replay to each member.
func (p *Protocol) ShareRoom(ctx context.Context, room domain.RoomID, members []domain.UserID) error {
	rk, grants, err := p.rooms.CreateRoom(ctx, room, members)
	if err != nil {
		return err
	}
	if err := p.sendGrants(ctx, grants); err != nil {
		return err
	}
	p.log.Info().
		Str("room", room.String()).
		Uint64("version", uint64(rk.Version)).
		Int("grants", len(grants)).
		Msg("room created")
	return nil
}

// GrantMember wraps the room's active key for one late joiner and pushes the
// grant outbound.
func (p *Protocol) GrantMember(ctx context.Context, room domain.RoomID, member domain.UserID) error {
	version, err := p.rooms.ActiveVersion(room)
	if err != nil {
		return err
	}
	grant, err := p.rooms.GrantAccess(ctx, room, version, member)
	if err != nil {
		return err
	}
	if err := p.delivery.SendGrant(ctx, grant); err != nil {
		return err
	}
	p.log.Info().
		Str("room", room.String()).
		Str("member", member.String()).
		Uint64("version", uint64(version)).
		Msg("access granted")
	return nil
}

// Send encrypts plaintext under the room's active key and hands the
// ciphertext to the delivery channel.
func (p *Protocol) Send(ctx context.Context, room domain.RoomID, plaintext []byte) (domain.EncryptedMessage, error) {
	msg, err := p.cipher.EncryptForSend(room, plaintext)
	if err != nil {
		return domain.EncryptedMessage{}, err
	}
	if err := p.delivery.SendMessage(ctx, msg); err != nil {
		return domain.EncryptedMessage{}, err
	}
	p.log.Debug().
		Str("room", room.String()).
		Uint64("version", uint64(msg.KeyVersion)).
		Msg("message sent")
	return msg, nil
}

// HandleEnvelope routes one inbound envelope from the delivery channel.
// Gap and tamper outcomes are terminal for the envelope, reported through
// the callbacks, and do not fail the pump; a grant that fails
// authentication is returned as an error so the boundary can request a
// re-grant.
func (p *Protocol) HandleEnvelope(ctx context.Context, env domain.Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}
	switch env.Kind {
	case domain.KindMessage:
		return p.handleMessage(*env.Message)
	case domain.KindGrant:
		return p.handleGrant(*env.Grant)
	case domain.KindMembershipChange:
		return p.handleMembershipChange(ctx, *env.Membership)
	}
	return fmt.Errorf("unknown envelope kind %q", env.Kind)
}

// HandleAll processes a batch of envelopes in order, stopping at the first
// failure. It returns how many were handled so the caller can acknowledge
// exactly that prefix; the error carries the position of the envelope that
// failed.
func (p *Protocol) HandleAll(ctx context.Context, envs []domain.Envelope) (int, error) {
	for i, env := range envs {
		if err := p.HandleEnvelope(ctx, env); err != nil {
			return i, fmt.Errorf("envelope %d of %d: %w", i+1, len(envs), err)
		}
	}
	return len(envs), nil
}

func (p *Protocol) handleMessage(msg domain.EncryptedMessage) error {
	plaintext, err := p.cipher.DecryptForDisplay(msg)
	if err != nil {
		var gap *domain.GapError
		switch {
		case errors.As(err, &gap):
			p.log.Warn().
				Str("room", msg.RoomID.String()).
				Str("sender", msg.SenderID.String()).
				Uint64("version", uint64(gap.Version)).
				Msg("decryption gap, key version not yet received")
			if p.handlers.OnGap != nil {
				p.handlers.OnGap(msg, gap)
			}
			return nil
		case errors.Is(err, domain.ErrAuthenticationFailure):
			p.log.Error().
				Str("room", msg.RoomID.String()).
				Str("sender", msg.SenderID.String()).
				Msg("message failed authentication")
			if p.handlers.OnTamper != nil {
				p.handlers.OnTamper(msg)
			}
			return nil
		default:
			return err
		}
	}
	p.log.Debug().
		Str("room", msg.RoomID.String()).
		Str("sender", msg.SenderID.String()).
		Msg("message decrypted")
	if p.handlers.OnMessage != nil {
		p.handlers.OnMessage(msg, plaintext)
	}
	return nil
}

func (p *Protocol) handleGrant(grant domain.EncryptedRoomKeyGrant) error {
	rk, err := p.rooms.ReceiveGrant(grant)
	if err != nil {
		p.log.Error().
			Str("room", grant.RoomID.String()).
			Uint64("version", uint64(grant.Version)).
			Err(err).
			Msg("grant rejected")
		return err
	}
	p.log.Info().
		Str("room", rk.RoomID.String()).
		Uint64("version", uint64(rk.Version)).
		Msg("room key received")
	return nil
}

// handleMembershipChange rotates the room key so the removed member cannot
// read anything sent from here on, then distributes the new generation to
// everyone still in the room.
//
// The relay broadcasts the notification to every remaining member, but only
// one of them may mint the next generation: two rotators racing to the same
// version would strand each other's grants and turn honest traffic into
// tamper warnings. The member with the lowest id rotates; everyone else
// waits for its grant.
func (p *Protocol) handleMembershipChange(ctx context.Context, change domain.MembershipChange) error {
	members, err := p.directory.Members(ctx, change.RoomID)
	if err != nil {
		return fmt.Errorf("resolve members of %s: %w", change.RoomID, err)
	}

	if !p.isRotator(members) {
		p.log.Debug().
			Str("room", change.RoomID.String()).
			Str("removed", change.RemovedUserID.String()).
			Msg("awaiting rotation grant from designated rotator")
		return nil
	}

	rk, grants, err := p.rooms.Rotate(ctx, change.RoomID, members)
	if err != nil {
		return err
	}
	if err := p.sendGrants(ctx, grants); err != nil {
		return err
	}
	p.log.Info().
		Str("room", change.RoomID.String()).
		Str("removed", change.RemovedUserID.String()).
		Uint64("version", uint64(rk.Version)).
		Int("grants", len(grants)).
		Msg("room key rotated")
	return nil
}

// isRotator reports whether this device is the designated rotator for the
// given membership: the member with the lowest id. A removed member is no
// longer in the list and never rotates.
func (p *Protocol) isRotator(members []domain.UserID) bool {
	self := p.rooms.Self()
	found := false
	lowest := self
	for _, m := range members {
		if m == self {
			found = true
		}
		if m < lowest {
			lowest = m
		}
	}
	return found && lowest == self
}

func (p *Protocol) sendGrants(ctx context.Context, grants []domain.EncryptedRoomKeyGrant) error {
	for _, g := range grants {
		if err := p.delivery.SendGrant(ctx, g); err != nil {
			return fmt.Errorf("send grant to %s: %w", g.RecipientID, err)
		}
	}
	return nil
}
