package syncproto_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"sealroom/internal/crypto"
	"sealroom/internal/domain"
	"sealroom/internal/message"
	"sealroom/internal/roomkey"
	"sealroom/internal/store"
	"sealroom/internal/syncproto"
)

// fakeRelay plays the external relay: identity registry, membership
// directory and delivery sink in one.
type fakeRelay struct {
	mu       sync.Mutex
	keys     map[domain.UserID]domain.X25519Public
	members  map[domain.RoomID][]domain.UserID
	messages []domain.EncryptedMessage
	grants   []domain.EncryptedRoomKeyGrant
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{
		keys:    make(map[domain.UserID]domain.X25519Public),
		members: make(map[domain.RoomID][]domain.UserID),
	}
}

func (r *fakeRelay) PublicKeyOf(_ context.Context, id domain.UserID) (domain.X25519Public, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pub, ok := r.keys[id]
	if !ok {
		return domain.X25519Public{}, fmt.Errorf("unknown user %s", id)
	}
	return pub, nil
}

func (r *fakeRelay) Members(_ context.Context, room domain.RoomID) ([]domain.UserID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.UserID(nil), r.members[room]...), nil
}

func (r *fakeRelay) SendMessage(_ context.Context, msg domain.EncryptedMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *fakeRelay) SendGrant(_ context.Context, grant domain.EncryptedRoomKeyGrant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants = append(r.grants, grant)
	return nil
}

func (r *fakeRelay) grantsFor(id domain.UserID) []domain.EncryptedRoomKeyGrant {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.EncryptedRoomKeyGrant
	for _, g := range r.grants {
		if g.RecipientID == id {
			out = append(out, g)
		}
	}
	return out
}

type party struct {
	id       domain.UserID
	proto    *syncproto.Protocol
	rooms    *roomkey.Manager
	received map[string][]byte
	gaps     []*domain.GapError
	tampered int
}

// newParty builds a full stack (manager, cipher, protocol) for one user over
// the shared fake relay.
func newParty(t *testing.T, relay *fakeRelay, id domain.UserID) *party {
	t.Helper()
	p, err := crypto.NewProvider()
	require.NoError(t, err)
	pair, err := p.GenerateIdentity()
	require.NoError(t, err)
	relay.mu.Lock()
	relay.keys[id] = pair.Public
	relay.mu.Unlock()

	s, err := store.OpenBolt(filepath.Join(t.TempDir(), string(id)+".db"), "pw")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	rooms := roomkey.NewManager(p, s, relay, id, pair)
	cipher := message.New(p, rooms)

	pt := &party{id: id, rooms: rooms, received: make(map[string][]byte)}
	pt.proto = syncproto.New(zerolog.Nop(), cipher, rooms, relay, relay, syncproto.Handlers{
		OnMessage: func(msg domain.EncryptedMessage, plaintext []byte) {
			pt.received[string(msg.Ciphertext)] = plaintext
		},
		OnGap: func(_ domain.EncryptedMessage, gap *domain.GapError) {
			pt.gaps = append(pt.gaps, gap)
		},
		OnTamper: func(domain.EncryptedMessage) {
			pt.tampered++
		},
	})
	return pt
}

func deliverGrants(t *testing.T, ctx context.Context, relay *fakeRelay, to *party) {
	t.Helper()
	for _, g := range relay.grantsFor(to.id) {
		require.NoError(t, to.proto.HandleEnvelope(ctx, domain.NewGrantEnvelope(g)))
	}
}

func TestShareRoomAndExchangeMessages(t *testing.T) {
	ctx := context.Background()
	relay := newFakeRelay()
	alice := newParty(t, relay, "alice")
	bob := newParty(t, relay, "bob")
	relay.members["embassy"] = []domain.UserID{"alice", "bob"}

	require.NoError(t, alice.proto.ShareRoom(ctx, "embassy", []domain.UserID{"alice", "bob"}))
	deliverGrants(t, ctx, relay, bob)

	sent, err := alice.proto.Send(ctx, "embassy", []byte("rendezvous at nine"))
	require.NoError(t, err)

	require.NoError(t, bob.proto.HandleEnvelope(ctx, domain.NewMessageEnvelope(sent)))
	require.Equal(t, []byte("rendezvous at nine"), bob.received[string(sent.Ciphertext)])
	require.Empty(t, bob.gaps)
}

func TestMessageBeforeGrant_GapThenRecovery(t *testing.T) {
	ctx := context.Background()
	relay := newFakeRelay()
	alice := newParty(t, relay, "alice")
	bob := newParty(t, relay, "bob")

	require.NoError(t, alice.proto.ShareRoom(ctx, "embassy", []domain.UserID{"alice", "bob"}))
	sent, err := alice.proto.Send(ctx, "embassy", []byte("early bird"))
	require.NoError(t, err)

	// Message delivered before the grant: a gap, not an error.
	require.NoError(t, bob.proto.HandleEnvelope(ctx, domain.NewMessageEnvelope(sent)))
	require.Len(t, bob.gaps, 1)
	require.Equal(t, domain.FirstKeyVersion, bob.gaps[0].Version)
	require.Empty(t, bob.received)

	// Grant arrives; redelivery resolves the placeholder.
	deliverGrants(t, ctx, relay, bob)
	require.NoError(t, bob.proto.HandleEnvelope(ctx, domain.NewMessageEnvelope(sent)))
	require.Equal(t, []byte("early bird"), bob.received[string(sent.Ciphertext)])
}

func TestTamperedMessage_PermanentWarning(t *testing.T) {
	ctx := context.Background()
	relay := newFakeRelay()
	alice := newParty(t, relay, "alice")

	require.NoError(t, alice.proto.ShareRoom(ctx, "embassy", nil))
	sent, err := alice.proto.Send(ctx, "embassy", []byte("untouched"))
	require.NoError(t, err)
	sent.Ciphertext[2] ^= 0x10

	require.NoError(t, alice.proto.HandleEnvelope(ctx, domain.NewMessageEnvelope(sent)))
	require.Equal(t, 1, alice.tampered)
	require.Empty(t, alice.received)
}

func TestLateJoinerGrant(t *testing.T) {
	ctx := context.Background()
	relay := newFakeRelay()
	alice := newParty(t, relay, "alice")
	carol := newParty(t, relay, "carol")

	require.NoError(t, alice.proto.ShareRoom(ctx, "embassy", nil))
	preJoin, err := alice.proto.Send(ctx, "embassy", []byte("history"))
	require.NoError(t, err)

	require.NoError(t, alice.proto.GrantMember(ctx, "embassy", "carol"))
	deliverGrants(t, ctx, relay, carol)

	// The v1 grant covers messages sent before carol joined.
	require.NoError(t, carol.proto.HandleEnvelope(ctx, domain.NewMessageEnvelope(preJoin)))
	require.Equal(t, []byte("history"), carol.received[string(preJoin.Ciphertext)])
}

func TestMembershipChange_RotatesAndLocksOutRemoved(t *testing.T) {
	ctx := context.Background()
	relay := newFakeRelay()
	alice := newParty(t, relay, "alice")
	bob := newParty(t, relay, "bob")
	mallory := newParty(t, relay, "mallory")

	require.NoError(t, alice.proto.ShareRoom(ctx, "embassy", []domain.UserID{"alice", "bob", "mallory"}))
	deliverGrants(t, ctx, relay, bob)
	deliverGrants(t, ctx, relay, mallory)

	preRotation, err := alice.proto.Send(ctx, "embassy", []byte("before removal"))
	require.NoError(t, err)

	// Mallory is removed; the directory now reports the shrunken room.
	relay.mu.Lock()
	relay.members["embassy"] = []domain.UserID{"alice", "bob"}
	relay.mu.Unlock()
	require.NoError(t, alice.proto.HandleEnvelope(ctx,
		domain.NewMembershipEnvelope(domain.MembershipChange{RoomID: "embassy", RemovedUserID: "mallory"})))
	deliverGrants(t, ctx, relay, bob)

	postRotation, err := alice.proto.Send(ctx, "embassy", []byte("after removal"))
	require.NoError(t, err)
	require.Equal(t, preRotation.KeyVersion+1, postRotation.KeyVersion)

	// Bob follows the rotation.
	require.NoError(t, bob.proto.HandleEnvelope(ctx, domain.NewMessageEnvelope(postRotation)))
	require.Equal(t, []byte("after removal"), bob.received[string(postRotation.Ciphertext)])

	// Mallory keeps pre-rotation history but gaps on everything after.
	require.NoError(t, mallory.proto.HandleEnvelope(ctx, domain.NewMessageEnvelope(preRotation)))
	require.Equal(t, []byte("before removal"), mallory.received[string(preRotation.Ciphertext)])
	require.NoError(t, mallory.proto.HandleEnvelope(ctx, domain.NewMessageEnvelope(postRotation)))
	require.Len(t, mallory.gaps, 1)
	require.Nil(t, mallory.received[string(postRotation.Ciphertext)])
}

func TestMembershipChange_BroadcastSingleRotator(t *testing.T) {
	ctx := context.Background()
	relay := newFakeRelay()
	alice := newParty(t, relay, "alice")
	bob := newParty(t, relay, "bob")
	mallory := newParty(t, relay, "mallory")

	require.NoError(t, alice.proto.ShareRoom(ctx, "embassy", []domain.UserID{"alice", "bob", "mallory"}))
	deliverGrants(t, ctx, relay, bob)
	deliverGrants(t, ctx, relay, mallory)

	relay.mu.Lock()
	relay.members["embassy"] = []domain.UserID{"alice", "bob"}
	relay.mu.Unlock()

	// The relay broadcasts the same notification to everyone, including the
	// removed member. Only the lowest remaining id may mint the next
	// generation; a second minter would produce a divergent key under the
	// same version number.
	env := domain.NewMembershipEnvelope(domain.MembershipChange{RoomID: "embassy", RemovedUserID: "mallory"})
	require.NoError(t, bob.proto.HandleEnvelope(ctx, env))
	require.NoError(t, mallory.proto.HandleEnvelope(ctx, env))
	require.NoError(t, alice.proto.HandleEnvelope(ctx, env))

	// Bob and mallory deferred: no competing generation on their side.
	v, err := bob.rooms.ActiveVersion("embassy")
	require.NoError(t, err)
	require.Equal(t, domain.FirstKeyVersion, v)
	v, err = mallory.rooms.ActiveVersion("embassy")
	require.NoError(t, err)
	require.Equal(t, domain.FirstKeyVersion, v)

	deliverGrants(t, ctx, relay, bob)

	post, err := alice.proto.Send(ctx, "embassy", []byte("after broadcast"))
	require.NoError(t, err)
	require.Equal(t, domain.FirstKeyVersion+1, post.KeyVersion)

	// Bob holds the rotator's key, so the post-rotation message decrypts
	// cleanly instead of surfacing as tampered or gapped.
	require.NoError(t, bob.proto.HandleEnvelope(ctx, domain.NewMessageEnvelope(post)))
	require.Equal(t, []byte("after broadcast"), bob.received[string(post.Ciphertext)])
	require.Zero(t, bob.tampered)
	require.Empty(t, bob.gaps)
}

func TestHandleAll_AcksOnlyProcessedPrefix(t *testing.T) {
	ctx := context.Background()
	relay := newFakeRelay()
	alice := newParty(t, relay, "alice")
	bob := newParty(t, relay, "bob")

	require.NoError(t, alice.proto.ShareRoom(ctx, "embassy", []domain.UserID{"alice", "bob"}))
	deliverGrants(t, ctx, relay, bob)

	first, err := alice.proto.Send(ctx, "embassy", []byte("one"))
	require.NoError(t, err)
	second, err := alice.proto.Send(ctx, "embassy", []byte("two"))
	require.NoError(t, err)

	batch := []domain.Envelope{
		domain.NewMessageEnvelope(first),
		{Kind: domain.KindGrant}, // malformed, must stop the pump
		domain.NewMessageEnvelope(second),
	}
	processed, err := bob.proto.HandleAll(ctx, batch)
	require.Error(t, err)
	require.Contains(t, err.Error(), "envelope 2 of 3")
	require.Equal(t, 1, processed)

	// Only the prefix before the failure was handled.
	require.Equal(t, []byte("one"), bob.received[string(first.Ciphertext)])
	require.Nil(t, bob.received[string(second.Ciphertext)])

	processed, err = bob.proto.HandleAll(ctx, []domain.Envelope{domain.NewMessageEnvelope(second)})
	require.NoError(t, err)
	require.Equal(t, 1, processed)
	require.Equal(t, []byte("two"), bob.received[string(second.Ciphertext)])
}

func TestHandleEnvelope_RejectsMalformed(t *testing.T) {
	ctx := context.Background()
	relay := newFakeRelay()
	alice := newParty(t, relay, "alice")

	// Kind/payload mismatch must never reach a handler.
	err := alice.proto.HandleEnvelope(ctx, domain.Envelope{Kind: domain.KindMessage})
	require.Error(t, err)

	err = alice.proto.HandleEnvelope(ctx, domain.Envelope{
		Kind:       domain.KindGrant,
		Message:    &domain.EncryptedMessage{},
		Membership: &domain.MembershipChange{},
	})
	require.Error(t, err)
}
