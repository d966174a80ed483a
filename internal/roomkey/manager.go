package roomkey

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sealroom/internal/crypto"
	"sealroom/internal/domain"
)

// Manager tracks room keys for one device: its own identity, a durable
// store of received versions, and an in-memory write-through cache.
type Manager struct {
	provider *crypto.Provider
	store    domain.RoomKeyStore
	registry domain.IdentityRegistry
	self     domain.UserID
	identity domain.IdentityKeyPair

	mu    sync.Mutex
	rooms map[domain.RoomID]*roomState
}

// roomState serializes all mutations of one room. active is zero until a
// version is known.
type roomState struct {
	mu     sync.Mutex
	keys   map[domain.KeyVersion]domain.RoomKey
	active domain.KeyVersion
}

// NewManager returns a manager acting as the given user with the given
// identity key pair.
func NewManager(
	provider *crypto.Provider,
	store domain.RoomKeyStore,
	registry domain.IdentityRegistry,
	self domain.UserID,
	identity domain.IdentityKeyPair,
) *Manager {
	return &Manager{
		provider: provider,
		store:    store,
		registry: registry,
		self:     self,
		identity: identity,
		rooms:    make(map[domain.RoomID]*roomState),
	}
}

// CreateRoom generates the room's first key and wraps it for every initial
// member, the creator included. Registry lookups happen before any state
// changes, so a failed lookup leaves the room untouched.
func (m *Manager) CreateRoom(
	ctx context.Context,
	room domain.RoomID,
	members []domain.UserID,
) (domain.RoomKey, []domain.EncryptedRoomKeyGrant, error) {
	st := m.room(room)
	st.mu.Lock()
	defer st.mu.Unlock()

	if v, ok, err := m.maxKnown(st, room); err != nil {
		return domain.RoomKey{}, nil, err
	} else if ok {
		return domain.RoomKey{}, nil, fmt.Errorf("room %s already keyed at version %d", room, v)
	}

	publics, err := m.resolveMembers(ctx, members)
	if err != nil {
		return domain.RoomKey{}, nil, err
	}

	key, err := m.provider.NewRoomKey()
	if err != nil {
		return domain.RoomKey{}, nil, err
	}
	rk := domain.RoomKey{
		RoomID:    room,
		Version:   domain.FirstKeyVersion,
		Key:       key,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.cache(st, rk); err != nil {
		return domain.RoomKey{}, nil, err
	}

	grants, err := m.wrapForAll(rk, publics)
	if err != nil {
		return domain.RoomKey{}, nil, err
	}
	return rk, grants, nil
}

// GrantAccess wraps an already-cached key version for one additional
// recipient. A version this device does not hold cannot be granted:
// distribution follows the trust graph of existing holders.
func (m *Manager) GrantAccess(
	ctx context.Context,
	room domain.RoomID,
	version domain.KeyVersion,
	recipient domain.UserID,
) (domain.EncryptedRoomKeyGrant, error) {
	st := m.room(room)
	st.mu.Lock()
	defer st.mu.Unlock()

	rk, ok, err := m.lookup(st, room, version)
	if err != nil {
		return domain.EncryptedRoomKeyGrant{}, err
	}
	if !ok {
		return domain.EncryptedRoomKeyGrant{}, domain.ErrKeyNotAvailable
	}

	pub, err := m.publicKeyOf(ctx, recipient)
	if err != nil {
		return domain.EncryptedRoomKeyGrant{}, err
	}
	return m.wrap(rk, recipient, pub)
}

// ReceiveGrant unwraps a grant addressed to this device and caches the key.
// Idempotent: replaying a grant for an already-cached version is a no-op
// that returns the cached key.
func (m *Manager) ReceiveGrant(grant domain.EncryptedRoomKeyGrant) (domain.RoomKey, error) {
	if grant.RecipientID != m.self {
		return domain.RoomKey{}, fmt.Errorf("grant for %s delivered to %s", grant.RecipientID, m.self)
	}

	st := m.room(grant.RoomID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if rk, ok, err := m.lookup(st, grant.RoomID, grant.Version); err != nil {
		return domain.RoomKey{}, err
	} else if ok {
		return rk, nil
	}

	payload, err := m.provider.Unwrap(grant.Nonce, grant.WrappedKey, grant.SenderPublicKey, m.identity.Private)
	if err != nil {
		return domain.RoomKey{}, err
	}
	if len(payload) != len(domain.SymmetricKey{}) {
		return domain.RoomKey{}, fmt.Errorf("%w: wrapped payload is %d bytes", domain.ErrAuthenticationFailure, len(payload))
	}

	rk := domain.RoomKey{
		RoomID:    grant.RoomID,
		Version:   grant.Version,
		CreatedAt: time.Now().UTC(),
	}
	copy(rk.Key[:], payload)
	crypto.Wipe(payload)

	if err := m.cache(st, rk); err != nil {
		return domain.RoomKey{}, err
	}
	return rk, nil
}

// Rotate generates the next key generation after a member was removed and
// wraps it for every current member. Old versions stay cached so history
// remains readable; the removed member simply never receives the new one.
func (m *Manager) Rotate(
	ctx context.Context,
	room domain.RoomID,
	currentMembers []domain.UserID,
) (domain.RoomKey, []domain.EncryptedRoomKeyGrant, error) {
	st := m.room(room)
	st.mu.Lock()
	defer st.mu.Unlock()

	max, ok, err := m.maxKnown(st, room)
	if err != nil {
		return domain.RoomKey{}, nil, err
	}
	if !ok {
		// Cannot rotate a room we hold no key for.
		return domain.RoomKey{}, nil, domain.ErrKeyNotAvailable
	}

	publics, err := m.resolveMembers(ctx, currentMembers)
	if err != nil {
		return domain.RoomKey{}, nil, err
	}

	key, err := m.provider.NewRoomKey()
	if err != nil {
		return domain.RoomKey{}, nil, err
	}
	rk := domain.RoomKey{
		RoomID:    room,
		Version:   max + 1,
		Key:       key,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.cache(st, rk); err != nil {
		return domain.RoomKey{}, nil, err
	}

	grants, err := m.wrapForAll(rk, publics)
	if err != nil {
		return domain.RoomKey{}, nil, err
	}
	return rk, grants, nil
}

// ActiveVersion returns the highest version this device holds for a room.
func (m *Manager) ActiveVersion(room domain.RoomID) (domain.KeyVersion, error) {
	st := m.room(room)
	st.mu.Lock()
	defer st.mu.Unlock()

	v, ok, err := m.maxKnown(st, room)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, domain.ErrKeyNotAvailable
	}
	return v, nil
}

// KeyFor returns one cached key generation, or ErrKeyNotAvailable.
func (m *Manager) KeyFor(room domain.RoomID, version domain.KeyVersion) (domain.RoomKey, error) {
	st := m.room(room)
	st.mu.Lock()
	defer st.mu.Unlock()

	rk, ok, err := m.lookup(st, room, version)
	if err != nil {
		return domain.RoomKey{}, err
	}
	if !ok {
		return domain.RoomKey{}, domain.ErrKeyNotAvailable
	}
	return rk, nil
}

// Self returns the user this manager acts as.
func (m *Manager) Self() domain.UserID { return m.self }

// PublicKey returns the public half of this device's identity.
func (m *Manager) PublicKey() domain.X25519Public { return m.identity.Public }

func (m *Manager) room(room domain.RoomID) *roomState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.rooms[room]
	if !ok {
		st = &roomState{keys: make(map[domain.KeyVersion]domain.RoomKey)}
		m.rooms[room] = st
	}
	return st
}

// lookup consults the in-memory cache first, then the durable store,
// promoting store hits into the cache. Callers hold st.mu.
func (m *Manager) lookup(st *roomState, room domain.RoomID, version domain.KeyVersion) (domain.RoomKey, bool, error) {
	if rk, ok := st.keys[version]; ok {
		return rk, true, nil
	}
	rk, ok, err := m.store.RoomKey(room, version)
	if err != nil || !ok {
		return domain.RoomKey{}, false, err
	}
	st.keys[version] = rk
	if version > st.active {
		st.active = version
	}
	return rk, true, nil
}

// maxKnown reports the highest version in cache or store. Callers hold st.mu.
func (m *Manager) maxKnown(st *roomState, room domain.RoomID) (domain.KeyVersion, bool, error) {
	stored, ok, err := m.store.MaxVersion(room)
	if err != nil {
		return 0, false, err
	}
	if ok && stored > st.active {
		st.active = stored
	}
	if st.active == 0 {
		return 0, false, nil
	}
	return st.active, true, nil
}

// cache persists rk and updates the in-memory state. Callers hold st.mu.
func (m *Manager) cache(st *roomState, rk domain.RoomKey) error {
	if err := m.store.PutRoomKey(rk); err != nil {
		return err
	}
	st.keys[rk.Version] = rk
	if rk.Version > st.active {
		st.active = rk.Version
	}
	return nil
}

type memberKey struct {
	id  domain.UserID
	pub domain.X25519Public
}

// resolveMembers fetches every member's public key up front, deduplicating
// and always including self, so no partial grant set is ever produced.
func (m *Manager) resolveMembers(ctx context.Context, members []domain.UserID) ([]memberKey, error) {
	seen := make(map[domain.UserID]bool, len(members)+1)
	out := make([]memberKey, 0, len(members)+1)

	add := func(id domain.UserID) error {
		if seen[id] {
			return nil
		}
		seen[id] = true
		pub, err := m.publicKeyOf(ctx, id)
		if err != nil {
			return err
		}
		out = append(out, memberKey{id: id, pub: pub})
		return nil
	}

	if err := add(m.self); err != nil {
		return nil, err
	}
	for _, id := range members {
		if err := add(id); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (m *Manager) publicKeyOf(ctx context.Context, id domain.UserID) (domain.X25519Public, error) {
	if id == m.self {
		return m.identity.Public, nil
	}
	pub, err := m.registry.PublicKeyOf(ctx, id)
	if err != nil {
		return domain.X25519Public{}, fmt.Errorf("resolve public key of %s: %w", id, err)
	}
	return pub, nil
}

func (m *Manager) wrapForAll(rk domain.RoomKey, members []memberKey) ([]domain.EncryptedRoomKeyGrant, error) {
	grants := make([]domain.EncryptedRoomKeyGrant, 0, len(members))
	for _, mk := range members {
		g, err := m.wrap(rk, mk.id, mk.pub)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, nil
}

func (m *Manager) wrap(rk domain.RoomKey, recipient domain.UserID, pub domain.X25519Public) (domain.EncryptedRoomKeyGrant, error) {
	nonce, wrapped, err := m.provider.Wrap(rk.Key.Slice(), pub, m.identity.Private)
	if err != nil {
		return domain.EncryptedRoomKeyGrant{}, err
	}
	return domain.EncryptedRoomKeyGrant{
		RoomID:          rk.RoomID,
		Version:         rk.Version,
		RecipientID:     recipient,
		SenderPublicKey: m.identity.Public,
		Nonce:           nonce,
		WrappedKey:      wrapped,
	}, nil
}
