package store

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	"sealroom/internal/domain"
)

const (
	storeKeySize   = 32
	storeNonceSize = 24
	storeSaltSize  = 16
)

var (
	metaBucket  = []byte("meta")
	roomsBucket = []byte("rooms")

	saltKey   = []byte("salt")
	canaryKey = []byte("canary")

	// canaryPlain is sealed under the store key at creation time so a later
	// open with the wrong passphrase fails immediately instead of on first read.
	canaryPlain = []byte("sealroom-keystore")
)

// BoltStore is the durable room-key cache. One nested bucket per room, keyed
// by big-endian version so a bucket cursor's last entry is the newest key.
// Values are CBOR records sealed under a passphrase-derived store key.
type BoltStore struct {
	db  *bolt.DB
	key [storeKeySize]byte
}

// roomKeyRecord is the CBOR shape persisted per (room, version).
type roomKeyRecord struct {
	RoomID    string `cbor:"1,keyasint"`
	Version   uint64 `cbor:"2,keyasint"`
	Key       []byte `cbor:"3,keyasint"`
	CreatedAt int64  `cbor:"4,keyasint"`
}

// OpenBolt opens (or creates) the room-key database at path. The passphrase
// must match the one the database was created with; a mismatch returns
// ErrAuthenticationFailure.
func OpenBolt(path, passphrase string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	s := &BoltStore{db: db}
	err = db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(roomsBucket); err != nil {
			return err
		}

		salt := meta.Get(saltKey)
		if salt == nil {
			fresh := make([]byte, storeSaltSize)
			if _, err := rand.Read(fresh); err != nil {
				return err
			}
			if err := meta.Put(saltKey, fresh); err != nil {
				return err
			}
			salt = fresh
		}
		derived, err := scrypt.Key([]byte(passphrase), salt, 1<<15, 8, 1, storeKeySize)
		if err != nil {
			return err
		}
		copy(s.key[:], derived)

		canary := meta.Get(canaryKey)
		if canary == nil {
			sealed, err := s.seal(canaryPlain)
			if err != nil {
				return err
			}
			return meta.Put(canaryKey, sealed)
		}
		if _, err := s.open(canary); err != nil {
			return fmt.Errorf("%w: wrong passphrase for room-key store", domain.ErrAuthenticationFailure)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// PutRoomKey stores one key generation. Idempotent per (room, version) with
// first-write-wins semantics: a replayed grant never clobbers what a member
// already decrypts with.
func (s *BoltStore) PutRoomKey(rk domain.RoomKey) error {
	rec := roomKeyRecord{
		RoomID:    rk.RoomID.String(),
		Version:   uint64(rk.Version),
		Key:       rk.Key.Slice(),
		CreatedAt: rk.CreatedAt.Unix(),
	}
	raw, err := cbor.Marshal(rec)
	if err != nil {
		return err
	}
	sealed, err := s.seal(raw)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		room, err := tx.Bucket(roomsBucket).CreateBucketIfNotExists([]byte(rk.RoomID))
		if err != nil {
			return err
		}
		vk := versionKey(rk.Version)
		if room.Get(vk) != nil {
			return nil
		}
		return room.Put(vk, sealed)
	})
}

// RoomKey returns one stored generation, reporting absence via ok=false.
func (s *BoltStore) RoomKey(room domain.RoomID, version domain.KeyVersion) (domain.RoomKey, bool, error) {
	var rk domain.RoomKey
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(roomsBucket).Bucket([]byte(room))
		if b == nil {
			return nil
		}
		sealed := b.Get(versionKey(version))
		if sealed == nil {
			return nil
		}
		raw, err := s.open(sealed)
		if err != nil {
			return err
		}
		var rec roomKeyRecord
		if err := cbor.Unmarshal(raw, &rec); err != nil {
			return err
		}
		rk = recordToRoomKey(rec)
		found = true
		return nil
	})
	return rk, found, err
}

// MaxVersion returns the highest version stored for a room.
func (s *BoltStore) MaxVersion(room domain.RoomID) (domain.KeyVersion, bool, error) {
	var max domain.KeyVersion
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(roomsBucket).Bucket([]byte(room))
		if b == nil {
			return nil
		}
		k, _ := b.Cursor().Last()
		if k == nil {
			return nil
		}
		max = domain.KeyVersion(binary.BigEndian.Uint64(k))
		found = true
		return nil
	})
	return max, found, err
}

func (s *BoltStore) seal(raw []byte) ([]byte, error) {
	var nonce [storeNonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	out := secretbox.Seal(nonce[:], raw, &nonce, &s.key)
	return out, nil
}

func (s *BoltStore) open(sealed []byte) ([]byte, error) {
	if len(sealed) < storeNonceSize {
		return nil, domain.ErrAuthenticationFailure
	}
	var nonce [storeNonceSize]byte
	copy(nonce[:], sealed[:storeNonceSize])
	raw, ok := secretbox.Open(nil, sealed[storeNonceSize:], &nonce, &s.key)
	if !ok {
		return nil, domain.ErrAuthenticationFailure
	}
	return raw, nil
}

func versionKey(v domain.KeyVersion) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(v))
	return k[:]
}

func recordToRoomKey(rec roomKeyRecord) domain.RoomKey {
	rk := domain.RoomKey{
		RoomID:    domain.RoomID(rec.RoomID),
		Version:   domain.KeyVersion(rec.Version),
		CreatedAt: time.Unix(rec.CreatedAt, 0).UTC(),
	}
	copy(rk.Key[:], rec.Key)
	return rk
}

var _ domain.RoomKeyStore = (*BoltStore)(nil)
