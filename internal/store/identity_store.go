package store

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"sealroom/internal/domain"
)

const (
	identityFile = "identity.enc"

	// The current supported version of the encrypted blob format on disk.
	keystoreFormatVersion = 1
)

// FileStore persists the identity key pair encrypted under a passphrase.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore { return &FileStore{dir: dir} }

// SaveIdentity encrypts and writes the pair. The write is atomic so a crash
// never leaves a torn identity file.
func (s *FileStore) SaveIdentity(passphrase string, pair domain.IdentityKeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(pair)
	if err != nil {
		return err
	}
	N, r, p := scryptParamsDefault()
	blob, err := encryptBlob(passphrase, raw, N, r, p)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(s.dir, identityFile), blob, 0o600)
}

// LoadIdentity decrypts and returns the stored pair. A missing file returns
// ErrIdentityNotFound, the normal first-run state; a wrong passphrase or
// corrupted blob returns ErrAuthenticationFailure.
func (s *FileStore) LoadIdentity(passphrase string) (domain.IdentityKeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := readFile(filepath.Join(s.dir, identityFile))
	if err != nil {
		return domain.IdentityKeyPair{}, err
	}
	if blob == nil {
		return domain.IdentityKeyPair{}, domain.ErrIdentityNotFound
	}
	raw, err := decryptBlob(passphrase, blob)
	if err != nil {
		return domain.IdentityKeyPair{}, err
	}
	var pair domain.IdentityKeyPair
	if err := json.Unmarshal(raw, &pair); err != nil {
		return domain.IdentityKeyPair{}, err
	}
	return pair, nil
}

// blob is the on-disk JSON structure holding the ciphertext and KDF parameters.
type blob struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// encryptBlob derives a key from passphrase and seals raw into a JSON blob.
func encryptBlob(passphrase string, raw []byte, N, r, p int) ([]byte, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	key, err := scrypt.Key([]byte(passphrase), salt[:], N, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [12]byte // zero nonce; the key is salt-bound and single-use
	ct := aead.Seal(nil, nonce[:], raw, salt[:])

	return json.Marshal(blob{
		V:      keystoreFormatVersion,
		Salt:   salt[:],
		N:      N,
		R:      r,
		P:      p,
		Cipher: ct,
	})
}

// decryptBlob opens the JSON blob using a key derived from passphrase.
func decryptBlob(passphrase string, b []byte) ([]byte, error) {
	var bl blob
	if err := json.Unmarshal(b, &bl); err != nil {
		return nil, err
	}
	if bl.V > keystoreFormatVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", bl.V)
	}

	key, err := scrypt.Key([]byte(passphrase), bl.Salt, bl.N, bl.R, bl.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [12]byte
	pt, err := aead.Open(nil, nonce[:], bl.Cipher, bl.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: wrong passphrase or corrupted identity", domain.ErrAuthenticationFailure)
	}
	return pt, nil
}

// Tunables for scrypt key derivation.
func scryptParamsDefault() (N, r, p int) { return 1 << 15, 8, 1 }

var _ domain.IdentityStore = (*FileStore)(nil)
