package identity

import (
	"errors"
	"fmt"
	"unicode"

	"sealroom/internal/crypto"
	"sealroom/internal/domain"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)
)

// Service manages identity key creation and access using a backing store.
type Service struct {
	provider *crypto.Provider
	store    domain.IdentityStore
}

// New returns an identity service over the given provider and store.
func New(provider *crypto.Provider, store domain.IdentityStore) *Service {
	return &Service{provider: provider, store: store}
}

// Ensure loads the stored identity, or on first run generates and persists a
// fresh one. New identities are gated on the passphrase strength policy;
// existing ones load with whatever passphrase sealed them.
func (s *Service) Ensure(passphrase string) (domain.IdentityKeyPair, domain.Fingerprint, error) {
	pair, err := s.store.LoadIdentity(passphrase)
	switch {
	case err == nil:
		return pair, s.fingerprint(pair), nil
	case errors.Is(err, domain.ErrIdentityNotFound):
		// Normal first-run state; fall through to generation.
	default:
		return domain.IdentityKeyPair{}, "", err
	}

	if !isSecurePassphrase(passphrase) {
		return domain.IdentityKeyPair{}, "", ErrWeakPassphrase
	}
	pair, err = s.provider.GenerateIdentity()
	if err != nil {
		return domain.IdentityKeyPair{}, "", err
	}
	if err := s.store.SaveIdentity(passphrase, pair); err != nil {
		return domain.IdentityKeyPair{}, "", err
	}
	return pair, s.fingerprint(pair), nil
}

// Load decrypts and returns the local identity.
func (s *Service) Load(passphrase string) (domain.IdentityKeyPair, error) {
	return s.store.LoadIdentity(passphrase)
}

// Fingerprint returns a short fingerprint of the local identity public key.
func (s *Service) Fingerprint(passphrase string) (domain.Fingerprint, error) {
	pair, err := s.store.LoadIdentity(passphrase)
	if err != nil {
		return "", err
	}
	return s.fingerprint(pair), nil
}

func (s *Service) fingerprint(pair domain.IdentityKeyPair) domain.Fingerprint {
	return crypto.Fingerprint(pair.Public)
}

// isSecurePassphrase enforces length plus character-class coverage.
func isSecurePassphrase(passphrase string) bool {
	if len(passphrase) < minPassphraseLength {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}
