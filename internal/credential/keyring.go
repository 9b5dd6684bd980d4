package credential

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/99designs/keyring"

	"github.com/nhle/ecotrack-console/internal/model"
)

const (
	serviceName = "ecotrack"

	// TokenKey is the keyring entry holding the admin API bearer token.
	TokenKey = "api-token"
)

// ErrNoToken is returned when no API token has been stored.
var ErrNoToken = errors.New("no API token stored")

// Opener opens the keyring backing a Store. Tests substitute an
// in-memory keyring.
type Opener func() (keyring.Keyring, error)

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(model.DefaultConfigDir(), "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("ecotrack-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Store reads and writes credentials in the system keyring.
type Store struct {
	open Opener
}

// NewStore returns a Store over the system keyring.
func NewStore() *Store {
	return &Store{open: openKeyring}
}

// NewStoreWith returns a Store that opens its keyring with open.
func NewStoreWith(open Opener) *Store {
	return &Store{open: open}
}

// Get retrieves a credential value by key.
func (s *Store) Get(key string) (string, error) {
	ring, err := s.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key.
func (s *Store) Set(key string, value string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "EcoTrack admin API token",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key. Removing a missing key is not an
// error.
func (s *Store) Delete(key string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// Token implements api.TokenSource. A missing token yields an empty
// string so the client can report Unauthorized without a request.
func (s *Store) Token() (string, error) {
	token, err := s.Get(TokenKey)
	if errors.Is(err, ErrNoToken) {
		return "", nil
	}
	return token, err
}

// ValidateToken checks that s looks like a bearer token: non-empty once
// trimmed and free of inner whitespace.
func ValidateToken(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("token is required")
	}
	if strings.ContainsAny(s, " \t\n") {
		return errors.New("token must not contain whitespace")
	}
	return nil
}
