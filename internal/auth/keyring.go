package auth

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// ErrStoreKeyNotFound reports an absent key in the secret store.
var ErrStoreKeyNotFound = errors.New("secret store key not found")

// Store abstracts the OS secret store so tests can substitute an in-memory
// implementation.
type Store interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// SystemStore is the OS keyring (macOS Keychain, Windows Credential
// Manager, libsecret on Linux).
type SystemStore struct{}

func (SystemStore) Get(service, key string) (string, error) {
	value, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrStoreKeyNotFound
		}

		return "", err
	}

	return value, nil
}

func (SystemStore) Set(service, key, value string) error {
	return keyring.Set(service, key, value)
}

func (SystemStore) Delete(service, key string) error {
	err := keyring.Delete(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrStoreKeyNotFound
		}

		return err
	}

	return nil
}

// MemoryStore is an in-memory Store for tests and environments without a
// system keyring. Not safe for concurrent use.
type MemoryStore struct {
	entries map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

func (s *MemoryStore) Get(service, key string) (string, error) {
	value, ok := s.entries[service+"\x00"+key]
	if !ok {
		return "", ErrStoreKeyNotFound
	}

	return value, nil
}

func (s *MemoryStore) Set(service, key, value string) error {
	s.entries[service+"\x00"+key] = value

	return nil
}

func (s *MemoryStore) Delete(service, key string) error {
	mapKey := service + "\x00" + key

	if _, ok := s.entries[mapKey]; !ok {
		return ErrStoreKeyNotFound
	}

	delete(s.entries, mapKey)

	return nil
}
