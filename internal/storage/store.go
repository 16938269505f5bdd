package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Keys used by the wallet link core.
const (
	KeyDappSecretKey   = "dappSecretKey"
	KeyRemotePublicKey = "phantomEncryptionPublicKey"
	KeySession         = "phantomSession"
	KeyWalletAddress   = "phantomWalletAddress"
	KeyLastNonce       = "lastRequestNonce"
	KeyChallengeNonce  = "loginChallengeNonce"
	KeyPendingFlow     = "pendingFlow"
	KeyPendingURL      = "pendingCallbackURL"
	KeyBridgeURL       = "bridgeCallbackURL"
	KeyLastCallbackURL = "lastProcessedCallbackURL"
	KeyAuthToken       = "authToken"
	KeyWallets         = "linkedWallets"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("key not found")

// Store is a durable string key-value store.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(keys ...string) error
}

// IsNotFound reports whether err means the key was absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// GetJSON decodes the JSON value at key into out.
func GetJSON(s Store, key string, out any) error {
	raw, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

// SetJSON stores v at key as one JSON value.
func SetJSON(s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.Set(key, string(raw))
}

// MemoryStore keeps values in process memory. Used by tests and STORE_BACKEND=memory.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

type expiringStore interface {
	SetWithTTL(key, value string, ttlSeconds int) error
}

// SetExpiring stores value with a TTL when the backend supports it, and plainly otherwise.
func SetExpiring(s Store, key, value string, ttlSeconds int) error {
	if es, ok := s.(expiringStore); ok && ttlSeconds > 0 {
		return es.SetWithTTL(key, value, ttlSeconds)
	}
	return s.Set(key, value)
}
