package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/AlexZinkM/walletlink/internal/crypto"
	"github.com/AlexZinkM/walletlink/internal/storage"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"
)

// ErrNotConnected is returned when a request needs the wallet's key but connect has not completed.
var ErrNotConnected = errors.New("wallet not connected")

// Remote is what the wallet handed back on connect.
type Remote struct {
	PublicKey [crypto.KeySize]byte // wallet encryption public key for this session
	Session   string               // opaque wallet session token
	Address   string               // wallet account address
}

// Manager owns the dApp keypair, the per-request nonces and the cached remote key.
// One Manager is built by the composition root and shared by builder and parser.
type Manager struct {
	mu    sync.Mutex
	store storage.Store
	log   *zap.Logger
	rand  io.Reader
	kp    *crypto.Keypair
}

// NewManager creates a Manager over store. log may be nil.
func NewManager(store storage.Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, log: log, rand: rand.Reader}
}

// EnsureSession returns the persisted keypair, generating and persisting one on first use.
// An undecodable stored key is replaced; the wallet then has to be connected again.
func (m *Manager) EnsureSession() (*crypto.Keypair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureLocked()
}

func (m *Manager) ensureLocked() (*crypto.Keypair, error) {
	if m.kp != nil {
		return m.kp, nil
	}

	encoded, err := m.store.Get(storage.KeyDappSecretKey)
	switch {
	case err == nil:
		kp, decodeErr := decodeKeypair(encoded)
		if decodeErr == nil {
			m.kp = kp
			return kp, nil
		}
		m.log.Warn("stored dapp keypair is unreadable, generating a new one", zap.Error(decodeErr))
		// keys derived from the old secret are useless now
		if err := m.store.Delete(storage.KeyRemotePublicKey, storage.KeySession); err != nil {
			return nil, fmt.Errorf("failed to clear stale session: %w", err)
		}
	case storage.IsNotFound(err):
	default:
		return nil, fmt.Errorf("failed to load dapp keypair: %w", err)
	}

	kp, err := crypto.GenerateKeypair(m.rand)
	if err != nil {
		return nil, err
	}
	if err := m.store.Set(storage.KeyDappSecretKey, base58.Encode(kp.SecretKey[:])); err != nil {
		return nil, fmt.Errorf("failed to persist dapp keypair: %w", err)
	}
	m.log.Info("generated dapp encryption keypair", zap.String("publicKey", base58.Encode(kp.PublicKey[:])))
	m.kp = kp
	return kp, nil
}

func decodeKeypair(encoded string) (*crypto.Keypair, error) {
	secret, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode secret key: %w", err)
	}
	defer clear(secret)
	return crypto.KeypairFromSecret(secret)
}

// PublicKey returns the base58 dApp public key, creating the keypair if needed.
func (m *Manager) PublicKey() (string, error) {
	kp, err := m.EnsureSession()
	if err != nil {
		return "", err
	}
	return base58.Encode(kp.PublicKey[:]), nil
}

// FreshNonce returns a new random nonce. Every outbound ciphertext gets its own.
func (m *Manager) FreshNonce() ([crypto.NonceSize]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return crypto.NewNonce(m.rand)
}

// SharedSecret derives the box shared secret with the wallet's public key.
func (m *Manager) SharedSecret(remote [crypto.KeySize]byte) (*[crypto.KeySize]byte, error) {
	kp, err := m.EnsureSession()
	if err != nil {
		return nil, err
	}
	return crypto.SharedKey(&remote, &kp.SecretKey), nil
}

// Encrypt seals plaintext for the wallet under a fresh nonce and returns both base58 encoded.
func (m *Manager) Encrypt(remote [crypto.KeySize]byte, plaintext []byte) (nonce, payload string, err error) {
	shared, err := m.SharedSecret(remote)
	if err != nil {
		return "", "", err
	}
	defer clear(shared[:])

	n, err := m.FreshNonce()
	if err != nil {
		return "", "", err
	}
	ct := crypto.Seal(plaintext, &n, shared)

	nonce = base58.Encode(n[:])
	if err := m.store.Set(storage.KeyLastNonce, nonce); err != nil {
		m.log.Warn("failed to record last nonce", zap.Error(err))
	}
	return nonce, base58.Encode(ct), nil
}

// Decrypt opens a wallet ciphertext with the given wallet public key.
func (m *Manager) Decrypt(remote [crypto.KeySize]byte, nonce [crypto.NonceSize]byte, ciphertext []byte) ([]byte, error) {
	shared, err := m.SharedSecret(remote)
	if err != nil {
		return nil, err
	}
	defer clear(shared[:])
	return crypto.Open(ciphertext, &nonce, shared)
}

// SetRemote caches the wallet key, session and address received on connect.
func (m *Manager) SetRemote(r Remote) error {
	if err := m.store.Set(storage.KeyRemotePublicKey, base58.Encode(r.PublicKey[:])); err != nil {
		return fmt.Errorf("failed to store remote public key: %w", err)
	}
	if err := m.store.Set(storage.KeySession, r.Session); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if err := m.store.Set(storage.KeyWalletAddress, r.Address); err != nil {
		return fmt.Errorf("failed to store wallet address: %w", err)
	}
	return nil
}

// RemoteKey returns the cached wallet public key.
func (m *Manager) RemoteKey() ([crypto.KeySize]byte, error) {
	encoded, err := m.store.Get(storage.KeyRemotePublicKey)
	if err != nil {
		if storage.IsNotFound(err) {
			return [crypto.KeySize]byte{}, ErrNotConnected
		}
		return [crypto.KeySize]byte{}, fmt.Errorf("failed to load remote public key: %w", err)
	}
	return crypto.DecodeKey(encoded)
}

// Remote returns everything cached from the last connect.
func (m *Manager) Remote() (*Remote, error) {
	key, err := m.RemoteKey()
	if err != nil {
		return nil, err
	}
	sess, err := m.store.Get(storage.KeySession)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrNotConnected
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	addr, err := m.store.Get(storage.KeyWalletAddress)
	if err != nil && !storage.IsNotFound(err) {
		return nil, fmt.Errorf("failed to load wallet address: %w", err)
	}
	return &Remote{PublicKey: key, Session: sess, Address: addr}, nil
}

// Reset forgets the keypair and the wallet session (logout).
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.kp != nil {
		m.kp.Wipe()
		m.kp = nil
	}
	if err := m.store.Delete(
		storage.KeyDappSecretKey,
		storage.KeyRemotePublicKey,
		storage.KeySession,
		storage.KeyWalletAddress,
		storage.KeyLastNonce,
	); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	return nil
}
