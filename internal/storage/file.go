package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/AlexZinkM/walletlink/internal/crypto"
)

// FileStore keeps all values in one vault file encrypted with a passphrase.
// Every write re-seals the whole map and replaces the file atomically.
type FileStore struct {
	mu       sync.Mutex
	path     string
	password []byte
	scryptN  int
	values   map[string]string
}

// OpenFileStore opens the vault at path, creating an empty one when the file does not exist.
// password is copied; the caller should zero its own slice after the call.
func OpenFileStore(path string, password []byte, scryptN int) (*FileStore, error) {
	if len(password) == 0 {
		return nil, errors.New("password cannot be empty")
	}

	s := &FileStore{
		path:     path,
		password: append([]byte(nil), password...),
		scryptN:  scryptN,
		values:   make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	plaintext, err := crypto.OpenVault(data, s.password)
	if err != nil {
		return nil, fmt.Errorf("failed to open store file: %w", err)
	}
	defer clear(plaintext)

	if err := json.Unmarshal(plaintext, &s.values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal store values: %w", err)
	}
	return s, nil
}

func (s *FileStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.values[key]
	s.values[key] = value
	if err := s.flush(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

func (s *FileStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for _, k := range keys {
		if _, ok := s.values[k]; ok {
			delete(s.values, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.flush()
}

// Rekey re-seals the store under a new passphrase.
func (s *FileStore) Rekey(password []byte) error {
	if len(password) == 0 {
		return errors.New("password cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.password
	s.password = append([]byte(nil), password...)
	if err := s.flush(); err != nil {
		clear(s.password)
		s.password = old
		return err
	}
	clear(old)
	return nil
}

// Close wipes the in-memory passphrase.
func (s *FileStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.password)
}

func (s *FileStore) flush() error {
	plaintext, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("failed to marshal store values: %w", err)
	}
	defer clear(plaintext)

	data, err := crypto.SealVault(plaintext, s.password, s.scryptN)
	if err != nil {
		return fmt.Errorf("failed to seal store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close store file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}
