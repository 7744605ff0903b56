// Package credstore persists the session cookie set and scope parameters
// produced by the login helper. The platform keychain is the primary
// backend; when no keychain is reachable (headless Linux, CI) values fall
// back to an encrypted file under the agent's data directory.
package credstore

import (
	"fmt"

	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
)

const service = "no.cybergutta.akademitrack"

// Store is an opaque key/value credential store.
type Store struct {
	user     string
	fallback *fileVault
	logger   *zap.Logger
}

// New builds a store for the given keyring user. dataDir hosts the
// encrypted fallback file.
func New(user, dataDir string, logger *zap.Logger) *Store {
	if user == "" {
		user = "default"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		user:     user,
		fallback: newFileVault(dataDir, user),
		logger:   logger,
	}
}

// Set stores a secret under key.
func (s *Store) Set(key, value string) error {
	err := keyring.Set(service, s.entry(key), value)
	if err == nil {
		return nil
	}
	s.logger.Sugar().Debugw("keyring write failed, using file vault", "key", key, "error", err)
	if err := s.fallback.set(key, value); err != nil {
		return fmt.Errorf("store credential %s: %w", key, err)
	}
	return nil
}

// Get retrieves a secret. A missing key returns keyring.ErrNotFound.
func (s *Store) Get(key string) (string, error) {
	if v, err := keyring.Get(service, s.entry(key)); err == nil {
		return v, nil
	}
	v, err := s.fallback.get(key)
	if err != nil {
		return "", keyring.ErrNotFound
	}
	return v, nil
}

// Delete removes a secret from both backends.
func (s *Store) Delete(key string) error {
	kerr := keyring.Delete(service, s.entry(key))
	ferr := s.fallback.delete(key)
	if kerr != nil && ferr != nil {
		return keyring.ErrNotFound
	}
	return nil
}

func (s *Store) entry(key string) string {
	return s.user + "/" + key
}
