package credstore

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// fileVault is the keychain-less fallback: a single JSON object sealed with
// ChaCha20-Poly1305. The key is derived from a random per-install salt, so
// the file is bound to this data directory rather than a user passphrase.
type fileVault struct {
	path     string
	saltPath string
	user     string
	mu       sync.Mutex
}

func newFileVault(dataDir, user string) *fileVault {
	return &fileVault{
		path:     filepath.Join(dataDir, "credentials.enc"),
		saltPath: filepath.Join(dataDir, "credentials.salt"),
		user:     user,
	}
}

func (v *fileVault) set(key, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	entries, err := v.load()
	if err != nil {
		entries = map[string]string{}
	}
	entries[key] = value
	return v.save(entries)
}

func (v *fileVault) get(key string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	entries, err := v.load()
	if err != nil {
		return "", err
	}
	value, ok := entries[key]
	if !ok {
		return "", fmt.Errorf("credential %s not found", key)
	}
	return value, nil
}

func (v *fileVault) delete(key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	entries, err := v.load()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return fmt.Errorf("credential %s not found", key)
	}
	delete(entries, key)
	return v.save(entries)
}

func (v *fileVault) load() (map[string]string, error) {
	sealed, err := os.ReadFile(v.path)
	if err != nil {
		return nil, err
	}

	aead, err := v.cipher()
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("vault file truncated")
	}

	nonce, box := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, box, nil)
	if err != nil {
		return nil, fmt.Errorf("unseal vault: %w", err)
	}

	entries := map[string]string{}
	if err := json.Unmarshal(plain, &entries); err != nil {
		return nil, fmt.Errorf("decode vault: %w", err)
	}
	return entries, nil
}

func (v *fileVault) save(entries map[string]string) error {
	plain, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	aead, err := v.cipher()
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return err
	}
	sealed := aead.Seal(nonce, nonce, plain, nil)

	if err := os.MkdirAll(filepath.Dir(v.path), 0o700); err != nil {
		return err
	}
	tmp := v.path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, v.path)
}

func (v *fileVault) cipher() (cipher.AEAD, error) {
	salt, err := v.salt()
	if err != nil {
		return nil, err
	}
	key := argon2.IDKey([]byte(service+"/"+v.user), salt, 1, 64*1024, 4, chacha20poly1305.KeySize)
	return chacha20poly1305.NewX(key)
}

func (v *fileVault) salt() ([]byte, error) {
	if salt, err := os.ReadFile(v.saltPath); err == nil && len(salt) >= 16 {
		return salt, nil
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(v.saltPath), 0o700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(v.saltPath, salt, 0o600); err != nil {
		return nil, err
	}
	return salt, nil
}
