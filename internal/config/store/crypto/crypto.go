// Package crypto encrypts connection secrets at rest. API tokens stored in
// the configuration database are sealed with AES-256-GCM; the key lives in
// a mode-0600 file next to the database.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	KeySize     = 32 // AES-256
	KeyFileName = ".secrets.key"
	// EncPrefix marks encrypted values in the database. Plaintext values
	// (pre-encryption databases) lack this prefix.
	EncPrefix = "enc:v1:"
)

// KeyPath returns the key file location for the given database path.
func KeyPath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), KeyFileName)
}

// LoadKey reads an existing encryption key from keyPath.
// Returns nil, nil if the file doesn't exist (key not yet created).
func LoadKey(keyPath string) ([]byte, error) {
	f, err := os.Open(keyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: read encryption key: %w", err)
	}
	defer f.Close()

	// Check permissions on the same file descriptor to avoid TOCTOU races.
	// Skip on Windows where Go returns synthetic mode bits.
	if runtime.GOOS != "windows" {
		if info, statErr := f.Stat(); statErr == nil {
			if perm := info.Mode().Perm(); perm&0o077 != 0 {
				log.Printf("[Config] WARNING: encryption key %s has overly permissive mode 0%o (expected 0600)", keyPath, perm)
			}
		}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("config: read encryption key: %w", err)
	}
	if len(data) != KeySize {
		return nil, fmt.Errorf("config: encryption key at %s has invalid size %d (expected %d)", keyPath, len(data), KeySize)
	}
	return data, nil
}

// CreateKey generates a fresh key and writes it to keyPath with 0600 mode.
func CreateKey(keyPath string) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("config: generate encryption key: %w", err)
	}
	if err := os.WriteFile(keyPath, key, 0o600); err != nil {
		return nil, fmt.Errorf("config: write encryption key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext with AES-256-GCM and returns the prefixed,
// base64-encoded ciphertext. Empty plaintext is stored as-is so absent
// tokens stay recognisably absent.
func Encrypt(key []byte, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("config: init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("config: init gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("config: generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return EncPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Values without the encryption prefix are
// returned unchanged, so databases written before encryption was
// introduced keep working.
func Decrypt(key []byte, stored string) (string, error) {
	if !strings.HasPrefix(stored, EncPrefix) {
		return stored, nil
	}
	if key == nil {
		return "", fmt.Errorf("config: value is encrypted but no key is available")
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, EncPrefix))
	if err != nil {
		return "", fmt.Errorf("config: decode encrypted value: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("config: init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("config: init gcm: %w", err)
	}
	if len(raw) < gcm.NonceSize() {
		return "", fmt.Errorf("config: encrypted value too short")
	}

	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("config: decrypt value: %w", err)
	}
	return string(plaintext), nil
}
