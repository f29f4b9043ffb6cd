package crypto

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateAndLoadKey(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), KeyFileName)

	if key, err := LoadKey(keyPath); err != nil || key != nil {
		t.Fatalf("LoadKey before create = %v, %v; want nil, nil", key, err)
	}

	created, err := CreateKey(keyPath)
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	if len(created) != KeySize {
		t.Fatalf("key size = %d, want %d", len(created), KeySize)
	}

	loaded, err := LoadKey(keyPath)
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	if string(loaded) != string(created) {
		t.Fatal("loaded key differs from created key")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := CreateKey(filepath.Join(t.TempDir(), KeyFileName))
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}

	sealed, err := Encrypt(key, "api-token-123")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !strings.HasPrefix(sealed, EncPrefix) {
		t.Fatalf("sealed value %q lacks prefix", sealed)
	}
	if strings.Contains(sealed, "api-token-123") {
		t.Fatal("plaintext leaked into sealed value")
	}

	plain, err := Decrypt(key, sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if plain != "api-token-123" {
		t.Fatalf("Decrypt = %q", plain)
	}
}

func TestEncryptEmptyStaysEmpty(t *testing.T) {
	key := make([]byte, KeySize)
	sealed, err := Encrypt(key, "")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if sealed != "" {
		t.Fatalf("Encrypt(\"\") = %q, want empty", sealed)
	}
}

func TestDecryptPassesThroughPlaintext(t *testing.T) {
	plain, err := Decrypt(nil, "legacy-token")
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if plain != "legacy-token" {
		t.Fatalf("Decrypt = %q", plain)
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	dir := t.TempDir()
	key1, _ := CreateKey(filepath.Join(dir, "k1"))
	key2, _ := CreateKey(filepath.Join(dir, "k2"))

	sealed, err := Encrypt(key1, "secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := Decrypt(key2, sealed); err == nil {
		t.Fatal("Decrypt with wrong key succeeded")
	}
}
