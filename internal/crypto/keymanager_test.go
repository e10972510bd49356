package crypto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptKey("0x"+testKeyHex, "correct horse")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}

	got, err := DecryptKey(blob, "correct horse")
	if err != nil {
		t.Fatalf("DecryptKey: %v", err)
	}
	if got != testKeyHex {
		t.Errorf("round trip = %q, want %q", got, testKeyHex)
	}

	// Ciphertext must not contain the plaintext key.
	if strings.Contains(string(blob), testKeyHex) {
		t.Error("encrypted blob contains plaintext key")
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "right")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}
	if _, err := DecryptKey(blob, "wrong"); err == nil {
		t.Fatal("expected error for wrong password")
	}
}

func TestEncryptKeyRejectsBadInput(t *testing.T) {
	if _, err := EncryptKey(testKeyHex, ""); err == nil {
		t.Error("expected error for empty password")
	}
	if _, err := EncryptKey("not-hex", "pw"); err == nil {
		t.Error("expected error for invalid hex")
	}
	if _, err := EncryptKey("abcd", "pw"); err == nil {
		t.Error("expected error for short key")
	}
}

func TestLoadKeyRawTakesPrecedence(t *testing.T) {
	got, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testKeyHex, EncryptedKeyPath: "/nonexistent"})
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	if got != testKeyHex {
		t.Errorf("LoadKey = %q, want %q", got, testKeyHex)
	}
}

func TestLoadKeyFromEncryptedFile(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "pw")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}

	path := filepath.Join(t.TempDir(), "key.json")
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	if got != testKeyHex {
		t.Errorf("LoadKey = %q, want %q", got, testKeyHex)
	}
}

func TestLoadKeyNoSource(t *testing.T) {
	if _, err := LoadKey(KeyConfig{}); err == nil {
		t.Fatal("expected error when no key source configured")
	}
}
