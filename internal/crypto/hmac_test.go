package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
)

func TestBuilderHeadersAt(t *testing.T) {
	auth := &HMACAuth{
		Key:        "api-key",
		Secret:     "builder-secret",
		Passphrase: "pass",
	}

	headers := auth.BuilderHeadersAt("POST", "/order", `{"size":1}`, 1700000000)

	if headers["POLY_BUILDER_API_KEY"] != "api-key" {
		t.Errorf("api key header = %q", headers["POLY_BUILDER_API_KEY"])
	}
	if headers["POLY_BUILDER_TIMESTAMP"] != "1700000000" {
		t.Errorf("timestamp header = %q", headers["POLY_BUILDER_TIMESTAMP"])
	}
	if headers["POLY_BUILDER_PASSPHRASE"] != "pass" {
		t.Errorf("passphrase header = %q", headers["POLY_BUILDER_PASSPHRASE"])
	}

	// Recompute the signature independently.
	mac := hmac.New(sha256.New, []byte("builder-secret"))
	mac.Write([]byte("1700000000POST/order" + `{"size":1}`))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if headers["POLY_BUILDER_SIGNATURE"] != want {
		t.Errorf("signature = %q, want %q", headers["POLY_BUILDER_SIGNATURE"], want)
	}
}

func TestL2HeadersAtDecodesSecret(t *testing.T) {
	rawSecret := []byte("l2-secret-bytes")
	auth := &HMACAuth{
		Key:        "api-key",
		Secret:     base64.StdEncoding.EncodeToString(rawSecret),
		Passphrase: "pass",
	}

	headers := auth.L2HeadersAt("0xabc", "GET", "/orders", "", 1700000000)

	if headers["POLY_ADDRESS"] != "0xabc" {
		t.Errorf("address header = %q", headers["POLY_ADDRESS"])
	}

	mac := hmac.New(sha256.New, rawSecret)
	mac.Write([]byte("1700000000GET/orders"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if headers["POLY_SIGNATURE"] != want {
		t.Errorf("signature = %q, want %q", headers["POLY_SIGNATURE"], want)
	}
}

func TestHMACAuthStringRedacts(t *testing.T) {
	auth := &HMACAuth{Key: "abcdef123456", Secret: "topsecretvalue"}
	s := auth.String()
	if strings.Contains(s, "123456") || strings.Contains(s, "secretvalue") {
		t.Fatalf("String leaked credentials: %s", s)
	}
	if !strings.Contains(s, "abcd****") {
		t.Fatalf("expected redacted key prefix, got %s", s)
	}
}
