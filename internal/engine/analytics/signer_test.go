package analytics

import (
	"testing"
)

func TestSign(t *testing.T) {
	secret := "secret"
	payload := []byte("payload")

	// echo -n "payload" | openssl dgst -sha256 -hmac "secret"
	expected := "b82fcb791acec57859b989b430a826488ce2e479fdf92326bd0a2e8375a42ba4"

	got := Sign(secret, payload)

	if got != expected {
		t.Errorf("Sign() = %v, want %v", got, expected)
	}
	if !VerifySignature(secret, payload, expected) {
		t.Error("VerifySignature() rejected a valid signature")
	}
	if VerifySignature("other", payload, expected) {
		t.Error("VerifySignature() accepted a signature from another secret")
	}
}
