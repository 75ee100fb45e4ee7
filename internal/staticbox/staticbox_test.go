package staticbox_test

import (
	"crypto/rand"
	"testing"

	"ciphermesh/internal/crypto"
	"ciphermesh/internal/staticbox"
)

func freshNonce(t *testing.T) *[24]byte {
	t.Helper()
	var n [24]byte
	if _, err := rand.Read(n[:]); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return &n
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	aPriv, aPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	bPriv, bPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}

	nonce := freshNonce(t)
	ct, err := staticbox.Encrypt([]byte("Ola Bob"), nonce, bPub, aPriv)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	pt, ok := staticbox.Decrypt(ct, nonce, aPub, bPriv)
	if !ok {
		t.Fatalf("expected decrypt to succeed")
	}
	if string(pt) != "Ola Bob" {
		t.Fatalf("got %q, want %q", pt, "Ola Bob")
	}
}

func TestDecrypt_ThirdPartyCannotRead(t *testing.T) {
	aPriv, aPub, _ := crypto.GenerateX25519()
	_, bPub, _ := crypto.GenerateX25519()
	evePriv, _, _ := crypto.GenerateX25519()

	nonce := freshNonce(t)
	ct, err := staticbox.Encrypt([]byte("secret"), nonce, bPub, aPriv)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	// Eve has her own keys and never learns B's secret key, so opening the
	// box as if she were the recipient (A's public key, her own secret) must
	// fail.
	if _, ok := staticbox.Decrypt(ct, nonce, aPub, evePriv); ok {
		t.Fatalf("expected an unrelated third party to fail to decrypt")
	}
}

func TestDecrypt_TamperedCiphertextFails(t *testing.T) {
	aPriv, aPub, _ := crypto.GenerateX25519()
	bPriv, bPub, _ := crypto.GenerateX25519()

	nonce := freshNonce(t)
	ct, err := staticbox.Encrypt([]byte("hello"), nonce, bPub, aPriv)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ct[0] ^= 0xFF

	if _, ok := staticbox.Decrypt(ct, nonce, aPub, bPriv); ok {
		t.Fatalf("expected tampered ciphertext to fail")
	}
}

func TestDecryptWithFallback_FindsCurrentSenderPreviousRecipient(t *testing.T) {
	aPriv, aPub, _ := crypto.GenerateX25519()
	bCurPriv, bCurPub, _ := crypto.GenerateX25519()
	bPrevPriv, bPrevPub, _ := crypto.GenerateX25519()

	// A encrypted to B's previous public key (B rotated after receiving it).
	nonce := freshNonce(t)
	ct, err := staticbox.Encrypt([]byte("late message"), nonce, bPrevPub, aPriv)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	pt, ok := staticbox.DecryptWithFallback(ct, nonce, aPub, bCurPriv, nil, &bPrevPriv)
	if !ok {
		t.Fatalf("expected fallback to find the (cur,prev) combination")
	}
	if string(pt) != "late message" {
		t.Fatalf("got %q", pt)
	}
	_ = bCurPub
}
