package ratchet_test

import (
	"testing"

	"ciphermesh/internal/crypto"
	"ciphermesh/internal/domain"
	"ciphermesh/internal/ratchet"
)

func newPair(t *testing.T) (a, b domain.RatchetState) {
	t.Helper()
	aPriv, aPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	bPriv, bPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}

	a, err = ratchet.Init(aPriv, bPub, true)
	if err != nil {
		t.Fatalf("Init(initiator): %v", err)
	}
	b, err = ratchet.Init(bPriv, aPub, false)
	if err != nil {
		t.Fatalf("Init(responder): %v", err)
	}
	return a, b
}

func TestRoundTrip_InitiatorToResponder(t *testing.T) {
	a, b := newPair(t)

	res, err := ratchet.Encrypt(&a, []byte("hello bob"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	pt, err := ratchet.Decrypt(&b, res.Ciphertext, res.Nonce, res.EphemeralPublic, res.Counter, res.PreviousCounter)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(pt) != "hello bob" {
		t.Fatalf("got %q, want %q", pt, "hello bob")
	}
}

func TestRoundTrip_BothDirections(t *testing.T) {
	a, b := newPair(t)

	res, err := ratchet.Encrypt(&a, []byte("ping"))
	if err != nil {
		t.Fatalf("a.Encrypt: %v", err)
	}
	pt, err := ratchet.Decrypt(&b, res.Ciphertext, res.Nonce, res.EphemeralPublic, res.Counter, res.PreviousCounter)
	if err != nil {
		t.Fatalf("b.Decrypt: %v", err)
	}
	if string(pt) != "ping" {
		t.Fatalf("got %q", pt)
	}

	// B replies, which forces its own DH ratchet step since it never sent
	// before.
	res2, err := ratchet.Encrypt(&b, []byte("pong"))
	if err != nil {
		t.Fatalf("b.Encrypt: %v", err)
	}
	pt2, err := ratchet.Decrypt(&a, res2.Ciphertext, res2.Nonce, res2.EphemeralPublic, res2.Counter, res2.PreviousCounter)
	if err != nil {
		t.Fatalf("a.Decrypt: %v", err)
	}
	if string(pt2) != "pong" {
		t.Fatalf("got %q", pt2)
	}
}

func TestRoundTrip_ManyMessagesSameChain(t *testing.T) {
	a, b := newPair(t)

	for i := 0; i < 20; i++ {
		res, err := ratchet.Encrypt(&a, []byte("msg"))
		if err != nil {
			t.Fatalf("Encrypt #%d: %v", i, err)
		}
		if _, err := ratchet.Decrypt(&b, res.Ciphertext, res.Nonce, res.EphemeralPublic, res.Counter, res.PreviousCounter); err != nil {
			t.Fatalf("Decrypt #%d: %v", i, err)
		}
	}
}

func TestOutOfOrderDelivery_SkippedKeysCacheFill(t *testing.T) {
	a, b := newPair(t)

	var results []ratchet.SendResult
	for i := 0; i < 5; i++ {
		res, err := ratchet.Encrypt(&a, []byte("m"))
		if err != nil {
			t.Fatalf("Encrypt #%d: %v", i, err)
		}
		results = append(results, res)
	}

	// Deliver in reverse order.
	for i := len(results) - 1; i >= 0; i-- {
		res := results[i]
		if _, err := ratchet.Decrypt(&b, res.Ciphertext, res.Nonce, res.EphemeralPublic, res.Counter, res.PreviousCounter); err != nil {
			t.Fatalf("Decrypt out-of-order #%d: %v", i, err)
		}
	}
}

func TestOutOfOrderDelivery_AcrossRatchetStep(t *testing.T) {
	a, b := newPair(t)

	m0, err := ratchet.Encrypt(&a, []byte("m0"))
	if err != nil {
		t.Fatalf("Encrypt m0: %v", err)
	}
	m1, err := ratchet.Encrypt(&a, []byte("m1")) // delayed: delivered last, after A has ratcheted past this chain
	if err != nil {
		t.Fatalf("Encrypt m1: %v", err)
	}

	if _, err := ratchet.Decrypt(&b, m0.Ciphertext, m0.Nonce, m0.EphemeralPublic, m0.Counter, m0.PreviousCounter); err != nil {
		t.Fatalf("b.Decrypt m0: %v", err)
	}

	reply, err := ratchet.Encrypt(&b, []byte("reply"))
	if err != nil {
		t.Fatalf("b.Encrypt reply: %v", err)
	}
	if _, err := ratchet.Decrypt(&a, reply.Ciphertext, reply.Nonce, reply.EphemeralPublic, reply.Counter, reply.PreviousCounter); err != nil {
		t.Fatalf("a.Decrypt reply: %v", err)
	}

	// A's next send ratchets to a new ephemeral, skipping past m1's slot in
	// the old chain.
	m2, err := ratchet.Encrypt(&a, []byte("m2"))
	if err != nil {
		t.Fatalf("Encrypt m2: %v", err)
	}
	if m2.EphemeralPublic == m0.EphemeralPublic {
		t.Fatalf("expected m2 to carry a new ephemeral")
	}

	pt2, err := ratchet.Decrypt(&b, m2.Ciphertext, m2.Nonce, m2.EphemeralPublic, m2.Counter, m2.PreviousCounter)
	if err != nil {
		t.Fatalf("b.Decrypt m2: %v", err)
	}
	if string(pt2) != "m2" {
		t.Fatalf("got %q, want m2", pt2)
	}

	// m1 finally arrives, under the now-superseded ephemeral. It must still
	// decrypt via the skipped-key cache rather than trigger a bogus ratchet
	// keyed on the stale ephemeral.
	pt1, err := ratchet.Decrypt(&b, m1.Ciphertext, m1.Nonce, m1.EphemeralPublic, m1.Counter, m1.PreviousCounter)
	if err != nil {
		t.Fatalf("b.Decrypt delayed m1: %v", err)
	}
	if string(pt1) != "m1" {
		t.Fatalf("got %q, want m1", pt1)
	}
}

func TestDecrypt_TamperedCiphertextFails(t *testing.T) {
	a, b := newPair(t)

	res, err := ratchet.Encrypt(&a, []byte("integrity"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	res.Ciphertext[0] ^= 0xFF

	if _, err := ratchet.Decrypt(&b, res.Ciphertext, res.Nonce, res.EphemeralPublic, res.Counter, res.PreviousCounter); err == nil {
		t.Fatalf("expected tampered ciphertext to fail authentication")
	}
}

func TestDecrypt_TooManySkippedIsRejected(t *testing.T) {
	a, b := newPair(t)

	// Prime the receive chain with one message so it exists; RecvCounter is
	// then 1.
	first, err := ratchet.Encrypt(&a, []byte("first"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := ratchet.Decrypt(&b, first.Ciphertext, first.Nonce, first.EphemeralPublic, first.Counter, first.PreviousCounter); err != nil {
		t.Fatalf("Decrypt first: %v", err)
	}

	for i := 0; i < ratchet.MaxSkip+5; i++ {
		if _, err := ratchet.Encrypt(&a, []byte("filler")); err != nil {
			t.Fatalf("Encrypt filler #%d: %v", i, err)
		}
	}
	far, err := ratchet.Encrypt(&a, []byte("far ahead"))
	if err != nil {
		t.Fatalf("Encrypt far: %v", err)
	}

	if _, err := ratchet.Decrypt(&b, far.Ciphertext, far.Nonce, far.EphemeralPublic, far.Counter, far.PreviousCounter); err != ratchet.ErrTooManySkipped {
		t.Fatalf("got err %v, want ErrTooManySkipped", err)
	}
}

func TestEncrypt_DistinctMessageKeysPerMessage(t *testing.T) {
	a, _ := newPair(t)

	res1, err := ratchet.Encrypt(&a, []byte("same plaintext"))
	if err != nil {
		t.Fatalf("Encrypt #1: %v", err)
	}
	res2, err := ratchet.Encrypt(&a, []byte("same plaintext"))
	if err != nil {
		t.Fatalf("Encrypt #2: %v", err)
	}
	if string(res1.Ciphertext) == string(res2.Ciphertext) {
		t.Fatalf("expected distinct ciphertexts for repeated plaintext under fresh message keys")
	}
}
