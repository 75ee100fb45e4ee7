package domain

import "fmt"

// X25519Private is a clamped Curve25519 scalar.
type X25519Private [32]byte

// X25519Public is a Curve25519 group element.
type X25519Public [32]byte

func (k X25519Private) Slice() []byte { return k[:] }
func (k X25519Public) Slice() []byte  { return k[:] }

// MustX25519Public panics unless b is exactly 32 bytes.
func MustX25519Public(b []byte) X25519Public {
	if len(b) != 32 {
		panic(fmt.Errorf("domain: X25519 public key must be 32 bytes, got %d", len(b)))
	}
	var out X25519Public
	copy(out[:], b)
	return out
}

// Ed25519Private mirrors the crypto/ed25519 private key layout (seed || pub).
type Ed25519Private [64]byte

// Ed25519Public is an Ed25519 verification key.
type Ed25519Public [32]byte

func (k Ed25519Private) Slice() []byte { return k[:] }
func (k Ed25519Public) Slice() []byte  { return k[:] }

// MustEd25519Public panics unless b is exactly 32 bytes.
func MustEd25519Public(b []byte) Ed25519Public {
	if len(b) != 32 {
		panic(fmt.Errorf("domain: Ed25519 public key must be 32 bytes, got %d", len(b)))
	}
	var out Ed25519Public
	copy(out[:], b)
	return out
}

// MessageKey is a single-use symmetric key for one ratchet message.
// Every derivation site wipes it immediately after use.
type MessageKey [32]byte

func (k *MessageKey) Slice() []byte { return k[:] }
