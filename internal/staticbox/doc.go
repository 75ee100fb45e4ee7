// Package staticbox implements authenticated public-key encryption
// between two long-term identity keys, used as the offline-message fallback
// path when no Double Ratchet session exists yet.
//
// It wraps golang.org/x/crypto/nacl/box (X25519 + XSalsa20-Poly1305, i.e.
// crypto_box in libsodium's naming) around the padding codec, and offers a
// four-way fallback decrypt across an identity rotation's grace window.
package staticbox
