package deniable

import (
	"crypto/rand"

	"golang.org/x/crypto/nacl/box"

	"ciphermesh/internal/domain"
	"ciphermesh/internal/padding"
	"ciphermesh/internal/util/memzero"
)

// SharedKey is a precomputed crypto_box_beforenm key: the result of the
// X25519 Diffie-Hellman between one party's secret key and the other's
// public key, run through HSalsa20. Either party can compute the same
// SharedKey from their own secret and the other's public key, which is what
// makes messages sealed under it deniable: the ciphertext alone does not
// prove which of the two produced it.
type SharedKey [32]byte

// Precompute derives the shared key for a peer pair (crypto_box_beforenm).
func Precompute(peerPub domain.X25519Public, mySec domain.X25519Private) SharedKey {
	pub := [32]byte(peerPub)
	sec := [32]byte(mySec)
	var shared SharedKey
	box.Precompute((*[32]byte)(&shared), &pub, &sec)
	return shared
}

// Encrypt pads and seals plaintext under a precomputed shared key
// (crypto_box_easy_afternm).
func Encrypt(plaintext []byte, key SharedKey) (ct []byte, nonce [24]byte, err error) {
	if _, err = rand.Read(nonce[:]); err != nil {
		return nil, nonce, err
	}
	padded, err := padding.Pad(plaintext)
	if err != nil {
		return nil, nonce, err
	}
	defer memzero.Zero(padded)

	k := [32]byte(key)
	ct = box.SealAfterPrecomputation(nil, padded, &nonce, &k)
	return ct, nonce, nil
}

// Decrypt opens ct under a precomputed shared key
// (crypto_box_open_easy_afternm).
func Decrypt(ct []byte, nonce [24]byte, key SharedKey) (plaintext []byte, ok bool) {
	k := [32]byte(key)
	padded, ok := box.OpenAfterPrecomputation(nil, ct, &nonce, &k)
	if !ok {
		return nil, false
	}
	return padding.SecureUnpad(padded)
}
