package staticbox

import (
	"golang.org/x/crypto/nacl/box"

	"ciphermesh/internal/domain"
	"ciphermesh/internal/padding"
	"ciphermesh/internal/util/memzero"
)

// Encrypt pads plaintext and seals it with crypto_box (X25519 +
// XSalsa20-Poly1305) under sender's secret key and the recipient's public
// key. The padded scratch buffer is wiped before returning.
func Encrypt(
	plaintext []byte,
	nonce *[24]byte,
	recipientPub domain.X25519Public,
	senderSec domain.X25519Private,
) ([]byte, error) {
	padded, err := padding.Pad(plaintext)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(padded)

	rpub := [32]byte(recipientPub)
	ssec := [32]byte(senderSec)
	return box.Seal(nil, padded, nonce, &rpub, &ssec), nil
}

// Decrypt opens ct with crypto_box_open under the sender's public key and
// the recipient's secret key. It returns ok=false on any authentication or
// framing failure without distinguishing which.
func Decrypt(
	ct []byte,
	nonce *[24]byte,
	senderPub domain.X25519Public,
	recipientSec domain.X25519Private,
) (plaintext []byte, ok bool) {
	spub := [32]byte(senderPub)
	rsec := [32]byte(recipientSec)
	padded, ok := box.Open(nil, ct, nonce, &spub, &rsec)
	if !ok {
		return nil, false
	}
	return padding.SecureUnpad(padded)
}

// DecryptWithFallback tries, in order, (cur,cur), (prev,cur), (cur,prev),
// (prev,prev) — sender-public/recipient-secret combinations — returning the
// first that authenticates. This lets an in-flight message survive either
// side having rotated its identity within the grace window.
func DecryptWithFallback(
	ct []byte,
	nonce *[24]byte,
	curSenderPub domain.X25519Public,
	curRecvSec domain.X25519Private,
	prevSenderPub *domain.X25519Public,
	prevRecvSec *domain.X25519Private,
) (plaintext []byte, ok bool) {
	type attempt struct {
		senderPub *domain.X25519Public
		recvSec   *domain.X25519Private
	}
	attempts := []attempt{
		{&curSenderPub, &curRecvSec},
	}
	if prevSenderPub != nil {
		attempts = append(attempts, attempt{prevSenderPub, &curRecvSec})
	}
	if prevRecvSec != nil {
		attempts = append(attempts, attempt{&curSenderPub, prevRecvSec})
	}
	if prevSenderPub != nil && prevRecvSec != nil {
		attempts = append(attempts, attempt{prevSenderPub, prevRecvSec})
	}

	for _, a := range attempts {
		if pt, ok := Decrypt(ct, nonce, *a.senderPub, *a.recvSec); ok {
			return pt, true
		}
	}
	return nil, false
}
