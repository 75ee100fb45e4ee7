package padding

import (
	"crypto/rand"
	"encoding/binary"

	"ciphermesh/internal/util/memzero"
)

// buckets are the fixed frame sizes padded output snaps up to.
var buckets = []int{128, 256, 512, 1024, 2048, 4096, 8192, 16384, 32768}

// Pad returns plaintext framed as: 2-byte big-endian length, plaintext,
// random filler out to the smallest bucket that fits (or exactly
// 2+len(plaintext) if that already exceeds the largest bucket).
func Pad(plaintext []byte) ([]byte, error) {
	n := len(plaintext)
	total := n + 2
	bucket := total
	for _, b := range buckets {
		if b >= total {
			bucket = b
			break
		}
	}

	out := make([]byte, bucket)
	binary.BigEndian.PutUint16(out[0:2], uint16(n))
	copy(out[2:2+n], plaintext)
	if _, err := rand.Read(out[2+n:]); err != nil {
		return nil, err
	}
	return out, nil
}

// Unpad reverses Pad. It returns ok=false if padded is too short to hold a
// length prefix, or if the declared length overruns the buffer.
func Unpad(padded []byte) (plaintext []byte, ok bool) {
	if len(padded) < 2 {
		return nil, false
	}
	n := int(binary.BigEndian.Uint16(padded[0:2]))
	if n+2 > len(padded) {
		return nil, false
	}
	return padded[2 : 2+n], true
}

// SecureUnpad behaves like Unpad but copies the plaintext into a freshly
// allocated buffer and wipes padded before returning, so the padded buffer
// (which may still hold a decrypted message key's neighbours) does not
// outlive the call with recoverable plaintext in it.
func SecureUnpad(padded []byte) (plaintext []byte, ok bool) {
	pt, ok := Unpad(padded)
	if !ok {
		memzero.Zero(padded)
		return nil, false
	}
	out := make([]byte, len(pt))
	copy(out, pt)
	memzero.Zero(padded)
	return out, true
}
