package ratchet

import "golang.org/x/crypto/blake2b"

// kdfRK derives the next root key and a new (sending or receiving) chain
// key: buf =
// BLAKE2b-512(dh_out, key=root_key); the first 32 bytes become the new root
// key, the last 32 the chain key.
func kdfRK(rootKey [32]byte, dh []byte) (newRoot, chainKey [32]byte, err error) {
	h, err := blake2b.New512(rootKey[:])
	if err != nil {
		return newRoot, chainKey, err
	}
	h.Write(dh)
	buf := h.Sum(nil)
	copy(newRoot[:], buf[:32])
	copy(chainKey[:], buf[32:64])
	return newRoot, chainKey, nil
}

// kdfCK derives a message key and the next chain key: message_key =
// BLAKE2b-256(0x01, key=chain_key); next_chain_key = BLAKE2b-256(0x02,
// key=chain_key).
func kdfCK(chainKey [32]byte) (messageKey, nextChainKey [32]byte, err error) {
	hMK, err := blake2b.New256(chainKey[:])
	if err != nil {
		return messageKey, nextChainKey, err
	}
	hMK.Write([]byte{0x01})
	copy(messageKey[:], hMK.Sum(nil))

	hCK, err := blake2b.New256(chainKey[:])
	if err != nil {
		return messageKey, nextChainKey, err
	}
	hCK.Write([]byte{0x02})
	copy(nextChainKey[:], hCK.Sum(nil))

	return messageKey, nextChainKey, nil
}
