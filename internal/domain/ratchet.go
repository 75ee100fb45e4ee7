package domain

import "time"

// EphemeralKeyPair is the ratchet's own rotating DH pair.
type EphemeralKeyPair struct {
	Private X25519Private
	Public  X25519Public
}

// SkippedKeyID identifies a message key derived ahead of the current
// receive position: a peer ephemeral public key paired with a chain
// counter.
type SkippedKeyID struct {
	PeerEph X25519Public
	Counter uint32
}

// SkippedKey is a cached out-of-order message key with the time it was
// derived, so it can be swept once it exceeds the 60s expiry.
type SkippedKey struct {
	MessageKey MessageKey
	InsertedAt time.Time
}

// RatchetState is the full per-peer Double Ratchet state. It lives
// in the Handshake Registry, exclusively owned by that peer's entry.
type RatchetState struct {
	RootKey [32]byte

	HasSendChain bool
	SendChainKey [32]byte
	HasRecvChain bool
	RecvChainKey [32]byte

	SendCounter       uint32
	RecvCounter       uint32
	PreviousSendCount uint32

	HasMyEph bool
	MyEph    EphemeralKeyPair

	HasPeerEph  bool
	PeerEphPub  X25519Public

	Initialized     bool
	NeedSendRatchet bool

	Skipped map[SkippedKeyID]SkippedKey
}

// NewRatchetState returns a zero-value state with its skipped-key cache
// allocated.
func NewRatchetState() RatchetState {
	return RatchetState{Skipped: make(map[SkippedKeyID]SkippedKey)}
}
