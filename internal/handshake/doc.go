// Package handshake implements the handshake registry: the per-session
// map from peer identity to that peer's current and (grace-window) previous
// public keys plus its live Double Ratchet state.
//
// A registry entry survives the peer rotating its identity key: the previous
// public key is retained until its expiry time (GraceWindow after the
// update) has passed. No timer runs; an expired previous key is dropped the
// next time the entry is read through Get. This lets in-flight
// messages encrypted before the rotation still be opened via
// staticbox.DecryptWithFallback while the ratchet itself keeps running on
// its own independent key material.
package handshake
