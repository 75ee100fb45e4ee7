// Package ratchet implements the Double Ratchet per-peer secure
// channel: a Diffie-Hellman "outer" ratchet combined with a symmetric
// "inner" chain, giving per-message forward secrecy and a bounded
// skipped-key cache for out-of-order delivery.
//
// Initialization derives a shared root key from both parties' static
// identity keys, then tie-breaks initiator/responder by comparing session
// identifiers byte-lexicographically. The initiator starts with a fresh
// ephemeral key and treats the peer's static key as its bootstrap "peer
// ephemeral"; the responder starts with its own static secret standing in
// as a placeholder ratchet private key until its first send replaces it.
// This lets the initiator send immediately without waiting on a reply.
//
// KDF_RK and KDF_CK are keyed BLAKE2b rather than HKDF-SHA256.
package ratchet
