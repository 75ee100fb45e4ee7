// Package nonce implements 24-byte nonce generation and per-peer
// monotonic replay validation.
//
// A nonce is a timestamp, a send counter, and random padding. The Manager
// keeps one process-wide send counter and one "last accepted counter" per
// peer; validate rejects anything that is not both fresh (within a 30s
// clock-drift window) and strictly greater than the last accepted counter
// for that peer.
package nonce
