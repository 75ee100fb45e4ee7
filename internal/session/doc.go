// Package session composes the identity manager, nonce manager, handshake
// registry, trust store, and state vault into a single value with an
// explicit lifecycle: creating a Session generates or unlocks identity
// material, and Close wipes every secret it owns exactly once.
package session
