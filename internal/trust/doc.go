// Package trust implements the trust store: Trust-On-First-Use peer
// records plus Short Authentication String verification.
//
// A peer is recorded the first time its fingerprint is seen. If the same
// peer id later shows a different public key, Check reports Mismatch (or
// VerifiedMismatch if the record had been manually verified) without
// changing the record, signalling the caller to warn rather than silently
// accept the new key.
package trust
