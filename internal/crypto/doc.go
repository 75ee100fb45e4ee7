// Package crypto exposes the minimal primitives CipherMesh's core is built
// from.
//
// Contents
//
//   - X25519 key generation, RFC 7748 clamping and Diffie-Hellman
//     (GenerateX25519, DH)
//   - Ed25519 key generation, signing and verification (GenerateEd25519,
//     SignEd25519, VerifyEd25519), used to authenticate key-rotation
//     announcements
//   - Grouped hex fingerprints of public keys (Fingerprint)
//   - Standard base64 encode/decode helpers for wire fields (B64, FromB64)
//
// Key generation returns the fixed-size array types defined in
// ciphermesh/internal/domain to avoid accidental reallocation of key
// material; DH returns a fixed [32]byte, while signatures, fingerprints and
// base64 helpers use byte slices and strings. Callers are responsible for wiping secrets they no longer need
// via ciphermesh/internal/util/memzero.
package crypto
