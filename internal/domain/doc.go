// Package domain defines the plain data types shared across CipherMesh's
// core packages: fixed-size key types, the identity and peer records, and
// the per-peer ratchet state. The wire envelope shapes live in
// ciphermesh/internal/wire. It holds types only,
// no behaviour beyond simple accessors, so that crypto, protocol and
// persistence packages can all depend on it without cycles.
package domain
