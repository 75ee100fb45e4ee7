// Package identity owns the long-term X25519/Ed25519 keypair lifecycle
// of the core.
//
// A Manager holds its current keypair in a domain.Identity and, for a bounded
// grace window after rotate(), a single previous generation. It never
// retains more than one previous generation, and every secret is wiped when
// it leaves the grace window, on a second rotation, or on Destroy.
package identity
