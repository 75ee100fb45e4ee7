package domain

import "time"

// Identity is the long-term keypair for one local user, plus at most one
// retained previous generation kept alive during a rotation's grace window
//.
type Identity struct {
	XPriv X25519Private
	XPub  X25519Public

	// EdPriv/EdPub sign key-rotation announcements so peers can tell an
	// authenticated in-channel rotation from an unauthenticated one
	//.
	EdPriv Ed25519Private
	EdPub  Ed25519Public

	// Previous holds the prior generation during the grace window after
	// rotate(); nil once wiped.
	Previous *PreviousIdentity
}

// PreviousIdentity is the wiped-on-a-timer remnant of a rotated identity.
type PreviousIdentity struct {
	XPriv     X25519Private
	XPub      X25519Public
	ExpiresAt time.Time
}
