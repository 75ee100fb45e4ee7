package identity

import (
	"sync"
	"time"

	"ciphermesh/internal/crypto"
	"ciphermesh/internal/domain"
	"ciphermesh/internal/util/memzero"
)

// GraceWindow is how long a rotated-out identity keypair remains available
// to decrypt in-flight messages before it is wiped.
const GraceWindow = 30 * time.Second

// Manager owns one local identity keypair and, transiently, its previous
// generation. It is exclusively owned by the Session that created it; the
// Handshake Registry only ever borrows a reference to derive the first DH
// during ratchet initialization.
type Manager struct {
	mu sync.Mutex

	id        domain.Identity
	graceTime time.Duration
	timer     *time.Timer
}

// New generates a fresh identity keypair.
func New() (*Manager, error) {
	return newWithGrace(GraceWindow)
}

func newWithGrace(grace time.Duration) (*Manager, error) {
	xpriv, xpub, err := crypto.GenerateX25519()
	if err != nil {
		return nil, err
	}
	edpriv, edpub, err := crypto.GenerateEd25519()
	if err != nil {
		return nil, err
	}
	return &Manager{
		id: domain.Identity{
			XPriv:  xpriv,
			XPub:   xpub,
			EdPriv: edpriv,
			EdPub:  edpub,
		},
		graceTime: grace,
	}, nil
}

// FromSnapshot rebuilds a Manager from previously exported key material,
// e.g. after unlocking the state vault. It carries no previous-generation
// key: a session that was mid-rotation when it last saved loses that grace
// window on restore, which is acceptable since the window is only tens of
// seconds long.
func FromSnapshot(
	xpriv domain.X25519Private,
	xpub domain.X25519Public,
	edpriv domain.Ed25519Private,
	edpub domain.Ed25519Public,
) (*Manager, error) {
	return &Manager{
		id: domain.Identity{
			XPriv:  xpriv,
			XPub:   xpub,
			EdPriv: edpriv,
			EdPub:  edpub,
		},
		graceTime: GraceWindow,
	}, nil
}

// ExportEdPrivate returns the current Ed25519 secret key for persistence
// into the state vault.
func (m *Manager) ExportEdPrivate() (domain.Ed25519Private, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id.EdPriv, nil
}

// Public returns the current X25519 public key.
func (m *Manager) Public() domain.X25519Public {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id.XPub
}

// SignPublic returns the current Ed25519 signing public key.
func (m *Manager) SignPublic() domain.Ed25519Public {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id.EdPub
}

// Private returns the current X25519 secret. Callers must not retain it
// beyond the call that needs it.
func (m *Manager) Private() domain.X25519Private {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id.XPriv
}

// Sign signs msg with the current Ed25519 identity key, for authenticating
// key-rotation announcements.
func (m *Manager) Sign(msg []byte) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return crypto.SignEd25519(m.id.EdPriv, msg)
}

// Fingerprint returns the grouped hex fingerprint of the current public key.
func (m *Manager) Fingerprint() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return crypto.Fingerprint(m.id.XPub[:])
}

// PreviousPublic returns the previous generation's public key and whether
// one is currently retained within its grace window.
func (m *Manager) PreviousPublic() (domain.X25519Public, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.id.Previous == nil {
		return domain.X25519Public{}, false
	}
	return m.id.Previous.XPub, true
}

// PreviousPrivate returns the previous generation's secret and whether one
// is currently retained within its grace window.
func (m *Manager) PreviousPrivate() (domain.X25519Private, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.id.Previous == nil {
		return domain.X25519Private{}, false
	}
	return m.id.Previous.XPriv, true
}

// Rotate moves the current keypair into the previous slot (wiping any
// existing previous immediately), generates a fresh current keypair, and
// schedules the previous slot's wipe after GraceWindow. It fails only on
// RNG error, which callers should treat as fatal.
func (m *Manager) Rotate() error {
	xpriv, xpub, err := crypto.GenerateX25519()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.wipePreviousLocked()

	m.id.Previous = &domain.PreviousIdentity{
		XPriv:     m.id.XPriv,
		XPub:      m.id.XPub,
		ExpiresAt: time.Now().Add(m.graceTime),
	}
	m.id.XPriv = xpriv
	m.id.XPub = xpub

	m.timer = time.AfterFunc(m.graceTime, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.wipePreviousLocked()
	})
	return nil
}

// wipePreviousLocked zeroes and clears the previous-generation keypair, if
// any, and stops any pending wipe timer. Caller must hold m.mu.
func (m *Manager) wipePreviousLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.id.Previous == nil {
		return
	}
	memzero.Zero(m.id.Previous.XPriv[:])
	m.id.Previous = nil
}

// Destroy wipes both the current and any previous secret material. Every
// exit path — normal shutdown, error return, or signal — must call this.
func (m *Manager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.wipePreviousLocked()
	memzero.Zero(m.id.XPriv[:])
	memzero.Zero(m.id.EdPriv[:])
}
