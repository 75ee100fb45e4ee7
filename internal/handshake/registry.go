package handshake

import (
	"errors"
	"sync"
	"time"

	"ciphermesh/internal/domain"
	"ciphermesh/internal/ratchet"
	"ciphermesh/internal/util/memzero"
)

// GraceWindow mirrors identity.GraceWindow: how long a peer's previous
// public key remains usable for decrypt fallback after it rotates.
const GraceWindow = 30 * time.Second

var (
	// ErrUnknownPeer is returned by operations on a peer id that was never
	// registered.
	ErrUnknownPeer = errors.New("handshake: unknown peer")

	// ErrAlreadyRegistered is returned by RegisterPeer for a peer id that
	// already has an entry.
	ErrAlreadyRegistered = errors.New("handshake: peer already registered")
)

// Entry is one peer's registry state.
type Entry struct {
	CurrentPublic domain.X25519Public

	HasPrevious       bool
	PreviousPublic    domain.X25519Public
	PreviousExpiresAt time.Time

	Ratchet domain.RatchetState
}

// Registry is the per-session peer table.
type Registry struct {
	mu          sync.Mutex
	localSessID string
	peers       map[string]*Entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{peers: make(map[string]*Entry)}
}

// SetLocalSessionID records this session's identifier, used by callers to
// compute the initiator/responder tie-break before calling RegisterPeer.
func (r *Registry) SetLocalSessionID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.localSessID = id
}

// LocalSessionID returns the session identifier set by SetLocalSessionID.
func (r *Registry) LocalSessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.localSessID
}

// RegisterPeer adds a new peer entry and initializes its Double Ratchet
// against myStaticSec. initiator must be computed by the caller via the
// byte-lexicographic session-id tie-break.
func (r *Registry) RegisterPeer(
	peerID string,
	peerPublic domain.X25519Public,
	myStaticSec domain.X25519Private,
	initiator bool,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.peers[peerID]; exists {
		return ErrAlreadyRegistered
	}

	state, err := ratchet.Init(myStaticSec, peerPublic, initiator)
	if err != nil {
		return err
	}

	r.peers[peerID] = &Entry{
		CurrentPublic: peerPublic,
		Ratchet:       state,
	}
	return nil
}

// UpdatePeerKey records a peer's newly rotated public key, demoting the old
// one to "previous" for GraceWindow so in-flight messages under the old key
// still decrypt.
func (r *Registry) UpdatePeerKey(peerID string, newPublic domain.X25519Public) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.peers[peerID]
	if !ok {
		return ErrUnknownPeer
	}
	e.PreviousPublic = e.CurrentPublic
	e.HasPrevious = true
	e.PreviousExpiresAt = time.Now().Add(GraceWindow)
	e.CurrentPublic = newPublic
	return nil
}

// ErrAlreadyMigrated is returned by MigrateRatchet when newPeerID already
// has an entry of its own.
var ErrAlreadyMigrated = errors.New("handshake: peer already has an entry under the new id")

// MigrateRatchet transfers oldPeerID's entire entry — ratchet state,
// current/previous public keys, grace-window expiry — to newPeerID,
// e.g. when a reconnecting nickname is assigned a new relay session id.
// oldPeerID's entry is removed; the same Entry value lives on under
// newPeerID instead of being re-derived, so no DH ratchet step or key
// material is disturbed by the migration.
func (r *Registry) MigrateRatchet(oldPeerID, newPeerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.peers[oldPeerID]
	if !ok {
		return ErrUnknownPeer
	}
	if _, exists := r.peers[newPeerID]; exists {
		return ErrAlreadyMigrated
	}
	delete(r.peers, oldPeerID)
	r.peers[newPeerID] = e
	return nil
}

// FindByPublicKey returns the peer id currently registered under pub, if
// any. Used to recognize a reconnecting peer that had to rejoin under a new
// nickname (e.g. after a relay-side collision with a stale session), so its
// ratchet can be migrated instead of re-handshaked from scratch.
func (r *Registry) FindByPublicKey(pub domain.X25519Public) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.peers {
		if e.CurrentPublic == pub {
			return id, true
		}
	}
	return "", false
}

// Get returns a copy of a peer's entry, pruning an expired previous key
// first.
func (r *Registry) Get(peerID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.peers[peerID]
	if !ok {
		return Entry{}, false
	}
	r.pruneLocked(e)
	return *e, true
}

// WithRatchet runs fn against a peer's live ratchet state under the
// registry lock, persisting any mutation fn makes back into the entry.
func (r *Registry) WithRatchet(peerID string, fn func(*domain.RatchetState) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.peers[peerID]
	if !ok {
		return ErrUnknownPeer
	}
	return fn(&e.Ratchet)
}

// RestoreEntry reinstates a peer entry from persisted state, e.g. after
// unlocking the state vault. It does not run ratchet.Init since state is
// already a live ratchet snapshot.
func (r *Registry) RestoreEntry(peerID string, currentPublic domain.X25519Public, state domain.RatchetState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.peers[peerID]; exists {
		return ErrAlreadyRegistered
	}
	r.peers[peerID] = &Entry{
		CurrentPublic: currentPublic,
		Ratchet:       state,
	}
	return nil
}

// RestorePrevious reinstates a peer's grace-window previous public key
// alongside its expiry, as part of restoring a persisted registry.
func (r *Registry) RestorePrevious(peerID string, previousPublic domain.X25519Public, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.peers[peerID]
	if !ok {
		return
	}
	e.HasPrevious = true
	e.PreviousPublic = previousPublic
	e.PreviousExpiresAt = expiresAt
}

// RemovePeer drops a peer's entry entirely.
func (r *Registry) RemovePeer(peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, peerID)
}

// Peers returns the currently registered peer ids.
func (r *Registry) Peers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.peers))
	for id := range r.peers {
		ids = append(ids, id)
	}
	return ids
}

// WipeAll zeros every peer's ratchet secrets — root key, send/receive chain
// keys, the live ephemeral private key, and every cached skipped message
// key — then drops all entries. Called on session teardown so no chain
// material outlives the process.
func (r *Registry) WipeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.peers {
		memzero.Zero(e.Ratchet.RootKey[:])
		memzero.Zero(e.Ratchet.SendChainKey[:])
		memzero.Zero(e.Ratchet.RecvChainKey[:])
		memzero.Zero(e.Ratchet.MyEph.Private[:])
		for id, sk := range e.Ratchet.Skipped {
			memzero.Zero(sk.MessageKey[:])
			delete(e.Ratchet.Skipped, id)
		}
	}
	r.peers = make(map[string]*Entry)
}

func (r *Registry) pruneLocked(e *Entry) {
	if e.HasPrevious && time.Now().After(e.PreviousExpiresAt) {
		e.HasPrevious = false
		e.PreviousPublic = domain.X25519Public{}
	}
}
