package session

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"ciphermesh/internal/domain"
	"ciphermesh/internal/handshake"
	"ciphermesh/internal/identity"
	"ciphermesh/internal/nonce"
	"ciphermesh/internal/ratchet"
	"ciphermesh/internal/trust"
	"ciphermesh/internal/util/memzero"
	"ciphermesh/internal/vault"
)

const vaultFileName = "identity.vault"

// Session bundles the per-run state a running client needs, with a single
// place to unlock it from disk and a single place to wipe it on exit.
type Session struct {
	mu sync.Mutex

	dataDir string

	Identity  *identity.Manager
	Nonces    *nonce.Manager
	Registry  *handshake.Registry
	Trust     *trust.Store
	SessionID string

	closed bool
}

// New starts a fresh session in dataDir: a new identity keypair, an empty
// handshake registry, and the trust store loaded from disk (or created
// empty if absent).
func New(dataDir, sessionID string) (*Session, error) {
	id, err := identity.New()
	if err != nil {
		return nil, fmt.Errorf("session: generate identity: %w", err)
	}
	ts, err := trust.Open(filepath.Join(dataDir, trust.DefaultPath))
	if err != nil {
		id.Destroy()
		return nil, fmt.Errorf("session: open trust store: %w", err)
	}

	reg := handshake.New()
	reg.SetLocalSessionID(sessionID)

	return &Session{
		dataDir:   dataDir,
		Identity:  id,
		Nonces:    nonce.NewManager(),
		Registry:  reg,
		Trust:     ts,
		SessionID: sessionID,
	}, nil
}

// Unlock restores a session's identity and handshake registry from the
// state vault.
func Unlock(dataDir, sessionID string, passphrase []byte) (*Session, error) {
	path := filepath.Join(dataDir, vaultFileName)
	data, err := vault.Load(path, passphrase)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(data)

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("session: decode vault payload: %w", err)
	}

	var xpriv domain.X25519Private
	var xpub domain.X25519Public
	var edpriv domain.Ed25519Private
	var edpub domain.Ed25519Public
	if err := decodeFixed32(snap.XPriv, xpriv[:]); err != nil {
		return nil, err
	}
	if err := decodeFixed32(snap.XPub, xpub[:]); err != nil {
		return nil, err
	}
	if err := decodeFixed64(snap.EdPriv, edpriv[:]); err != nil {
		return nil, err
	}
	if err := decodeFixed32(snap.EdPub, edpub[:]); err != nil {
		return nil, err
	}

	id, err := identity.FromSnapshot(xpriv, xpub, edpriv, edpub)
	if err != nil {
		return nil, fmt.Errorf("session: restore identity: %w", err)
	}

	ts, err := trust.Open(filepath.Join(dataDir, trust.DefaultPath))
	if err != nil {
		id.Destroy()
		return nil, fmt.Errorf("session: open trust store: %w", err)
	}

	reg := handshake.New()
	reg.SetLocalSessionID(sessionID)
	for peerID, ps := range snap.Peers {
		var current, previous domain.X25519Public
		if err := decodeFixed32(ps.CurrentPublic, current[:]); err != nil {
			id.Destroy()
			return nil, err
		}
		state, err := ratchet.Unmarshal(ps.Ratchet)
		if err != nil {
			id.Destroy()
			return nil, fmt.Errorf("session: restore ratchet for %s: %w", peerID, err)
		}
		if err := reg.RestoreEntry(peerID, current, state); err != nil {
			id.Destroy()
			return nil, err
		}
		if ps.HasPrevious {
			if err := decodeFixed32(ps.PreviousPublic, previous[:]); err != nil {
				id.Destroy()
				return nil, err
			}
			reg.RestorePrevious(peerID, previous, ps.PreviousExpiresAt)
		}
	}

	return &Session{
		dataDir:   dataDir,
		Identity:  id,
		Nonces:    nonce.NewManager(),
		Registry:  reg,
		Trust:     ts,
		SessionID: sessionID,
	}, nil
}

// Save serializes identity and handshake state into the encrypted state
// vault.
func (s *Session) Save(passphrase []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		XPub:  encode32(s.Identity.Public()),
		EdPub: encode32Ed(s.Identity.SignPublic()),
		Peers: make(map[string]peerSnapshot),
	}
	xpriv := s.Identity.Private()
	snap.XPriv = encode32(domain.X25519Public(xpriv))
	// Ed25519 private export requires a dedicated accessor; identity.Manager
	// keeps it internal, so Save asks it directly.
	edpriv, err := s.Identity.ExportEdPrivate()
	if err != nil {
		return err
	}
	snap.EdPriv = base64.StdEncoding.EncodeToString(edpriv[:])

	for _, peerID := range s.Registry.Peers() {
		entry, ok := s.Registry.Get(peerID)
		if !ok {
			continue
		}
		ratchetBytes, err := ratchet.Marshal(entry.Ratchet)
		if err != nil {
			return err
		}
		ps := peerSnapshot{
			CurrentPublic: encode32(entry.CurrentPublic),
			HasPrevious:   entry.HasPrevious,
			Ratchet:       ratchetBytes,
		}
		if entry.HasPrevious {
			ps.PreviousPublic = encode32(entry.PreviousPublic)
			ps.PreviousExpiresAt = entry.PreviousExpiresAt
		}
		snap.Peers[peerID] = ps
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	defer memzero.Zero(data)

	return vault.Save(filepath.Join(s.dataDir, vaultFileName), passphrase, data)
}

// InitiatorFor decides who leads the Double Ratchet handshake with peerID
// by comparing session identifiers byte-lexicographically.
func (s *Session) InitiatorFor(peerSessionID string) bool {
	return bytes.Compare([]byte(s.SessionID), []byte(peerSessionID)) < 0
}

// Close wipes the identity manager and every peer's ratchet secrets —
// root key, chain keys, live ephemeral private key, and cached skipped
// message keys — so no key material outlives the process.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.Identity.Destroy()
	s.Registry.WipeAll()
	s.closed = true
}

func encode32(k domain.X25519Public) string { return base64.StdEncoding.EncodeToString(k[:]) }

func encode32Ed(k domain.Ed25519Public) string { return base64.StdEncoding.EncodeToString(k[:]) }

func decodeFixed32(s string, dst []byte) error {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("session: malformed key encoding: %w", err)
	}
	copy(dst, b)
	return nil
}

func decodeFixed64(s string, dst []byte) error {
	return decodeFixed32(s, dst)
}
