package trust

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"ciphermesh/internal/crypto"
	"ciphermesh/internal/domain"
)

// DefaultPath is where the trust store persists relative to a session's
// data directory.
const DefaultPath = ".ciphermesh/trusted-peers.json"

// ErrUnknownPeer is returned by operations on a peer id with no record.
var ErrUnknownPeer = errors.New("trust: unknown peer")

// Store is the TOFU peer trust table.
type Store struct {
	mu      sync.Mutex
	path    string
	records map[string]domain.PeerRecord
}

// Open loads a trust store from path, creating an empty one if the file
// does not exist.
func Open(path string) (*Store, error) {
	s := &Store{path: path, records: make(map[string]domain.PeerRecord)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("trust: read store: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("trust: decode store: %w", err)
	}
	for id, rec := range s.records {
		rec.Nickname = id
		s.records[id] = rec
	}
	return s, nil
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("trust: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("trust: encode store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".trusted-peers-*.tmp")
	if err != nil {
		return fmt.Errorf("trust: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("trust: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("trust: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("trust: rename temp file: %w", err)
	}
	return nil
}

// Check reports the trust status of peerID against the given public key,
// without mutating the store.
func (s *Store) Check(peerID string, pub domain.X25519Public) domain.TrustStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[peerID]
	if !ok {
		return domain.NewPeer
	}
	if rec.PublicKey == pub {
		return domain.Trusted
	}
	if rec.Verified {
		return domain.VerifiedMismatch
	}
	return domain.Mismatch
}

// Record adds a brand-new TOFU entry for peerID, along with the peer's
// long-term Ed25519 signing key used to authenticate later key_update
// announcements. It fails if a record already exists; callers should use
// Update or AutoUpdate for that.
func (s *Store) Record(peerID, nickname string, pub domain.X25519Public, signKey domain.Ed25519Public) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[peerID]; exists {
		return fmt.Errorf("trust: record for %q already exists", peerID)
	}
	now := time.Now()
	s.records[peerID] = domain.PeerRecord{
		Nickname:    nickname,
		Fingerprint: crypto.Fingerprint(pub[:]),
		PublicKey:   pub,
		SignKey:     signKey,
		FirstSeen:   now,
		LastSeen:    now,
	}
	return s.saveLocked()
}

// Update overwrites peerID's stored public key, clearing any verified flag
// since the previously verified SAS no longer applies to the new key.
func (s *Store) Update(peerID string, pub domain.X25519Public) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[peerID]
	if !ok {
		return ErrUnknownPeer
	}
	rec.PublicKey = pub
	rec.Fingerprint = crypto.Fingerprint(pub[:])
	rec.Verified = false
	rec.LastSeen = time.Now()
	s.records[peerID] = rec
	return s.saveLocked()
}

// AutoUpdate records a peer's public key on first sight, or replaces it on
// an authenticated in-channel rotation, preserving the Verified flag either
// way. It also serves as the LastSeen bump for a Check that already
// returned Trusted: Check itself never mutates the store, so callers that
// want the "trusted peer seen again" timestamp updated call AutoUpdate
// after Check returns Trusted.
func (s *Store) AutoUpdate(peerID, nickname string, pub domain.X25519Public) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[peerID]
	if !ok {
		now := time.Now()
		s.records[peerID] = domain.PeerRecord{
			Nickname:    nickname,
			Fingerprint: crypto.Fingerprint(pub[:]),
			PublicKey:   pub,
			FirstSeen:   now,
			LastSeen:    now,
		}
		return s.saveLocked()
	}
	rec.PublicKey = pub
	rec.Fingerprint = crypto.Fingerprint(pub[:])
	rec.LastSeen = time.Now()
	s.records[peerID] = rec
	return s.saveLocked()
}

// MarkVerified sets the verified flag on an existing record, e.g. after
// both parties confirm a matching SAS out of band. It does not compare any
// public key; the record's stored key is the one marked verified.
func (s *Store) MarkVerified(peerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[peerID]
	if !ok {
		return ErrUnknownPeer
	}
	rec.Verified = true
	s.records[peerID] = rec
	return s.saveLocked()
}

// Get returns a copy of a peer's record.
func (s *Store) Get(peerID string) (domain.PeerRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[peerID]
	return rec, ok
}

// Nicknames returns every peer id the store has a record for, in no
// particular order.
func (s *Store) Nicknames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.records))
	for id := range s.records {
		out = append(out, id)
	}
	return out
}

// sasLabel domain-separates the SAS hash from any other blake2b use over
// the same two keys (e.g. the ratchet's own KDFs never see this input).
const sasLabel = "CipherMesh-SAS-v1"

// SAS computes the six-digit Short Authentication String for a pair of
// static public keys: the two 32-byte keys are sorted
// byte-lexicographically before hashing so both parties compute the same
// digest regardless of who is "self" and who is "peer".
func SAS(a, b domain.X25519Public) string {
	first, second := a, b
	if bytes.Compare(a[:], b[:]) > 0 {
		first, second = b, a
	}

	buf := append(append([]byte{}, first[:]...), second[:]...)
	buf = append(buf, sasLabel...)
	h := blake2b.Sum256(buf)
	code := (uint32(h[0])<<16 | uint32(h[1])<<8 | uint32(h[2])) % 1_000_000
	return fmt.Sprintf("%06d", code)
}
