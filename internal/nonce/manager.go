package nonce

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

const (
	// Size is the on-wire nonce length in bytes.
	Size = 24

	// MaxDrift is the accepted clock skew for the timestamp field.
	MaxDrift = 30 * time.Second
)

// Manager owns a single process-wide send counter and a per-peer replay
// window. It is not safe to share a Manager across processes; the design
// assumes one owning process per identity.
type Manager struct {
	mu          sync.Mutex
	sendCounter uint32
	lastByPeer  map[string]int64 // -1 means "no counter accepted yet"
}

// NewManager returns a ready-to-use Manager.
func NewManager() *Manager {
	return &Manager{lastByPeer: make(map[string]int64)}
}

// Generate returns a fresh 24-byte nonce: big-endian ms timestamp, the
// post-incremented send counter, and 12 random bytes.
func (m *Manager) Generate() ([Size]byte, error) {
	m.mu.Lock()
	counter := m.sendCounter
	m.sendCounter++ // wraps mod 2^32 by definition of uint32 overflow
	m.mu.Unlock()

	var out [Size]byte
	binary.BigEndian.PutUint64(out[0:8], uint64(time.Now().UnixMilli()))
	binary.BigEndian.PutUint32(out[8:12], counter)
	if _, err := rand.Read(out[12:24]); err != nil {
		return out, err
	}
	return out, nil
}

// Validate reports whether n is acceptable from peer: the right length, not
// stale (within MaxDrift of now), and strictly greater than the last
// accepted counter for that peer. On acceptance it records the new counter.
func (m *Manager) Validate(peer string, n []byte) bool {
	if len(n) != Size {
		return false
	}
	ts := time.UnixMilli(int64(binary.BigEndian.Uint64(n[0:8])))
	counter := int64(binary.BigEndian.Uint32(n[8:12]))

	drift := time.Since(ts)
	if drift < 0 {
		drift = -drift
	}
	if drift > MaxDrift {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.lastByPeer[peer]
	if !ok {
		last = -1
	}
	if counter <= last {
		return false
	}
	m.lastByPeer[peer] = counter
	return true
}

// RemovePeer clears peer's replay-tracking entry, e.g. when it leaves.
func (m *Manager) RemovePeer(peer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lastByPeer, peer)
}
