package nonce_test

import (
	"encoding/binary"
	"testing"
	"time"

	"ciphermesh/internal/nonce"
)

func TestValidate_RejectsReplay(t *testing.T) {
	m := nonce.NewManager()
	n, err := m.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !m.Validate("bob", n[:]) {
		t.Fatalf("expected first validate to accept")
	}
	if m.Validate("bob", n[:]) {
		t.Fatalf("expected immediate repeat to be rejected")
	}
}

func TestValidate_AcceptsStrictlyIncreasing(t *testing.T) {
	m := nonce.NewManager()
	for i := 0; i < 5; i++ {
		n, err := m.Generate()
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if !m.Validate("alice", n[:]) {
			t.Fatalf("iteration %d: expected accept", i)
		}
	}
}

func TestValidate_RejectsStaleTimestamp(t *testing.T) {
	m := nonce.NewManager()
	var n [nonce.Size]byte
	stale := time.Now().Add(-time.Hour).UnixMilli()
	binary.BigEndian.PutUint64(n[0:8], uint64(stale))
	binary.BigEndian.PutUint32(n[8:12], 0)

	if m.Validate("carol", n[:]) {
		t.Fatalf("expected stale nonce to be rejected")
	}
}

func TestValidate_RejectsMalformedLength(t *testing.T) {
	m := nonce.NewManager()
	if m.Validate("dave", make([]byte, 10)) {
		t.Fatalf("expected malformed-length nonce to be rejected")
	}
}

func TestRemovePeer_ResetsWindow(t *testing.T) {
	m := nonce.NewManager()
	n, _ := m.Generate()
	m.Validate("erin", n[:])
	m.RemovePeer("erin")

	// After removal the same counter would be accepted again as if new,
	// but the timestamp is still fresh so this just checks the counter
	// gate was actually cleared rather than merely decremented.
	if !m.Validate("erin", n[:]) {
		t.Fatalf("expected validate to accept again after RemovePeer")
	}
}
