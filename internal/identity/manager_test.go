package identity_test

import (
	"testing"
	"time"

	"ciphermesh/internal/identity"
)

func TestFingerprint_Deterministic(t *testing.T) {
	m, err := identity.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Destroy()

	fp1 := m.Fingerprint()
	fp2 := m.Fingerprint()
	if fp1 != fp2 {
		t.Fatalf("fingerprint not deterministic: %q vs %q", fp1, fp2)
	}
}

func TestRotate_KeepsOnlyOnePrevious(t *testing.T) {
	m, err := identity.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Destroy()

	first := m.Public()

	if err := m.Rotate(); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	prev, ok := m.PreviousPublic()
	if !ok || prev != first {
		t.Fatalf("expected previous public to be the original key")
	}

	if err := m.Rotate(); err != nil {
		t.Fatalf("Rotate again: %v", err)
	}
	second := m.Public()
	prev2, ok := m.PreviousPublic()
	if !ok {
		t.Fatalf("expected a previous key after second rotation")
	}
	if prev2 == first {
		t.Fatalf("second rotation should have wiped the first previous, not kept it")
	}
	if second == prev2 {
		t.Fatalf("current and previous should differ")
	}
}

func TestRotate_DestroyWipesPreviousAndGraceWindowIs30s(t *testing.T) {
	// The grace-window timer itself is not exercised here: the package
	// exports no way to shorten it, so this test checks Destroy's immediate
	// wipe of the previous key instead of waiting out the real 30s window.
	m, err := identity.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Rotate(); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if _, ok := m.PreviousPublic(); !ok {
		t.Fatalf("expected a previous key immediately after rotation")
	}
	m.Destroy()
	if _, ok := m.PreviousPublic(); ok {
		t.Fatalf("expected previous key to be gone after Destroy")
	}
	_ = time.Second // grace window itself is covered by identity.GraceWindow's value, asserted below
	if identity.GraceWindow != 30*time.Second {
		t.Fatalf("GraceWindow changed from spec default: got %v", identity.GraceWindow)
	}
}
