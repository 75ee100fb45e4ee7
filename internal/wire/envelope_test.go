package wire_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"testing"

	"ciphermesh/internal/crypto"
	"ciphermesh/internal/wire"
)

func TestEncodeDecode_Join_RoundTrip(t *testing.T) {
	raw, err := wire.Encode(wire.KindJoin, wire.JoinPayload{
		Nickname:  "alice",
		Room:      "lobby",
		PublicKey: "base64pubkey",
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	env, err := wire.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Kind != wire.KindJoin {
		t.Fatalf("got kind %q, want join", env.Kind)
	}
}

func TestDecode_JoinMissingNicknameFails(t *testing.T) {
	raw, err := wire.Encode(wire.KindJoin, wire.JoinPayload{
		PublicKey: "base64pubkey",
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := wire.Decode(raw); err == nil {
		t.Fatalf("expected missing nickname to fail validation")
	}
}

func TestDecode_UnknownKindFails(t *testing.T) {
	raw := []byte(`{"kind":"not_a_real_kind","version":1,"timestamp":1700000000000,"payload":{}}`)
	if _, err := wire.Decode(raw); err != wire.ErrUnknownKind {
		t.Fatalf("got %v, want ErrUnknownKind", err)
	}
}

func TestDecode_WrongVersionFails(t *testing.T) {
	raw := []byte(`{"kind":"ping","version":2,"timestamp":1700000000000}`)
	if _, err := wire.Decode(raw); err == nil {
		t.Fatalf("expected unsupported version to fail")
	}
}

func TestDecode_MissingTimestampFails(t *testing.T) {
	raw := []byte(`{"kind":"ping","version":1}`)
	if _, err := wire.Decode(raw); err == nil {
		t.Fatalf("expected missing timestamp to fail")
	}
}

func TestDecode_MissingTypeFails(t *testing.T) {
	raw := []byte(`{"version":1,"timestamp":1700000000000}`)
	if _, err := wire.Decode(raw); err == nil {
		t.Fatalf("expected missing type to fail")
	}
}

func TestDecode_InvalidJSONFails(t *testing.T) {
	if _, err := wire.Decode([]byte(`{not json`)); err == nil {
		t.Fatalf("expected invalid JSON to fail")
	}
}

func TestDecode_OversizedEnvelopeFails(t *testing.T) {
	huge := bytes.Repeat([]byte("a"), wire.MaxPayloadBytes+1)
	raw, err := wire.Encode(wire.KindEncryptedMsg, wire.EncryptedMessagePayload{
		From:            "alice",
		To:              "bob",
		Ciphertext:      string(huge),
		Nonce:           "n",
		EphemeralPublic: "e",
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := wire.Decode(raw); err == nil {
		t.Fatalf("expected oversized envelope to be rejected")
	}
}

func TestEncodeDecode_PingPong_NoPayloadRequired(t *testing.T) {
	raw, err := wire.Encode(wire.KindPing, struct{}{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := wire.Decode(raw); err != nil {
		t.Fatalf("Decode: %v", err)
	}
}

func TestDecode_EncryptedMessageRequiresCoreFields(t *testing.T) {
	raw, err := wire.Encode(wire.KindEncryptedMsg, wire.EncryptedMessagePayload{
		From: "alice",
		To:   "bob",
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := wire.Decode(raw); err == nil {
		t.Fatalf("expected missing ciphertext/nonce to fail")
	}
}

func TestDecode_EncryptedMessage_EphemeralPublicIsOptional(t *testing.T) {
	raw, err := wire.Encode(wire.KindEncryptedMsg, wire.EncryptedMessagePayload{
		From:       "alice",
		To:         "bob",
		Ciphertext: "Y2lwaGVydGV4dA==",
		Nonce:      base64.StdEncoding.EncodeToString(make([]byte, 24)),
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := wire.Decode(raw); err != nil {
		t.Fatalf("expected a static-box message with no ephemeralPublic to validate, got %v", err)
	}
}

func TestDecode_EncryptedMessage_BadNonceLengthFails(t *testing.T) {
	raw, err := wire.Encode(wire.KindEncryptedMsg, wire.EncryptedMessagePayload{
		From:       "alice",
		To:         "bob",
		Ciphertext: "Y2lwaGVydGV4dA==",
		Nonce:      base64.StdEncoding.EncodeToString(make([]byte, 10)),
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := wire.Decode(raw); err == nil {
		t.Fatalf("expected a nonce of the wrong length to fail")
	}
}

func TestDecode_EncryptedMessage_BadEphemeralLengthFails(t *testing.T) {
	raw, err := wire.Encode(wire.KindEncryptedMsg, wire.EncryptedMessagePayload{
		From:            "alice",
		To:              "bob",
		Ciphertext:      "Y2lwaGVydGV4dA==",
		Nonce:           base64.StdEncoding.EncodeToString(make([]byte, 24)),
		EphemeralPublic: base64.StdEncoding.EncodeToString(make([]byte, 10)),
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := wire.Decode(raw); err == nil {
		t.Fatalf("expected an ephemeralPublic of the wrong length to fail")
	}
}

func TestKeyUpdateSignedMessage_VerifiesAgainstSigningKey(t *testing.T) {
	edPriv, edPub, err := crypto.GenerateEd25519()
	if err != nil {
		t.Fatalf("GenerateEd25519: %v", err)
	}
	_, newPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}

	msg := wire.KeyUpdateSignedMessage(newPub, 1700000000000)
	sig := crypto.SignEd25519(edPriv, msg)

	if !crypto.VerifyEd25519(edPub, msg, sig) {
		t.Fatalf("expected signature to verify against the signing key")
	}

	tampered := wire.KeyUpdateSignedMessage(newPub, 1700000000001)
	if crypto.VerifyEd25519(edPub, tampered, sig) {
		t.Fatalf("expected signature over a different timestamp to fail")
	}
}

func TestDecode_KeyUpdate_RequiresTimestampAndValidKeyLength(t *testing.T) {
	_, pub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	raw, err := wire.Encode(wire.KindKeyUpdate, wire.KeyUpdatePayload{
		PublicKey: crypto.B64(pub[:]),
		Signature: crypto.B64(make([]byte, 64)),
		Timestamp: 1700000000000,
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := wire.Decode(raw); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	missingTS, err := wire.Encode(wire.KindKeyUpdate, wire.KeyUpdatePayload{
		PublicKey: crypto.B64(pub[:]),
		Signature: crypto.B64(make([]byte, 64)),
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := wire.Decode(missingTS); err == nil {
		t.Fatalf("expected missing key_update timestamp to fail")
	}
}

func TestDecode_EncryptedMessage_DeniableRoundTrips(t *testing.T) {
	raw, err := wire.Encode(wire.KindEncryptedMsg, wire.EncryptedMessagePayload{
		From:       "alice",
		To:         "bob",
		Ciphertext: "Y2lwaGVydGV4dA==",
		Nonce:      base64.StdEncoding.EncodeToString(make([]byte, 24)),
		Deniable:   true,
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	env, err := wire.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var p wire.EncryptedMessagePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("Unmarshal payload: %v", err)
	}
	if !p.Deniable {
		t.Fatalf("expected deniable flag to round-trip")
	}
}
