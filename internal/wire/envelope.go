package wire

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ciphermesh/internal/domain"
)

// Kind identifies the shape of an Envelope's Payload.
type Kind string

const (
	KindJoin            Kind = "join"
	KindJoinAck         Kind = "join_ack"
	KindPeerJoined      Kind = "peer_joined"
	KindPeerLeft        Kind = "peer_left"
	KindPeerKeyUpdated  Kind = "peer_key_updated"
	KindEncryptedMsg    Kind = "encrypted_message"
	KindError           Kind = "error"
	KindPing            Kind = "ping"
	KindPong            Kind = "pong"
	KindKeyUpdate       Kind = "key_update"
	KindChangeRoom      Kind = "change_room"
	KindRoomChanged     Kind = "room_changed"
	KindListRooms       Kind = "list_rooms"
	KindRoomList        Kind = "room_list"
)

// MaxPayloadBytes is the ceiling on a whole encoded envelope of any kind.
// Decode rejects anything larger, so the relay, which decodes every
// request body, enforces it too.
const MaxPayloadBytes = 64 * 1024

// ProtocolVersion is the only accepted value of an envelope's Version
// field.
const ProtocolVersion = 1

const (
	nonceLen     = 24
	ephemeralLen = 32
)

// ErrUnknownKind is returned when an envelope's Kind is not one wire
// recognizes.
var ErrUnknownKind = errors.New("wire: unknown envelope kind")

// ErrMalformed wraps a specific structural defect found in an envelope.
type ErrMalformed struct {
	Kind   Kind
	Reason string
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("wire: malformed %s envelope: %s", e.Kind, e.Reason)
}

// Envelope is the outer JSON object exchanged with the relay. Payload is
// kept raw until Decode dispatches on Kind. Version pins the wire format;
// Timestamp is stamped by Encode and carried for the receiver's own replay
// bookkeeping (the ratchet and nonce manager, not this package, own actual
// anti-replay decisions).
type Envelope struct {
	Kind      Kind            `json:"kind"`
	Version   int             `json:"version"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type JoinPayload struct {
	Nickname  string `json:"nickname"`
	Room      string `json:"room"`
	PublicKey string `json:"publicKey"`
	SignKey   string `json:"signKey,omitempty"`
}

type JoinAckPayload struct {
	SessionID string   `json:"sessionId"`
	Peers     []string `json:"peers"`
}

type PeerJoinedPayload struct {
	Nickname  string `json:"nickname"`
	PublicKey string `json:"publicKey"`
	SignKey   string `json:"signKey,omitempty"`
}

type PeerLeftPayload struct {
	Nickname string `json:"nickname"`
}

type PeerKeyUpdatedPayload struct {
	Nickname  string `json:"nickname"`
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// EncryptedMessagePayload carries either a ratchet message (EphemeralPublic
// set, Counter/PreviousCounter meaningful) or a static-box fallback message
// (EphemeralPublic empty) or a deniable-channel message (Deniable true).
// Exactly one of those three paths applies to a given message.
type EncryptedMessagePayload struct {
	From            string `json:"from"`
	To              string `json:"to"`
	Ciphertext      string `json:"ciphertext"`
	Nonce           string `json:"nonce"`
	EphemeralPublic string `json:"ephemeralPublicKey,omitempty"`
	Counter         uint32 `json:"counter,omitempty"`
	PreviousCounter uint32 `json:"previousCounter,omitempty"`
	Deniable        bool   `json:"deniable,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// KeyUpdatePayload announces a local identity key rotation. Signature is an
// Ed25519 signature by the sender's long-term signing key over
// KeyUpdateSignedMessage(newPublicKey, timestamp), letting a receiver
// authenticate the rotation before treating it as an auto_update rather
// than a manual, verified-clearing update.
type KeyUpdatePayload struct {
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
}

// KeyUpdateSignedMessage builds the byte string a key_update announcement
// signs: the raw 32-byte public key followed by the big-endian millisecond
// timestamp. Both the signer (rotate) and the verifier (peer_key_updated
// handling) must build this identically.
func KeyUpdateSignedMessage(pub domain.X25519Public, timestampMillis int64) []byte {
	msg := make([]byte, 32+8)
	copy(msg, pub[:])
	binary.BigEndian.PutUint64(msg[32:], uint64(timestampMillis))
	return msg
}

type ChangeRoomPayload struct {
	Room string `json:"room"`
}

type RoomChangedPayload struct {
	Room  string   `json:"room"`
	Peers []string `json:"peers"`
}

type RoomListPayload struct {
	Rooms []string `json:"rooms"`
}

// Decode parses raw bytes into an Envelope and validates it structurally.
func Decode(raw []byte) (Envelope, error) {
	if len(raw) > MaxPayloadBytes {
		return Envelope{}, &ErrMalformed{Reason: fmt.Sprintf("envelope exceeds %d bytes", MaxPayloadBytes)}
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, &ErrMalformed{Reason: "invalid JSON: " + err.Error()}
	}
	if err := Validate(env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Encode serializes an envelope built from a typed payload, stamping the
// current protocol version and timestamp.
func Encode(kind Kind, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Kind:      kind,
		Version:   ProtocolVersion,
		Timestamp: time.Now().UnixMilli(),
		Payload:   body,
	})
}

// Validate checks that an envelope's version, timestamp and Kind-specific
// payload fields are present and well-formed. It never inspects
// cryptographic validity.
func Validate(env Envelope) error {
	if env.Kind == "" {
		return &ErrMalformed{Reason: "missing type"}
	}
	if env.Version != ProtocolVersion {
		return &ErrMalformed{Kind: env.Kind, Reason: fmt.Sprintf("unsupported version %d", env.Version)}
	}
	if env.Timestamp <= 0 {
		return &ErrMalformed{Kind: env.Kind, Reason: "missing or invalid timestamp"}
	}

	switch env.Kind {
	case KindJoin:
		var p JoinPayload
		if err := unmarshalPayload(env, &p); err != nil {
			return err
		}
		if p.Nickname == "" {
			return &ErrMalformed{Kind: env.Kind, Reason: "nickname is required"}
		}
		if p.PublicKey == "" {
			return &ErrMalformed{Kind: env.Kind, Reason: "publicKey is required"}
		}
	case KindJoinAck:
		var p JoinAckPayload
		return unmarshalPayload(env, &p)
	case KindPeerJoined:
		var p PeerJoinedPayload
		if err := unmarshalPayload(env, &p); err != nil {
			return err
		}
		if p.Nickname == "" || p.PublicKey == "" {
			return &ErrMalformed{Kind: env.Kind, Reason: "nickname and publicKey are required"}
		}
	case KindPeerLeft:
		var p PeerLeftPayload
		if err := unmarshalPayload(env, &p); err != nil {
			return err
		}
		if p.Nickname == "" {
			return &ErrMalformed{Kind: env.Kind, Reason: "nickname is required"}
		}
	case KindPeerKeyUpdated:
		var p PeerKeyUpdatedPayload
		if err := unmarshalPayload(env, &p); err != nil {
			return err
		}
		if p.Nickname == "" || p.PublicKey == "" {
			return &ErrMalformed{Kind: env.Kind, Reason: "nickname and publicKey are required"}
		}
	case KindEncryptedMsg:
		var p EncryptedMessagePayload
		if err := unmarshalPayload(env, &p); err != nil {
			return err
		}
		if p.From == "" || p.To == "" {
			return &ErrMalformed{Kind: env.Kind, Reason: "from and to are required"}
		}
		if p.Ciphertext == "" || p.Nonce == "" {
			return &ErrMalformed{Kind: env.Kind, Reason: "ciphertext and nonce are required"}
		}
		if _, ok := decodeB64Len(p.Nonce, nonceLen); !ok {
			return &ErrMalformed{Kind: env.Kind, Reason: fmt.Sprintf("nonce must decode to %d bytes", nonceLen)}
		}
		// ephemeralPublic is optional: present routes to the ratchet path,
		// absent means the static-box or deniable path applies.
		if p.EphemeralPublic != "" {
			if _, ok := decodeB64Len(p.EphemeralPublic, ephemeralLen); !ok {
				return &ErrMalformed{Kind: env.Kind, Reason: fmt.Sprintf("ephemeralPublic must decode to %d bytes", ephemeralLen)}
			}
		}
	case KindError:
		var p ErrorPayload
		if err := unmarshalPayload(env, &p); err != nil {
			return err
		}
		if p.Message == "" {
			return &ErrMalformed{Kind: env.Kind, Reason: "message is required"}
		}
	case KindPing, KindPong, KindListRooms:
		// No payload required.
	case KindKeyUpdate:
		var p KeyUpdatePayload
		if err := unmarshalPayload(env, &p); err != nil {
			return err
		}
		if p.PublicKey == "" || p.Signature == "" {
			return &ErrMalformed{Kind: env.Kind, Reason: "publicKey and signature are required"}
		}
		if p.Timestamp <= 0 {
			return &ErrMalformed{Kind: env.Kind, Reason: "timestamp is required"}
		}
		if _, ok := decodeB64Len(p.PublicKey, ephemeralLen); !ok {
			return &ErrMalformed{Kind: env.Kind, Reason: fmt.Sprintf("publicKey must decode to %d bytes", ephemeralLen)}
		}
	case KindChangeRoom:
		var p ChangeRoomPayload
		if err := unmarshalPayload(env, &p); err != nil {
			return err
		}
		if p.Room == "" {
			return &ErrMalformed{Kind: env.Kind, Reason: "room is required"}
		}
	case KindRoomChanged:
		var p RoomChangedPayload
		return unmarshalPayload(env, &p)
	case KindRoomList:
		var p RoomListPayload
		return unmarshalPayload(env, &p)
	default:
		return ErrUnknownKind
	}
	return nil
}

func unmarshalPayload(env Envelope, dst any) error {
	if len(env.Payload) == 0 {
		return &ErrMalformed{Kind: env.Kind, Reason: "missing payload"}
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return &ErrMalformed{Kind: env.Kind, Reason: "invalid payload: " + err.Error()}
	}
	return nil
}

// decodeB64Len decodes standard base64 s and reports whether it decoded to
// exactly want bytes.
func decodeB64Len(s string, want int) ([]byte, bool) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(b) != want {
		return nil, false
	}
	return b, true
}
