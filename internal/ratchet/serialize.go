package ratchet

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"ciphermesh/internal/domain"
)

// wireState is the JSON-friendly projection of domain.RatchetState used by
// the state vault to persist a handshake's ratchet across restarts.
type wireState struct {
	RootKey string `json:"rootKey"`

	HasSendChain bool   `json:"hasSendChain"`
	SendChainKey string `json:"sendChainKey,omitempty"`
	HasRecvChain bool   `json:"hasRecvChain"`
	RecvChainKey string `json:"recvChainKey,omitempty"`

	SendCounter       uint32 `json:"sendCounter"`
	RecvCounter       uint32 `json:"recvCounter"`
	PreviousSendCount uint32 `json:"previousSendCount"`

	HasMyEph    bool   `json:"hasMyEph"`
	MyEphPriv   string `json:"myEphPriv,omitempty"`
	MyEphPub    string `json:"myEphPub,omitempty"`
	HasPeerEph  bool   `json:"hasPeerEph"`
	PeerEphPub  string `json:"peerEphPub,omitempty"`
	Initialized bool   `json:"initialized"`
	NeedSend    bool   `json:"needSendRatchet"`

	Skipped []wireSkipped `json:"skipped,omitempty"`
}

type wireSkipped struct {
	PeerEph    string    `json:"peerEph"`
	Counter    uint32    `json:"counter"`
	MessageKey string    `json:"messageKey"`
	InsertedAt time.Time `json:"insertedAt"`
}

func enc(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func dec(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }

// Marshal serializes a ratchet state to JSON for encrypted storage in the
// state vault.
func Marshal(state domain.RatchetState) ([]byte, error) {
	w := wireState{
		RootKey:           enc(state.RootKey[:]),
		HasSendChain:      state.HasSendChain,
		HasRecvChain:      state.HasRecvChain,
		SendCounter:       state.SendCounter,
		RecvCounter:       state.RecvCounter,
		PreviousSendCount: state.PreviousSendCount,
		HasMyEph:          state.HasMyEph,
		HasPeerEph:        state.HasPeerEph,
		Initialized:       state.Initialized,
		NeedSend:          state.NeedSendRatchet,
	}
	if state.HasSendChain {
		w.SendChainKey = enc(state.SendChainKey[:])
	}
	if state.HasRecvChain {
		w.RecvChainKey = enc(state.RecvChainKey[:])
	}
	if state.HasMyEph {
		w.MyEphPriv = enc(state.MyEph.Private[:])
		w.MyEphPub = enc(state.MyEph.Public[:])
	}
	if state.HasPeerEph {
		w.PeerEphPub = enc(state.PeerEphPub[:])
	}
	for id, sk := range state.Skipped {
		w.Skipped = append(w.Skipped, wireSkipped{
			PeerEph:    enc(id.PeerEph[:]),
			Counter:    id.Counter,
			MessageKey: enc(sk.MessageKey[:]),
			InsertedAt: sk.InsertedAt,
		})
	}
	return json.Marshal(w)
}

// Unmarshal reverses Marshal.
func Unmarshal(data []byte) (domain.RatchetState, error) {
	var w wireState
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.RatchetState{}, err
	}

	state := domain.NewRatchetState()
	if err := decodeFixed(w.RootKey, state.RootKey[:]); err != nil {
		return domain.RatchetState{}, err
	}

	state.HasSendChain = w.HasSendChain
	state.HasRecvChain = w.HasRecvChain
	state.SendCounter = w.SendCounter
	state.RecvCounter = w.RecvCounter
	state.PreviousSendCount = w.PreviousSendCount
	state.HasMyEph = w.HasMyEph
	state.HasPeerEph = w.HasPeerEph
	state.Initialized = w.Initialized
	state.NeedSendRatchet = w.NeedSend

	if w.HasSendChain {
		if err := decodeFixed(w.SendChainKey, state.SendChainKey[:]); err != nil {
			return domain.RatchetState{}, err
		}
	}
	if w.HasRecvChain {
		if err := decodeFixed(w.RecvChainKey, state.RecvChainKey[:]); err != nil {
			return domain.RatchetState{}, err
		}
	}
	if w.HasMyEph {
		if err := decodeFixed(w.MyEphPriv, state.MyEph.Private[:]); err != nil {
			return domain.RatchetState{}, err
		}
		if err := decodeFixed(w.MyEphPub, state.MyEph.Public[:]); err != nil {
			return domain.RatchetState{}, err
		}
	}
	if w.HasPeerEph {
		if err := decodeFixed(w.PeerEphPub, state.PeerEphPub[:]); err != nil {
			return domain.RatchetState{}, err
		}
	}

	for _, ws := range w.Skipped {
		var id domain.SkippedKeyID
		if err := decodeFixed(ws.PeerEph, id.PeerEph[:]); err != nil {
			return domain.RatchetState{}, err
		}
		id.Counter = ws.Counter

		var sk domain.SkippedKey
		if err := decodeFixed(ws.MessageKey, sk.MessageKey[:]); err != nil {
			return domain.RatchetState{}, err
		}
		sk.InsertedAt = ws.InsertedAt
		state.Skipped[id] = sk
	}

	return state, nil
}

func decodeFixed(s string, dst []byte) error {
	if s == "" {
		return nil
	}
	b, err := dec(s)
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}
