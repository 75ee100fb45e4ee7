package ratchet

import (
	"crypto/rand"
	"errors"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/nacl/secretbox"

	"ciphermesh/internal/crypto"
	"ciphermesh/internal/domain"
	"ciphermesh/internal/padding"
	"ciphermesh/internal/util/memzero"
)

const (
	// MaxSkip bounds how many message keys a single decrypt may derive
	// ahead of the current position.
	MaxSkip = 100

	// SkipExpiry is how long a cached skipped key survives before being
	// swept.
	SkipExpiry = 60 * time.Second
)

var (
	// ErrNoPeerEphemeral is returned by Encrypt when a send-side ratchet
	// step is needed but no peer ephemeral key is known yet.
	ErrNoPeerEphemeral = errors.New("ratchet: no peer ephemeral yet")

	// ErrTooManySkipped means a single message would require deriving
	// more than MaxSkip keys; fatal for that message only, not the
	// channel.
	ErrTooManySkipped = errors.New("ratchet: too many skipped messages")

	// ErrAuthFailed covers any MAC mismatch or malformed ciphertext,
	// without indicating which stage failed.
	ErrAuthFailed = errors.New("ratchet: authentication failed")
)

// SendResult is what Encrypt emits: the sealed ciphertext plus the header
// fields the wire envelope carries alongside it.
type SendResult struct {
	Ciphertext      []byte
	Nonce           [24]byte
	EphemeralPublic domain.X25519Public
	Counter         uint32
	PreviousCounter uint32
}

// Init derives the initial root key from both parties' static identity keys
// and seeds either the initiator or responder starting state. Callers
// determine `initiator` via a byte-lexicographic tie-break on session
// identifiers.
func Init(
	myStaticSec domain.X25519Private,
	peerStaticPub domain.X25519Public,
	initiator bool,
) (domain.RatchetState, error) {
	dh0, err := crypto.DH(myStaticSec, peerStaticPub)
	if err != nil {
		return domain.RatchetState{}, err
	}
	rootKey := blake2b.Sum256(dh0[:])
	memzero.Zero(dh0[:])

	state := domain.NewRatchetState()
	state.RootKey = rootKey

	if initiator {
		ephPriv, ephPub, err := crypto.GenerateX25519()
		if err != nil {
			return domain.RatchetState{}, err
		}
		state.HasMyEph = true
		state.MyEph = domain.EphemeralKeyPair{Private: ephPriv, Public: ephPub}
		state.HasPeerEph = true
		state.PeerEphPub = peerStaticPub // bootstrap: peer's static key stands in
	} else {
		// Placeholder: our static secret plays the role of the current
		// ratchet private key until our first send replaces it.
		state.HasMyEph = true
		state.MyEph = domain.EphemeralKeyPair{Private: myStaticSec}
		state.HasPeerEph = false
	}

	state.NeedSendRatchet = true
	state.Initialized = true
	return state, nil
}

// Encrypt advances the ratchet as needed and seals plaintext.
func Encrypt(state *domain.RatchetState, plaintext []byte) (SendResult, error) {
	if state.NeedSendRatchet {
		if !state.HasPeerEph {
			return SendResult{}, ErrNoPeerEphemeral
		}
		state.PreviousSendCount = state.SendCounter
		state.SendCounter = 0

		if state.HasMyEph {
			memzero.Zero(state.MyEph.Private[:])
		}
		ephPriv, ephPub, err := crypto.GenerateX25519()
		if err != nil {
			return SendResult{}, err
		}
		state.MyEph = domain.EphemeralKeyPair{Private: ephPriv, Public: ephPub}
		state.HasMyEph = true

		dh, err := crypto.DH(state.MyEph.Private, state.PeerEphPub)
		if err != nil {
			return SendResult{}, err
		}
		newRoot, sendCK, err := kdfRK(state.RootKey, dh[:])
		memzero.Zero(dh[:])
		if err != nil {
			return SendResult{}, err
		}
		state.RootKey = newRoot
		state.SendChainKey = sendCK
		state.HasSendChain = true
		state.NeedSendRatchet = false
	}

	msgKey, nextCK, err := kdfCK(state.SendChainKey)
	if err != nil {
		return SendResult{}, err
	}
	state.SendChainKey = nextCK

	padded, err := padding.Pad(plaintext)
	if err != nil {
		memzero.Zero(msgKey[:])
		return SendResult{}, err
	}

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		memzero.Zero(msgKey[:])
		memzero.Zero(padded)
		return SendResult{}, err
	}

	ct := secretbox.Seal(nil, padded, &nonce, &msgKey)
	memzero.Zero(padded)
	memzero.Zero(msgKey[:])

	result := SendResult{
		Ciphertext:      ct,
		Nonce:           nonce,
		EphemeralPublic: state.MyEph.Public,
		Counter:         state.SendCounter,
		PreviousCounter: state.PreviousSendCount,
	}
	state.SendCounter++
	return result, nil
}

// Decrypt handles the skipped-key fast path, a DH ratchet step on a new
// peer ephemeral, in-chain skip-ahead, and finally opens the message.
func Decrypt(
	state *domain.RatchetState,
	ct []byte,
	nonce [24]byte,
	ephPub domain.X25519Public,
	counter uint32,
	previousCounter uint32,
) ([]byte, error) {
	sweepSkipped(state)

	// 1. Skipped-key fast path. Looked up unconditionally on (ephPub,
	// counter): a message from an older chain can arrive after the peer
	// ephemeral has already moved on, and its key was cached under that
	// older ephemeral, not the current one.
	id := domain.SkippedKeyID{PeerEph: ephPub, Counter: counter}
	if sk, ok := state.Skipped[id]; ok {
		delete(state.Skipped, id)
		mk := sk.MessageKey
		padded, ok := secretbox.Open(nil, ct, &nonce, (*[32]byte)(&mk))
		memzero.Zero(mk[:])
		if !ok {
			return nil, ErrAuthFailed
		}
		pt, ok := padding.SecureUnpad(padded)
		if !ok {
			return nil, ErrAuthFailed
		}
		return pt, nil
	}

	// 2. DH ratchet step on a new peer ephemeral.
	if !state.HasPeerEph || state.PeerEphPub != ephPub {
		if state.HasRecvChain {
			if err := skipAhead(state, previousCounter); err != nil {
				return nil, err
			}
		}

		state.PeerEphPub = ephPub
		state.HasPeerEph = true

		dh, err := crypto.DH(state.MyEph.Private, ephPub)
		if err != nil {
			return nil, err
		}
		newRoot, recvCK, err := kdfRK(state.RootKey, dh[:])
		memzero.Zero(dh[:])
		if err != nil {
			return nil, err
		}
		state.RootKey = newRoot
		state.RecvChainKey = recvCK
		state.HasRecvChain = true
		state.RecvCounter = 0
		state.NeedSendRatchet = true
	}

	// 3. In-chain skip-ahead to the requested counter.
	if counter > state.RecvCounter {
		if err := skipAhead(state, counter); err != nil {
			return nil, err
		}
	}

	// 4. Derive the current message key.
	msgKey, nextCK, err := kdfCK(state.RecvChainKey)
	if err != nil {
		return nil, err
	}
	state.RecvChainKey = nextCK
	state.RecvCounter++

	// 5. Open and unpad.
	padded, ok := secretbox.Open(nil, ct, &nonce, &msgKey)
	memzero.Zero(msgKey[:])
	if !ok {
		return nil, ErrAuthFailed
	}
	pt, ok := padding.SecureUnpad(padded)
	if !ok {
		return nil, ErrAuthFailed
	}
	return pt, nil
}

// skipAhead derives and caches message keys for positions
// [state.RecvCounter, target) of the current receive chain.
func skipAhead(state *domain.RatchetState, target uint32) error {
	if target <= state.RecvCounter {
		return nil
	}
	if uint64(target)-uint64(state.RecvCounter) > MaxSkip {
		return ErrTooManySkipped
	}
	for state.RecvCounter < target {
		msgKey, nextCK, err := kdfCK(state.RecvChainKey)
		if err != nil {
			return err
		}
		state.RecvChainKey = nextCK
		id := domain.SkippedKeyID{PeerEph: state.PeerEphPub, Counter: state.RecvCounter}
		state.Skipped[id] = domain.SkippedKey{MessageKey: msgKey, InsertedAt: time.Now()}
		state.RecvCounter++
	}
	return nil
}

// sweepSkipped wipes and drops skipped keys older than SkipExpiry.
func sweepSkipped(state *domain.RatchetState) {
	if len(state.Skipped) == 0 {
		return
	}
	now := time.Now()
	for id, sk := range state.Skipped {
		if now.Sub(sk.InsertedAt) > SkipExpiry {
			memzero.Zero(sk.MessageKey[:])
			delete(state.Skipped, id)
		}
	}
}
