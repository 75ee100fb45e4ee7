package relay

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"ciphermesh/internal/wire"
)

// MaxRate is the maximum accepted messages per second per session (spec
// §6).
const MaxRate = 30

const rateWindow = time.Second

// Server is an in-memory, room-scoped store-and-forward relay. It never
// looks past an envelope's Kind and routing fields.
type Server struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
	log      []AccessLogEntry
}

type sessionState struct {
	nickname string
	room     string
	queue    []json.RawMessage
	rate     []time.Time
}

// AccessLogEntry records who talked to the relay and when, for the relay
// access log. It never records payload contents.
type AccessLogEntry struct {
	Time      time.Time `json:"time"`
	Nickname  string    `json:"nickname"`
	Room      string    `json:"room"`
	Kind      wire.Kind `json:"kind"`
	RemoteIP  string    `json:"remoteIp,omitempty"`
}

// NewServer returns an empty relay server.
func NewServer() *Server {
	return &Server{sessions: make(map[string]*sessionState)}
}

// AccessLog returns a copy of the recorded access log entries.
func (s *Server) AccessLog() []AccessLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AccessLogEntry, len(s.log))
	copy(out, s.log)
	return out
}

func (s *Server) record(nickname, room string, kind wire.Kind, remoteIP string) {
	s.log = append(s.log, AccessLogEntry{
		Time:     time.Now(),
		Nickname: nickname,
		Room:     room,
		Kind:     kind,
		RemoteIP: remoteIP,
	})
}

// Routes registers the relay's HTTP handlers on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/join", s.handleJoin)
	r.Post("/send", s.handleSend)
	r.Get("/poll", s.handlePoll)
	r.Get("/rooms", s.handleRooms)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	env, err := decodeBody(r, wire.KindJoin)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var p wire.JoinPayload
	json.Unmarshal(env.Payload, &p)

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, st := range s.sessions {
		if st.room == p.Room && st.nickname == p.Nickname {
			_ = id
			writeError(w, http.StatusConflict, fmt.Errorf("nickname %q already in use in room %q", p.Nickname, p.Room))
			return
		}
	}

	sessionID := fmt.Sprintf("%s:%d", p.Nickname, time.Now().UnixNano())
	s.sessions[sessionID] = &sessionState{nickname: p.Nickname, room: p.Room}
	s.record(p.Nickname, p.Room, wire.KindJoin, r.RemoteAddr)

	peers := s.peersInRoomLocked(p.Room, sessionID)
	s.broadcastLocked(p.Room, sessionID, wire.KindPeerJoined, wire.PeerJoinedPayload{
		Nickname:  p.Nickname,
		PublicKey: p.PublicKey,
		SignKey:   p.SignKey,
	})

	writeEnvelope(w, wire.KindJoinAck, wire.JoinAckPayload{SessionID: sessionID, Peers: peers})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	sessionID := r.URL.Query().Get("session")

	env, err := decodeBody(r, "")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("unknown session"))
		return
	}
	if !st.allowLocked() {
		writeError(w, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
		return
	}

	s.record(st.nickname, st.room, env.Kind, r.RemoteAddr)

	switch env.Kind {
	case wire.KindEncryptedMsg:
		var p wire.EncryptedMessagePayload
		json.Unmarshal(env.Payload, &p)
		s.deliverToLocked(st.room, p.To, env)
	case wire.KindKeyUpdate:
		var p wire.KeyUpdatePayload
		json.Unmarshal(env.Payload, &p)
		s.broadcastLocked(st.room, sessionID, wire.KindPeerKeyUpdated, wire.PeerKeyUpdatedPayload{
			Nickname:  st.nickname,
			PublicKey: p.PublicKey,
			Signature: p.Signature,
			Timestamp: p.Timestamp,
		})
	case wire.KindChangeRoom:
		var p wire.ChangeRoomPayload
		json.Unmarshal(env.Payload, &p)
		s.broadcastLocked(st.room, sessionID, wire.KindPeerLeft, wire.PeerLeftPayload{Nickname: st.nickname})
		st.room = p.Room
		peers := s.peersInRoomLocked(p.Room, sessionID)
		s.broadcastLocked(p.Room, sessionID, wire.KindPeerJoined, wire.PeerJoinedPayload{Nickname: st.nickname})
		writeEnvelope(w, wire.KindRoomChanged, wire.RoomChangedPayload{Room: p.Room, Peers: peers})
		return
	case wire.KindPing:
		writeEnvelope(w, wire.KindPong, struct{}{})
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("unknown session"))
		return
	}
	queued := st.queue
	st.queue = nil

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(queued)
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var rooms []string
	for _, st := range s.sessions {
		if !seen[st.room] {
			seen[st.room] = true
			rooms = append(rooms, st.room)
		}
	}
	writeEnvelope(w, wire.KindRoomList, wire.RoomListPayload{Rooms: rooms})
}

func (s *Server) peersInRoomLocked(room, excludeSessionID string) []string {
	var peers []string
	for id, st := range s.sessions {
		if id != excludeSessionID && st.room == room {
			peers = append(peers, st.nickname)
		}
	}
	return peers
}

func (s *Server) broadcastLocked(room, excludeSessionID string, kind wire.Kind, payload any) {
	raw, err := wire.Encode(kind, payload)
	if err != nil {
		return
	}
	for id, st := range s.sessions {
		if id == excludeSessionID || st.room != room {
			continue
		}
		st.queue = append(st.queue, json.RawMessage(raw))
	}
}

func (s *Server) deliverToLocked(room, toNickname string, env wire.Envelope) {
	raw, err := wire.Encode(env.Kind, env.Payload)
	if err != nil {
		return
	}
	for _, st := range s.sessions {
		if st.room == room && st.nickname == toNickname {
			st.queue = append(st.queue, json.RawMessage(raw))
		}
	}
}

func (st *sessionState) allowLocked() bool {
	now := time.Now()
	cutoff := now.Add(-rateWindow)
	kept := st.rate[:0]
	for _, t := range st.rate {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	st.rate = kept
	if len(st.rate) >= MaxRate {
		return false
	}
	st.rate = append(st.rate, now)
	return true
}

func decodeBody(r *http.Request, want wire.Kind) (wire.Envelope, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return wire.Envelope{}, err
	}
	env, err := wire.Decode(raw)
	if err != nil {
		return wire.Envelope{}, err
	}
	if want != "" && env.Kind != want {
		return wire.Envelope{}, fmt.Errorf("expected %s envelope, got %s", want, env.Kind)
	}
	return env, nil
}

func writeEnvelope(w http.ResponseWriter, kind wire.Kind, payload any) {
	raw, err := wire.Encode(kind, payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

func writeError(w http.ResponseWriter, status int, err error) {
	raw, _ := wire.Encode(wire.KindError, wire.ErrorPayload{Message: err.Error()})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(raw)
}
