package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"ciphermesh/internal/wire"
)

// Client is a thin HTTP client for the relay boundary.
type Client struct {
	Base string
	HTTP *http.Client

	sessionID string
}

// NewClient returns a Client with a default HTTP timeout.
func NewClient(base string) *Client {
	return &Client{Base: base, HTTP: &http.Client{Timeout: 10 * time.Second}}
}

// Join registers with the relay under nickname/room and returns the peers
// already present.
func (c *Client) Join(nickname, room, publicKeyB64, signKeyB64 string) (wire.JoinAckPayload, error) {
	raw, err := wire.Encode(wire.KindJoin, wire.JoinPayload{
		Nickname:  nickname,
		Room:      room,
		PublicKey: publicKeyB64,
		SignKey:   signKeyB64,
	})
	if err != nil {
		return wire.JoinAckPayload{}, err
	}

	resp, err := c.post("/join", raw)
	if err != nil {
		return wire.JoinAckPayload{}, err
	}
	env, err := wire.Decode(resp)
	if err != nil {
		return wire.JoinAckPayload{}, err
	}
	var ack wire.JoinAckPayload
	if err := json.Unmarshal(env.Payload, &ack); err != nil {
		return wire.JoinAckPayload{}, err
	}
	c.sessionID = ack.SessionID
	return ack, nil
}

// Send posts an envelope to the relay under the current session.
func (c *Client) Send(kind wire.Kind, payload any) error {
	raw, err := wire.Encode(kind, payload)
	if err != nil {
		return err
	}
	_, err = c.post("/send?session="+url.QueryEscape(c.sessionID), raw)
	return err
}

// Poll drains the relay's queue for the current session.
func (c *Client) Poll() ([]wire.Envelope, error) {
	resp, err := c.get("/poll?session=" + url.QueryEscape(c.sessionID))
	if err != nil {
		return nil, err
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(resp, &raws); err != nil {
		return nil, err
	}
	envs := make([]wire.Envelope, 0, len(raws))
	for _, r := range raws {
		env, err := wire.Decode(r)
		if err != nil {
			continue
		}
		envs = append(envs, env)
	}
	return envs, nil
}

// Rooms lists the rooms currently active on the relay.
func (c *Client) Rooms() ([]string, error) {
	resp, err := c.get("/rooms")
	if err != nil {
		return nil, err
	}
	env, err := wire.Decode(resp)
	if err != nil {
		return nil, err
	}
	var p wire.RoomListPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return nil, err
	}
	return p.Rooms, nil
}

func (c *Client) post(path string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, c.Base+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) get(path string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.Base+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("relay: %s returned status %d: %s", req.URL.Path, resp.StatusCode, buf.String())
	}
	return buf.Bytes(), nil
}
