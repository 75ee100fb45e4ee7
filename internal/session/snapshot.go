package session

import "time"

// snapshot is the JSON payload sealed inside the state vault.
type snapshot struct {
	XPriv string `json:"xPriv"`
	XPub  string `json:"xPub"`
	EdPriv string `json:"edPriv"`
	EdPub  string `json:"edPub"`

	Peers map[string]peerSnapshot `json:"peers"`
}

type peerSnapshot struct {
	CurrentPublic     string    `json:"currentPublic"`
	HasPrevious       bool      `json:"hasPrevious,omitempty"`
	PreviousPublic    string    `json:"previousPublic,omitempty"`
	PreviousExpiresAt time.Time `json:"previousExpiresAt,omitempty"`
	Ratchet           []byte    `json:"ratchet"`
}
