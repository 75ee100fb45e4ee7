package commands

import (
	"encoding/json"

	"ciphermesh/internal/wire"
)

func decodePayload(env wire.Envelope, dst any) error {
	return json.Unmarshal(env.Payload, dst)
}
