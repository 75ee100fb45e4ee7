// Package relay implements the LAN relay boundary: a plain HTTP
// store-and-forward hub that shuttles opaque wire.Envelope bytes between
// sessions in the same room without ever inspecting their payload (spec
// §6). It is deliberately mechanical: everything interesting — identity,
// trust, ratchets — lives entirely on the client side in the other
// internal packages.
//
// There is no persistent connection here; the client polls. A real
// deployment would put a WebSocket or similar push transport in front of
// this, but the boundary contract (join/send/poll, rate limits, size caps,
// unique nicknames per room) does not depend on which transport carries it.
package relay
