// Package wire implements the wire validator: the JSON envelope types
// exchanged with the relay and the structural checks applied to every
// inbound message before it reaches a handler.
//
// Validation here is purely structural — field presence, size limits,
// well-formed base64 — never cryptographic. Signature and MAC checks stay
// in the crypto packages; wire only decides whether a message is
// well-formed enough to be worth handing to them.
package wire
