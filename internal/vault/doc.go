// Package vault implements the state vault: encryption at rest for a
// session's identity keys and handshake registry. The trust store is kept
// in its own plain JSON file and is not sealed in the vault.
//
// A passphrase is stretched into a key-encryption key with Argon2id, then
// the plaintext payload is sealed with crypto_secretbox under that key. The
// on-disk envelope stores the salt and nonce alongside the ciphertext so
// Load needs nothing but the passphrase and the file.
package vault
