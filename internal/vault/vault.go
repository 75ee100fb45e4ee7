package vault

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"

	"ciphermesh/internal/util/memzero"
)

const (
	saltSize = 16

	// Argon2id interactive parameters: tuned for a local CLI
	// unlocking its own state, not for a server verifying many logins.
	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
	argonKeyLen  = 32
)

// ErrWrongPassphrase is returned by Load when the derived key fails to open
// the sealed payload, meaning either a wrong passphrase or a corrupted
// file.
var ErrWrongPassphrase = errors.New("vault: wrong passphrase or corrupted file")

type envelope struct {
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// DeriveKEK stretches passphrase with Argon2id into a 32-byte
// key-encryption key.
func DeriveKEK(passphrase []byte, salt [saltSize]byte) [32]byte {
	key := argon2.IDKey(passphrase, salt[:], argonTime, argonMemory, argonThreads, argonKeyLen)
	var out [32]byte
	copy(out[:], key)
	memzero.Zero(key)
	return out
}

// Save encrypts plaintext under a key derived from passphrase and writes it
// atomically to path.
func Save(path string, passphrase, plaintext []byte) error {
	var salt [saltSize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return err
	}
	kek := DeriveKEK(passphrase, salt)
	defer memzero.Zero(kek[:])

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return err
	}

	ct := secretbox.Seal(nil, plaintext, &nonce, &kek)

	env := envelope{
		Salt:       base64.StdEncoding.EncodeToString(salt[:]),
		Nonce:      base64.StdEncoding.EncodeToString(nonce[:]),
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("vault: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".vault-*.tmp")
	if err != nil {
		return fmt.Errorf("vault: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("vault: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("vault: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("vault: rename temp file: %w", err)
	}
	return nil
}

// Load reads path and decrypts its payload under a key derived from
// passphrase.
func Load(path string, passphrase []byte) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vault: read: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("vault: decode envelope: %w", err)
	}

	saltBytes, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil || len(saltBytes) != saltSize {
		return nil, fmt.Errorf("vault: malformed salt")
	}
	var salt [saltSize]byte
	copy(salt[:], saltBytes)

	nonceBytes, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil || len(nonceBytes) != 24 {
		return nil, fmt.Errorf("vault: malformed nonce")
	}
	var nonce [24]byte
	copy(nonce[:], nonceBytes)

	ct, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("vault: malformed ciphertext")
	}

	kek := DeriveKEK(passphrase, salt)
	defer memzero.Zero(kek[:])

	plaintext, ok := secretbox.Open(nil, ct, &nonce, &kek)
	if !ok {
		return nil, ErrWrongPassphrase
	}
	return plaintext, nil
}

// Clear overwrites a vault file's contents with zeros before unlinking it,
// so the sealed key material doesn't linger in freed disk blocks. It is not
// an error if the file does not exist.
func Clear(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("vault: open for wipe: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("vault: stat: %w", err)
	}
	zeros := make([]byte, info.Size())
	if _, err := f.WriteAt(zeros, 0); err != nil {
		f.Close()
		return fmt.Errorf("vault: zero: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("vault: sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("vault: close: %w", err)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("vault: remove: %w", err)
	}
	return nil
}
