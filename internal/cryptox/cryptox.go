// Package cryptox provides authenticated encryption of serialized day
// records. Records are stored as self-describing envelope strings of the
// form "enc:v1:<base64 nonce>:<base64 ciphertext+tag>".
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	envTag        = "enc"
	envVersion    = "v1"
	legacyVersion = "v0"

	saltV1 = "torna-a-casa:worklog:v1"
	saltV0 = "worklog:v0"

	iterationsV1 = 150000
	iterationsV0 = 10000

	keyLen   = 32
	nonceLen = 12
)

var (
	// ErrNotEnvelope marks a value that is not a current-format envelope
	// (wrong tag or version). Callers treat such values as legacy data.
	ErrNotEnvelope = errors.New("not an encrypted envelope")

	// ErrDecryptFailed marks a well-formed envelope that failed to
	// decrypt or authenticate.
	ErrDecryptFailed = errors.New("decryption failed")
)

// Box performs authenticated encryption under a key stretched from a
// passphrase-strength secret. Key derivation is expensive and runs at most
// once per Box and scheme; a Box is safe for concurrent use.
type Box struct {
	secret string

	once sync.Once
	key  []byte

	legacyOnce sync.Once
	legacy     []byte
}

// NewBox returns a Box for the given secret. No key is derived until the
// first encrypt or decrypt call.
func NewBox(secret string) *Box {
	return &Box{secret: secret}
}

func (b *Box) currentKey() []byte {
	b.once.Do(func() {
		b.key = pbkdf2.Key([]byte(b.secret), []byte(saltV1), iterationsV1, keyLen, sha256.New)
	})
	return b.key
}

func (b *Box) legacyKey() []byte {
	b.legacyOnce.Do(func() {
		b.legacy = pbkdf2.Key([]byte(b.secret), []byte(saltV0), iterationsV0, keyLen, sha1.New)
	})
	return b.legacy
}

// IsEnvelope reports whether s carries the current envelope tag/version.
func IsEnvelope(s string) bool {
	return strings.HasPrefix(s, envTag+":"+envVersion+":")
}

// IsLegacyEnvelope reports whether s carries the retired v0 tag/version.
func IsLegacyEnvelope(s string) bool {
	return strings.HasPrefix(s, envTag+":"+legacyVersion+":")
}

// Seal encrypts plaintext into a current-format envelope string. A fresh
// nonce is drawn on every call, so sealing the same plaintext twice yields
// different envelopes.
func (b *Box) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	aead, err := newAEAD(b.currentKey())
	if err != nil {
		return "", err
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	enc := base64.StdEncoding
	return strings.Join([]string{envTag, envVersion, enc.EncodeToString(nonce), enc.EncodeToString(ciphertext)}, ":"), nil
}

// Open decrypts a current-format envelope. A string without the exact
// tag/version prefix yields ErrNotEnvelope; an authentication failure
// yields ErrDecryptFailed.
func (b *Box) Open(envelope string) ([]byte, error) {
	return open(envelope, envVersion, b.currentKey())
}

// OpenLegacy decrypts a retired v0 envelope using the old key-derivation
// parameters. Used only by the migration path.
func (b *Box) OpenLegacy(envelope string) ([]byte, error) {
	return open(envelope, legacyVersion, b.legacyKey())
}

func open(envelope, version string, key []byte) ([]byte, error) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 4 || parts[0] != envTag || parts[1] != version {
		return nil, ErrNotEnvelope
	}

	enc := base64.StdEncoding
	nonce, err := enc.DecodeString(parts[2])
	if err != nil || len(nonce) != nonceLen {
		return nil, fmt.Errorf("%w: bad nonce", ErrDecryptFailed)
	}
	ciphertext, err := enc.DecodeString(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext", ErrDecryptFailed)
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}

// LoadOrCreateSecret returns the device secret stored at path, generating
// and persisting a random 256-bit one on first use.
func LoadOrCreateSecret(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		secret := strings.TrimSpace(string(data))
		if secret != "" {
			return secret, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}

	buf := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	secret := hex.EncodeToString(buf)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("failed to create secret directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(secret+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("failed to write secret file: %w", err)
	}
	return secret, nil
}
