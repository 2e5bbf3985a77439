package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"
	"os"

	"swelter/internal/types"
)

const (
	MasterKeyEnvKey = "MASTER_KEY"

	keyLen   = 32 // AES-256
	nonceLen = 12 // standard GCM nonce
)

// Cipher seals and opens a single secret string under a process-wide master
// key. The envelope at rest is base64(nonce || ciphertext || tag); the nonce is
// drawn from crypto/rand on every Seal, so two seals of the same plaintext
// never collide.
type Cipher struct {
	aead cipher.AEAD
}

// New builds a Cipher from a raw 32-byte key.
func New(key []byte) (*Cipher, error) {
	if len(key) != keyLen {
		return nil, types.Err(types.ErrConfiguration, nil,
			"master key must be %d bytes, got %d", keyLen, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, types.Err(types.ErrConfiguration, err, "")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, types.Err(types.ErrConfiguration, err, "")
	}
	return &Cipher{aead: aead}, nil
}

// FromEnv loads the master key from MASTER_KEY (standard base64 of 32 bytes).
// A missing or malformed key is a types.ErrConfiguration error; callers must
// treat it as fatal rather than serving store operations without encryption.
func FromEnv() (*Cipher, error) {
	raw := os.Getenv(MasterKeyEnvKey)
	if raw == "" {
		return nil, types.Err(types.ErrConfiguration, nil, "%s is not set", MasterKeyEnvKey)
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, types.Err(types.ErrConfiguration, err, "%s is not valid base64", MasterKeyEnvKey)
	}
	return New(key)
}

func (c *Cipher) Seal(plaintext string) (string, error) {
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", types.Err(types.ErrConfiguration, err, "cannot read random nonce")
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Any tampering with the envelope, including truncation
// below nonce length, yields types.ErrDecryption; a wrong plaintext is never
// returned silently.
func (c *Cipher) Open(envelope string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", types.Err(types.ErrDecryption, err, "envelope is not valid base64")
	}
	if len(sealed) < nonceLen {
		return "", types.Err(types.ErrDecryption, nil, "envelope shorter than nonce")
	}
	nonce, ciphertext := sealed[:nonceLen], sealed[nonceLen:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", types.Err(types.ErrDecryption, err, "")
	}
	return string(plaintext), nil
}
