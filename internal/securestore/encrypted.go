package securestore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const slotKeyInfo = "eduportal-storage-slots-v1"

// Encrypted seals every slot value with AES-256-GCM before handing it to the
// underlying store. The slot key is bound as associated data so a value
// cannot be replayed under another slot.
type Encrypted struct {
	inner Store
	aead  cipher.AEAD
}

// NewEncrypted wraps inner using a key derived from the 32-byte master key
func NewEncrypted(inner Store, masterKey []byte) (*Encrypted, error) {
	if len(masterKey) != 32 {
		return nil, errors.New("master key must be 32 bytes")
	}

	derived := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterKey, nil, []byte(slotKeyInfo)), derived); err != nil {
		return nil, fmt.Errorf("failed to derive slot key: %w", err)
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Encrypted{inner: inner, aead: aead}, nil
}

func (e *Encrypted) Get(ctx context.Context, key string) (string, error) {
	stored, err := e.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}

	blob, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	ns := e.aead.NonceSize()
	if len(blob) < ns {
		return "", fmt.Errorf("%w: %s: ciphertext too short", ErrCorrupt, key)
	}

	plain, err := e.aead.Open(nil, blob[:ns], blob[ns:], []byte(key))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return string(plain), nil
}

func (e *Encrypted) Set(ctx context.Context, key, value string) error {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return e.inner.Set(ctx, key, base64.StdEncoding.EncodeToString(sealed))
}

func (e *Encrypted) Delete(ctx context.Context, key string) error {
	return e.inner.Delete(ctx, key)
}

// ParseMasterKey decodes a 64-character hex master key
func ParseMasterKey(h string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimSpace(h))
	if err != nil {
		return nil, fmt.Errorf("master key hex decode error: %w", err)
	}
	if len(b) != 32 {
		return nil, errors.New("master key length must be 32 bytes (hex 64 chars)")
	}
	return b, nil
}

// LoadOrCreateMasterKey returns the key from hexValue when set, otherwise
// reads it from path, generating and writing a new key (0600) on first run.
func LoadOrCreateMasterKey(hexValue, path string) ([]byte, error) {
	if hexValue != "" {
		return ParseMasterKey(hexValue)
	}

	data, err := os.ReadFile(path)
	if err == nil {
		return ParseMasterKey(string(data))
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read master key file: %w", err)
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write master key file: %w", err)
	}
	return key, nil
}
