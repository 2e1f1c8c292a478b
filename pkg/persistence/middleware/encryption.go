package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/codrblog/autoshell/pkg/ports"
)

// envelopePrefix marks encrypted message content.
const envelopePrefix = "enc:v1:"

// ErrNotEncrypted is returned when a stored message lacks the encryption envelope.
var ErrNotEncrypted = errors.New("history entry is missing encrypted data envelope")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.HistoryStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts message content using AES-GCM.
// Roles stay readable so the cache can still be inspected.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, fmt.Errorf("active key must be 32 bytes (AES-256), got %d", len(config.ActiveKey))
	}
	return func(next ports.HistoryStore) ports.HistoryStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

func (m *encryptionMiddleware) Add(ctx context.Context, repo string, issue int, messages []domain.Message) error {
	sealed := make([]domain.Message, len(messages))
	for i, msg := range messages {
		ciphertext, err := encrypt([]byte(msg.Content), m.config.ActiveKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt message: %w", err)
		}
		sealed[i] = domain.Message{
			Role:    msg.Role,
			Content: envelopePrefix + base64.StdEncoding.EncodeToString(ciphertext),
		}
	}
	return m.next.Add(ctx, repo, issue, sealed)
}

func (m *encryptionMiddleware) Get(ctx context.Context, repo string, issue int) ([]domain.Message, error) {
	sealed, err := m.next.Get(ctx, repo, issue)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Message, len(sealed))
	for i, msg := range sealed {
		encoded, ok := strings.CutPrefix(msg.Content, envelopePrefix)
		if !ok {
			// Fail secure: plain entries are never passed through.
			return nil, ErrNotEncrypted
		}
		ciphertext, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
		}
		plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt message: %w", err)
		}
		out[i] = domain.Message{Role: msg.Role, Content: string(plain)}
	}
	return out, nil
}

func (m *encryptionMiddleware) Remove(ctx context.Context, repo string, issue int) error {
	return m.next.Remove(ctx, repo, issue)
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
