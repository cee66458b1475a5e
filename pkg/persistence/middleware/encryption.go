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

	"github.com/aretw0/scribe/pkg/domain"
	"github.com/aretw0/scribe/pkg/ports"
)

// envelopePrefix marks an encrypted RawText.
const envelopePrefix = "enc:v1:"

// ErrNotEncrypted is returned when a stored entry lacks the encrypted envelope.
var ErrNotEncrypted = errors.New("pending entry is missing encrypted data envelope")

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
	next   ports.PendingStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts the message text
// of pending entries using AES-GCM. Keys and timestamps stay readable so the
// backing store can still index and list entries.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, errors.New("active key must be 32 bytes (AES-256)")
	}
	for i, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback key %d must be 32 bytes (AES-256)", i)
		}
	}
	return func(next ports.PendingStore) ports.PendingStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

func (m *encryptionMiddleware) Put(ctx context.Context, entry *domain.PendingEntry) error {
	ciphertext, err := encrypt([]byte(entry.RawText), m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt entry: %w", err)
	}

	envelope := *entry
	envelope.RawText = envelopePrefix + base64.StdEncoding.EncodeToString(ciphertext)
	return m.next.Put(ctx, &envelope)
}

func (m *encryptionMiddleware) Take(ctx context.Context, key domain.MessageKey) (*domain.PendingEntry, error) {
	envelope, err := m.next.Take(ctx, key)
	if err != nil {
		return nil, err
	}
	return m.open(envelope)
}

func (m *encryptionMiddleware) Discard(ctx context.Context, key domain.MessageKey) error {
	return m.next.Discard(ctx, key)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]domain.PendingEntry, error) {
	envelopes, err := m.next.List(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.PendingEntry, 0, len(envelopes))
	for i := range envelopes {
		entry, err := m.open(&envelopes[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (m *encryptionMiddleware) open(envelope *domain.PendingEntry) (*domain.PendingEntry, error) {
	encoded, ok := strings.CutPrefix(envelope.RawText, envelopePrefix)
	if !ok {
		// Fail secure: plain entries are not accepted once encryption is on.
		return nil, fmt.Errorf("%s: %w", envelope.Key, ErrNotEncrypted)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt entry %s: %w", envelope.Key, err)
	}

	entry := *envelope
	entry.RawText = string(plainText)
	return &entry, nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
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
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
