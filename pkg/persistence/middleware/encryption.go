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

	"github.com/aretw0/questline/pkg/domain"
	"github.com/aretw0/questline/pkg/ports"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

const sealedPrefix = "enc:v1:"

// ErrNotEncrypted is returned when a stored session carries plaintext fields
// while encryption is configured.
var ErrNotEncrypted = errors.New("session is not encrypted")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot open a value.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

// ParseKeys decodes base64 keys into an EncryptionConfig. The first key is
// the active one.
func ParseKeys(active string, fallback ...string) (EncryptionConfig, error) {
	var cfg EncryptionConfig
	for i, s := range append([]string{active}, fallback...) {
		key, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return cfg, fmt.Errorf("encryption key %d: %w", i, err)
		}
		if i == 0 {
			cfg.ActiveKey = key
		} else {
			cfg.FallbackKeys = append(cfg.FallbackKeys, key)
		}
	}
	return cfg, cfg.check()
}

func (c EncryptionConfig) check() error {
	if len(c.ActiveKey) != KeySize {
		return fmt.Errorf("active key must be %d bytes (AES-256), got %d", KeySize, len(c.ActiveKey))
	}
	for i, k := range c.FallbackKeys {
		if len(k) != KeySize {
			return fmt.Errorf("fallback key %d must be %d bytes, got %d", i, KeySize, len(k))
		}
	}
	return nil
}

type encryptionMiddleware struct {
	next   ports.SessionStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals the player-facing
// fields of a session with AES-GCM: its name, guild and node descriptions.
// Ids, positions and history stay readable so stores can still index them.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if err := config.check(); err != nil {
		return nil, err
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, sess *domain.GameSession) error {
	sealed := sess.Clone()
	if err := m.transform(sealed, m.seal); err != nil {
		return fmt.Errorf("failed to encrypt session %d: %w", sess.ID, err)
	}
	return m.next.Save(ctx, sealed)
}

func (m *encryptionMiddleware) Load(ctx context.Context, id int) (*domain.GameSession, error) {
	sess, err := m.next.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.transform(sess, m.open); err != nil {
		return nil, fmt.Errorf("failed to decrypt session %d: %w", id, err)
	}
	return sess, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, id int) error {
	return m.next.Delete(ctx, id)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]int, error) {
	return m.next.List(ctx)
}

func (m *encryptionMiddleware) NextID(ctx context.Context) (int, error) {
	return m.next.NextID(ctx)
}

func (m *encryptionMiddleware) transform(sess *domain.GameSession, fn func(string) (string, error)) error {
	var err error
	if sess.Name, err = fn(sess.Name); err != nil {
		return err
	}
	if sess.GuildID, err = fn(sess.GuildID); err != nil {
		return err
	}
	for id, n := range sess.Nodes {
		if n.Description, err = fn(n.Description); err != nil {
			return fmt.Errorf("node %d: %w", id, err)
		}
		sess.Nodes[id] = n
	}
	return nil
}

func (m *encryptionMiddleware) seal(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	ciphertext, err := encrypt([]byte(s), m.config.ActiveKey)
	if err != nil {
		return "", err
	}
	return sealedPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (m *encryptionMiddleware) open(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	encoded, ok := strings.CutPrefix(s, sealedPrefix)
	if !ok {
		return "", ErrNotEncrypted
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

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
