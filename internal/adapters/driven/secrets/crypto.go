package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// sealVersion leads every sealed blob.
	sealVersion = 0x01

	nonceSize = 12 // GCM standard nonce
	keySize   = 32 // AES-256

	// minPassphraseLen is the shortest accepted CREDENTIAL_ENCRYPTION_KEY.
	minPassphraseLen = 16
)

var (
	ErrInvalidKeySize     = errors.New("encryption key must be 32 bytes")
	ErrWeakPassphrase     = fmt.Errorf("encryption passphrase must be at least %d characters", minPassphraseLen)
	ErrInvalidBlobSize    = errors.New("sealed blob is too short")
	ErrUnsupportedVersion = errors.New("unsupported sealed blob version")

	// ErrDecryptionFailed covers a wrong key, tampering and a mismatched aad.
	ErrDecryptionFailed = errors.New("cannot open sealed blob")
)

// hkdfInfo scopes derived keys to credential sealing.
var hkdfInfo = []byte("oauth-broker credential sealing v1")

// SecretEncryptor seals values with AES-256-GCM.
// Blob layout: version(1) || nonce(12) || ciphertext+tag
type SecretEncryptor struct {
	gcm cipher.AEAD
}

// NewSecretEncryptor creates an encryptor from a raw 32-byte key.
func NewSecretEncryptor(key []byte) (*SecretEncryptor, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}

	return &SecretEncryptor{gcm: gcm}, nil
}

// NewSecretEncryptorFromPassphrase derives an AES-256 key from an
// operator-supplied passphrase with HKDF-SHA256.
func NewSecretEncryptorFromPassphrase(passphrase string) (*SecretEncryptor, error) {
	if len(passphrase) < minPassphraseLen {
		return nil, ErrWeakPassphrase
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(passphrase), nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return NewSecretEncryptor(key)
}

// Encrypt JSON-encodes value and seals it, binding aad to the blob.
func (e *SecretEncryptor) Encrypt(value any, aad []byte) ([]byte, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	blob := make([]byte, 0, 1+nonceSize+len(plaintext)+e.gcm.Overhead())
	blob = append(blob, sealVersion)
	blob = append(blob, nonce...)
	return e.gcm.Seal(blob, nonce, plaintext, aad), nil
}

// Decrypt opens blob with aad and decodes the plaintext into value.
func (e *SecretEncryptor) Decrypt(blob []byte, aad []byte, value any) error {
	if len(blob) < 1+nonceSize+e.gcm.Overhead() {
		return ErrInvalidBlobSize
	}
	if blob[0] != sealVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, blob[0])
	}

	plaintext, err := e.gcm.Open(nil, blob[1:1+nonceSize], blob[1+nonceSize:], aad)
	if err != nil {
		return ErrDecryptionFailed
	}
	if err := json.Unmarshal(plaintext, value); err != nil {
		return fmt.Errorf("decode sealed value: %w", err)
	}
	return nil
}
