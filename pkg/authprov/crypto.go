package authprov

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	hashIterations = 4096
	hashKeyLength  = 32
	gcmNonceSize   = 12
)

// Cipher applies credential encryption schemes. The hash scheme is salted by
// user id; the reversible scheme is keyed by the server credential secret.
// Both transforms are deterministic so that stored values stay comparable by
// equality.
type Cipher struct {
	key []byte
}

// NewCipher creates a cipher from the server credential secret. The secret
// may be empty as long as no provider declares the reversible scheme.
func NewCipher(secret string) *Cipher {
	c := &Cipher{}
	if secret != "" {
		key := sha256.Sum256([]byte(secret))
		c.key = key[:]
	}
	return c
}

// Encrypt transforms a credential value according to the scheme
func (c *Cipher) Encrypt(scheme Encryption, userID, value string) (string, error) {
	switch scheme {
	case EncryptionNone, EncryptionPlain, "":
		return value, nil
	case EncryptionHash:
		return c.hash(userID, value), nil
	case EncryptionEncrypted:
		return c.encrypt(userID, value)
	default:
		return "", fmt.Errorf("unknown credential encryption scheme %q", scheme)
	}
}

// Decrypt reverses the reversible scheme. Identity schemes return the value
// unchanged; the hash scheme cannot be reversed.
func (c *Cipher) Decrypt(scheme Encryption, value string) (string, error) {
	switch scheme {
	case EncryptionNone, EncryptionPlain, "":
		return value, nil
	case EncryptionEncrypted:
		return c.decrypt(value)
	default:
		return "", fmt.Errorf("credential encryption scheme %q is not reversible", scheme)
	}
}

func (c *Cipher) hash(userID, value string) string {
	derived := pbkdf2.Key([]byte(value), []byte(userID), hashIterations, hashKeyLength, sha256.New)
	return hex.EncodeToString(derived)
}

func (c *Cipher) encrypt(userID, value string) (string, error) {
	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	// Nonce derived from the user id and plaintext keeps the transform
	// deterministic; the nonce is still stored alongside the ciphertext so
	// decryption does not depend on recomputing it.
	nonceSeed := sha256.Sum256([]byte(userID + "\x00" + value))
	nonce := nonceSeed[:gcmNonceSize]

	sealed := gcm.Seal(nonce, nonce, []byte(value), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *Cipher) decrypt(value string) (string, error) {
	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("malformed encrypted credential: %w", err)
	}
	if len(raw) < gcmNonceSize {
		return "", fmt.Errorf("malformed encrypted credential: too short")
	}

	plaintext, err := gcm.Open(nil, raw[:gcmNonceSize], raw[gcmNonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential: %w", err)
	}
	return string(plaintext), nil
}

func (c *Cipher) gcm() (cipher.AEAD, error) {
	if len(c.key) == 0 {
		return nil, fmt.Errorf("credential secret is not configured")
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
