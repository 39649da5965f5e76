package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the PBKDF2 salt length prepended to every envelope.
	SaltSize = 16
	// NonceSize is the AES-GCM nonce length.
	NonceSize = 12
	// TagSize is the AES-GCM authentication tag length.
	TagSize = 16
	// EnvelopeOverhead is the fixed framing cost of one encrypted payload:
	// salt + nonce + auth tag. The budget engine adds this to every estimate.
	EnvelopeOverhead = SaltSize + NonceSize + TagSize

	keySize       = 32
	kdfIterations = 100_000
)

var urlEncoding = base64.RawURLEncoding

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, kdfIterations, keySize, sha256.New)
}

// Encrypt seals plaintext under a key derived from password and returns the
// url-safe base64 envelope salt||nonce||ciphertext. Salt and nonce are fresh
// random values on every call.
func Encrypt(plaintext []byte, password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %v", err)
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %v", err)
	}

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %v", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to initialize GCM: %v", err)
	}

	envelope := make([]byte, 0, EnvelopeOverhead+len(plaintext))
	envelope = append(envelope, salt...)
	envelope = append(envelope, nonce...)
	envelope = gcm.Seal(envelope, nonce, plaintext, nil)
	return urlEncoding.EncodeToString(envelope), nil
}

// Decrypt reverses Encrypt. A wrong password, a truncated envelope, or any
// tampering fails with an error; there is no partial success.
func Decrypt(encoded string, password string) ([]byte, error) {
	envelope, err := urlEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid share envelope: %v", err)
	}
	if len(envelope) < EnvelopeOverhead {
		return nil, fmt.Errorf("invalid share envelope: too short")
	}
	salt := envelope[:SaltSize]
	nonce := envelope[SaltSize : SaltSize+NonceSize]
	ciphertext := envelope[SaltSize+NonceSize:]

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %v", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %v", err)
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// Deliberately generic: wrong password and tampering are indistinguishable.
		return nil, fmt.Errorf("decryption failed")
	}
	return plaintext, nil
}

const passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// GeneratePassword returns a strong random session password of n characters
// drawn from a url-safe alphabet.
func GeneratePassword(n int) (string, error) {
	if n <= 0 {
		n = 16
	}
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate password: %v", err)
	}
	out := make([]byte, n)
	for i, b := range raw {
		out[i] = passwordAlphabet[int(b)%len(passwordAlphabet)]
	}
	return string(out), nil
}
