package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"strings"
)

// sealedPrefix marks values written by SealSecret. Anything without it is
// plaintext stored before DATA_ENCRYPTION_KEY was set.
const sealedPrefix = "enc:v1:"

var ErrEncryptionKey = errors.New("DATA_ENCRYPTION_KEY must be exactly 32 characters")

func encryptionKey() (key []byte, set bool, err error) {
	k := os.Getenv("DATA_ENCRYPTION_KEY")
	if k == "" {
		return nil, false, nil
	}
	if len(k) != 32 {
		return nil, true, ErrEncryptionKey
	}
	return []byte(k), true, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext with AES-256-GCM and returns base64(nonce|ciphertext).
func Encrypt(plaintext []byte) (string, error) {
	key, set, err := encryptionKey()
	if err != nil {
		return "", err
	}
	if !set {
		return "", ErrEncryptionKey
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt.
func Decrypt(cryptoText string) ([]byte, error) {
	key, set, err := encryptionKey()
	if err != nil {
		return nil, err
	}
	if !set {
		return nil, ErrEncryptionKey
	}

	ciphertext, err := base64.StdEncoding.DecodeString(cryptoText)
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// SealSecret prepares a secret (TOTP seed, email API key) for storage. It is
// encrypted when DATA_ENCRYPTION_KEY is set and stored as is otherwise.
func SealSecret(secret string) (string, error) {
	if secret == "" {
		return "", nil
	}
	if _, set, err := encryptionKey(); err != nil {
		return "", err
	} else if !set {
		return secret, nil
	}
	sealed, err := Encrypt([]byte(secret))
	if err != nil {
		return "", err
	}
	return sealedPrefix + sealed, nil
}

// OpenSecret reads a value written by SealSecret. Plaintext values pass
// through unchanged.
func OpenSecret(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	plain, err := Decrypt(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
