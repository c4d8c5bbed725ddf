// Package crypto шифрует секреты конфигурации (API ключ и секрет биржи).
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

// SealedPrefix - префикс зашифрованного значения в окружении: enc:<base64>
const SealedPrefix = "enc:"

// KeySize - длина ключа AES-256
const KeySize = 32

// Ошибки шифрования
var (
	ErrInvalidKeyLength   = errors.New("encryption key must be exactly 32 bytes for AES-256")
	ErrInvalidCiphertext  = errors.New("invalid ciphertext")
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrDecryptionFailed   = errors.New("decryption failed: authentication error")
	ErrMissingKey         = errors.New("value is encrypted but ENCRYPTION_KEY is not set")
)

// ParseKey разбирает ключ из окружения
//
// Принимается либо ровно 32 байта как есть, либо base64 от 32 байт
// (формат, который печатает GenerateKey).
func ParseKey(s string) ([]byte, error) {
	if len(s) == KeySize {
		return []byte(s), nil
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(key) != KeySize {
		return nil, ErrInvalidKeyLength
	}
	return key, nil
}

// Seal шифрует plaintext AES-256-GCM и возвращает enc:<base64(nonce|ciphertext|tag)>
func Seal(plaintext string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return SealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open расшифровывает значение, созданное Seal (префикс enc: необязателен)
func Open(value string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SealedPrefix))
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize+gcm.Overhead() {
		return "", ErrCiphertextTooShort
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// IsSealed проверяет, зашифровано ли значение
func IsSealed(value string) bool {
	return strings.HasPrefix(value, SealedPrefix)
}

// Reveal возвращает открытое значение секрета
//
// Значение без префикса enc: возвращается как есть. Для зашифрованного
// значения нужен ключ; пустой ключ даёт ErrMissingKey.
func Reveal(value string, key []byte) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	if len(key) == 0 {
		return "", ErrMissingKey
	}
	return Open(value, key)
}

// GenerateKey генерирует случайный ключ и возвращает его в base64 (для .env)
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
