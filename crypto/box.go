// Package crypto encrypts mailbox credentials for persistence. The
// format is hex(iv) + ":" + hex(ciphertext) with AES-256-CBC and PKCS7
// padding, matching records written by earlier deployments.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"mailhaven/utils"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// DeriveKey turns the configured secret into an AES-256 key by
// truncating or zero-padding it to exactly 32 bytes. An empty secret
// yields a random per-process key, which means ciphertext written by
// this process is unreadable after a restart; operators must pin the
// secret externally for durable storage.
func DeriveKey(secret string) []byte {
	key := make([]byte, KeySize)
	if secret == "" {
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			panic(fmt.Sprintf("crypto: cannot read random key: %v", err))
		}
		utils.Log.Warn("no encryption secret configured; using a random per-process key, stored credentials will not survive a restart")
		return key
	}
	copy(key, []byte(secret))
	return key
}

// Encrypt encrypts plaintext with a fresh random 16-byte IV per call.
// Reusing an IV under the same key would leak structure between two
// ciphertexts, so the IV is never cached.
func Encrypt(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. Any structural problem with the input (a
// missing ":" separator, bad hex, a truncated ciphertext, or invalid
// padding) is reported as ErrCorruptCiphertext, which in practice
// signals an incompatible rotation of the encryption secret.
func Decrypt(ciphertext string, key []byte) (string, error) {
	sep := strings.Index(ciphertext, ":")
	if sep < 0 {
		return "", fmt.Errorf("%w: missing separator", utils.ErrCorruptCiphertext)
	}

	iv, err := hex.DecodeString(ciphertext[:sep])
	if err != nil {
		return "", fmt.Errorf("%w: bad iv encoding", utils.ErrCorruptCiphertext)
	}
	data, err := hex.DecodeString(ciphertext[sep+1:])
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext encoding", utils.ErrCorruptCiphertext)
	}
	if len(iv) != aes.BlockSize || len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: invalid block length", utils.ErrCorruptCiphertext)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	plaintext := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, data)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", utils.ErrCorruptCiphertext, err)
	}
	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, fmt.Errorf("invalid padding byte %d", padding)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-padding], nil
}
