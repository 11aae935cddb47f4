package crypto

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailhaven/utils"
)

func TestDeriveKey(t *testing.T) {
	t.Run("pads short secrets to 32 bytes", func(t *testing.T) {
		key := DeriveKey("short")
		assert.Len(t, key, KeySize)
		assert.Equal(t, []byte("short"), key[:5])
	})

	t.Run("truncates long secrets to 32 bytes", func(t *testing.T) {
		long := strings.Repeat("a", 100)
		key := DeriveKey(long)
		assert.Len(t, key, KeySize)
		assert.Equal(t, []byte(long[:KeySize]), key)
	})

	t.Run("empty secret yields a random key", func(t *testing.T) {
		k1 := DeriveKey("")
		k2 := DeriveKey("")
		assert.Len(t, k1, KeySize)
		assert.NotEqual(t, k1, k2)
	})
}

func TestEncryptDecrypt(t *testing.T) {
	key := DeriveKey("test-encryption-secret")

	t.Run("round trip returns the original plaintext", func(t *testing.T) {
		for _, plaintext := range []string{"p", "hunter2", "", "a longer credential with spaces and ünïcode"} {
			ciphertext, err := Encrypt(plaintext, key)
			require.NoError(t, err)
			assert.Contains(t, ciphertext, ":")

			got, err := Decrypt(ciphertext, key)
			require.NoError(t, err)
			assert.Equal(t, plaintext, got)
		}
	})

	t.Run("same plaintext never encrypts to the same ciphertext", func(t *testing.T) {
		c1, err := Encrypt("hunter2", key)
		require.NoError(t, err)
		c2, err := Encrypt("hunter2", key)
		require.NoError(t, err)
		assert.NotEqual(t, c1, c2)
	})

	t.Run("decrypt with a different key fails", func(t *testing.T) {
		ciphertext, err := Encrypt("hunter2", key)
		require.NoError(t, err)

		_, err = Decrypt(ciphertext, DeriveKey("rotated-secret"))
		assert.ErrorIs(t, err, utils.ErrCorruptCiphertext)
	})
}

func TestDecryptCorruptInput(t *testing.T) {
	key := DeriveKey("test-encryption-secret")

	cases := []struct {
		name  string
		input string
	}{
		{"missing separator", "deadbeefdeadbeefdeadbeefdeadbeef"},
		{"bad iv hex", "zzzz:deadbeefdeadbeefdeadbeefdeadbeef"},
		{"bad ciphertext hex", "deadbeefdeadbeefdeadbeefdeadbeef:zz"},
		{"short iv", "dead:deadbeefdeadbeefdeadbeefdeadbeef"},
		{"empty ciphertext", "deadbeefdeadbeefdeadbeefdeadbeef:"},
		{"unaligned ciphertext", "deadbeefdeadbeefdeadbeefdeadbeef:dead"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decrypt(tc.input, key)
			require.Error(t, err)
			assert.True(t, errors.Is(err, utils.ErrCorruptCiphertext))
		})
	}
}
