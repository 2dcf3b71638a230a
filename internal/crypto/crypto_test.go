package crypto

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "jXn2r5u8x/A?D(G+KbPeShVmYq3t6w9z"

func TestRoundTrip(t *testing.T) {
	cases := []string{
		"hello",
		"",
		"a",
		"exactly sixteen!",
		"un message avec des accents éàü et des emojis 🦆",
		strings.Repeat("long ", 200),
		"line one\nline two\ttabbed",
	}
	for _, plaintext := range cases {
		token, err := Encrypt(plaintext, testKey)
		require.NoError(t, err)
		assert.Equal(t, plaintext, Decrypt(token, testKey))
	}
}

func TestTokenFormat(t *testing.T) {
	token, err := Encrypt("hello", testKey)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.Equal(t, "Salted__", string(raw[:8]))
	// 8-byte salt plus at least one cipher block
	assert.GreaterOrEqual(t, len(raw), 8+8+16)
}

func TestSaltVaries(t *testing.T) {
	a, err := Encrypt("same plaintext", testKey)
	require.NoError(t, err)
	b, err := Encrypt("same plaintext", testKey)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestWrongKeyNeverRecoversPlaintext(t *testing.T) {
	const plaintext = "a secret worth keeping"
	for i := 0; i < 50; i++ {
		token, err := Encrypt(plaintext, testKey)
		require.NoError(t, err)
		got := Decrypt(token, "not-the-key-at-all")
		assert.NotEqual(t, plaintext, got)
	}
}

func TestDecryptDegradesToEmpty(t *testing.T) {
	cases := map[string]string{
		"not base64":        "%%%not-base64%%%",
		"empty":             "",
		"too short":         base64.StdEncoding.EncodeToString([]byte("Salted__123")),
		"no magic":          base64.StdEncoding.EncodeToString(make([]byte, 48)),
		"ragged ciphertext": base64.StdEncoding.EncodeToString([]byte("Salted__12345678odd")),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, "", Decrypt(token, testKey))
		})
	}
}

func TestDecryptCorruptedToken(t *testing.T) {
	token, err := Encrypt("some message body", testKey)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	got := Decrypt(base64.StdEncoding.EncodeToString(raw), testKey)
	assert.NotEqual(t, "some message body", got)
}
