package crypt

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	plaintext := []byte(`{"apiKey":"sk-test","model":"gpt-4o"}`)
	encoded, err := Encrypt(plaintext, "hunter2")
	require.NoError(t, err)

	decoded, err := Decrypt(encoded, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, plaintext, decoded)
}

func TestRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("decrypt(encrypt(p, pw), pw) == p", prop.ForAll(
		func(payload []byte, password string) bool {
			if password == "" {
				return true
			}
			encoded, err := Encrypt(payload, password)
			if err != nil {
				return false
			}
			decoded, err := Decrypt(encoded, password)
			if err != nil {
				return false
			}
			return string(decoded) == string(payload)
		},
		gen.SliceOf(gen.UInt8()),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestWrongPasswordFailsClosed(t *testing.T) {
	encoded, err := Encrypt([]byte("secret payload"), "right")
	require.NoError(t, err)

	decoded, err := Decrypt(encoded, "wrong")
	assert.Error(t, err)
	assert.Nil(t, decoded)
}

func TestTamperedEnvelopeFails(t *testing.T) {
	encoded, err := Encrypt([]byte("secret payload"), "pw")
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	_, err = Decrypt(tampered, "pw")
	assert.Error(t, err)
}

func TestTruncatedEnvelopeFails(t *testing.T) {
	_, err := Decrypt(base64.RawURLEncoding.EncodeToString(make([]byte, EnvelopeOverhead-1)), "pw")
	assert.Error(t, err)

	_, err = Decrypt("not!base64!!", "pw")
	assert.Error(t, err)
}

func TestEnvelopeOverheadIsExact(t *testing.T) {
	plaintext := []byte("0123456789")
	encoded, err := Encrypt(plaintext, "pw")
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Equal(t, len(plaintext)+EnvelopeOverhead, len(raw),
		"the framing constant the budget engine uses must match reality")
}

func TestFreshNoncePerCall(t *testing.T) {
	a, err := Encrypt([]byte("same payload"), "pw")
	require.NoError(t, err)
	b, err := Encrypt([]byte("same payload"), "pw")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "salt and nonce must be fresh per call")
}

func TestCiphertextIsURLSafe(t *testing.T) {
	encoded, err := Encrypt([]byte("payload with spaces and / and +"), "pw")
	require.NoError(t, err)
	assert.NotContains(t, encoded, "+")
	assert.NotContains(t, encoded, "/")
	assert.NotContains(t, encoded, "=")
}

func TestBuildAndParseShareURL(t *testing.T) {
	link := BuildShareURL("https://chat.example.com", "/", "abc123")
	assert.Equal(t, "https://chat.example.com/#shared=abc123", link)

	ct, ok := ParseShareURL(link)
	require.True(t, ok)
	assert.Equal(t, "abc123", ct)

	_, ok = ParseShareURL("https://chat.example.com/")
	assert.False(t, ok)
	_, ok = ParseShareURL("https://chat.example.com/#shared=")
	assert.False(t, ok)
}

func TestGeneratePassword(t *testing.T) {
	pw, err := GeneratePassword(16)
	require.NoError(t, err)
	assert.Len(t, pw, 16)
	for _, r := range pw {
		assert.True(t, strings.ContainsRune(passwordAlphabet, r), "unexpected rune %q", r)
	}

	other, err := GeneratePassword(16)
	require.NoError(t, err)
	assert.NotEqual(t, pw, other)

	fallback, err := GeneratePassword(0)
	require.NoError(t, err)
	assert.Len(t, fallback, 16)
}
