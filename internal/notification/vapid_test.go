package notification

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVAPIDShape(t *testing.T, keys VAPIDKeys) {
	t.Helper()
	assert.NotContains(t, keys.PublicKey, "=")
	assert.NotContains(t, keys.PrivateKey, "=")
	assert.False(t, strings.ContainsAny(keys.PublicKey+keys.PrivateKey, "+/"), "keys must be URL-safe")

	pub, err := base64.RawURLEncoding.DecodeString(keys.PublicKey)
	require.NoError(t, err)
	require.Len(t, pub, 65)
	assert.Equal(t, byte(0x04), pub[0])

	priv, err := base64.RawURLEncoding.DecodeString(keys.PrivateKey)
	require.NoError(t, err)
	assert.Len(t, priv, 32)
}

func TestGenerateVAPIDKeys(t *testing.T) {
	t.Parallel()

	keys, err := GenerateVAPIDKeys()
	require.NoError(t, err)
	assertVAPIDShape(t, keys)
	assert.True(t, ValidVAPIDKey(keys.PublicKey))
	assert.True(t, ValidVAPIDKey(keys.PrivateKey))

	again, err := GenerateVAPIDKeys()
	require.NoError(t, err)
	assert.NotEqual(t, keys, again)
}

func TestFallbackVAPIDKeys(t *testing.T) {
	t.Parallel()

	for range 20 {
		keys, err := fallbackVAPIDKeys()
		require.NoError(t, err)
		assertVAPIDShape(t, keys)
	}
}

func TestNormalizeVAPIDKeys(t *testing.T) {
	t.Parallel()

	pub := make([]byte, 65)
	pub[0] = 0x04
	pub[1], pub[2] = 0x0f, 0xa0 // "BA+g" in the standard alphabet
	priv := make([]byte, 32)
	priv[0] = 0xff

	t.Run("padded standard encoding is re-encoded", func(t *testing.T) {
		t.Parallel()
		keys, ok := normalizeVAPIDKeys(base64.StdEncoding.EncodeToString(pub), base64.StdEncoding.EncodeToString(priv))
		require.True(t, ok)
		assertVAPIDShape(t, keys)
	})

	t.Run("wrong public key prefix", func(t *testing.T) {
		t.Parallel()
		bad := append([]byte{0x02}, pub[1:]...)
		_, ok := normalizeVAPIDKeys(base64.RawURLEncoding.EncodeToString(bad), base64.RawURLEncoding.EncodeToString(priv))
		assert.False(t, ok)
	})

	t.Run("compressed point length", func(t *testing.T) {
		t.Parallel()
		_, ok := normalizeVAPIDKeys(base64.RawURLEncoding.EncodeToString(pub[:33]), base64.RawURLEncoding.EncodeToString(priv))
		assert.False(t, ok)
	})

	t.Run("short private key", func(t *testing.T) {
		t.Parallel()
		_, ok := normalizeVAPIDKeys(base64.RawURLEncoding.EncodeToString(pub), base64.RawURLEncoding.EncodeToString(priv[:16]))
		assert.False(t, ok)
	})

	t.Run("not base64", func(t *testing.T) {
		t.Parallel()
		_, ok := normalizeVAPIDKeys("!!!", "???")
		assert.False(t, ok)
	})
}

func TestValidVAPIDKey(t *testing.T) {
	t.Parallel()

	assert.False(t, ValidVAPIDKey(""))
	assert.False(t, ValidVAPIDKey("short"))
	assert.False(t, ValidVAPIDKey("padded-value-here=="))
	assert.True(t, ValidVAPIDKey("abcdefghijklmnop_-"))
}
