package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestCipher_RoundTrip(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	sealed, err := c.Encrypt("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "JBSWY3DPEHPK3PXP")

	again, err := c.Encrypt("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per call")

	plain, err := c.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", plain)
}

func TestCipher_RejectsTampering(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)
	other, err := NewCipher("")
	require.NoError(t, err)

	sealed, err := c.Encrypt("secret")
	require.NoError(t, err)

	_, err = other.Decrypt(sealed)
	assert.Error(t, err)
	_, err = c.Decrypt("not base64!")
	assert.Error(t, err)
	_, err = c.Decrypt("AAAA")
	assert.Error(t, err)
}

func TestNewCipher_BadKeys(t *testing.T) {
	_, err := NewCipher("zz")
	assert.Error(t, err)
	_, err = NewCipher(strings.Repeat("ab", 16))
	assert.Error(t, err)
}
