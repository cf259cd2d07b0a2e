package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestEncryptRoundTrip(t *testing.T) {
	sealed, err := Encrypt([]byte("page-access-token"), testKey)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "page-access-token")

	plain, err := Decrypt(sealed, testKey)
	require.NoError(t, err)
	assert.Equal(t, "page-access-token", plain)

	_, err = Decrypt(sealed, []byte("fedcba9876543210fedcba9876543210"))
	assert.Error(t, err)

	_, err = Decrypt("c2hvcnQ=", testKey)
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestEncryptEmpty(t *testing.T) {
	sealed, err := Encrypt(nil, testKey)
	require.NoError(t, err)
	assert.Empty(t, sealed)

	plain, err := Decrypt("", testKey)
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", 42, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken("secret", token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)

	_, err = ValidateToken("other-secret", token)
	assert.Error(t, err)

	expired, err := GenerateToken("secret", 42, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken("secret", expired)
	assert.Error(t, err)
}
