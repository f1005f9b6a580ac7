package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c, err := NewCodec("test-secret")
	require.NoError(t, err)

	expiresAt := time.Now().UTC().Add(5 * time.Minute)
	tok, err := c.Encode("42", expiresAt)
	require.NoError(t, err)

	claims, err := c.Decode(tok)
	require.NoError(t, err)
	require.Equal(t, "42", claims.ImpressionID)
	require.WithinDuration(t, expiresAt, claims.ExpiresAt, time.Second)
}

func TestDecodeRejectsExpired(t *testing.T) {
	c, err := NewCodec("test-secret")
	require.NoError(t, err)

	tok, err := c.Encode("1", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)

	_, err = c.Decode(tok)
	require.ErrorIs(t, err, ErrExpired)
}

func TestDecodeRejectsBadSignature(t *testing.T) {
	a, err := NewCodec("secret-a")
	require.NoError(t, err)
	b, err := NewCodec("secret-b")
	require.NoError(t, err)

	tok, err := a.Encode("1", time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)

	_, err = b.Decode(tok)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	c, err := NewCodec("test-secret")
	require.NoError(t, err)

	_, err = c.Decode("not-a-token")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestNewCodecRejectsEmptySecret(t *testing.T) {
	_, err := NewCodec("")
	require.Error(t, err)
}
