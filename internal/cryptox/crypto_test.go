package cryptox

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt")

	key1 := DeriveKey(password, salt)
	key2 := DeriveKey(password, salt)

	require.True(t, bytes.Equal(key1, key2))
	assert.Len(t, key1, KeySize)
	assert.Equal(t, "34f7a1c64df63ab1ad5b5ee06e64db5713b35f81839823304db63e8e5e6a6a39", hex.EncodeToString(key1))
}

func TestDeriveKey_DifferentSalts(t *testing.T) {
	password := []byte("secret-password")
	assert.NotEqual(t, DeriveKey(password, []byte("salt-1")), DeriveKey(password, []byte("salt-2")))
}

func newBox(t *testing.T) *Box {
	t.Helper()
	b, err := NewBox(bytes.Repeat([]byte{7}, KeySize))
	require.NoError(t, err)
	return b
}

func TestBox_RoundTrip(t *testing.T) {
	box := newBox(t)
	secret := []byte("JBSWY3DPEHPK3PXP")

	ct, nonce, err := box.Seal(secret, []byte("user:1"))
	require.NoError(t, err)
	assert.NotContains(t, string(ct), string(secret))

	got, err := box.Open(ct, nonce, []byte("user:1"))
	require.NoError(t, err)
	assert.Equal(t, secret, got)
}

func TestBox_FreshNonce(t *testing.T) {
	box := newBox(t)
	ct1, n1, err := box.Seal([]byte("same"), nil)
	require.NoError(t, err)
	ct2, n2, err := box.Seal([]byte("same"), nil)
	require.NoError(t, err)

	assert.NotEqual(t, n1, n2)
	assert.NotEqual(t, ct1, ct2)
}

func TestBox_OpenFailures(t *testing.T) {
	box := newBox(t)
	ct, nonce, err := box.Seal([]byte("JBSWY3DPEHPK3PXP"), []byte("user:1"))
	require.NoError(t, err)

	_, err = box.Open(ct, nonce, []byte("user:2"))
	assert.ErrorIs(t, err, ErrDecrypt, "wrong additional data")

	tampered := append([]byte(nil), ct...)
	tampered[0] ^= 1
	_, err = box.Open(tampered, nonce, []byte("user:1"))
	assert.ErrorIs(t, err, ErrDecrypt, "tampered ciphertext")

	_, err = box.Open(ct, nonce[:4], []byte("user:1"))
	assert.ErrorIs(t, err, ErrDecrypt, "short nonce")

	other, err := NewBox(bytes.Repeat([]byte{8}, KeySize))
	require.NoError(t, err)
	_, err = other.Open(ct, nonce, []byte("user:1"))
	assert.ErrorIs(t, err, ErrDecrypt, "other key")
}

func TestNewBox_BadKey(t *testing.T) {
	_, err := NewBox([]byte("short"))
	assert.Error(t, err)
}
