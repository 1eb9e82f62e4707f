package cryptox

import (
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

	assert.Equal(t, key1, key2)
	assert.Len(t, key1, KeySize)
	assert.Equal(t, "34f7a1c64df63ab1ad5b5ee06e64db5713b35f81839823304db63e8e5e6a6a39", hex.EncodeToString(key1))
}

func TestDeriveKey_DifferentSalts(t *testing.T) {
	password := []byte("secret-password")
	assert.NotEqual(t, DeriveKey(password, []byte("salt-1")), DeriveKey(password, []byte("salt-2")))
}

func TestSealOpen(t *testing.T) {
	key := DeriveKey([]byte("pw"), []byte("0123456789abcdef"))
	plaintext := []byte(`{"token":"abc"}`)

	sealed1, err := Seal(plaintext, key)
	require.NoError(t, err)
	sealed2, err := Seal(plaintext, key)
	require.NoError(t, err)
	assert.NotEqual(t, sealed1, sealed2, "nonce must differ per call")
	assert.NotContains(t, string(sealed1), "abc")

	got, err := Open(sealed1, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestOpen_Failures(t *testing.T) {
	key := DeriveKey([]byte("pw"), []byte("salt"))
	other := DeriveKey([]byte("other"), []byte("salt"))

	sealed, err := Seal([]byte("data"), key)
	require.NoError(t, err)

	_, err = Open(sealed, other)
	assert.Error(t, err)

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xff
	_, err = Open(tampered, key)
	assert.Error(t, err)

	_, err = Open([]byte{1, 2}, key)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Seal([]byte("x"), []byte("short"))
	assert.Error(t, err)
}
