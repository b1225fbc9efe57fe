package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyGenAndHex(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.Len(t, pub.Hex(), 64)
	assert.Equal(t, pub.Hex(), priv.Public().Hex())
	assert.True(t, IsPubKeyHex(pub.Hex()))
	assert.False(t, IsPubKeyHex("deadbeef"))
	assert.False(t, IsPubKeyHex("lottery:pool"))

	back, err := PrivKeyFromHex(priv.Hex())
	require.NoError(t, err)
	assert.Equal(t, priv, back)
}

func TestSignVerify(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	require.NoError(t, err)
	data := []byte("hello scorechain")
	sig := Sign(priv, data)

	require.NoError(t, Verify(pub, data, sig))
	assert.ErrorIs(t, Verify(pub, []byte("tampered"), sig), ErrSignatureMismatch)
	assert.ErrorIs(t, Verify(pub, data, "abcd"), ErrSignatureMismatch)
	assert.ErrorIs(t, Verify(pub, data, "not-hex"), ErrSignatureMismatch)

	require.NoError(t, VerifyHex(pub.Hex(), data, sig))
	assert.ErrorIs(t, VerifyHex("lottery:pool", data, sig), ErrInvalidKey)
}

func TestKeyFromSeedIsDeterministic(t *testing.T) {
	priv, _, err := GenerateKeyPair()
	require.NoError(t, err)

	again, err := KeyFromSeed(priv.Seed())
	require.NoError(t, err)
	assert.Equal(t, priv, again)

	_, err = KeyFromSeed([]byte("short"))
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = PubKeyFromHex("abcd")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestHashFieldsIsLengthPrefixed(t *testing.T) {
	a := HashFields("tag", []byte("ab"), []byte("c"))
	b := HashFields("tag", []byte("a"), []byte("bc"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, HashFields("tag", []byte("ab"), []byte("c")))
	assert.NotEqual(t, a, HashFields("other", []byte("ab"), []byte("c")))
	assert.Len(t, a, 64)
}
