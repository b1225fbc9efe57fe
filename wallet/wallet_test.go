package wallet_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/wallet"
)

func TestKeystoreRoundTrip(t *testing.T) {
	w, err := wallet.Generate("test")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "key.json")

	require.NoError(t, wallet.SaveKey(path, "hunter2", w.PrivKey()))
	priv, err := wallet.LoadKey(path, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, w.PubKey(), priv.Public().Hex())

	_, err = wallet.LoadKey(path, "wrong")
	assert.ErrorIs(t, err, wallet.ErrWrongPassword)
}

func TestTransactionsAreSignedForChain(t *testing.T) {
	w, err := wallet.Generate("scorechain-test")
	require.NoError(t, err)

	tx, err := w.Transfer(w.PubKey(), 5, 3)
	require.NoError(t, err)
	assert.Equal(t, "scorechain-test", tx.ChainID)
	assert.Equal(t, uint64(3), tx.Nonce)
	assert.Equal(t, tx.Hash(), tx.ID)
	require.NoError(t, tx.Verify())

	tx, err = w.MintIdentity(0)
	require.NoError(t, err)
	assert.Equal(t, core.TxMintIdentity, tx.Type)
	assert.JSONEq(t, `{}`, string(tx.Payload))
}

func TestSignResult(t *testing.T) {
	server, err := wallet.Generate("test")
	require.NoError(t, err)
	player, err := wallet.Generate("test")
	require.NoError(t, err)

	p := server.SignResult(player.PubKey(), "quiz", 200, true, 1)
	require.NoError(t, p.VerifyResult(server.PrivKey().Public()))

	p.Score = 201
	assert.Error(t, p.VerifyResult(server.PrivKey().Public()))
}
