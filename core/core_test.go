package core_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/crypto"
	"github.com/tolelom/scorechain/internal/testutil"
)

const testChain = "test-chain"

func signedTx(t *testing.T, priv crypto.PrivateKey, typ core.TxType, nonce uint64, payload any) *core.Transaction {
	t.Helper()
	tx, err := core.NewTransaction(testChain, typ, priv.Public().Hex(), nonce, payload)
	require.NoError(t, err)
	tx.Sign(priv)
	return tx
}

// TestTransactionSignVerify ensures transaction signing and verification work.
func TestTransactionSignVerify(t *testing.T) {
	priv, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	tx := signedTx(t, priv, core.TxTransfer, 0, core.TransferPayload{To: "deadbeef", Amount: 100})
	assert.NotEmpty(t, tx.ID)
	require.NoError(t, tx.Verify())

	// Moving the tx to another network invalidates the signature.
	tx.ChainID = "other-chain"
	assert.Error(t, tx.Verify())
}

// TestBlockSealVerify ensures that a sealed block verifies and that any
// change to its body or header is detected.
func TestBlockSealVerify(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	at := time.Unix(1_700_000_000, 0)
	block := core.NewBlock(testChain, 1, "0000", pub.Hex(), at)
	block.Append(signedTx(t, priv, core.TxMintIdentity, 0, struct{}{}))
	block.Seal("root", priv)

	assert.NotEmpty(t, block.Hash)
	assert.Equal(t, block.Hash, block.ComputeHash())
	assert.Equal(t, at.UTC(), block.Time())
	require.NoError(t, block.Verify(pub))

	dropped := *block
	dropped.Transactions = nil
	assert.ErrorIs(t, dropped.Verify(pub), core.ErrInvalidBlock, "tx root covers the body")

	rewritten := *block
	rewritten.Header.StateRoot = "other"
	assert.ErrorIs(t, rewritten.Verify(pub), core.ErrInvalidBlock)

	_, other, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	assert.ErrorIs(t, block.Verify(other), core.ErrInvalidBlock)
}

func TestTxRootIsOrderSensitive(t *testing.T) {
	a := &core.Transaction{ID: "ab"}
	b := &core.Transaction{ID: "c"}
	c := &core.Transaction{ID: "a"}
	d := &core.Transaction{ID: "bc"}
	assert.NotEqual(t, core.ComputeTxRoot([]*core.Transaction{a, b}), core.ComputeTxRoot([]*core.Transaction{b, a}))
	assert.NotEqual(t, core.ComputeTxRoot([]*core.Transaction{a, b}), core.ComputeTxRoot([]*core.Transaction{c, d}),
		"concatenation of ids must not collide")
}

func TestBlockchainLinkage(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	bc := core.NewBlockchain(testutil.NewMemBlockStore())
	assert.Empty(t, bc.ChainID())

	at := time.Unix(1_700_000_000, 0)
	genesis := core.NewBlock(testChain, 0, "0000", pub.Hex(), at)
	genesis.Seal("g", priv)
	require.NoError(t, bc.AddBlock(genesis))
	assert.Equal(t, testChain, bc.ChainID())

	gap := core.NewBlock(testChain, 2, genesis.Hash, pub.Hex(), at)
	gap.Seal("r", priv)
	assert.ErrorIs(t, bc.AddBlock(gap), core.ErrInvalidBlock)

	foreign := core.NewBlock("other", 1, genesis.Hash, pub.Hex(), at)
	foreign.Seal("r", priv)
	assert.ErrorIs(t, bc.AddBlock(foreign), core.ErrInvalidBlock)

	unsealed := core.NewBlock(testChain, 1, genesis.Hash, pub.Hex(), at)
	assert.ErrorIs(t, bc.AddBlock(unsealed), core.ErrInvalidBlock)

	next := core.NewBlock(testChain, 1, genesis.Hash, pub.Hex(), at.Add(time.Second))
	next.Seal("r", priv)
	require.NoError(t, bc.AddBlock(next))
	assert.Equal(t, int64(1), bc.Height())

	got, err := bc.GetBlockByHeight(1)
	require.NoError(t, err)
	assert.Equal(t, next.Hash, got.Hash)
}

// TestMempool verifies add/remove/pending operations.
func TestMempool(t *testing.T) {
	mp := core.NewMempool(testChain)
	priv, _, _ := crypto.GenerateKeyPair()

	tx := signedTx(t, priv, core.TxTransfer, 0, core.TransferPayload{To: "aa", Amount: 1})
	require.NoError(t, mp.Add(tx))
	assert.Equal(t, 1, mp.Size())
	assert.ErrorIs(t, mp.Add(tx), core.ErrTxRejected, "duplicate tx must be rejected")
	assert.Len(t, mp.Pending(10), 1)

	mp.Remove([]string{tx.ID})
	assert.Equal(t, 0, mp.Size())
}

func TestMempoolAdmission(t *testing.T) {
	priv, _, _ := crypto.GenerateKeyPair()

	t.Run("wrong chain", func(t *testing.T) {
		mp := core.NewMempool("mainnet")
		tx := signedTx(t, priv, core.TxBurn, 0, core.AmountPayload{Amount: 1})
		assert.ErrorIs(t, mp.Check(tx), core.ErrTxRejected)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		mp := core.NewMempool(testChain)
		mp.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
		tx := signedTx(t, priv, core.TxBurn, 0, core.AmountPayload{Amount: 1})
		assert.ErrorIs(t, mp.Check(tx), core.ErrTxRejected)
	})

	t.Run("forged id", func(t *testing.T) {
		mp := core.NewMempool(testChain)
		tx := signedTx(t, priv, core.TxBurn, 0, core.AmountPayload{Amount: 1})
		tx.ID = "forged"
		assert.ErrorIs(t, mp.Check(tx), core.ErrTxRejected)
	})
}

func TestResultHashCoversEveryField(t *testing.T) {
	base := core.ResultHash("p", "quiz", 200, true, 1000, 7)
	assert.Equal(t, base, core.ResultHash("p", "quiz", 200, true, 1000, 7))

	variants := []string{
		core.ResultHash("q", "quiz", 200, true, 1000, 7),
		core.ResultHash("p", "chess", 200, true, 1000, 7),
		core.ResultHash("p", "quiz", 201, true, 1000, 7),
		core.ResultHash("p", "quiz", 200, false, 1000, 7),
		core.ResultHash("p", "quiz", 200, true, 1001, 7),
		core.ResultHash("p", "quiz", 200, true, 1000, 8),
	}
	for i, v := range variants {
		assert.NotEqual(t, base, v, "variant %d", i)
	}
}

func TestSubmitResultSignature(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	p := &core.SubmitResultPayload{Player: "p", GameID: "quiz", Score: 200, Timestamp: 1, Nonce: 1}
	p.SignResult(priv)
	require.NoError(t, p.VerifyResult(pub))

	p.Score = 9999
	assert.Error(t, p.VerifyResult(pub))
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		kind core.Kind
	}{
		{core.ErrNotOwner, core.KindAuthorization},
		{core.ErrReplayDetected, core.KindIntegrity},
		{core.ErrDrawNotDue, core.KindEconomic},
		{core.ErrScoreTooLow, core.KindValidation},
		{assert.AnError, core.KindInternal},
	}
	for _, c := range cases {
		kind, _ := core.ErrorKind(c.err)
		assert.Equal(t, c.kind, kind, c.err.Error())
	}

	kind, sentinel := core.ErrorKind(fmt.Errorf("mint: %w", core.ErrSupplyCapExceeded))
	assert.Equal(t, core.KindEconomic, kind)
	assert.Equal(t, core.ErrSupplyCapExceeded, sentinel)
}

func TestSupplyRemaining(t *testing.T) {
	s := &core.Supply{Total: 90, Max: 100}
	assert.Equal(t, uint64(10), s.Remaining())
	s.Total = 100
	assert.Zero(t, s.Remaining())
}
