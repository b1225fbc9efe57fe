package storage_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/internal/testutil"
	"github.com/tolelom/scorechain/storage"
)

// backends returns every DB implementation that can run without external services.
func backends(t *testing.T) map[string]storage.DB {
	t.Helper()
	dir := t.TempDir()

	ldb, err := storage.NewLevelDB(filepath.Join(dir, "level"))
	require.NoError(t, err)
	t.Cleanup(func() { ldb.Close() })

	sdb, err := storage.NewSQLiteDB(filepath.Join(dir, "kv.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { sdb.Close() })

	return map[string]storage.DB{
		"mem":     testutil.NewMemDB(),
		"leveldb": ldb,
		"sqlite":  sdb,
	}
}

func TestDBContract(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := db.Get([]byte("missing"))
			assert.ErrorIs(t, err, core.ErrNotFound)

			require.NoError(t, db.Set([]byte("a:2"), []byte("two")))
			require.NoError(t, db.Set([]byte("a:1"), []byte("one")))
			require.NoError(t, db.Set([]byte("b:1"), []byte("other")))
			require.NoError(t, db.Set([]byte("a:1"), []byte("uno")))

			v, err := db.Get([]byte("a:1"))
			require.NoError(t, err)
			assert.Equal(t, "uno", string(v))

			it := db.NewIterator([]byte("a:"))
			var keys []string
			for it.Next() {
				keys = append(keys, string(it.Key()))
			}
			require.NoError(t, it.Error())
			it.Release()
			assert.Equal(t, []string{"a:1", "a:2"}, keys)

			batch := db.NewBatch()
			batch.Set([]byte("c:1"), []byte("x"))
			batch.Delete([]byte("a:2"))
			require.NoError(t, batch.Write())

			_, err = db.Get([]byte("a:2"))
			assert.ErrorIs(t, err, core.ErrNotFound)
			v, err = db.Get([]byte("c:1"))
			require.NoError(t, err)
			assert.Equal(t, "x", string(v))

			require.NoError(t, db.Delete([]byte("c:1")))
			_, err = db.Get([]byte("c:1"))
			assert.ErrorIs(t, err, core.ErrNotFound)
		})
	}
}

func TestStateDBSnapshotRevert(t *testing.T) {
	st := testutil.NewStateDB()
	require.NoError(t, st.SetAccount(&core.Account{Address: "alice", Balance: 100}))

	snap, err := st.Snapshot()
	require.NoError(t, err)
	require.NoError(t, st.SetAccount(&core.Account{Address: "alice", Balance: 1}))
	require.NoError(t, st.SetGame(&core.GameModule{GameID: "quiz", Active: true}))
	require.NoError(t, st.RevertToSnapshot(snap))

	acc, err := st.GetAccount("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), acc.Balance)
	_, err = st.GetGame("quiz")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStateDBDefaults(t *testing.T) {
	st := testutil.NewStateDB()

	acc, err := st.GetAccount("nobody")
	require.NoError(t, err)
	assert.Equal(t, "nobody", acc.Address)
	assert.Zero(t, acc.Balance)

	stake, err := st.GetStake("nobody")
	require.NoError(t, err)
	assert.Zero(t, stake.Principal)

	sup, err := st.GetSupply()
	require.NoError(t, err)
	assert.Zero(t, sup.Total)

	_, err = st.GetPlayer("nobody")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = st.GetResult("h")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = st.GetParticipant("nobody")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStateDBCommitAndRoot(t *testing.T) {
	db := testutil.NewMemDB()
	st := storage.NewStateDB(db)
	require.NoError(t, st.SetSupply(&core.Supply{Total: 10, Max: 100}))
	require.NoError(t, st.SetParticipant(&core.LotteryParticipant{Account: "bob", Volume: 5}))

	root := st.ComputeRoot()
	require.NoError(t, st.Commit())

	// A fresh view over the committed DB sees the same world state.
	reopened := storage.NewStateDB(db)
	assert.Equal(t, root, reopened.ComputeRoot())

	require.NoError(t, reopened.DeleteParticipant("bob"))
	assert.NotEqual(t, root, reopened.ComputeRoot())
	require.NoError(t, reopened.Commit())
	_, err := reopened.GetParticipant("bob")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestBlockStoreCommitBlock(t *testing.T) {
	bs := storage.NewBlockStore(testutil.NewMemDB())
	tip, err := bs.GetTip()
	require.NoError(t, err)
	assert.Empty(t, tip)

	b := core.NewBlock("test-chain", 3, "prev", "proposer", time.Now())
	b.Hash = b.ComputeHash()
	require.NoError(t, bs.CommitBlock(b))

	tip, err = bs.GetTip()
	require.NoError(t, err)
	assert.Equal(t, b.Hash, tip)
	got, err := bs.GetBlockByHeight(3)
	require.NoError(t, err)
	assert.Equal(t, b.Hash, got.Hash)
}
