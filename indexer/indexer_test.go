package indexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/events"
	"github.com/tolelom/scorechain/indexer"
	"github.com/tolelom/scorechain/internal/testutil"
)

func TestResultsByPlayer(t *testing.T) {
	em := events.NewEmitter()
	idx := indexer.New(testutil.NewMemDB(), em)

	for i, score := range []uint64{200, 150} {
		em.Emit(events.Event{
			Type:        events.EventResultApplied,
			TxID:        []string{"tx-a", "tx-b"}[i],
			BlockHeight: int64(i + 1),
			Data: map[string]any{
				"hash":     []string{"h1", "h2"}[i],
				"player":   "alice",
				"game_id":  "quiz",
				"score":    score,
				"win":      i == 0,
				"reward":   score * 3 / 2,
				"sequence": uint64(i + 1),
			},
		})
	}

	got, err := idx.GetResultsByPlayer("alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "h1", got[0].Hash)
	assert.Equal(t, uint64(300), got[0].Reward)
	assert.True(t, got[0].Win)
	assert.Equal(t, int64(2), got[1].BlockHeight)

	none, err := idx.GetResultsByPlayer("bob")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDrawHistoryOrdered(t *testing.T) {
	em := events.NewEmitter()
	idx := indexer.New(testutil.NewMemDB(), em)
	for _, round := range []uint64{10, 2, 1} {
		em.Emit(events.Event{Type: events.EventLotteryDraw, Data: map[string]any{
			"round":  round,
			"winner": "w",
			"amount": float64(5), // as decoded from JSON
		}})
	}
	hist, err := idx.GetDrawHistory()
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, []uint64{1, 2, 10}, []uint64{hist[0].Round, hist[1].Round, hist[2].Round})
	assert.Equal(t, uint64(5), hist[0].Amount)
}

func TestReceipts(t *testing.T) {
	em := events.NewEmitter()
	idx := indexer.New(testutil.NewMemDB(), em)
	em.Emit(events.Event{Type: events.EventTxExecuted, TxID: "abc", BlockHeight: 4, Data: map[string]any{
		"type": "swap",
		"from": "alice",
	}})

	r, err := idx.GetReceipt("abc")
	require.NoError(t, err)
	assert.Equal(t, int64(4), r.BlockHeight)
	assert.Equal(t, "swap", r.Type)

	_, err = idx.GetReceipt("missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
