package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/identity"
	"github.com/tolelom/scorechain/internal/testutil"
)

func TestMintOncePerPlayer(t *testing.T) {
	st := testutil.NewStateDB()
	player := testutil.NewKey(t)

	p, err := identity.Mint(st, player.Addr, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(99), p.MintedAt)
	assert.True(t, identity.Has(st, player.Addr))

	_, err = identity.Mint(st, player.Addr, 100)
	assert.ErrorIs(t, err, core.ErrIdentityExists)

	_, err = identity.Mint(st, "not-a-key", 100)
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
}

func TestRecordResultAggregates(t *testing.T) {
	st := testutil.NewStateDB()
	player := testutil.NewKey(t)

	_, err := identity.RecordResult(st, player.Addr, "quiz", 10, false)
	assert.ErrorIs(t, err, core.ErrIdentityNotFound)

	_, err = identity.Mint(st, player.Addr, 0)
	require.NoError(t, err)

	_, err = identity.RecordResult(st, player.Addr, "quiz", 200, true)
	require.NoError(t, err)
	_, err = identity.RecordResult(st, player.Addr, "quiz", 150, false)
	require.NoError(t, err)
	p, err := identity.RecordResult(st, player.Addr, "chess", 30, true)
	require.NoError(t, err)

	assert.Equal(t, uint64(3), p.TotalGamesPlayed)
	assert.Equal(t, uint64(2), p.TotalWins)
	assert.Equal(t, uint64(380), p.TotalPoints)

	q := p.PerGame["quiz"]
	require.NotNil(t, q)
	assert.Equal(t, core.GameStat{Score: 350, BestScore: 200, Wins: 1, Plays: 2}, *q)

	require.NoError(t, identity.AddRewards(st, player.Addr, 300))
	stored, err := identity.Get(st, player.Addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), stored.TotalRewards)
	assert.Equal(t, uint64(1), stored.PerGame["chess"].Plays)
}
