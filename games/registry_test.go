package games_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/scorechain/access"
	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/games"
	"github.com/tolelom/scorechain/internal/testutil"
	"github.com/tolelom/scorechain/storage"
)

func setup(t *testing.T) (*storage.StateDB, access.OwnerCap, testutil.Key) {
	t.Helper()
	owner := testutil.NewKey(t)
	st := testutil.NewChainState(t, testutil.DefaultGenesis(owner.Addr, testutil.NewKey(t).Addr))
	oc, err := access.RequireOwner(st, owner.Addr)
	require.NoError(t, err)
	return st, oc, testutil.NewKey(t)
}

func quiz(server testutil.Key) core.GameModule {
	return core.GameModule{
		GameID:           "quiz",
		AuthorizedServer: server.Addr,
		ServerPublicKey:  server.Addr,
		MinimumScore:     100,
	}
}

func TestRegister(t *testing.T) {
	st, oc, server := setup(t)
	g, err := games.Register(oc, st, quiz(server), 42)
	require.NoError(t, err)
	assert.True(t, g.Active)
	assert.Equal(t, uint64(games.DefaultMultiplier), g.DifficultyMultiplier)
	assert.Equal(t, int64(42), g.RegisteredAt)

	_, err = games.Register(oc, st, quiz(server), 43)
	assert.ErrorIs(t, err, core.ErrDuplicateGame)

	assert.True(t, games.IsAuthorized(st, "quiz", server.Addr))
	assert.False(t, games.IsAuthorized(st, "quiz", testutil.NewKey(t).Addr))
	assert.False(t, games.IsAuthorized(st, "chess", server.Addr))
}

func TestRegisterValidation(t *testing.T) {
	st, oc, server := setup(t)

	m := quiz(server)
	m.GameID = "  "
	_, err := games.Register(oc, st, m, 0)
	assert.ErrorIs(t, err, core.ErrEmptyGameID)

	m = quiz(server)
	m.AuthorizedServer = "nobody"
	_, err = games.Register(oc, st, m, 0)
	assert.ErrorIs(t, err, core.ErrInvalidAddress)

	m = quiz(server)
	m.ServerPublicKey = "abcd"
	_, err = games.Register(oc, st, m, 0)
	assert.ErrorIs(t, err, core.ErrInvalidPublicKey)

	m = quiz(server)
	m.DifficultyMultiplier = games.MaxMultiplier + 1
	_, err = games.Register(oc, st, m, 0)
	assert.ErrorIs(t, err, core.ErrInvalidMultiplier)

	_, err = games.Register(access.OwnerCap{}, st, quiz(server), 0)
	assert.ErrorIs(t, err, core.ErrNotOwner)
}

func TestRevokeKeepsRecordAndNonce(t *testing.T) {
	st, oc, server := setup(t)
	_, err := games.Register(oc, st, quiz(server), 1)
	require.NoError(t, err)

	n, err := games.NextNonce(st, "quiz")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	_, err = games.Revoke(oc, st, "chess", 2)
	assert.ErrorIs(t, err, core.ErrNotFound)
	revoked, err := games.Revoke(oc, st, "quiz", 2)
	require.NoError(t, err)
	assert.True(t, revoked)
	revoked, err = games.Revoke(oc, st, "quiz", 5)
	require.NoError(t, err)
	assert.False(t, revoked, "second revoke is a no-op")

	_, err = games.GetActive(st, "quiz")
	assert.ErrorIs(t, err, core.ErrUnknownGame)
	g, err := games.Get(st, "quiz")
	require.NoError(t, err)
	assert.False(t, g.Active)
	assert.Equal(t, int64(2), g.RevokedAt)

	g, err = games.Register(oc, st, quiz(server), 3)
	require.NoError(t, err)
	assert.True(t, g.Active)
	assert.Equal(t, uint64(1), g.NonceCounter, "counter survives re-registration")
}

func TestUpdates(t *testing.T) {
	st, oc, server := setup(t)
	_, err := games.Register(oc, st, quiz(server), 1)
	require.NoError(t, err)

	g, err := games.SetDifficultyMultiplier(oc, st, "quiz", 15000)
	require.NoError(t, err)
	assert.Equal(t, uint64(15000), g.DifficultyMultiplier)
	_, err = games.SetDifficultyMultiplier(oc, st, "quiz", 0)
	assert.ErrorIs(t, err, core.ErrInvalidMultiplier)

	g, err = games.SetMinimumScore(oc, st, "quiz", 10, 500)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), g.MinimumScore)
	assert.Equal(t, uint64(500), g.MaxScore)
	_, err = games.SetMinimumScore(oc, st, "quiz", 600, 500)
	assert.ErrorIs(t, err, core.ErrInvalidParams)

	next := testutil.NewKey(t)
	g, err = games.UpdateServerKey(oc, st, "quiz", next.Addr)
	require.NoError(t, err)
	assert.Equal(t, next.Addr, g.ServerPublicKey)
	_, err = games.UpdateServerKey(oc, st, "quiz", "zz")
	assert.ErrorIs(t, err, core.ErrInvalidPublicKey)

	// Failed updates leave the stored record untouched.
	stored, _ := games.Get(st, "quiz")
	assert.Equal(t, next.Addr, stored.ServerPublicKey)
	assert.Equal(t, uint64(500), stored.MaxScore)
}
