package verifier_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/scorechain/access"
	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/games"
	"github.com/tolelom/scorechain/identity"
	"github.com/tolelom/scorechain/internal/testutil"
	"github.com/tolelom/scorechain/ledger"
	"github.com/tolelom/scorechain/storage"
	"github.com/tolelom/scorechain/verifier"
)

var now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC).UnixNano()

type env struct {
	st     *storage.StateDB
	oc     access.OwnerCap
	server testutil.Key // submits transactions
	signer testutil.Key // signs results
	player testutil.Key
}

// newEnv registers "quiz" at 1.5x with minimum score 100 and mints the
// player's identity.
func newEnv(t *testing.T, edit func(*testutil.Genesis)) *env {
	t.Helper()
	owner := testutil.NewKey(t)
	g := testutil.DefaultGenesis(owner.Addr, testutil.NewKey(t).Addr)
	if edit != nil {
		edit(&g)
	}
	st := testutil.NewChainState(t, g)
	oc, err := access.RequireOwner(st, owner.Addr)
	require.NoError(t, err)

	e := &env{st: st, oc: oc, server: testutil.NewKey(t), signer: testutil.NewKey(t), player: testutil.NewKey(t)}
	_, err = games.Register(oc, st, core.GameModule{
		GameID:               "quiz",
		AuthorizedServer:     e.server.Addr,
		ServerPublicKey:      e.signer.Addr,
		DifficultyMultiplier: 15000,
		MinimumScore:         100,
		ResultMaxAge:         300,
	}, now)
	require.NoError(t, err)
	_, err = identity.Mint(st, e.player.Addr, now)
	require.NoError(t, err)
	return e
}

func (e *env) result(score uint64, win bool, nonce uint64) *core.SubmitResultPayload {
	sub := &core.SubmitResultPayload{
		Player:    e.player.Addr,
		GameID:    "quiz",
		Score:     score,
		Win:       win,
		Timestamp: now,
		Nonce:     nonce,
	}
	sub.SignResult(e.signer.Priv)
	return sub
}

// submit runs Submit the way the executor does: reverting on failure.
func (e *env) submit(t *testing.T, sub *core.SubmitResultPayload) (*verifier.Outcome, error) {
	t.Helper()
	snap, err := e.st.Snapshot()
	require.NoError(t, err)
	out, err := verifier.Submit(e.st, e.server.Addr, sub, now, "tx-1")
	if err != nil {
		require.NoError(t, e.st.RevertToSnapshot(snap))
	}
	return out, err
}

func TestQuizScenario(t *testing.T) {
	e := newEnv(t, nil)
	sub := e.result(200, true, 1)

	out, err := e.submit(t, sub)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), out.Reward)
	assert.Equal(t, uint64(1), out.Sequence)

	p, err := identity.Get(e.st, e.player.Addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), p.TotalPoints)
	assert.Equal(t, uint64(1), p.TotalWins)
	assert.Equal(t, uint64(300), p.TotalRewards)
	bal, _ := ledger.BalanceOf(e.st, e.player.Addr)
	assert.Equal(t, uint64(300), bal)

	_, err = e.submit(t, sub)
	assert.ErrorIs(t, err, core.ErrReplayDetected)
	p, _ = identity.Get(e.st, e.player.Addr)
	assert.Equal(t, uint64(200), p.TotalPoints, "replay must not touch the identity")
	bal, _ = ledger.BalanceOf(e.st, e.player.Addr)
	assert.Equal(t, uint64(300), bal)

	r, ok := verifier.Applied(e.st, sub.Hash())
	require.True(t, ok)
	assert.Equal(t, uint64(300), r.Reward)
	assert.Equal(t, "tx-1", r.TxID)
}

func TestSequenceIncrementsPerResult(t *testing.T) {
	e := newEnv(t, nil)
	for i := uint64(1); i <= 3; i++ {
		out, err := e.submit(t, e.result(100+i, false, i))
		require.NoError(t, err)
		assert.Equal(t, i, out.Sequence)
	}
	g, _ := games.Get(e.st, "quiz")
	assert.Equal(t, uint64(3), g.NonceCounter)
}

func TestRejectionGates(t *testing.T) {
	e := newEnv(t, nil)

	tampered := e.result(200, true, 7)
	tampered.Score = 900
	stranger := testutil.NewKey(t)
	late := e.result(200, true, 8)
	late.Timestamp = now - int64(10*time.Minute)
	late.SignResult(e.signer.Priv)
	ancient := e.result(200, true, 9)
	ancient.Timestamp = math.MinInt64 + 1
	ancient.SignResult(e.signer.Priv)
	future := e.result(200, true, 10)
	future.Timestamp = math.MaxInt64
	future.SignResult(e.signer.Priv)
	capped := e.newCappedGame(t)

	cases := []struct {
		name   string
		server string
		sub    *core.SubmitResultPayload
		want   error
	}{
		{"unknown game", e.server.Addr, &core.SubmitResultPayload{GameID: "chess"}, core.ErrUnknownGame},
		{"wrong server", stranger.Addr, e.result(200, true, 2), core.ErrUnauthorizedServer},
		{"tampered score", e.server.Addr, tampered, core.ErrBadSignature},
		{"below minimum", e.server.Addr, e.result(99, true, 3), core.ErrScoreTooLow},
		{"above ceiling", e.server.Addr, capped, core.ErrScoreOutOfRange},
		{"stale", e.server.Addr, late, core.ErrResultExpired},
		{"timestamp near min int64", e.server.Addr, ancient, core.ErrResultExpired},
		{"timestamp at max int64", e.server.Addr, future, core.ErrResultExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root := e.st.ComputeRoot()
			snap, err := e.st.Snapshot()
			require.NoError(t, err)
			_, err = verifier.Submit(e.st, tc.server, tc.sub, now, "tx")
			assert.ErrorIs(t, err, tc.want)
			require.NoError(t, e.st.RevertToSnapshot(snap))
			assert.Equal(t, root, e.st.ComputeRoot())
		})
	}
}

func (e *env) newCappedGame(t *testing.T) *core.SubmitResultPayload {
	t.Helper()
	_, err := games.Register(e.oc, e.st, core.GameModule{
		GameID:           "sprint",
		AuthorizedServer: e.server.Addr,
		ServerPublicKey:  e.signer.Addr,
		MaxScore:         500,
	}, now)
	require.NoError(t, err)
	sub := &core.SubmitResultPayload{Player: e.player.Addr, GameID: "sprint", Score: 501, Timestamp: now}
	sub.SignResult(e.signer.Priv)
	return sub
}

func TestFailedGateDoesNotConsumeHash(t *testing.T) {
	e := newEnv(t, nil)
	low := e.result(50, false, 1)
	_, err := e.submit(t, low)
	assert.ErrorIs(t, err, core.ErrScoreTooLow)

	_, ok := verifier.Applied(e.st, low.Hash())
	assert.False(t, ok)
}

func TestRevokedGameRejected(t *testing.T) {
	e := newEnv(t, nil)
	_, err := games.Revoke(e.oc, e.st, "quiz", now)
	require.NoError(t, err)
	_, err = e.submit(t, e.result(200, true, 1))
	assert.ErrorIs(t, err, core.ErrUnknownGame)
}

func TestPlayerWithoutIdentity(t *testing.T) {
	e := newEnv(t, nil)
	e.player = testutil.NewKey(t)
	_, err := e.submit(t, e.result(200, true, 1))
	assert.ErrorIs(t, err, core.ErrIdentityNotFound)
}

func TestMintingDisabledRejectsSubmission(t *testing.T) {
	e := newEnv(t, func(g *testutil.Genesis) { g.Token.MintingEnabled = false })
	_, err := e.submit(t, e.result(200, true, 1))
	assert.ErrorIs(t, err, core.ErrMintingDisabled)

	p, _ := identity.Get(e.st, e.player.Addr)
	assert.Zero(t, p.TotalPoints)
}

func TestRewardClampedToRemainingSupply(t *testing.T) {
	e := newEnv(t, func(g *testutil.Genesis) { g.MaxSupply = 120 })
	out, err := e.submit(t, e.result(200, false, 1))
	require.NoError(t, err)
	assert.Equal(t, uint64(120), out.Reward)

	out, err = e.submit(t, e.result(200, false, 2))
	require.NoError(t, err)
	assert.Zero(t, out.Reward)
	p, _ := identity.Get(e.st, e.player.Addr)
	assert.Equal(t, uint64(400), p.TotalPoints)
	assert.Equal(t, uint64(120), p.TotalRewards)
}

func TestRewardDeterministic(t *testing.T) {
	g := &core.GameModule{DifficultyMultiplier: 15000}
	assert.Equal(t, uint64(300), verifier.Reward(g, 200))
	assert.Equal(t, verifier.Reward(g, 12345), verifier.Reward(g, 12345))
	g.DifficultyMultiplier = games.MaxMultiplier
	assert.Equal(t, uint64(1<<63)/10000*100, verifier.Reward(g, uint64(1<<63)/10000))
}
