package ledger_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/scorechain/access"
	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/internal/testutil"
	"github.com/tolelom/scorechain/ledger"
	"github.com/tolelom/scorechain/storage"
)

type fixture struct {
	st         *storage.StateDB
	gov        testutil.Key
	alice, bob testutil.Key
}

func newFixture(t *testing.T, edit func(*testutil.Genesis)) *fixture {
	t.Helper()
	f := &fixture{
		gov:   testutil.NewKey(t),
		alice: testutil.NewKey(t),
		bob:   testutil.NewKey(t),
	}
	g := testutil.DefaultGenesis(testutil.NewKey(t).Addr, f.gov.Addr)
	g.MaxSupply = 1_000_000
	g.Alloc = map[string]uint64{f.alice.Addr: 10_000}
	if edit != nil {
		edit(&g)
	}
	f.st = testutil.NewChainState(t, g)
	return f
}

// assertSupply checks Total == Σ balances + staked and Total <= Max.
func (f *fixture) assertSupply(t *testing.T) {
	t.Helper()
	sup, err := f.st.GetSupply()
	require.NoError(t, err)
	var sum uint64
	for _, addr := range []string{f.alice.Addr, f.bob.Addr, core.LotteryPoolAddress} {
		bal, err := ledger.BalanceOf(f.st, addr)
		require.NoError(t, err)
		sum += bal
	}
	assert.Equal(t, sup.Total, sum+sup.Staked, "supply invariant")
	assert.LessOrEqual(t, sup.Total, sup.Max, "supply cap")
}

func TestMulDivExact(t *testing.T) {
	assert.Equal(t, uint64(300), ledger.MulDiv(200, 15000, 10000))
	assert.Equal(t, uint64(0), ledger.MulDiv(1, 9999, 10000))
	assert.Equal(t, uint64(math.MaxUint64), ledger.MulDiv(math.MaxUint64, 10000, 10000))
	assert.Equal(t, uint64(math.MaxUint64), ledger.MulDiv(math.MaxUint64, 2, 1), "saturates")
	assert.Zero(t, ledger.MulDiv(5, 5, 0))
}

func TestMint(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, ledger.Mint(f.st, f.bob.Addr, 500))
	bal, _ := ledger.BalanceOf(f.st, f.bob.Addr)
	assert.Equal(t, uint64(500), bal)
	f.assertSupply(t)

	err := ledger.Mint(f.st, f.bob.Addr, 1_000_000)
	assert.ErrorIs(t, err, core.ErrSupplyCapExceeded)
	f.assertSupply(t)

	minted, err := ledger.MintCapped(f.st, f.bob.Addr, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000-10_500), minted)
	sup, _ := f.st.GetSupply()
	assert.Equal(t, sup.Max, sup.Total)
	f.assertSupply(t)
}

func TestMintDisabled(t *testing.T) {
	f := newFixture(t, func(g *testutil.Genesis) { g.Token.MintingEnabled = false })
	assert.ErrorIs(t, ledger.Mint(f.st, f.bob.Addr, 1), core.ErrMintingDisabled)
	_, err := ledger.MintCapped(f.st, f.bob.Addr, 1)
	assert.ErrorIs(t, err, core.ErrMintingDisabled)
}

func TestBurn(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, ledger.Burn(f.st, f.alice.Addr, 1_000))
	sup, _ := f.st.GetSupply()
	assert.Equal(t, uint64(9_000), sup.Total)
	assert.Equal(t, uint64(1_000), sup.Burned)
	f.assertSupply(t)

	assert.ErrorIs(t, ledger.Burn(f.st, f.alice.Addr, 1_000_000), core.ErrInsufficientBalance)
	assert.ErrorIs(t, ledger.Burn(f.st, f.alice.Addr, 0), core.ErrInvalidAmount)
}

func TestTransferFeeConservation(t *testing.T) {
	cases := []struct {
		name                   string
		feeBps, burnBps        uint64
		amount                 uint64
		wantRecv, wantBurn, wp uint64
	}{
		{"no fee", 0, 0, 1000, 1000, 0, 0},
		{"fee split", 100, 40, 1000, 990, 4, 6},
		{"all burned", 200, 200, 1000, 980, 20, 0},
		{"fee floors to zero", 100, 50, 99, 99, 0, 0},
		{"odd split", 300, 100, 777, 754, 7, 16},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture(t, func(g *testutil.Genesis) {
				g.Token.TransferFeeBps = c.feeBps
				g.Token.BurnFeeBps = c.burnBps
			})
			before, _ := f.st.GetSupply()
			split, err := ledger.Transfer(f.st, f.alice.Addr, f.bob.Addr, c.amount)
			require.NoError(t, err)

			assert.Equal(t, c.amount-c.amount*c.feeBps/10000, split.Received)
			assert.Equal(t, c.wantRecv, split.Received)
			assert.Equal(t, c.wantBurn, split.Burned)
			assert.Equal(t, c.wp, split.Pool)

			recv, _ := ledger.BalanceOf(f.st, f.bob.Addr)
			pool, _ := ledger.PoolBalance(f.st)
			after, _ := f.st.GetSupply()
			assert.Equal(t, c.wantRecv, recv)
			assert.Equal(t, c.wp, pool)
			assert.Equal(t, before.Total-c.wantBurn, after.Total)
			f.assertSupply(t)
		})
	}
}

func TestTransferRejections(t *testing.T) {
	f := newFixture(t, nil)
	_, err := ledger.Transfer(f.st, f.alice.Addr, f.bob.Addr, 0)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	_, err = ledger.Transfer(f.st, f.alice.Addr, core.LotteryPoolAddress, 10)
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
	_, err = ledger.Transfer(f.st, f.alice.Addr, "", 10)
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
	_, err = ledger.Transfer(f.st, f.bob.Addr, f.alice.Addr, 10)
	assert.ErrorIs(t, err, core.ErrInsufficientBalance)
}

func TestUpdateParams(t *testing.T) {
	f := newFixture(t, nil)
	gc, err := access.RequireGovernance(f.st, f.gov.Addr)
	require.NoError(t, err)

	bad := core.TokenParams{TransferFeeBps: 100, BurnFeeBps: 200}
	assert.ErrorIs(t, ledger.UpdateParams(gc, f.st, bad), core.ErrInvalidParams)
	assert.ErrorIs(t, ledger.UpdateParams(access.GovernanceCap{}, f.st, core.TokenParams{}), core.ErrNotGovernance)

	good := core.TokenParams{TransferFeeBps: 100, BurnFeeBps: 50, StakingRewardBps: 10, RewardPeriod: 60, MintingEnabled: true}
	require.NoError(t, ledger.UpdateParams(gc, f.st, good))
	got, _ := f.st.GetTokenParams()
	assert.Equal(t, good, *got)
}

func TestStakingMonotonicAndLinear(t *testing.T) {
	f := newFixture(t, nil) // 1000 bps per day
	const day = int64(24 * time.Hour)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano()

	require.NoError(t, ledger.Stake(f.st, f.alice.Addr, 1_000, t0))
	staked, _ := ledger.StakedBalance(f.st, f.alice.Addr)
	assert.Equal(t, uint64(1_000), staked)
	f.assertSupply(t)

	r1, _ := ledger.PendingReward(f.st, f.alice.Addr, t0+day)
	r2, _ := ledger.PendingReward(f.st, f.alice.Addr, t0+2*day)
	assert.Equal(t, uint64(100), r1)
	assert.Equal(t, 2*r1, r2, "reward scales linearly with elapsed time")

	reward, err := ledger.Unstake(f.st, f.alice.Addr, 1_000, t0+2*day)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), reward)
	bal, _ := ledger.BalanceOf(f.st, f.alice.Addr)
	assert.Equal(t, uint64(10_000+200), bal, "principal returned plus reward")
	staked, _ = ledger.StakedBalance(f.st, f.alice.Addr)
	assert.Zero(t, staked)
	f.assertSupply(t)
}

func TestRestakeResetsSince(t *testing.T) {
	f := newFixture(t, nil)
	const day = int64(24 * time.Hour)
	require.NoError(t, ledger.Stake(f.st, f.alice.Addr, 500, 0))
	require.NoError(t, ledger.Stake(f.st, f.alice.Addr, 500, day))

	reward, err := ledger.Unstake(f.st, f.alice.Addr, 1_000, day)
	require.NoError(t, err)
	assert.Zero(t, reward, "accrued reward is forfeited on re-stake")
}

func TestUnstakeEdgeCases(t *testing.T) {
	f := newFixture(t, func(g *testutil.Genesis) { g.Token.MintingEnabled = false })
	require.NoError(t, ledger.Stake(f.st, f.alice.Addr, 100, 0))

	_, err := ledger.Unstake(f.st, f.alice.Addr, 101, int64(time.Hour))
	assert.ErrorIs(t, err, core.ErrInsufficientStake)

	reward, err := ledger.Unstake(f.st, f.alice.Addr, 40, int64(48*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, reward, "no reward while minting is disabled")
	staked, _ := ledger.StakedBalance(f.st, f.alice.Addr)
	assert.Equal(t, uint64(60), staked)
	f.assertSupply(t)

	assert.ErrorIs(t, ledger.Stake(f.st, f.alice.Addr, 1_000_000, 0), core.ErrInsufficientBalance)
}
