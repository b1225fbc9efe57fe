package testutil

import (
	"testing"

	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/crypto"
	"github.com/tolelom/scorechain/storage"
)

// Key is a generated ed25519 key pair with its hex address.
type Key struct {
	Priv crypto.PrivateKey
	Pub  crypto.PublicKey
	Addr string
}

// NewKey generates a fresh key pair, failing the test on error.
func NewKey(t testing.TB) Key {
	t.Helper()
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return Key{Priv: priv, Pub: pub, Addr: pub.Hex()}
}

// Genesis describes the initial ledger state used by NewChainState.
type Genesis struct {
	Owner      string
	Governance string
	MaxSupply  uint64
	Token      core.TokenParams
	Faucet     core.FaucetParams
	Lottery    core.LotteryState
	Alloc      map[string]uint64
}

// DefaultGenesis returns minting-enabled parameters with no transfer fee.
func DefaultGenesis(owner, governance string) Genesis {
	return Genesis{
		Owner:      owner,
		Governance: governance,
		MaxSupply:  1_000_000_000,
		Token: core.TokenParams{
			StakingRewardBps: 1000,
			RewardPeriod:     86400,
			MintingEnabled:   true,
		},
		Faucet: core.FaucetParams{
			Enabled:      true,
			SwapRate:     10,
			DailyLimit:   1000,
			BonusStepBps: 100,
			MaxBonusBps:  15000,
		},
		Lottery: core.LotteryState{DrawInterval: 3600},
	}
}

// NewChainState returns an in-memory state seeded from g.
func NewChainState(t testing.TB, g Genesis) *storage.StateDB {
	t.Helper()
	st := NewStateDB()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed state: %v", err)
		}
	}
	var total uint64
	for addr, bal := range g.Alloc {
		must(st.SetAccount(&core.Account{Address: addr, Balance: bal}))
		total += bal
	}
	must(st.SetControl(&core.Control{Owner: g.Owner, Governance: g.Governance}))
	must(st.SetSupply(&core.Supply{Total: total, Max: g.MaxSupply}))
	tp := g.Token
	must(st.SetTokenParams(&tp))
	fp := g.Faucet
	must(st.SetFaucetParams(&fp))
	lot := g.Lottery
	must(st.SetLottery(&lot))
	return st
}
