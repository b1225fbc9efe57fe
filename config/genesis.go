package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/crypto"
)

// GenesisHash is a canonical all-zeros previous hash for the genesis block.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// CreateGenesisBlock builds and signs block #0 from the genesis section:
// roles, allocations, the supply cap and the economic parameters. It writes
// the initial state and commits it. The block timestamp starts the first
// lottery round.
func CreateGenesisBlock(cfg *Config, state core.State, proposerPriv crypto.PrivateKey) (*core.Block, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	g := cfg.Genesis
	proposer := proposerPriv.Public().Hex()
	block := core.NewBlock(g.ChainID, 0, GenesisHash, proposer, time.Now())

	ctl := &core.Control{Owner: g.Owner, Governance: g.Governance}
	if ctl.Owner == "" {
		ctl.Owner = proposer
	}
	if ctl.Governance == "" {
		ctl.Governance = proposer
	}
	if err := state.SetControl(ctl); err != nil {
		return nil, err
	}

	var total uint64
	for pubkeyHex, balance := range g.Alloc {
		if err := state.SetAccount(&core.Account{Address: pubkeyHex, Balance: balance}); err != nil {
			return nil, err
		}
		total += balance
	}
	if err := state.SetSupply(&core.Supply{Total: total, Max: g.MaxSupply, Minted: total}); err != nil {
		return nil, err
	}
	tp := g.Token.Params()
	if err := state.SetTokenParams(&tp); err != nil {
		return nil, err
	}
	fp := g.Faucet.Params()
	if err := state.SetFaucetParams(&fp); err != nil {
		return nil, err
	}
	lot := &core.LotteryState{DrawInterval: g.DrawInterval, LastDrawAt: block.Header.Timestamp}
	if err := state.SetLottery(lot); err != nil {
		return nil, err
	}

	root := state.ComputeRoot()
	if err := state.Commit(); err != nil {
		return nil, err
	}
	block.Seal(root, proposerPriv)
	return block, nil
}

// IsGenesisHash returns true if the hash is the canonical genesis prev-hash.
func IsGenesisHash(h string) bool {
	return len(h) == 64 && strings.Count(h, "0") == len(h)
}
