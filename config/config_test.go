package config_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/scorechain/config"
	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/crypto"
	"github.com/tolelom/scorechain/internal/testutil"
)

func TestLoadYAMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
node_id: arcade-1
storage:
  backend: sqlite
genesis:
  chain_id: arcade
  faucet:
    enabled: true
    swap_rate: 7
    daily_limit: 50
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "arcade-1", cfg.NodeID)
	assert.Equal(t, "arcade", cfg.Genesis.ChainID)
	assert.Equal(t, uint64(7), cfg.Genesis.Faucet.SwapRate)
	assert.Equal(t, 8545, cfg.RPCPort, "default kept")
	assert.Equal(t, filepath.Join("data", "chain.db"), cfg.StoragePath())
	require.NoError(t, cfg.Validate())
}

func TestSaveLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.json")
	cfg := config.DefaultConfig()
	cfg.Genesis.ChainID = "json-chain"
	cfg.Redis.URL = "redis://localhost:6379/0"
	require.NoError(t, config.Save(cfg, path))

	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestValidate(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "etcd"
	cfg.Genesis.Owner = "nope"
	cfg.Genesis.Token.BurnFeeBps = cfg.Genesis.Token.TransferFeeBps + 1
	cfg.Genesis.MaxSupply = 10
	cfg.Genesis.Alloc = map[string]uint64{testutil.NewKey(t).Addr: 11}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd")
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
	assert.ErrorIs(t, err, core.ErrInvalidParams)
	assert.ErrorIs(t, err, core.ErrSupplyCapExceeded)

	cfg = config.DefaultConfig()
	cfg.Storage.Backend = config.BackendPostgres
	assert.Error(t, cfg.Validate())
}

func TestValidateGenesisBounds(t *testing.T) {
	tests := []struct {
		name string
		edit func(g *config.GenesisConfig)
		want error
	}{
		{"defaults", func(*config.GenesisConfig) {}, nil},
		{"alloc sum wraps", func(g *config.GenesisConfig) {
			g.MaxSupply = 1000
			g.Alloc = map[string]uint64{testutil.NewKey(t).Addr: math.MaxUint64, testutil.NewKey(t).Addr: 2}
		}, core.ErrSupplyCapExceeded},
		{"alloc at cap", func(g *config.GenesisConfig) {
			g.MaxSupply = 1000
			g.Alloc = map[string]uint64{testutil.NewKey(t).Addr: 600, testutil.NewKey(t).Addr: 400}
		}, nil},
		{"zero draw interval", func(g *config.GenesisConfig) { g.DrawInterval = 0 }, core.ErrInvalidParams},
		{"negative draw interval", func(g *config.GenesisConfig) { g.DrawInterval = -5 }, core.ErrInvalidParams},
		{"draw interval overflows clock", func(g *config.GenesisConfig) { g.DrawInterval = math.MaxInt64 }, core.ErrInvalidParams},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tc.edit(&cfg.Genesis)
			err := cfg.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateGenesisBlock(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	player := testutil.NewKey(t)

	cfg := config.DefaultConfig()
	cfg.Genesis.Alloc = map[string]uint64{player.Addr: 5000}
	st := testutil.NewStateDB()

	block, err := config.CreateGenesisBlock(cfg, st, priv)
	require.NoError(t, err)
	assert.Equal(t, int64(0), block.Header.Height)
	assert.True(t, config.IsGenesisHash(block.Header.PrevHash))
	assert.Equal(t, cfg.Genesis.ChainID, block.Header.ChainID)
	require.NoError(t, block.Verify(pub))

	ctl, err := st.GetControl()
	require.NoError(t, err)
	assert.Equal(t, pub.Hex(), ctl.Owner, "owner defaults to the proposer")
	assert.Equal(t, pub.Hex(), ctl.Governance)

	sup, err := st.GetSupply()
	require.NoError(t, err)
	assert.Equal(t, core.Supply{Total: 5000, Max: 1_000_000_000, Minted: 5000}, *sup)

	lot, err := st.GetLottery()
	require.NoError(t, err)
	assert.Equal(t, block.Header.Timestamp, lot.LastDrawAt)
	assert.Equal(t, int64(24*3600), lot.DrawInterval)
}

func TestLoadTLSConfigDisabled(t *testing.T) {
	tc, err := config.LoadTLSConfig(nil)
	require.NoError(t, err)
	assert.Nil(t, tc)

	_, err = config.LoadTLSConfig(&config.TLSConfig{Cert: "missing.pem", Key: "missing.key"})
	assert.Error(t, err)
}
