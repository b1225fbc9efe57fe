// Package config loads node configuration from JSON or YAML files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/crypto"
	"github.com/tolelom/scorechain/ledger"
	"github.com/tolelom/scorechain/lottery"
)

// Storage backends.
const (
	BackendLevelDB  = "leveldb"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// StorageConfig selects the key-value backend for state and blocks.
type StorageConfig struct {
	Backend string `json:"backend" yaml:"backend"` // leveldb | sqlite | postgres
	Path    string `json:"path" yaml:"path"`       // leveldb dir or sqlite file; default under DataDir
	URL     string `json:"url" yaml:"url"`         // postgres connection string
}

// RedisConfig enables the Redis stream event publisher when URL is set.
type RedisConfig struct {
	URL    string `json:"url" yaml:"url"`
	Stream string `json:"stream" yaml:"stream"`
	MaxLen int64  `json:"max_len" yaml:"max_len"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	File   string `json:"file" yaml:"file"`
}

// TokenConfig mirrors core.TokenParams for config files.
type TokenConfig struct {
	TransferFeeBps   uint64 `json:"transfer_fee_bps" yaml:"transfer_fee_bps"`
	BurnFeeBps       uint64 `json:"burn_fee_bps" yaml:"burn_fee_bps"`
	StakingRewardBps uint64 `json:"staking_reward_bps" yaml:"staking_reward_bps"`
	RewardPeriod     int64  `json:"reward_period" yaml:"reward_period"` // seconds
	MintingEnabled   bool   `json:"minting_enabled" yaml:"minting_enabled"`
}

// Params converts to the ledger's parameter record.
func (t TokenConfig) Params() core.TokenParams {
	return core.TokenParams{
		TransferFeeBps:   t.TransferFeeBps,
		BurnFeeBps:       t.BurnFeeBps,
		StakingRewardBps: t.StakingRewardBps,
		RewardPeriod:     t.RewardPeriod,
		MintingEnabled:   t.MintingEnabled,
	}
}

// FaucetConfig mirrors core.FaucetParams for config files.
type FaucetConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	SwapRate     uint64 `json:"swap_rate" yaml:"swap_rate"`
	DailyLimit   uint64 `json:"daily_limit" yaml:"daily_limit"`
	BonusStepBps uint64 `json:"bonus_step_bps" yaml:"bonus_step_bps"`
	MaxBonusBps  uint64 `json:"max_bonus_bps" yaml:"max_bonus_bps"`
}

// Params converts to the faucet's parameter record.
func (f FaucetConfig) Params() core.FaucetParams {
	return core.FaucetParams{
		Enabled:      f.Enabled,
		SwapRate:     f.SwapRate,
		DailyLimit:   f.DailyLimit,
		BonusStepBps: f.BonusStepBps,
		MaxBonusBps:  f.MaxBonusBps,
	}
}

// GenesisConfig describes the chain's initial state.
type GenesisConfig struct {
	ChainID      string            `json:"chain_id" yaml:"chain_id"`
	Owner        string            `json:"owner" yaml:"owner"`           // pubkey hex
	Governance   string            `json:"governance" yaml:"governance"` // pubkey hex
	MaxSupply    uint64            `json:"max_supply" yaml:"max_supply"`
	Alloc        map[string]uint64 `json:"alloc" yaml:"alloc"` // pubkey hex → initial balance
	Token        TokenConfig       `json:"token" yaml:"token"`
	Faucet       FaucetConfig      `json:"faucet" yaml:"faucet"`
	DrawInterval int64             `json:"draw_interval" yaml:"draw_interval"` // seconds
}

// Config holds all node configuration.
type Config struct {
	NodeID        string        `json:"node_id" yaml:"node_id"`
	DataDir       string        `json:"data_dir" yaml:"data_dir"`
	RPCPort       int           `json:"rpc_port" yaml:"rpc_port"`
	RPCAuthToken  string        `json:"rpc_auth_token" yaml:"rpc_auth_token"` // optional bearer token
	BlockInterval int           `json:"block_interval_ms" yaml:"block_interval_ms"`
	MaxBlockTxs   int           `json:"max_block_txs" yaml:"max_block_txs"` // max transactions per block; 0 → 500
	Storage       StorageConfig `json:"storage" yaml:"storage"`
	Redis         RedisConfig   `json:"redis" yaml:"redis"`
	Log           LogConfig     `json:"log" yaml:"log"`
	TLS           *TLSConfig    `json:"tls,omitempty" yaml:"tls,omitempty"`
	Genesis       GenesisConfig `json:"genesis" yaml:"genesis"`
}

// DefaultConfig returns a single-node development configuration. Owner and
// governance are left empty; the node fills them with its own key.
func DefaultConfig() *Config {
	return &Config{
		NodeID:        "node0",
		DataDir:       "./data",
		RPCPort:       8545,
		BlockInterval: 2000,
		MaxBlockTxs:   500,
		Storage:       StorageConfig{Backend: BackendLevelDB},
		Log:           LogConfig{Level: "info", Format: "console"},
		Genesis: GenesisConfig{
			ChainID:   "scorechain-dev",
			MaxSupply: 1_000_000_000,
			Alloc:     map[string]uint64{},
			Token: TokenConfig{
				TransferFeeBps:   100,
				BurnFeeBps:       50,
				StakingRewardBps: 500,
				RewardPeriod:     365 * 24 * 3600,
				MintingEnabled:   true,
			},
			Faucet: FaucetConfig{
				Enabled:      true,
				SwapRate:     100,
				DailyLimit:   1000,
				BonusStepBps: 50,
				MaxBonusBps:  15000,
			},
			DrawInterval: 24 * 3600,
		},
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads a config file from path. Files ending in .yaml or .yml are
// parsed as YAML, everything else as JSON. Unset fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, as YAML or JSON by extension.
func Save(cfg *Config, path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BlockTime returns the block production interval.
func (c *Config) BlockTime() time.Duration {
	if c.BlockInterval <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.BlockInterval) * time.Millisecond
}

// StoragePath returns the backend path, defaulting under DataDir.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if c.Storage.Backend == BackendSQLite {
		return filepath.Join(c.DataDir, "chain.db")
	}
	return filepath.Join(c.DataDir, "chain")
}

// Validate checks the configuration for values the node cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case BackendLevelDB, BackendSQLite:
	case BackendPostgres:
		if c.Storage.URL == "" {
			errs = append(errs, errors.New("storage.url is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	g := c.Genesis
	if g.ChainID == "" {
		errs = append(errs, errors.New("genesis.chain_id is required"))
	}
	for _, role := range []struct{ name, key string }{{"owner", g.Owner}, {"governance", g.Governance}} {
		if role.key != "" && !crypto.IsPubKeyHex(role.key) {
			errs = append(errs, fmt.Errorf("genesis.%s: %w", role.name, core.ErrInvalidAddress))
		}
	}
	var (
		total    uint64
		overflow bool
	)
	for addr, bal := range g.Alloc {
		if !crypto.IsPubKeyHex(addr) {
			errs = append(errs, fmt.Errorf("genesis.alloc %q: %w", addr, core.ErrInvalidAddress))
		}
		if bal > math.MaxUint64-total {
			overflow = true
			continue
		}
		total += bal
	}
	if overflow {
		errs = append(errs, fmt.Errorf("genesis.alloc overflows uint64: %w", core.ErrSupplyCapExceeded))
	} else if total > g.MaxSupply {
		errs = append(errs, fmt.Errorf("genesis.alloc totals %d: %w", total, core.ErrSupplyCapExceeded))
	}
	tp := g.Token.Params()
	if err := ledger.ValidateParams(&tp); err != nil {
		errs = append(errs, fmt.Errorf("genesis.token: %w", err))
	}
	if err := lottery.ValidateDrawInterval(g.DrawInterval); err != nil {
		errs = append(errs, fmt.Errorf("genesis.draw_interval: %w", err))
	}
	return errors.Join(errs...)
}
