package core

// BasisPoints is the denominator for every bps-valued parameter (10000 = 1.0x).
const BasisPoints = 10_000

// LotteryPoolAddress is the reserved ledger account holding the lottery pool.
// It is not a valid public key, so no transaction can be signed from it.
const LotteryPoolAddress = "lottery:pool"

// Account holds a participant's liquid token balance and replay-protection nonce.
// Address is the hex-encoded ed25519 public key.
type Account struct {
	Address string `json:"address"` // pubkey hex
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// GameModule is the registry record for one game. Records are never deleted;
// revoking only clears Active so the nonce counter and audit trail survive.
type GameModule struct {
	GameID               string `json:"game_id"`
	AuthorizedServer     string `json:"authorized_server"`     // pubkey hex allowed to submit results
	ServerPublicKey      string `json:"server_public_key"`     // 32-byte ed25519 key, hex
	DifficultyMultiplier uint64 `json:"difficulty_multiplier"` // bps
	MinimumScore         uint64 `json:"minimum_score"`
	MaxScore             uint64 `json:"max_score"`      // 0 → unbounded
	ResultMaxAge         int64  `json:"result_max_age"` // seconds; 0 → no freshness check
	NonceCounter         uint64 `json:"nonce_counter"`
	MetadataURI          string `json:"metadata_uri"`
	Active               bool   `json:"active"`
	RegisteredAt         int64  `json:"registered_at"`
	RevokedAt            int64  `json:"revoked_at,omitempty"`
}

// GameStat aggregates one player's results for a single game.
type GameStat struct {
	Score     uint64 `json:"score"` // cumulative
	BestScore uint64 `json:"best_score"`
	Wins      uint64 `json:"wins"`
	Plays     uint64 `json:"plays"`
}

// PlayerStats is the non-transferable identity record of a player.
// Every counter is append-only.
type PlayerStats struct {
	PlayerID         string               `json:"player_id"`
	TotalGamesPlayed uint64               `json:"total_games_played"`
	TotalWins        uint64               `json:"total_wins"`
	TotalPoints      uint64               `json:"total_points"`
	TotalRewards     uint64               `json:"total_rewards"`
	PerGame          map[string]*GameStat `json:"per_game"`
	MintedAt         int64                `json:"minted_at"`
}

// ResultReceipt marks a signed result hash as consumed.
type ResultReceipt struct {
	Hash      string `json:"hash"`
	Player    string `json:"player"`
	GameID    string `json:"game_id"`
	Score     uint64 `json:"score"`
	Reward    uint64 `json:"reward"`
	Sequence  uint64 `json:"sequence"` // per-game nonce counter value at acceptance
	TxID      string `json:"tx_id"`
	AppliedAt int64  `json:"applied_at"`
}

// Supply tracks the token supply. Total == Σ balances + Staked at all times.
type Supply struct {
	Total  uint64 `json:"total"`
	Max    uint64 `json:"max"`
	Staked uint64 `json:"staked"`
	Minted uint64 `json:"minted"`
	Burned uint64 `json:"burned"`
}

// Remaining returns how many tokens may still be minted.
func (s *Supply) Remaining() uint64 {
	if s.Total >= s.Max {
		return 0
	}
	return s.Max - s.Total
}

// TokenParams is the governance-controlled ledger configuration.
type TokenParams struct {
	TransferFeeBps   uint64 `json:"transfer_fee_bps"`
	BurnFeeBps       uint64 `json:"burn_fee_bps"` // share of the fee that is burned, in bps of the fee rate
	StakingRewardBps uint64 `json:"staking_reward_bps"`
	RewardPeriod     int64  `json:"reward_period"` // seconds
	MintingEnabled   bool   `json:"minting_enabled"`
}

// StakePosition is an account's staked principal. Since resets on every stake.
type StakePosition struct {
	Account   string `json:"account"`
	Principal uint64 `json:"principal"`
	Since     int64  `json:"since"`
}

// LotteryState is the singleton lottery round bookkeeping. The pool balance
// itself lives in the ledger account LotteryPoolAddress.
type LotteryState struct {
	DrawInterval int64    `json:"draw_interval"` // seconds
	LastDrawAt   int64    `json:"last_draw_at"`
	Round        uint64   `json:"round"`
	Entrants     []string `json:"entrants"` // first-contribution order
	LastWinner   string   `json:"last_winner,omitempty"`
	LastPayout   uint64   `json:"last_payout"`
}

// LotteryParticipant is one account's weight in the current round.
type LotteryParticipant struct {
	Account string `json:"account"`
	TxCount uint64 `json:"tx_count"`
	Volume  uint64 `json:"volume"`
}

// FaucetParams configures the native → token exchange.
type FaucetParams struct {
	Enabled      bool   `json:"enabled"`
	SwapRate     uint64 `json:"swap_rate"`   // tokens per native unit
	DailyLimit   uint64 `json:"daily_limit"` // native units per account per UTC day
	BonusStepBps uint64 `json:"bonus_step_bps"`
	MaxBonusBps  uint64 `json:"max_bonus_bps"`
}

// FaucetRecord is one account's faucet quota and native credit.
type FaucetRecord struct {
	Account        string `json:"account"`
	NativeBalance  uint64 `json:"native_balance"`
	LastSwapDay    int64  `json:"last_swap_day"` // days since epoch, UTC
	SwappedToday   uint64 `json:"swapped_today"`
	LifetimeSwaps  uint64 `json:"lifetime_swaps"`
	LifetimeNative uint64 `json:"lifetime_native"`
}

// Control holds the privileged role holders and the global pause switch.
type Control struct {
	Owner      string `json:"owner"`      // pubkey hex; game registry + native bridge
	Governance string `json:"governance"` // pubkey hex; economic parameters
	Paused     bool   `json:"paused"`
}

// State is the full ledger state interface. Implementations must be
// snapshot-able so the executor can roll back failed transactions.
type State interface {
	// Accounts
	GetAccount(address string) (*Account, error)
	SetAccount(account *Account) error

	// Game registry
	GetGame(id string) (*GameModule, error)
	SetGame(g *GameModule) error

	// Player identities
	GetPlayer(id string) (*PlayerStats, error)
	SetPlayer(p *PlayerStats) error

	// Consumed result hashes
	GetResult(hash string) (*ResultReceipt, error)
	SetResult(r *ResultReceipt) error

	// Token ledger
	GetSupply() (*Supply, error)
	SetSupply(s *Supply) error
	GetTokenParams() (*TokenParams, error)
	SetTokenParams(p *TokenParams) error
	GetStake(account string) (*StakePosition, error)
	SetStake(p *StakePosition) error
	DeleteStake(account string) error

	// Lottery
	GetLottery() (*LotteryState, error)
	SetLottery(l *LotteryState) error
	GetParticipant(account string) (*LotteryParticipant, error)
	SetParticipant(p *LotteryParticipant) error
	DeleteParticipant(account string) error

	// Faucet
	GetFaucetParams() (*FaucetParams, error)
	SetFaucetParams(p *FaucetParams) error
	GetFaucetRecord(account string) (*FaucetRecord, error)
	SetFaucetRecord(r *FaucetRecord) error

	// Roles and pause switch
	GetControl() (*Control, error)
	SetControl(c *Control) error

	// Snapshot / rollback / commit
	Snapshot() (int, error)
	RevertToSnapshot(id int) error
	// ComputeRoot returns the deterministic state root from the current write
	// buffer without flushing. Call this before signing a block.
	ComputeRoot() string
	// Commit flushes the write buffer to the underlying DB and clears it.
	// Always call ComputeRoot() first to obtain the root for the block header.
	Commit() error
}
