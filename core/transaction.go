package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tolelom/scorechain/crypto"
)

// TxType identifies the kind of operation a transaction performs.
type TxType string

const (
	// Game registry (owner)
	TxRegisterGame    TxType = "register_game"
	TxRevokeGame      TxType = "revoke_game"
	TxUpdateServerKey TxType = "update_server_key"
	TxSetDifficulty   TxType = "set_difficulty"
	TxSetMinimumScore TxType = "set_minimum_score"
	TxTransferRole    TxType = "transfer_role"
	TxDepositNative   TxType = "deposit_native"

	// Results and identity
	TxSubmitResult TxType = "submit_result"
	TxMintIdentity TxType = "mint_identity"

	// Token ledger
	TxTransfer     TxType = "transfer"
	TxBurn         TxType = "burn"
	TxStake        TxType = "stake"
	TxUnstake      TxType = "unstake"
	TxUpdateParams TxType = "update_params"
	TxSetPaused    TxType = "set_paused"

	// Lottery
	TxExecuteDraw     TxType = "execute_draw"
	TxSetDrawInterval TxType = "set_draw_interval"

	// Faucet
	TxSwap             TxType = "swap"
	TxSetDailyLimit    TxType = "set_daily_limit"
	TxUpdateSwapRate   TxType = "update_swap_rate"
	TxSetFaucetEnabled TxType = "set_faucet_enabled"
)

// Transaction is the atomic unit of work on the chain.
// From holds the sender's full hex-encoded ed25519 public key (64 chars).
// Signature covers all fields except ID and Signature.
type Transaction struct {
	ID        string          `json:"id"`
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      string          `json:"from"` // hex-encoded ed25519 public key
	Nonce     uint64          `json:"nonce"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// signingBody holds the fields that are covered by the signature.
type signingBody struct {
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      string          `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Hash returns a deterministic hash of the transaction (sans Signature).
// Returns an empty string if marshalling fails (which cannot happen in practice).
func (tx *Transaction) Hash() string {
	body := signingBody{
		ChainID:   tx.ChainID,
		Type:      tx.Type,
		From:      tx.From,
		Nonce:     tx.Nonce,
		Timestamp: tx.Timestamp,
		Payload:   tx.Payload,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// Sign computes the signature and sets ID.
func (tx *Transaction) Sign(priv crypto.PrivateKey) {
	hash := tx.Hash()
	tx.Signature = crypto.Sign(priv, []byte(hash))
	tx.ID = hash
}

// Verify checks the signature and that From is a valid public key.
func (tx *Transaction) Verify() error {
	if tx.From == "" {
		return errors.New("missing from field")
	}
	if err := crypto.VerifyHex(tx.From, []byte(tx.Hash()), tx.Signature); err != nil {
		return fmt.Errorf("from %s: %w", tx.From, err)
	}
	return nil
}

// NewTransaction creates an unsigned transaction with the current timestamp.
func NewTransaction(chainID string, typ TxType, from string, nonce uint64, payload any) (*Transaction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Transaction{
		ChainID:   chainID,
		Type:      typ,
		From:      from,
		Nonce:     nonce,
		Timestamp: time.Now().UnixNano(),
		Payload:   raw,
	}, nil
}

// ---- Payload types ----

// RegisterGamePayload registers (or re-activates) a game module.
type RegisterGamePayload struct {
	GameID               string `json:"game_id"`
	Server               string `json:"server"`     // pubkey hex of the submitting server
	PublicKey            string `json:"public_key"` // result-signing key hex
	MetadataURI          string `json:"metadata_uri"`
	DifficultyMultiplier uint64 `json:"difficulty_multiplier"` // bps; 0 → 10000
	MinimumScore         uint64 `json:"minimum_score"`
	MaxScore             uint64 `json:"max_score"`
	ResultMaxAge         int64  `json:"result_max_age"`
}

// GameIDPayload addresses a game module.
type GameIDPayload struct {
	GameID string `json:"game_id"`
}

// UpdateServerKeyPayload rotates a game's result-signing key.
type UpdateServerKeyPayload struct {
	GameID    string `json:"game_id"`
	PublicKey string `json:"public_key"`
}

// SetDifficultyPayload changes a game's reward multiplier.
type SetDifficultyPayload struct {
	GameID     string `json:"game_id"`
	Multiplier uint64 `json:"multiplier"` // bps
}

// SetMinimumScorePayload changes a game's accepted score range.
type SetMinimumScorePayload struct {
	GameID       string `json:"game_id"`
	MinimumScore uint64 `json:"minimum_score"`
	MaxScore     uint64 `json:"max_score"`
}

// TransferRolePayload hands a privileged role to a new key.
type TransferRolePayload struct {
	Role string `json:"role"` // "owner" | "governance"
	To   string `json:"to"`
}

// SubmitResultPayload carries a game outcome signed by the game server.
type SubmitResultPayload struct {
	Player    string `json:"player"`
	GameID    string `json:"game_id"`
	Score     uint64 `json:"score"`
	Win       bool   `json:"win"`
	Timestamp int64  `json:"timestamp"` // unix nanoseconds, set by the game server
	Nonce     uint64 `json:"nonce"`
	Signature string `json:"signature"` // hex ed25519 signature over ResultHash
}

// AmountPayload is used by burn, stake, unstake and swap.
type AmountPayload struct {
	Amount uint64 `json:"amount"`
}

// TransferPayload transfers tokens; the recipient receives Amount minus the fee.
type TransferPayload struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// UpdateParamsPayload replaces the token parameter singleton.
type UpdateParamsPayload struct {
	Params TokenParams `json:"params"`
}

// SetPausedPayload toggles the global pause switch.
type SetPausedPayload struct {
	Paused bool `json:"paused"`
}

// SetDrawIntervalPayload changes the lottery cadence.
type SetDrawIntervalPayload struct {
	Interval int64 `json:"interval"` // seconds
}

// DepositNativePayload credits external native units to an account.
type DepositNativePayload struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

// SetDailyLimitPayload changes the per-account faucet quota.
type SetDailyLimitPayload struct {
	Limit uint64 `json:"limit"`
}

// UpdateSwapRatePayload changes the faucet exchange rate.
type UpdateSwapRatePayload struct {
	Rate uint64 `json:"rate"`
}

// SetFaucetEnabledPayload turns the faucet on or off.
type SetFaucetEnabledPayload struct {
	Enabled bool `json:"enabled"`
}
