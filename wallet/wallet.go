package wallet

import (
	"time"

	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/crypto"
)

// Wallet holds a key pair bound to one chain id and builds signed
// transactions for it. Game servers also use it to sign results.
type Wallet struct {
	priv    crypto.PrivateKey
	pub     crypto.PublicKey
	chainID string
}

// New creates a Wallet for chainID from an existing private key.
func New(chainID string, priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public(), chainID: chainID}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate(chainID string) (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(chainID, priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey { return w.priv }

// PubKey returns the hex-encoded ed25519 public key (used as "from" address).
func (w *Wallet) PubKey() string { return w.pub.Hex() }

// ChainID returns the network the wallet signs for.
func (w *Wallet) ChainID() string { return w.chainID }

// NewTx creates a signed transaction. nonce should match the account's
// current nonce.
func (w *Wallet) NewTx(typ core.TxType, nonce uint64, payload any) (*core.Transaction, error) {
	tx, err := core.NewTransaction(w.chainID, typ, w.pub.Hex(), nonce, payload)
	if err != nil {
		return nil, err
	}
	tx.Sign(w.priv)
	return tx, nil
}

// SignResult builds a result payload signed with this wallet's key, as a game
// server does before handing it to the submitting process.
func (w *Wallet) SignResult(player, gameID string, score uint64, win bool, nonce uint64) *core.SubmitResultPayload {
	p := &core.SubmitResultPayload{
		Player:    player,
		GameID:    gameID,
		Score:     score,
		Win:       win,
		Timestamp: time.Now().UnixNano(),
		Nonce:     nonce,
	}
	p.SignResult(w.priv)
	return p
}

// ---- registry (owner) ----

// RegisterGame registers or re-activates a game module.
func (w *Wallet) RegisterGame(p core.RegisterGamePayload, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxRegisterGame, nonce, p)
}

// RevokeGame deactivates a game module.
func (w *Wallet) RevokeGame(gameID string, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxRevokeGame, nonce, core.GameIDPayload{GameID: gameID})
}

// UpdateServerKey rotates a game's result-signing key.
func (w *Wallet) UpdateServerKey(gameID, key string, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxUpdateServerKey, nonce, core.UpdateServerKeyPayload{GameID: gameID, PublicKey: key})
}

// SetDifficulty changes a game's reward multiplier in basis points.
func (w *Wallet) SetDifficulty(gameID string, bps, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxSetDifficulty, nonce, core.SetDifficultyPayload{GameID: gameID, Multiplier: bps})
}

// SetMinimumScore changes a game's accepted score range; maxScore 0 is unbounded.
func (w *Wallet) SetMinimumScore(gameID string, minScore, maxScore, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxSetMinimumScore, nonce, core.SetMinimumScorePayload{
		GameID:       gameID,
		MinimumScore: minScore,
		MaxScore:     maxScore,
	})
}

// DepositNative credits bridged native units to account.
func (w *Wallet) DepositNative(account string, amount, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxDepositNative, nonce, core.DepositNativePayload{Account: account, Amount: amount})
}

// TransferRole hands the owner or governance role to another key.
func (w *Wallet) TransferRole(role, to string, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxTransferRole, nonce, core.TransferRolePayload{Role: role, To: to})
}

// ---- results and identity ----

// SubmitResult sends a server-signed result. The wallet must be the game's
// authorized server.
func (w *Wallet) SubmitResult(p *core.SubmitResultPayload, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxSubmitResult, nonce, p)
}

// MintIdentity mints the sender's player identity.
func (w *Wallet) MintIdentity(nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxMintIdentity, nonce, struct{}{})
}

// ---- token ledger ----

// Transfer creates a signed transfer transaction.
func (w *Wallet) Transfer(to string, amount, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxTransfer, nonce, core.TransferPayload{
		To:     to,
		Amount: amount,
	})
}

// Burn destroys tokens from the sender's balance.
func (w *Wallet) Burn(amount, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxBurn, nonce, core.AmountPayload{Amount: amount})
}

// Stake moves liquid tokens into the sender's stake position.
func (w *Wallet) Stake(amount, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxStake, nonce, core.AmountPayload{Amount: amount})
}

// Unstake returns principal plus accrued reward.
func (w *Wallet) Unstake(amount, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxUnstake, nonce, core.AmountPayload{Amount: amount})
}

// UpdateParams replaces the token parameters (governance).
func (w *Wallet) UpdateParams(p core.TokenParams, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxUpdateParams, nonce, core.UpdateParamsPayload{Params: p})
}

// SetPaused toggles the global pause switch (governance).
func (w *Wallet) SetPaused(paused bool, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxSetPaused, nonce, core.SetPausedPayload{Paused: paused})
}

// ---- lottery ----

// ExecuteDraw triggers the lottery draw once it is due.
func (w *Wallet) ExecuteDraw(nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxExecuteDraw, nonce, struct{}{})
}

// SetDrawInterval changes the draw cadence in seconds (governance).
func (w *Wallet) SetDrawInterval(seconds int64, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxSetDrawInterval, nonce, core.SetDrawIntervalPayload{Interval: seconds})
}

// ---- faucet ----

// Swap exchanges native credit for tokens.
func (w *Wallet) Swap(native, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxSwap, nonce, core.AmountPayload{Amount: native})
}

// SetDailyLimit changes the per-account faucet quota (governance).
func (w *Wallet) SetDailyLimit(limit, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxSetDailyLimit, nonce, core.SetDailyLimitPayload{Limit: limit})
}

// UpdateSwapRate changes the faucet exchange rate (governance).
func (w *Wallet) UpdateSwapRate(rate, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxUpdateSwapRate, nonce, core.UpdateSwapRatePayload{Rate: rate})
}

// SetFaucetEnabled turns the faucet on or off (governance).
func (w *Wallet) SetFaucetEnabled(enabled bool, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxSetFaucetEnabled, nonce, core.SetFaucetEnabledPayload{Enabled: enabled})
}
