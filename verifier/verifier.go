// Package verifier admits signed game results: it checks the submitting
// server and signature, consumes the result hash, updates the player's
// identity and mints the score-proportional reward.
package verifier

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/crypto"
	"github.com/tolelom/scorechain/games"
	"github.com/tolelom/scorechain/identity"
	"github.com/tolelom/scorechain/ledger"
)

// Outcome is what an accepted result changed.
type Outcome struct {
	Hash     string `json:"hash"`
	Player   string `json:"player"`
	GameID   string `json:"game_id"`
	Score    uint64 `json:"score"`
	Win      bool   `json:"win"`
	Reward   uint64 `json:"reward"`
	Sequence uint64 `json:"sequence"`
	TxID     string `json:"tx_ref"`
}

// Reward returns score scaled by the game's difficulty multiplier.
func Reward(g *core.GameModule, score uint64) uint64 {
	return ledger.MulDiv(score, g.DifficultyMultiplier, core.BasisPoints)
}

// Submit verifies sub, sent by server, and applies it. The caller must run it
// inside a snapshot: a failed gate can leave partial writes behind.
func Submit(st core.State, server string, sub *core.SubmitResultPayload, now int64, txID string) (*Outcome, error) {
	g, err := games.GetActive(st, sub.GameID)
	if err != nil {
		return nil, err
	}
	if server != g.AuthorizedServer {
		return nil, fmt.Errorf("game %q: %w", g.GameID, core.ErrUnauthorizedServer)
	}
	pub, err := crypto.PubKeyFromHex(g.ServerPublicKey)
	if err != nil {
		return nil, fmt.Errorf("game %q key: %w", g.GameID, core.ErrInvalidPublicKey)
	}
	if err := sub.VerifyResult(pub); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrBadSignature, err)
	}

	hash := sub.Hash()
	_, err = st.GetResult(hash)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", core.ErrReplayDetected, hash)
	case !errors.Is(err, core.ErrNotFound):
		return nil, err
	}
	receipt := &core.ResultReceipt{
		Hash:      hash,
		Player:    sub.Player,
		GameID:    sub.GameID,
		Score:     sub.Score,
		TxID:      txID,
		AppliedAt: now,
	}
	if err := st.SetResult(receipt); err != nil {
		return nil, err
	}

	if err := checkScore(g, sub.Score); err != nil {
		return nil, err
	}
	if err := checkFreshness(g, sub.Timestamp, now); err != nil {
		return nil, err
	}
	if _, err := identity.RecordResult(st, sub.Player, sub.GameID, sub.Score, sub.Win); err != nil {
		return nil, err
	}

	seq, err := games.NextNonce(st, g.GameID)
	if err != nil {
		return nil, err
	}
	var minted uint64
	if reward := Reward(g, sub.Score); reward > 0 {
		if minted, err = ledger.MintCapped(st, sub.Player, reward); err != nil {
			return nil, err
		}
		if err := identity.AddRewards(st, sub.Player, minted); err != nil {
			return nil, err
		}
	}

	receipt.Reward = minted
	receipt.Sequence = seq
	if err := st.SetResult(receipt); err != nil {
		return nil, err
	}
	return &Outcome{
		Hash:     hash,
		Player:   sub.Player,
		GameID:   sub.GameID,
		Score:    sub.Score,
		Win:      sub.Win,
		Reward:   minted,
		Sequence: seq,
		TxID:     txID,
	}, nil
}

func checkScore(g *core.GameModule, score uint64) error {
	if score < g.MinimumScore {
		return fmt.Errorf("%w: %d < %d", core.ErrScoreTooLow, score, g.MinimumScore)
	}
	if g.MaxScore > 0 && score > g.MaxScore {
		return fmt.Errorf("%w: %d > %d", core.ErrScoreOutOfRange, score, g.MaxScore)
	}
	return nil
}

// checkFreshness rejects results older or further in the future than the
// game's ResultMaxAge. Zero disables the check. Bounds saturate so extreme
// timestamps cannot wrap into the window.
func checkFreshness(g *core.GameModule, ts, now int64) error {
	if g.ResultMaxAge == 0 {
		return nil
	}
	window := int64(math.MaxInt64)
	if g.ResultMaxAge < math.MaxInt64/int64(time.Second) {
		window = g.ResultMaxAge * int64(time.Second)
	}
	lo, hi := addSat(now, -window), addSat(now, window)
	if ts < lo || ts > hi {
		return fmt.Errorf("%w: timestamp %d outside window %s of %d",
			core.ErrResultExpired, ts, time.Duration(window), now)
	}
	return nil
}

func addSat(a, b int64) int64 {
	s := a + b
	switch {
	case b > 0 && s < a:
		return math.MaxInt64
	case b < 0 && s > a:
		return math.MinInt64
	}
	return s
}

// Applied reports whether the result with the given hash was consumed.
func Applied(st core.State, hash string) (*core.ResultReceipt, bool) {
	r, err := st.GetResult(hash)
	if err != nil {
		return nil, false
	}
	return r, true
}
