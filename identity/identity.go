// Package identity manages the non-transferable player record. A record is
// minted once per player and afterwards only the result verifier adds to it.
// There is deliberately no transfer or delete operation.
package identity

import (
	"errors"
	"fmt"

	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/crypto"
)

// Mint creates the identity record for player.
func Mint(st core.State, player string, now int64) (*core.PlayerStats, error) {
	if !crypto.IsPubKeyHex(player) {
		return nil, fmt.Errorf("player %q: %w", player, core.ErrInvalidAddress)
	}
	_, err := st.GetPlayer(player)
	if err == nil {
		return nil, fmt.Errorf("player %s: %w", player, core.ErrIdentityExists)
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	p := &core.PlayerStats{
		PlayerID: player,
		PerGame:  make(map[string]*core.GameStat),
		MintedAt: now,
	}
	if err := st.SetPlayer(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns the identity of player or core.ErrIdentityNotFound.
func Get(st core.State, player string) (*core.PlayerStats, error) {
	p, err := st.GetPlayer(player)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("player %s: %w", player, core.ErrIdentityNotFound)
	}
	if err != nil {
		return nil, err
	}
	if p.PerGame == nil {
		p.PerGame = make(map[string]*core.GameStat)
	}
	return p, nil
}

// Has reports whether player holds an identity.
func Has(st core.State, player string) bool {
	_, err := st.GetPlayer(player)
	return err == nil
}

// RecordResult adds one verified result to the player's aggregates. Every
// counter only grows.
func RecordResult(st core.State, player, gameID string, score uint64, win bool) (*core.PlayerStats, error) {
	p, err := Get(st, player)
	if err != nil {
		return nil, err
	}
	gs := p.PerGame[gameID]
	if gs == nil {
		gs = &core.GameStat{}
		p.PerGame[gameID] = gs
	}
	p.TotalGamesPlayed++
	p.TotalPoints += score
	gs.Plays++
	gs.Score += score
	if score > gs.BestScore {
		gs.BestScore = score
	}
	if win {
		p.TotalWins++
		gs.Wins++
	}
	if err := st.SetPlayer(p); err != nil {
		return nil, err
	}
	return p, nil
}

// AddRewards records tokens minted to the player for verified results.
func AddRewards(st core.State, player string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	p, err := Get(st, player)
	if err != nil {
		return err
	}
	p.TotalRewards += amount
	return st.SetPlayer(p)
}
