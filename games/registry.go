// Package games is the game module registry: one record per game holding
// the authorized result server, its signing key, the reward multiplier and
// the per-game result sequence counter.
package games

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tolelom/scorechain/access"
	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/crypto"
)

const (
	// DefaultMultiplier is applied when a registration leaves it unset (1.0x).
	DefaultMultiplier = core.BasisPoints
	// MaxMultiplier caps the difficulty multiplier at 100x.
	MaxMultiplier = 100 * core.BasisPoints
)

// Get returns the registry record for gameID, active or not.
func Get(st core.State, gameID string) (*core.GameModule, error) {
	g, err := st.GetGame(gameID)
	if err != nil {
		return nil, fmt.Errorf("game %q: %w", gameID, err)
	}
	return g, nil
}

// GetActive returns the record for gameID or core.ErrUnknownGame when it is
// absent or revoked.
func GetActive(st core.State, gameID string) (*core.GameModule, error) {
	g, err := st.GetGame(gameID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("game %q: %w", gameID, core.ErrUnknownGame)
	}
	if err != nil {
		return nil, err
	}
	if !g.Active {
		return nil, fmt.Errorf("game %q revoked: %w", gameID, core.ErrUnknownGame)
	}
	return g, nil
}

func validate(m *core.GameModule) error {
	if !crypto.IsPubKeyHex(m.AuthorizedServer) {
		return fmt.Errorf("server %q: %w", m.AuthorizedServer, core.ErrInvalidAddress)
	}
	if !crypto.IsPubKeyHex(m.ServerPublicKey) {
		return core.ErrInvalidPublicKey
	}
	if m.DifficultyMultiplier == 0 || m.DifficultyMultiplier > MaxMultiplier {
		return fmt.Errorf("%w: %d bps", core.ErrInvalidMultiplier, m.DifficultyMultiplier)
	}
	if m.MaxScore > 0 && m.MaxScore < m.MinimumScore {
		return fmt.Errorf("score range [%d, %d]: %w", m.MinimumScore, m.MaxScore, core.ErrInvalidParams)
	}
	if m.ResultMaxAge < 0 {
		return fmt.Errorf("result max age %d: %w", m.ResultMaxAge, core.ErrInvalidParams)
	}
	return nil
}

// Register adds a game module. Registering the id of a revoked game
// reactivates it with the new settings and keeps its nonce counter, so
// sequence numbers never repeat for a game id.
func Register(c access.OwnerCap, st core.State, m core.GameModule, now int64) (*core.GameModule, error) {
	if err := c.Verify(); err != nil {
		return nil, err
	}
	m.GameID = strings.TrimSpace(m.GameID)
	if m.GameID == "" {
		return nil, core.ErrEmptyGameID
	}
	if m.DifficultyMultiplier == 0 {
		m.DifficultyMultiplier = DefaultMultiplier
	}
	if err := validate(&m); err != nil {
		return nil, err
	}

	prev, err := st.GetGame(m.GameID)
	switch {
	case err == nil && prev.Active:
		return nil, fmt.Errorf("game %q: %w", m.GameID, core.ErrDuplicateGame)
	case err == nil:
		m.NonceCounter = prev.NonceCounter
	case errors.Is(err, core.ErrNotFound):
		m.NonceCounter = 0
	default:
		return nil, err
	}
	m.Active = true
	m.RegisteredAt = now
	m.RevokedAt = 0
	if err := st.SetGame(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Revoke deactivates a game. The record stays for audit and so its consumed
// results and nonce counter survive a later re-registration. It reports
// whether the game was active; revoking a revoked game changes nothing.
func Revoke(c access.OwnerCap, st core.State, gameID string, now int64) (revoked bool, err error) {
	if err := c.Verify(); err != nil {
		return false, err
	}
	g, err := Get(st, gameID)
	if err != nil {
		return false, err
	}
	if !g.Active {
		return false, nil
	}
	g.Active = false
	g.RevokedAt = now
	return true, st.SetGame(g)
}

// update loads gameID, applies fn and re-validates before writing.
func update(c access.OwnerCap, st core.State, gameID string, fn func(g *core.GameModule)) (*core.GameModule, error) {
	if err := c.Verify(); err != nil {
		return nil, err
	}
	g, err := Get(st, gameID)
	if err != nil {
		return nil, err
	}
	fn(g)
	if err := validate(g); err != nil {
		return nil, err
	}
	if err := st.SetGame(g); err != nil {
		return nil, err
	}
	return g, nil
}

// UpdateServerKey rotates the key result signatures are checked against.
func UpdateServerKey(c access.OwnerCap, st core.State, gameID, key string) (*core.GameModule, error) {
	return update(c, st, gameID, func(g *core.GameModule) { g.ServerPublicKey = key })
}

// SetDifficultyMultiplier changes the reward multiplier (bps, 1..MaxMultiplier).
func SetDifficultyMultiplier(c access.OwnerCap, st core.State, gameID string, bps uint64) (*core.GameModule, error) {
	return update(c, st, gameID, func(g *core.GameModule) { g.DifficultyMultiplier = bps })
}

// SetMinimumScore changes the accepted score floor and ceiling (0 = none).
func SetMinimumScore(c access.OwnerCap, st core.State, gameID string, minScore, maxScore uint64) (*core.GameModule, error) {
	return update(c, st, gameID, func(g *core.GameModule) {
		g.MinimumScore = minScore
		g.MaxScore = maxScore
	})
}

// NextNonce increments the game's result counter and returns the new value.
func NextNonce(st core.State, gameID string) (uint64, error) {
	g, err := Get(st, gameID)
	if err != nil {
		return 0, err
	}
	g.NonceCounter++
	if err := st.SetGame(g); err != nil {
		return 0, err
	}
	return g.NonceCounter, nil
}

// IsAuthorized reports whether server may submit results for an active game.
func IsAuthorized(st core.State, gameID, server string) bool {
	g, err := GetActive(st, gameID)
	if err != nil {
		return false
	}
	return server != "" && g.AuthorizedServer == server
}
