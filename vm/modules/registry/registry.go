// Package registry holds the owner-only transactions that manage game modules.
package registry

import (
	"encoding/json"

	"github.com/tolelom/scorechain/access"
	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/events"
	"github.com/tolelom/scorechain/games"
	"github.com/tolelom/scorechain/vm"
)

func init() {
	vm.Register(core.TxRegisterGame, handleRegister)
	vm.Register(core.TxRevokeGame, handleRevoke)
	vm.Register(core.TxUpdateServerKey, handleUpdateServerKey)
	vm.Register(core.TxSetDifficulty, handleSetDifficulty)
	vm.Register(core.TxSetMinimumScore, handleSetMinimumScore)
}

func gameData(g *core.GameModule) map[string]any {
	return map[string]any{
		"game_id":               g.GameID,
		"authorized_server":     g.AuthorizedServer,
		"server_public_key":     g.ServerPublicKey,
		"difficulty_multiplier": g.DifficultyMultiplier,
		"minimum_score":         g.MinimumScore,
		"max_score":             g.MaxScore,
		"active":                g.Active,
	}
}

func handleRegister(ctx *vm.Context, payload json.RawMessage) error {
	var p core.RegisterGamePayload
	if err := vm.Decode(ctx, payload, &p); err != nil {
		return err
	}
	oc, err := access.RequireOwner(ctx.State, ctx.Tx.From)
	if err != nil {
		return err
	}
	g, err := games.Register(oc, ctx.State, core.GameModule{
		GameID:               p.GameID,
		AuthorizedServer:     p.Server,
		ServerPublicKey:      p.PublicKey,
		DifficultyMultiplier: p.DifficultyMultiplier,
		MinimumScore:         p.MinimumScore,
		MaxScore:             p.MaxScore,
		ResultMaxAge:         p.ResultMaxAge,
		MetadataURI:          p.MetadataURI,
	}, ctx.Now())
	if err != nil {
		return err
	}
	ctx.Emit(events.EventGameRegistered, gameData(g))
	return nil
}

func handleRevoke(ctx *vm.Context, payload json.RawMessage) error {
	var p core.GameIDPayload
	if err := vm.Decode(ctx, payload, &p); err != nil {
		return err
	}
	oc, err := access.RequireOwner(ctx.State, ctx.Tx.From)
	if err != nil {
		return err
	}
	revoked, err := games.Revoke(oc, ctx.State, p.GameID, ctx.Now())
	if err != nil || !revoked {
		return err
	}
	ctx.Emit(events.EventGameRevoked, map[string]any{"game_id": p.GameID})
	return nil
}

func handleUpdateServerKey(ctx *vm.Context, payload json.RawMessage) error {
	var p core.UpdateServerKeyPayload
	if err := vm.Decode(ctx, payload, &p); err != nil {
		return err
	}
	oc, err := access.RequireOwner(ctx.State, ctx.Tx.From)
	if err != nil {
		return err
	}
	g, err := games.UpdateServerKey(oc, ctx.State, p.GameID, p.PublicKey)
	if err != nil {
		return err
	}
	ctx.Emit(events.EventGameUpdated, gameData(g))
	return nil
}

func handleSetDifficulty(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetDifficultyPayload
	if err := vm.Decode(ctx, payload, &p); err != nil {
		return err
	}
	oc, err := access.RequireOwner(ctx.State, ctx.Tx.From)
	if err != nil {
		return err
	}
	g, err := games.SetDifficultyMultiplier(oc, ctx.State, p.GameID, p.Multiplier)
	if err != nil {
		return err
	}
	ctx.Emit(events.EventGameUpdated, gameData(g))
	return nil
}

func handleSetMinimumScore(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetMinimumScorePayload
	if err := vm.Decode(ctx, payload, &p); err != nil {
		return err
	}
	oc, err := access.RequireOwner(ctx.State, ctx.Tx.From)
	if err != nil {
		return err
	}
	g, err := games.SetMinimumScore(oc, ctx.State, p.GameID, p.MinimumScore, p.MaxScore)
	if err != nil {
		return err
	}
	ctx.Emit(events.EventGameUpdated, gameData(g))
	return nil
}
