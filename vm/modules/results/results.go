// Package results applies game results submitted by authorized servers.
package results

import (
	"encoding/json"

	"github.com/tolelom/scorechain/access"
	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/events"
	"github.com/tolelom/scorechain/verifier"
	"github.com/tolelom/scorechain/vm"
)

func init() {
	vm.Register(core.TxSubmitResult, handleSubmit)
}

func handleSubmit(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SubmitResultPayload
	if err := vm.Decode(ctx, payload, &p); err != nil {
		return err
	}
	if err := access.RequireOperational(ctx.State); err != nil {
		return err
	}
	out, err := verifier.Submit(ctx.State, ctx.Tx.From, &p, ctx.Now(), ctx.Tx.ID)
	if err != nil {
		return err
	}
	if out.Reward > 0 {
		ctx.Emit(events.EventRewardMinted, map[string]any{
			"to":     out.Player,
			"amount": out.Reward,
			"reason": "result",
		})
	}
	ctx.Emit(events.EventResultApplied, map[string]any{
		"hash":     out.Hash,
		"player":   out.Player,
		"game_id":  out.GameID,
		"score":    out.Score,
		"win":      out.Win,
		"reward":   out.Reward,
		"sequence": out.Sequence,
		"tx_ref":   out.TxID,
	})
	return nil
}
