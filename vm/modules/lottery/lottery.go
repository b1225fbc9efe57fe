// Package lottery exposes the periodic draw as a transaction. Anyone may
// trigger a draw once it is due.
package lottery

import (
	"encoding/json"

	"github.com/tolelom/scorechain/access"
	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/events"
	"github.com/tolelom/scorechain/lottery"
	"github.com/tolelom/scorechain/vm"
)

func init() {
	vm.Register(core.TxExecuteDraw, handleExecuteDraw)
	vm.Register(core.TxSetDrawInterval, handleSetDrawInterval)
}

func handleExecuteDraw(ctx *vm.Context, _ json.RawMessage) error {
	if err := access.RequireOperational(ctx.State); err != nil {
		return err
	}
	res, err := lottery.ExecuteDraw(ctx.State, ctx.Now(), ctx.Rand())
	if err != nil {
		return err
	}
	if res.Winner == "" {
		return nil
	}
	weights := make(map[string]any, len(res.Participants))
	for _, p := range res.Participants {
		weights[p.Account] = p.Volume
	}
	data := map[string]any{
		"round":        res.Round,
		"winner":       res.Winner,
		"amount":       res.Amount,
		"total_weight": res.TotalWeight,
		"weights":      weights,
	}
	if p, ok := ctx.Rand().(interface{ Proof() string }); ok {
		data["beacon"] = p.Proof()
	}
	ctx.Emit(events.EventLotteryDraw, data)
	return nil
}

func handleSetDrawInterval(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetDrawIntervalPayload
	if err := vm.Decode(ctx, payload, &p); err != nil {
		return err
	}
	gc, err := access.RequireGovernance(ctx.State, ctx.Tx.From)
	if err != nil {
		return err
	}
	if err := lottery.SetDrawInterval(gc, ctx.State, p.Interval); err != nil {
		return err
	}
	ctx.Emit(events.EventParamsUpdated, map[string]any{"draw_interval": p.Interval})
	return nil
}
