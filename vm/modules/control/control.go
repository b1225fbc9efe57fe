// Package control holds role hand-over and the global pause switch.
package control

import (
	"encoding/json"

	"github.com/tolelom/scorechain/access"
	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/events"
	"github.com/tolelom/scorechain/vm"
)

func init() {
	vm.Register(core.TxTransferRole, handleTransferRole)
	vm.Register(core.TxSetPaused, handleSetPaused)
}

func handleTransferRole(ctx *vm.Context, payload json.RawMessage) error {
	var p core.TransferRolePayload
	if err := vm.Decode(ctx, payload, &p); err != nil {
		return err
	}
	if err := access.TransferRole(ctx.State, ctx.Tx.From, p.Role, p.To); err != nil {
		return err
	}
	ctx.Emit(events.EventRoleTransferred, map[string]any{
		"role": p.Role,
		"from": ctx.Tx.From,
		"to":   p.To,
	})
	return nil
}

func handleSetPaused(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetPausedPayload
	if err := vm.Decode(ctx, payload, &p); err != nil {
		return err
	}
	gc, err := access.RequireGovernance(ctx.State, ctx.Tx.From)
	if err != nil {
		return err
	}
	if err := access.SetPaused(gc, ctx.State, p.Paused); err != nil {
		return err
	}
	ctx.Emit(events.EventPauseChanged, map[string]any{"paused": p.Paused})
	return nil
}
