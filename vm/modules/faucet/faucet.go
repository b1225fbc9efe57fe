// Package faucet exposes the native-to-token exchange and its controls.
package faucet

import (
	"encoding/json"

	"github.com/tolelom/scorechain/access"
	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/events"
	"github.com/tolelom/scorechain/faucet"
	"github.com/tolelom/scorechain/vm"
)

func init() {
	vm.Register(core.TxDepositNative, handleDeposit)
	vm.Register(core.TxSwap, handleSwap)
	vm.Register(core.TxSetDailyLimit, handleSetDailyLimit)
	vm.Register(core.TxUpdateSwapRate, handleUpdateSwapRate)
	vm.Register(core.TxSetFaucetEnabled, handleSetEnabled)
}

func handleDeposit(ctx *vm.Context, payload json.RawMessage) error {
	var p core.DepositNativePayload
	if err := vm.Decode(ctx, payload, &p); err != nil {
		return err
	}
	oc, err := access.RequireOwner(ctx.State, ctx.Tx.From)
	if err != nil {
		return err
	}
	rec, err := faucet.DepositNative(oc, ctx.State, p.Account, p.Amount)
	if err != nil {
		return err
	}
	ctx.Emit(events.EventNativeDeposited, map[string]any{
		"account": p.Account,
		"amount":  p.Amount,
		"balance": rec.NativeBalance,
	})
	return nil
}

func handleSwap(ctx *vm.Context, payload json.RawMessage) error {
	var p core.AmountPayload
	if err := vm.Decode(ctx, payload, &p); err != nil {
		return err
	}
	if err := access.RequireOperational(ctx.State); err != nil {
		return err
	}
	res, err := faucet.Swap(ctx.State, ctx.Tx.From, p.Amount, ctx.Now())
	if err != nil {
		return err
	}
	ctx.Emit(events.EventRewardMinted, map[string]any{
		"to":     res.Account,
		"amount": res.Tokens,
		"reason": "faucet",
	})
	ctx.Emit(events.EventFaucetSwap, map[string]any{
		"account":       res.Account,
		"native":        res.Native,
		"tokens":        res.Tokens,
		"bonus_bps":     res.BonusBps,
		"swapped_today": res.SwappedToday,
	})
	return nil
}

// governance decodes payload and runs fn with the sender's governance capability.
func governance(ctx *vm.Context, payload json.RawMessage, v any, fn func(gc access.GovernanceCap) error) error {
	if err := vm.Decode(ctx, payload, v); err != nil {
		return err
	}
	gc, err := access.RequireGovernance(ctx.State, ctx.Tx.From)
	if err != nil {
		return err
	}
	if err := fn(gc); err != nil {
		return err
	}
	ctx.Emit(events.EventParamsUpdated, map[string]any{"faucet": v})
	return nil
}

func handleSetDailyLimit(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetDailyLimitPayload
	return governance(ctx, payload, &p, func(gc access.GovernanceCap) error {
		return faucet.SetDailyLimit(gc, ctx.State, p.Limit)
	})
}

func handleUpdateSwapRate(ctx *vm.Context, payload json.RawMessage) error {
	var p core.UpdateSwapRatePayload
	return governance(ctx, payload, &p, func(gc access.GovernanceCap) error {
		return faucet.UpdateSwapRate(gc, ctx.State, p.Rate)
	})
}

func handleSetEnabled(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetFaucetEnabledPayload
	return governance(ctx, payload, &p, func(gc access.GovernanceCap) error {
		return faucet.SetEnabled(gc, ctx.State, p.Enabled)
	})
}
