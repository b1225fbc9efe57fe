// Package economy holds the token ledger transactions: transfer, burn,
// staking and governance of the token parameters.
package economy

import (
	"encoding/json"

	"github.com/tolelom/scorechain/access"
	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/events"
	"github.com/tolelom/scorechain/ledger"
	"github.com/tolelom/scorechain/lottery"
	"github.com/tolelom/scorechain/vm"
)

func init() {
	vm.Register(core.TxTransfer, handleTransfer)
	vm.Register(core.TxBurn, handleBurn)
	vm.Register(core.TxStake, handleStake)
	vm.Register(core.TxUnstake, handleUnstake)
	vm.Register(core.TxUpdateParams, handleUpdateParams)
}

func handleTransfer(ctx *vm.Context, payload json.RawMessage) error {
	var p core.TransferPayload
	if err := vm.Decode(ctx, payload, &p); err != nil {
		return err
	}
	if err := access.RequireOperational(ctx.State); err != nil {
		return err
	}
	split, err := ledger.Transfer(ctx.State, ctx.Tx.From, p.To, p.Amount)
	if err != nil {
		return err
	}
	if err := lottery.AccumulateFee(ctx.State, ctx.Tx.From, p.Amount, split.Pool); err != nil {
		return err
	}
	ctx.Emit(events.EventTokenTransfer, map[string]any{
		"from":     ctx.Tx.From,
		"to":       p.To,
		"amount":   split.Amount,
		"received": split.Received,
		"fee":      split.Fee,
		"burned":   split.Burned,
		"pool":     split.Pool,
	})
	return nil
}

func handleBurn(ctx *vm.Context, payload json.RawMessage) error {
	var p core.AmountPayload
	if err := vm.Decode(ctx, payload, &p); err != nil {
		return err
	}
	if err := access.RequireOperational(ctx.State); err != nil {
		return err
	}
	if err := ledger.Burn(ctx.State, ctx.Tx.From, p.Amount); err != nil {
		return err
	}
	ctx.Emit(events.EventTokenBurned, map[string]any{"from": ctx.Tx.From, "amount": p.Amount})
	return nil
}

func handleStake(ctx *vm.Context, payload json.RawMessage) error {
	var p core.AmountPayload
	if err := vm.Decode(ctx, payload, &p); err != nil {
		return err
	}
	if err := access.RequireOperational(ctx.State); err != nil {
		return err
	}
	if err := ledger.Stake(ctx.State, ctx.Tx.From, p.Amount, ctx.Now()); err != nil {
		return err
	}
	ctx.Emit(events.EventTokensStaked, map[string]any{"account": ctx.Tx.From, "amount": p.Amount})
	return nil
}

func handleUnstake(ctx *vm.Context, payload json.RawMessage) error {
	var p core.AmountPayload
	if err := vm.Decode(ctx, payload, &p); err != nil {
		return err
	}
	if err := access.RequireOperational(ctx.State); err != nil {
		return err
	}
	reward, err := ledger.Unstake(ctx.State, ctx.Tx.From, p.Amount, ctx.Now())
	if err != nil {
		return err
	}
	if reward > 0 {
		ctx.Emit(events.EventRewardMinted, map[string]any{
			"to":     ctx.Tx.From,
			"amount": reward,
			"reason": "staking",
		})
	}
	ctx.Emit(events.EventTokensUnstaked, map[string]any{
		"account": ctx.Tx.From,
		"amount":  p.Amount,
		"reward":  reward,
	})
	return nil
}

func handleUpdateParams(ctx *vm.Context, payload json.RawMessage) error {
	var p core.UpdateParamsPayload
	if err := vm.Decode(ctx, payload, &p); err != nil {
		return err
	}
	gc, err := access.RequireGovernance(ctx.State, ctx.Tx.From)
	if err != nil {
		return err
	}
	if err := ledger.UpdateParams(gc, ctx.State, p.Params); err != nil {
		return err
	}
	ctx.Emit(events.EventParamsUpdated, map[string]any{
		"transfer_fee_bps":   p.Params.TransferFeeBps,
		"burn_fee_bps":       p.Params.BurnFeeBps,
		"staking_reward_bps": p.Params.StakingRewardBps,
		"reward_period":      p.Params.RewardPeriod,
		"minting_enabled":    p.Params.MintingEnabled,
	})
	return nil
}
