// Package identity lets a player mint their own non-transferable identity.
package identity

import (
	"encoding/json"

	"github.com/tolelom/scorechain/access"
	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/events"
	"github.com/tolelom/scorechain/identity"
	"github.com/tolelom/scorechain/vm"
)

func init() {
	vm.Register(core.TxMintIdentity, handleMint)
}

func handleMint(ctx *vm.Context, _ json.RawMessage) error {
	if err := access.RequireOperational(ctx.State); err != nil {
		return err
	}
	p, err := identity.Mint(ctx.State, ctx.Tx.From, ctx.Now())
	if err != nil {
		return err
	}
	ctx.Emit(events.EventIdentityMinted, map[string]any{
		"player":    p.PlayerID,
		"minted_at": p.MintedAt,
	})
	return nil
}
