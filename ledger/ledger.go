// Package ledger implements the capped fungible token: balances, mint and
// burn, the fee-on-transfer split between burn and the lottery pool, and the
// staking sub-ledger. Every function operates on a core.State inside the
// executor's transaction, so a returned error means nothing was applied.
package ledger

import (
	"fmt"

	"github.com/tolelom/scorechain/access"
	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/crypto"
)

// FeeSplit describes how a transfer amount was distributed.
type FeeSplit struct {
	Amount   uint64 `json:"amount"`
	Fee      uint64 `json:"fee"`
	Burned   uint64 `json:"burned"`
	Pool     uint64 `json:"pool"`
	Received uint64 `json:"received"`
}

// SplitFee computes the fee split for amount under p.
// fee = amount*TransferFeeBps/10000, burned = fee*BurnFeeBps/TransferFeeBps.
func SplitFee(p *core.TokenParams, amount uint64) FeeSplit {
	fee := MulDiv(amount, p.TransferFeeBps, core.BasisPoints)
	var burned uint64
	if p.TransferFeeBps > 0 {
		burned = MulDiv(fee, p.BurnFeeBps, p.TransferFeeBps)
	}
	if burned > fee {
		burned = fee
	}
	return FeeSplit{
		Amount:   amount,
		Fee:      fee,
		Burned:   burned,
		Pool:     fee - burned,
		Received: amount - fee,
	}
}

// ValidateParams checks BurnFeeBps <= TransferFeeBps <= 10000 and that a
// staking reward rate comes with a reward period.
func ValidateParams(p *core.TokenParams) error {
	if p.TransferFeeBps > core.BasisPoints {
		return fmt.Errorf("transfer fee %d bps: %w", p.TransferFeeBps, core.ErrInvalidParams)
	}
	if p.BurnFeeBps > p.TransferFeeBps {
		return fmt.Errorf("burn fee %d bps exceeds transfer fee: %w", p.BurnFeeBps, core.ErrInvalidParams)
	}
	if p.RewardPeriod < 0 || (p.StakingRewardBps > 0 && p.RewardPeriod == 0) {
		return fmt.Errorf("reward period %d: %w", p.RewardPeriod, core.ErrInvalidParams)
	}
	return nil
}

// UpdateParams replaces the token parameter singleton.
func UpdateParams(c access.GovernanceCap, st core.State, p core.TokenParams) error {
	if err := c.Verify(); err != nil {
		return err
	}
	if err := ValidateParams(&p); err != nil {
		return err
	}
	return st.SetTokenParams(&p)
}

func credit(st core.State, addr string, amount uint64) error {
	acc, err := st.GetAccount(addr)
	if err != nil {
		return err
	}
	acc.Balance += amount
	return st.SetAccount(acc)
}

func debit(st core.State, addr string, amount uint64) error {
	acc, err := st.GetAccount(addr)
	if err != nil {
		return err
	}
	if acc.Balance < amount {
		return fmt.Errorf("%w: have %d, need %d", core.ErrInsufficientBalance, acc.Balance, amount)
	}
	acc.Balance -= amount
	return st.SetAccount(acc)
}

// Mint creates amount new tokens for to.
func Mint(st core.State, to string, amount uint64) error {
	if to == "" {
		return core.ErrInvalidAddress
	}
	params, err := st.GetTokenParams()
	if err != nil {
		return err
	}
	if !params.MintingEnabled {
		return core.ErrMintingDisabled
	}
	if amount == 0 {
		return nil
	}
	sup, err := st.GetSupply()
	if err != nil {
		return err
	}
	if amount > sup.Remaining() {
		return fmt.Errorf("%w: mint %d, remaining %d", core.ErrSupplyCapExceeded, amount, sup.Remaining())
	}
	if err := credit(st, to, amount); err != nil {
		return err
	}
	sup.Total += amount
	sup.Minted += amount
	return st.SetSupply(sup)
}

// MintCapped mints min(amount, remaining supply) and returns what was minted.
// Disabled minting is still an error.
func MintCapped(st core.State, to string, amount uint64) (uint64, error) {
	sup, err := st.GetSupply()
	if err != nil {
		return 0, err
	}
	if r := sup.Remaining(); amount > r {
		amount = r
	}
	if err := Mint(st, to, amount); err != nil {
		return 0, err
	}
	return amount, nil
}

// Burn destroys amount tokens from the liquid balance of from.
func Burn(st core.State, from string, amount uint64) error {
	if amount == 0 {
		return core.ErrInvalidAmount
	}
	if err := debit(st, from, amount); err != nil {
		return err
	}
	sup, err := st.GetSupply()
	if err != nil {
		return err
	}
	sup.Total -= amount
	sup.Burned += amount
	return st.SetSupply(sup)
}

// Pay moves tokens between accounts without a fee. It is the internal path
// used for lottery payouts.
func Pay(st core.State, from, to string, amount uint64) error {
	if to == "" {
		return core.ErrInvalidAddress
	}
	if amount == 0 {
		return nil
	}
	if err := debit(st, from, amount); err != nil {
		return err
	}
	return credit(st, to, amount)
}

// Transfer moves amount from one account to another and applies the
// transfer fee: the recipient receives amount-fee, the burned share leaves
// the supply and the rest is credited to the lottery pool account.
func Transfer(st core.State, from, to string, amount uint64) (FeeSplit, error) {
	if amount == 0 {
		return FeeSplit{}, core.ErrInvalidAmount
	}
	if !crypto.IsPubKeyHex(to) {
		return FeeSplit{}, fmt.Errorf("recipient %q: %w", to, core.ErrInvalidAddress)
	}
	params, err := st.GetTokenParams()
	if err != nil {
		return FeeSplit{}, err
	}
	split := SplitFee(params, amount)

	if err := debit(st, from, amount); err != nil {
		return FeeSplit{}, err
	}
	if err := credit(st, to, split.Received); err != nil {
		return FeeSplit{}, err
	}
	if split.Pool > 0 {
		if err := credit(st, core.LotteryPoolAddress, split.Pool); err != nil {
			return FeeSplit{}, err
		}
	}
	if split.Burned > 0 {
		sup, err := st.GetSupply()
		if err != nil {
			return FeeSplit{}, err
		}
		sup.Total -= split.Burned
		sup.Burned += split.Burned
		if err := st.SetSupply(sup); err != nil {
			return FeeSplit{}, err
		}
	}
	return split, nil
}

// BalanceOf returns the liquid balance of addr.
func BalanceOf(st core.State, addr string) (uint64, error) {
	acc, err := st.GetAccount(addr)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// PoolBalance returns the current lottery pool balance.
func PoolBalance(st core.State) (uint64, error) {
	return BalanceOf(st, core.LotteryPoolAddress)
}
