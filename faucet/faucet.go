// Package faucet exchanges bridged native credit for ledger tokens under a
// per-account daily quota. Accounts that swap often earn a growing bonus.
package faucet

import (
	"fmt"
	"time"

	"github.com/tolelom/scorechain/access"
	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/ledger"
)

const nanosPerDay = int64(24 * time.Hour)

// Day returns the UTC day number of a unix-nanosecond timestamp.
func Day(now int64) int64 {
	d := now / nanosPerDay
	if now < 0 && now%nanosPerDay != 0 {
		d--
	}
	return d
}

// SwapResult describes one executed swap.
type SwapResult struct {
	Account      string `json:"account"`
	Native       uint64 `json:"native"`
	Tokens       uint64 `json:"tokens"`
	BonusBps     uint64 `json:"bonus_bps"`
	SwappedToday uint64 `json:"swapped_today"`
}

// BonusFactor returns min(10000 + swaps*BonusStepBps, MaxBonusBps), never
// below 1.0x. It is non-decreasing in swaps.
func BonusFactor(p *core.FaucetParams, swaps uint64) uint64 {
	ceiling := p.MaxBonusBps
	if ceiling < core.BasisPoints {
		ceiling = core.BasisPoints
	}
	step := ledger.MulDiv(swaps, p.BonusStepBps, 1)
	if step > ceiling-core.BasisPoints {
		return ceiling
	}
	return core.BasisPoints + step
}

// Quote returns the tokens a swap of native units would mint right now.
func Quote(p *core.FaucetParams, rec *core.FaucetRecord, native uint64) uint64 {
	return ledger.Ratio(
		[]uint64{native, p.SwapRate, BonusFactor(p, rec.LifetimeSwaps)},
		[]uint64{core.BasisPoints},
	)
}

// DepositNative credits bridged native units to account.
func DepositNative(c access.OwnerCap, st core.State, account string, amount uint64) (*core.FaucetRecord, error) {
	if err := c.Verify(); err != nil {
		return nil, err
	}
	if account == "" || account == core.LotteryPoolAddress {
		return nil, core.ErrInvalidAddress
	}
	if amount == 0 {
		return nil, core.ErrInvalidAmount
	}
	rec, err := st.GetFaucetRecord(account)
	if err != nil {
		return nil, err
	}
	rec.NativeBalance += amount
	if err := st.SetFaucetRecord(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Swap converts native units of account into freshly minted tokens.
// The daily counter resets on the first swap of a new UTC day.
func Swap(st core.State, account string, native uint64, now int64) (*SwapResult, error) {
	if native == 0 {
		return nil, core.ErrInvalidAmount
	}
	p, err := st.GetFaucetParams()
	if err != nil {
		return nil, err
	}
	if !p.Enabled {
		return nil, core.ErrFaucetDisabled
	}
	rec, err := st.GetFaucetRecord(account)
	if err != nil {
		return nil, err
	}
	if today := Day(now); today != rec.LastSwapDay {
		rec.LastSwapDay = today
		rec.SwappedToday = 0
	}
	if rec.SwappedToday+native < rec.SwappedToday || rec.SwappedToday+native > p.DailyLimit {
		return nil, fmt.Errorf("%w: %d swapped today, limit %d", core.ErrDailyLimitExceeded, rec.SwappedToday, p.DailyLimit)
	}
	if rec.NativeBalance < native {
		return nil, fmt.Errorf("native credit: %w", core.ErrInsufficientBalance)
	}

	bonus := BonusFactor(p, rec.LifetimeSwaps)
	tokens := Quote(p, rec, native)
	if err := ledger.Mint(st, account, tokens); err != nil {
		return nil, err
	}

	rec.NativeBalance -= native
	rec.SwappedToday += native
	rec.LifetimeSwaps++
	rec.LifetimeNative += native
	if err := st.SetFaucetRecord(rec); err != nil {
		return nil, err
	}
	return &SwapResult{
		Account:      account,
		Native:       native,
		Tokens:       tokens,
		BonusBps:     bonus,
		SwappedToday: rec.SwappedToday,
	}, nil
}

func updateParams(c access.GovernanceCap, st core.State, fn func(p *core.FaucetParams) error) error {
	if err := c.Verify(); err != nil {
		return err
	}
	p, err := st.GetFaucetParams()
	if err != nil {
		return err
	}
	if err := fn(p); err != nil {
		return err
	}
	return st.SetFaucetParams(p)
}

// SetDailyLimit changes the per-account daily quota in native units.
func SetDailyLimit(c access.GovernanceCap, st core.State, limit uint64) error {
	return updateParams(c, st, func(p *core.FaucetParams) error {
		p.DailyLimit = limit
		return nil
	})
}

// UpdateSwapRate changes how many tokens one native unit buys.
func UpdateSwapRate(c access.GovernanceCap, st core.State, rate uint64) error {
	return updateParams(c, st, func(p *core.FaucetParams) error {
		if rate == 0 {
			return fmt.Errorf("swap rate 0: %w", core.ErrInvalidParams)
		}
		p.SwapRate = rate
		return nil
	})
}

// SetEnabled turns the faucet on or off.
func SetEnabled(c access.GovernanceCap, st core.State, enabled bool) error {
	return updateParams(c, st, func(p *core.FaucetParams) error {
		p.Enabled = enabled
		return nil
	})
}

// RemainingToday returns how many native units account may still swap today.
func RemainingToday(st core.State, account string, now int64) (uint64, error) {
	p, err := st.GetFaucetParams()
	if err != nil {
		return 0, err
	}
	rec, err := st.GetFaucetRecord(account)
	if err != nil {
		return 0, err
	}
	used := rec.SwappedToday
	if Day(now) != rec.LastSwapDay {
		used = 0
	}
	if used >= p.DailyLimit {
		return 0, nil
	}
	return p.DailyLimit - used, nil
}
