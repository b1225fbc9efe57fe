package ledger

import (
	"fmt"
	"time"

	"github.com/tolelom/scorechain/core"
)

// Stake moves amount from the liquid balance into the account's stake
// position. The position's Since is reset to now for the whole principal, so
// re-staking forfeits any reward accrued so far.
func Stake(st core.State, account string, amount uint64, now int64) error {
	if amount == 0 {
		return core.ErrInvalidAmount
	}
	if err := debit(st, account, amount); err != nil {
		return err
	}
	pos, err := st.GetStake(account)
	if err != nil {
		return err
	}
	pos.Principal += amount
	pos.Since = now
	if err := st.SetStake(pos); err != nil {
		return err
	}
	sup, err := st.GetSupply()
	if err != nil {
		return err
	}
	sup.Staked += amount
	return st.SetSupply(sup)
}

// Reward returns amount*rateBps*elapsed / (10000*period) where elapsed is
// whole seconds between since and now. It is linear in elapsed time and
// never negative.
func Reward(p *core.TokenParams, amount uint64, since, now int64) uint64 {
	if now <= since || p.RewardPeriod <= 0 {
		return 0
	}
	elapsed := uint64((now - since) / int64(time.Second))
	return Ratio(
		[]uint64{amount, p.StakingRewardBps, elapsed},
		[]uint64{core.BasisPoints, uint64(p.RewardPeriod)},
	)
}

// Unstake returns amount of principal plus its accrued reward to the liquid
// balance. The reward is newly minted, clamped to the remaining supply, and
// zero while minting is disabled; the principal is always returned.
func Unstake(st core.State, account string, amount uint64, now int64) (uint64, error) {
	if amount == 0 {
		return 0, core.ErrInvalidAmount
	}
	pos, err := st.GetStake(account)
	if err != nil {
		return 0, err
	}
	if pos.Principal < amount {
		return 0, fmt.Errorf("%w: staked %d, requested %d", core.ErrInsufficientStake, pos.Principal, amount)
	}
	params, err := st.GetTokenParams()
	if err != nil {
		return 0, err
	}
	sup, err := st.GetSupply()
	if err != nil {
		return 0, err
	}

	var reward uint64
	if params.MintingEnabled {
		reward = Reward(params, amount, pos.Since, now)
		if r := sup.Remaining(); reward > r {
			reward = r
		}
	}

	pos.Principal -= amount
	if pos.Principal == 0 {
		err = st.DeleteStake(account)
	} else {
		err = st.SetStake(pos)
	}
	if err != nil {
		return 0, err
	}
	if err := credit(st, account, amount+reward); err != nil {
		return 0, err
	}
	sup.Staked -= amount
	sup.Total += reward
	sup.Minted += reward
	if err := st.SetSupply(sup); err != nil {
		return 0, err
	}
	return reward, nil
}

// StakedBalance returns the staked principal of account.
func StakedBalance(st core.State, account string) (uint64, error) {
	pos, err := st.GetStake(account)
	if err != nil {
		return 0, err
	}
	return pos.Principal, nil
}

// PendingReward is the reward the whole position would earn if unstaked at
// now, before the supply cap is applied.
func PendingReward(st core.State, account string, now int64) (uint64, error) {
	pos, err := st.GetStake(account)
	if err != nil {
		return 0, err
	}
	params, err := st.GetTokenParams()
	if err != nil {
		return 0, err
	}
	if !params.MintingEnabled {
		return 0, nil
	}
	return Reward(params, pos.Principal, pos.Since, now), nil
}
