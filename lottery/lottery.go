// Package lottery accumulates transfer-fee participation and periodically
// pays the pool to one participant chosen with probability proportional to
// transfer volume. The pool balance itself is the ledger account
// core.LotteryPoolAddress.
package lottery

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tolelom/scorechain/access"
	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/ledger"
)

// DrawResult summarises an executed draw. Winner is empty when the round had
// no weight and the draw was a no-op.
type DrawResult struct {
	Round        uint64                     `json:"round"`
	Winner       string                     `json:"winner"`
	Amount       uint64                     `json:"amount"`
	TotalWeight  uint64                     `json:"total_weight"`
	Participants []*core.LotteryParticipant `json:"participants"`
}

// AccumulateFee records a fee-generating transfer of volume by account.
// poolAmount is the slice of the fee the ledger credited to the pool; a
// transfer that contributed nothing to the pool earns no weight.
func AccumulateFee(st core.State, account string, volume, poolAmount uint64) error {
	if poolAmount == 0 {
		return nil
	}
	p, err := st.GetParticipant(account)
	switch {
	case errors.Is(err, core.ErrNotFound):
		p = &core.LotteryParticipant{Account: account}
		lot, err := st.GetLottery()
		if err != nil {
			return err
		}
		lot.Entrants = append(lot.Entrants, account)
		if err := st.SetLottery(lot); err != nil {
			return err
		}
	case err != nil:
		return err
	}
	p.TxCount++
	p.Volume += volume
	return st.SetParticipant(p)
}

// Participants returns the current round's participants in entry order.
func Participants(st core.State) ([]*core.LotteryParticipant, error) {
	lot, err := st.GetLottery()
	if err != nil {
		return nil, err
	}
	out := make([]*core.LotteryParticipant, 0, len(lot.Entrants))
	for _, acct := range lot.Entrants {
		p, err := st.GetParticipant(acct)
		if err != nil {
			return nil, fmt.Errorf("participant %s: %w", acct, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// nextDrawAt returns the earliest time (unix nanos) a draw may execute.
func nextDrawAt(lot *core.LotteryState) int64 {
	return lot.LastDrawAt + lot.DrawInterval*int64(time.Second)
}

// TimeUntilNextDraw returns how long until a draw is due (0 once due).
func TimeUntilNextDraw(st core.State, now int64) (time.Duration, error) {
	lot, err := st.GetLottery()
	if err != nil {
		return 0, err
	}
	if d := nextDrawAt(lot) - now; d > 0 {
		return time.Duration(d), nil
	}
	return 0, nil
}

// ExecuteDraw picks a winner weighted by volume, pays the whole pool to it
// and starts a new round. Participants are reset; the returned DrawResult
// (and the event built from it) is the archive of the finished round.
func ExecuteDraw(st core.State, now int64, rnd RandomSource) (*DrawResult, error) {
	lot, err := st.GetLottery()
	if err != nil {
		return nil, err
	}
	if now < nextDrawAt(lot) {
		return nil, fmt.Errorf("%w: next draw in %s", core.ErrDrawNotDue, time.Duration(nextDrawAt(lot)-now))
	}
	parts, err := Participants(st)
	if err != nil {
		return nil, err
	}

	var total uint64
	for _, p := range parts {
		if total+p.Volume < total {
			return nil, fmt.Errorf("lottery weight overflow: %w", core.ErrInvalidParams)
		}
		total += p.Volume
	}
	res := &DrawResult{Round: lot.Round, TotalWeight: total, Participants: parts}
	if total == 0 {
		return res, nil
	}

	pick := rnd.Uint64n(total)
	for _, p := range parts {
		if pick < p.Volume {
			res.Winner = p.Account
			break
		}
		pick -= p.Volume
	}

	pool, err := ledger.PoolBalance(st)
	if err != nil {
		return nil, err
	}
	if err := ledger.Pay(st, core.LotteryPoolAddress, res.Winner, pool); err != nil {
		return nil, err
	}
	res.Amount = pool

	for _, p := range parts {
		if err := st.DeleteParticipant(p.Account); err != nil {
			return nil, err
		}
	}
	lot.Entrants = nil
	lot.Round++
	lot.LastDrawAt = now
	lot.LastWinner = res.Winner
	lot.LastPayout = pool
	if err := st.SetLottery(lot); err != nil {
		return nil, err
	}
	return res, nil
}

// MaxDrawInterval is the longest interval whose nanosecond value fits an int64.
const MaxDrawInterval = math.MaxInt64 / int64(time.Second)

// ValidateDrawInterval rejects intervals outside [1, MaxDrawInterval] seconds.
func ValidateDrawInterval(interval int64) error {
	if interval <= 0 || interval > MaxDrawInterval {
		return fmt.Errorf("draw interval %d: %w", interval, core.ErrInvalidParams)
	}
	return nil
}

// SetDrawInterval changes the minimum time between draws, in seconds.
func SetDrawInterval(c access.GovernanceCap, st core.State, interval int64) error {
	if err := c.Verify(); err != nil {
		return err
	}
	if err := ValidateDrawInterval(interval); err != nil {
		return err
	}
	lot, err := st.GetLottery()
	if err != nil {
		return err
	}
	lot.DrawInterval = interval
	return st.SetLottery(lot)
}
