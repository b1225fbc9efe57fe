package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tolelom/scorechain/access"
	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/faucet"
	"github.com/tolelom/scorechain/games"
	"github.com/tolelom/scorechain/identity"
	"github.com/tolelom/scorechain/indexer"
	"github.com/tolelom/scorechain/ledger"
	"github.com/tolelom/scorechain/lottery"
	"github.com/tolelom/scorechain/vm"
)

// Submitter admits a transaction and reports its outcome synchronously.
type Submitter interface {
	Submit(tx *core.Transaction) error
}

// Handler holds all dependencies needed to serve RPC methods. Every state
// read goes through the executor's read lock.
type Handler struct {
	bc      *core.Blockchain
	mempool *core.Mempool
	exec    *vm.Executor
	seq     Submitter
	indexer *indexer.Indexer
	chainID string // expected chain_id; used to reject cross-chain replay transactions
	now     func() time.Time
}

// NewHandler creates an RPC Handler.
func NewHandler(bc *core.Blockchain, mempool *core.Mempool, exec *vm.Executor, seq Submitter, idx *indexer.Indexer, chainID string) *Handler {
	return &Handler{
		bc:      bc,
		mempool: mempool,
		exec:    exec,
		seq:     seq,
		indexer: idx,
		chainID: chainID,
		now:     time.Now,
	}
}

// SetClock replaces the clock used for time-dependent queries.
func (h *Handler) SetClock(now func() time.Time) { h.now = now }

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "sendTx":
		return h.sendTx(req)
	case "getTxReceipt":
		return h.getTxReceipt(req)

	case "getPlayerStats":
		return h.getPlayerStats(req)
	case "getBalance":
		return h.getBalance(req)
	case "getStakedBalance":
		return h.getStakedBalance(req)
	case "getGameModule":
		return h.getGameModule(req)
	case "getPoolBalance":
		return h.query(req, func(st core.State) (any, error) {
			bal, err := ledger.PoolBalance(st)
			return map[string]any{"balance": bal}, err
		})
	case "getTimeUntilNextDraw":
		return h.query(req, func(st core.State) (any, error) {
			d, err := lottery.TimeUntilNextDraw(st, h.now().UnixNano())
			return map[string]any{"seconds": int64(d / time.Second), "due": d == 0}, err
		})
	case "isSystemOperational":
		return h.query(req, func(st core.State) (any, error) {
			return access.IsOperational(st)
		})
	case "getSupply":
		return h.query(req, func(st core.State) (any, error) {
			sup, err := st.GetSupply()
			if err != nil {
				return nil, err
			}
			return map[string]any{"supply": sup, "remaining": sup.Remaining()}, nil
		})
	case "getTokenParams":
		return h.query(req, func(st core.State) (any, error) {
			p, err := st.GetTokenParams()
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"params":              p,
				"transfer_fee_rate":   bpsRatio(p.TransferFeeBps),
				"staking_reward_rate": bpsRatio(p.StakingRewardBps),
			}, nil
		})
	case "getFaucetRecord":
		return h.getFaucetRecord(req)
	case "getLotteryState":
		return h.query(req, func(st core.State) (any, error) {
			lot, err := st.GetLottery()
			if err != nil {
				return nil, err
			}
			parts, err := lottery.Participants(st)
			if err != nil {
				return nil, err
			}
			return map[string]any{"state": lot, "participants": parts}, nil
		})

	case "getResultsByPlayer":
		return h.getResultsByPlayer(req)
	case "getDrawHistory":
		hist, err := h.indexer.GetDrawHistory()
		if err != nil {
			return errResponse(req.ID, CodeInternalError, err.Error())
		}
		return okResponse(req.ID, hist)

	case "getBlockHeight":
		return okResponse(req.ID, h.bc.Height())
	case "getBlock":
		return h.getBlock(req)
	case "getPendingCount":
		return okResponse(req.ID, h.mempool.Size())

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

// query runs fn under the executor's read lock and wraps its result.
func (h *Handler) query(req Request, fn func(st core.State) (any, error)) Response {
	var out any
	err := h.exec.Query(func(st core.State) error {
		var err error
		out, err = fn(st)
		return err
	})
	if err != nil {
		return domainError(req.ID, err)
	}
	return okResponse(req.ID, out)
}

// decodeParams unmarshals req.Params into v and rejects an empty value for
// the named required field.
func decodeParams(req Request, v any, field string, value *string) (Response, bool) {
	if err := json.Unmarshal(req.Params, v); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error()), false
	}
	if *value == "" {
		return errResponse(req.ID, CodeInvalidParams, field+" is required"), false
	}
	return Response{}, true
}

func bpsRatio(bps uint64) decimal.Decimal {
	return decimal.New(int64(bps), -4)
}

func (h *Handler) sendTx(req Request) Response {
	var tx core.Transaction
	if err := json.Unmarshal(req.Params, &tx); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	// Reject transactions destined for a different network to prevent
	// cross-chain replay attacks.
	if tx.ChainID != h.chainID {
		return errResponse(req.ID, CodeInvalidParams,
			fmt.Sprintf("chain ID mismatch: got %q want %q", tx.ChainID, h.chainID))
	}
	// Recompute the ID server-side; do not trust the client-provided value.
	tx.ID = tx.Hash()
	if err := h.seq.Submit(&tx); err != nil {
		return domainError(req.ID, err)
	}
	return okResponse(req.ID, map[string]string{"tx_id": tx.ID})
}

func (h *Handler) getTxReceipt(req Request) Response {
	var p struct {
		TxID string `json:"tx_id"`
	}
	if resp, ok := decodeParams(req, &p, "tx_id", &p.TxID); !ok {
		return resp
	}
	r, err := h.indexer.GetReceipt(p.TxID)
	if err != nil {
		return domainError(req.ID, err)
	}
	return okResponse(req.ID, map[string]any{
		"receipt": r,
		"sealed":  r.BlockHeight <= h.bc.Height(),
	})
}

func (h *Handler) getPlayerStats(req Request) Response {
	var p struct {
		Player string `json:"player"`
	}
	if resp, ok := decodeParams(req, &p, "player", &p.Player); !ok {
		return resp
	}
	return h.query(req, func(st core.State) (any, error) {
		return identity.Get(st, p.Player)
	})
}

func (h *Handler) getBalance(req Request) Response {
	var p struct {
		Address string `json:"address"`
	}
	if resp, ok := decodeParams(req, &p, "address", &p.Address); !ok {
		return resp
	}
	return h.query(req, func(st core.State) (any, error) {
		acc, err := st.GetAccount(p.Address)
		if err != nil {
			return nil, err
		}
		return map[string]any{"address": p.Address, "balance": acc.Balance, "nonce": acc.Nonce}, nil
	})
}

func (h *Handler) getStakedBalance(req Request) Response {
	var p struct {
		Address string `json:"address"`
	}
	if resp, ok := decodeParams(req, &p, "address", &p.Address); !ok {
		return resp
	}
	return h.query(req, func(st core.State) (any, error) {
		pos, err := st.GetStake(p.Address)
		if err != nil {
			return nil, err
		}
		reward, err := ledger.PendingReward(st, p.Address, h.now().UnixNano())
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"address":        p.Address,
			"staked":         pos.Principal,
			"since":          pos.Since,
			"pending_reward": reward,
		}, nil
	})
}

func (h *Handler) getGameModule(req Request) Response {
	var p struct {
		GameID string `json:"game_id"`
	}
	if resp, ok := decodeParams(req, &p, "game_id", &p.GameID); !ok {
		return resp
	}
	return h.query(req, func(st core.State) (any, error) {
		g, err := games.Get(st, p.GameID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"module": g, "multiplier": bpsRatio(g.DifficultyMultiplier)}, nil
	})
}

func (h *Handler) getFaucetRecord(req Request) Response {
	var p struct {
		Account string `json:"account"`
	}
	if resp, ok := decodeParams(req, &p, "account", &p.Account); !ok {
		return resp
	}
	return h.query(req, func(st core.State) (any, error) {
		rec, err := st.GetFaucetRecord(p.Account)
		if err != nil {
			return nil, err
		}
		fp, err := st.GetFaucetParams()
		if err != nil {
			return nil, err
		}
		left, err := faucet.RemainingToday(st, p.Account, h.now().UnixNano())
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"record":          rec,
			"remaining_today": left,
			"bonus":           bpsRatio(faucet.BonusFactor(fp, rec.LifetimeSwaps)),
		}, nil
	})
}

func (h *Handler) getResultsByPlayer(req Request) Response {
	var p struct {
		Player string `json:"player"`
	}
	if resp, ok := decodeParams(req, &p, "player", &p.Player); !ok {
		return resp
	}
	results, err := h.indexer.GetResultsByPlayer(p.Player)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, results)
}

func (h *Handler) getBlock(req Request) Response {
	var p struct {
		Hash   string `json:"hash"`
		Height *int64 `json:"height"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
		}
	}

	var block *core.Block
	var err error
	switch {
	case p.Hash != "":
		block, err = h.bc.GetBlock(p.Hash)
	case p.Height != nil:
		block, err = h.bc.GetBlockByHeight(*p.Height)
	default:
		block = h.bc.Tip()
	}
	if errors.Is(err, core.ErrNotFound) || (err == nil && block == nil) {
		return domainError(req.ID, fmt.Errorf("block: %w", core.ErrNotFound))
	}
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, block)
}
