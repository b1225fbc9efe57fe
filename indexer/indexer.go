// Package indexer maintains secondary indexes over applied transactions so
// the backend can query a player's results, the draw history and transaction
// receipts without scanning full state. Index keys live outside the state
// root.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/events"
	"github.com/tolelom/scorechain/internal/obslog"
	"github.com/tolelom/scorechain/storage"
)

const (
	prefixResult        = "idx:result:"
	prefixPlayerResults = "idx:player:results:"
	prefixDraw          = "idx:draw:"
	prefixReceipt       = "idx:tx:"
)

// ResultRecord is one applied game result.
type ResultRecord struct {
	Hash        string `json:"hash"`
	Player      string `json:"player"`
	GameID      string `json:"game_id"`
	Score       uint64 `json:"score"`
	Win         bool   `json:"win"`
	Reward      uint64 `json:"reward"`
	Sequence    uint64 `json:"sequence"`
	TxID        string `json:"tx_id"`
	BlockHeight int64  `json:"block_height"`
	Timestamp   int64  `json:"timestamp"`
}

// DrawRecord archives one executed lottery round.
type DrawRecord struct {
	Round       uint64 `json:"round"`
	Winner      string `json:"winner"`
	Amount      uint64 `json:"amount"`
	TotalWeight uint64 `json:"total_weight"`
	TxID        string `json:"tx_id"`
	BlockHeight int64  `json:"block_height"`
	Timestamp   int64  `json:"timestamp"`
}

// Receipt records that a transaction was applied and in which block.
type Receipt struct {
	TxID        string `json:"tx_id"`
	Type        string `json:"type"`
	From        string `json:"from"`
	BlockHeight int64  `json:"block_height"`
	Timestamp   int64  `json:"timestamp"`
}

// Indexer subscribes to chain events and updates secondary lookup tables.
type Indexer struct {
	db  storage.DB
	log *zap.Logger
}

// New creates an Indexer backed by db and subscribes to relevant events.
func New(db storage.DB, emitter *events.Emitter) *Indexer {
	idx := &Indexer{db: db, log: obslog.L().Named("indexer")}
	emitter.Subscribe(events.EventResultApplied, idx.onResultApplied)
	emitter.Subscribe(events.EventLotteryDraw, idx.onLotteryDraw)
	emitter.Subscribe(events.EventTxExecuted, idx.onTxExecuted)
	return idx
}

// GetResultsByPlayer returns the player's applied results, oldest first.
func (idx *Indexer) GetResultsByPlayer(player string) ([]*ResultRecord, error) {
	hashes, err := idx.getList(prefixPlayerResults + player)
	if err != nil {
		return nil, err
	}
	out := make([]*ResultRecord, 0, len(hashes))
	for _, h := range hashes {
		var r ResultRecord
		if err := idx.get(prefixResult+h, &r); err != nil {
			return nil, fmt.Errorf("result %s: %w", h, err)
		}
		out = append(out, &r)
	}
	return out, nil
}

// GetDrawHistory returns executed draws in round order.
func (idx *Indexer) GetDrawHistory() ([]*DrawRecord, error) {
	it := idx.db.NewIterator([]byte(prefixDraw))
	defer it.Release()
	var out []*DrawRecord
	for it.Next() {
		var d DrawRecord
		if err := json.Unmarshal(it.Value(), &d); err != nil {
			return nil, fmt.Errorf("indexer unmarshal: %w", err)
		}
		out = append(out, &d)
	}
	return out, it.Error()
}

// GetReceipt returns the receipt of an applied transaction.
func (idx *Indexer) GetReceipt(txID string) (*Receipt, error) {
	var r Receipt
	if err := idx.get(prefixReceipt+txID, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ---- event handlers ----

func (idx *Indexer) onResultApplied(ev events.Event) {
	r := ResultRecord{
		Hash:        str(ev.Data["hash"]),
		Player:      str(ev.Data["player"]),
		GameID:      str(ev.Data["game_id"]),
		Score:       u64(ev.Data["score"]),
		Reward:      u64(ev.Data["reward"]),
		Sequence:    u64(ev.Data["sequence"]),
		TxID:        ev.TxID,
		BlockHeight: ev.BlockHeight,
		Timestamp:   ev.Timestamp,
	}
	r.Win, _ = ev.Data["win"].(bool)
	if r.Hash == "" || r.Player == "" {
		return
	}
	if err := idx.put(prefixResult+r.Hash, r); err != nil {
		idx.log.Warn("index result", zap.String("hash", r.Hash), zap.Error(err))
		return
	}
	if err := idx.addToList(prefixPlayerResults+r.Player, r.Hash); err != nil {
		idx.log.Warn("index player results", zap.String("player", r.Player), zap.Error(err))
	}
}

func (idx *Indexer) onLotteryDraw(ev events.Event) {
	d := DrawRecord{
		Round:       u64(ev.Data["round"]),
		Winner:      str(ev.Data["winner"]),
		Amount:      u64(ev.Data["amount"]),
		TotalWeight: u64(ev.Data["total_weight"]),
		TxID:        ev.TxID,
		BlockHeight: ev.BlockHeight,
		Timestamp:   ev.Timestamp,
	}
	if err := idx.put(fmt.Sprintf("%s%020d", prefixDraw, d.Round), d); err != nil {
		idx.log.Warn("index draw", zap.Uint64("round", d.Round), zap.Error(err))
	}
}

func (idx *Indexer) onTxExecuted(ev events.Event) {
	r := Receipt{
		TxID:        ev.TxID,
		Type:        str(ev.Data["type"]),
		From:        str(ev.Data["from"]),
		BlockHeight: ev.BlockHeight,
		Timestamp:   ev.Timestamp,
	}
	if r.TxID == "" {
		return
	}
	if err := idx.put(prefixReceipt+r.TxID, r); err != nil {
		idx.log.Warn("index receipt", zap.String("tx_id", r.TxID), zap.Error(err))
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// u64 accepts the in-process uint64 and the float64 a JSON round-trip yields.
func u64(v any) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case int:
		return uint64(n)
	case int64:
		return uint64(n)
	case float64:
		return uint64(n)
	}
	return 0
}

// ---- storage helpers ----

func (idx *Indexer) get(key string, v any) error {
	data, err := idx.db.Get([]byte(key))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("indexer unmarshal: %w", err)
	}
	return nil
}

func (idx *Indexer) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}

func (idx *Indexer) getList(key string) ([]string, error) {
	var ids []string
	err := idx.get(key, &ids)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil // empty list
	}
	return ids, err
}

func (idx *Indexer) addToList(key, value string) error {
	ids, err := idx.getList(key)
	if err != nil {
		return err
	}
	return idx.put(key, append(ids, value))
}
