// Package consensus is the single-authority sequencer. It admits signed
// transactions, applies each one immediately through the executor so the
// submitter learns the outcome synchronously, and periodically seals the
// applied transactions into a signed block.
package consensus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tolelom/scorechain/config"
	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/crypto"
	"github.com/tolelom/scorechain/events"
	"github.com/tolelom/scorechain/internal/obslog"
	"github.com/tolelom/scorechain/vm"
)

const defaultMaxBlockTxs = 500

// PoA is the Proof-of-Authority sequencer. The pending block is opened by the
// first admitted transaction; its timestamp is the clock every transaction
// in it observes.
type PoA struct {
	mu      sync.Mutex
	cfg     *config.Config
	bc      *core.Blockchain
	mempool *core.Mempool
	exec    *vm.Executor
	emitter *events.Emitter
	privKey crypto.PrivateKey
	pubKey  crypto.PublicKey
	now     func() time.Time
	pending *core.Block
	log     *zap.Logger
}

// New creates a sequencer signing blocks with privKey.
func New(
	cfg *config.Config,
	bc *core.Blockchain,
	mempool *core.Mempool,
	exec *vm.Executor,
	emitter *events.Emitter,
	privKey crypto.PrivateKey,
) *PoA {
	return &PoA{
		cfg:     cfg,
		bc:      bc,
		mempool: mempool,
		exec:    exec,
		emitter: emitter,
		privKey: privKey,
		pubKey:  privKey.Public(),
		now:     time.Now,
		log:     obslog.L().Named("consensus"),
	}
}

// SetClock replaces the wall clock used to timestamp blocks. The mempool's
// admission window follows the same clock.
func (p *PoA) SetClock(now func() time.Time) {
	p.mu.Lock()
	p.now = now
	p.mu.Unlock()
	p.mempool.SetClock(now)
}

// Sequencer returns the public key that signs every block.
func (p *PoA) Sequencer() string { return p.pubKey.Hex() }

func (p *PoA) maxBlockTxs() int {
	if p.cfg.MaxBlockTxs <= 0 {
		return defaultMaxBlockTxs
	}
	return p.cfg.MaxBlockTxs
}

// openBlock returns the pending block, creating it on top of the tip.
func (p *PoA) openBlock() *core.Block {
	if p.pending != nil {
		return p.pending
	}
	tip := p.bc.Tip()
	at := p.now()
	// Block time never runs backwards, so the tx clock is monotonic.
	if floor := tip.Time(); at.Before(floor) {
		at = floor
	}
	p.pending = core.NewBlock(p.cfg.Genesis.ChainID, tip.Header.Height+1, tip.Hash, p.pubKey.Hex(), at)
	return p.pending
}

// Submit admits tx, applies it and queues it for the next block. A returned
// error means the transaction had no effect.
func (p *PoA) Submit(tx *core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bc.Tip() == nil {
		return errors.New("chain has no genesis block")
	}
	if err := p.mempool.Check(tx); err != nil {
		return err
	}
	block := p.openBlock()
	if err := p.exec.ExecuteTx(block, tx); err != nil {
		return err
	}
	if err := p.mempool.Add(tx); err != nil {
		// Applied but not queued would fork the state root from the block.
		p.log.Error("queue applied tx", zap.String("tx_id", tx.ID), zap.Error(err))
		return err
	}
	block.Append(tx)

	if block.Len() >= p.maxBlockTxs() {
		if _, err := p.seal(); err != nil {
			p.log.Error("seal full block", zap.Error(err))
		}
	}
	return nil
}

// ProduceBlock seals the pending transactions. It returns (nil, nil) when
// nothing is pending.
func (p *PoA) ProduceBlock() (*core.Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seal()
}

func (p *PoA) seal() (*core.Block, error) {
	block := p.pending
	if block == nil || block.Len() == 0 {
		return nil, nil
	}

	err := p.exec.Update(func(st core.State) error {
		// Root from the write buffer BEFORE flushing so that if AddBlock
		// fails the state has not yet been persisted.
		block.Seal(st.ComputeRoot(), p.privKey)
		if err := p.bc.AddBlock(block); err != nil {
			return fmt.Errorf("add block: %w", err)
		}
		if err := st.Commit(); err != nil {
			p.log.Fatal("block stored but state commit failed",
				zap.Int64("height", block.Header.Height),
				zap.Error(err),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.pending = nil

	p.mempool.Remove(block.TxIDs())

	// Emit after Sign() so block.Hash is set correctly.
	if p.emitter != nil {
		p.emitter.Emit(events.Event{
			Type:        events.EventBlockCommit,
			BlockHeight: block.Header.Height,
			Timestamp:   block.Header.Timestamp,
			Data:        map[string]any{"hash": block.Hash, "txs": len(block.Transactions)},
		})
	}
	p.log.Info("block sealed",
		zap.Int64("height", block.Header.Height),
		zap.String("hash", block.Hash),
		zap.Int("txs", len(block.Transactions)),
	)
	return block, nil
}

// ValidateBlock checks that block was sealed by this sequencer on this
// chain and links to prev. A nil prev means block must be genesis. It is used
// when re-verifying a stored chain.
func (p *PoA) ValidateBlock(block, prev *core.Block) error {
	if block.Header.ChainID != p.cfg.Genesis.ChainID {
		return fmt.Errorf("%w: chain id %q", core.ErrInvalidBlock, block.Header.ChainID)
	}
	if err := block.Verify(p.pubKey); err != nil {
		return err
	}
	if prev == nil {
		if block.Header.Height != 0 || !config.IsGenesisHash(block.Header.PrevHash) {
			return fmt.Errorf("%w: first block must reference the genesis prev-hash", core.ErrInvalidBlock)
		}
		return nil
	}
	return block.Follows(prev)
}

// Run starts the block-production loop with the given interval. It blocks
// until done is closed, then seals whatever is still pending.
func (p *PoA) Run(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			if _, err := p.ProduceBlock(); err != nil {
				p.log.Error("final seal", zap.Error(err))
			}
			return
		case <-ticker.C:
			if _, err := p.ProduceBlock(); err != nil {
				p.log.Error("produce block", zap.Error(err))
			}
		}
	}
}
