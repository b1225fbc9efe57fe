// Package vm is the single-writer transactional core. Transactions are applied
// one at a time under a write lock; each runs inside a state snapshot that is
// reverted on any error, so a failed transaction leaves no trace.
package vm

import (
	"encoding/hex"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/crypto"
	"github.com/tolelom/scorechain/events"
	"github.com/tolelom/scorechain/internal/obslog"
	"github.com/tolelom/scorechain/lottery"
)

// RandomFactory returns the randomness source for one transaction.
type RandomFactory func(block *core.Block, tx *core.Transaction) lottery.RandomSource

// beaconMessage identifies the pending block's position in the chain. Nothing
// in it is chosen by the transaction submitter.
func beaconMessage(block *core.Block) []byte {
	return []byte(fmt.Sprintf("scorechain/draw/v1|%s|%d|%s",
		block.Header.ChainID, block.Header.Height, block.Header.PrevHash))
}

// DefaultRandom seeds an HMAC stream from the pending block's position alone.
// Anyone who knows the parent hash can predict it, so sequencing nodes use
// SequencerRandom instead.
func DefaultRandom(block *core.Block, _ *core.Transaction) lottery.RandomSource {
	return lottery.NewHMACSource(beaconMessage(block), drawLabel)
}

const drawLabel = "draw"

// SequencerRandom keys the draw with the sequencer's ed25519 signature over the
// pending block's position. Ed25519 signatures are deterministic, so the
// sequencer cannot grind them, and nobody without the key can predict the
// draw. The signature is exposed through Proof so observers can check it
// against the block proposer's public key.
func SequencerRandom(priv crypto.PrivateKey) RandomFactory {
	return func(block *core.Block, _ *core.Transaction) lottery.RandomSource {
		return &beaconSource{priv: priv, msg: beaconMessage(block)}
	}
}

// beaconSource signs lazily: most transactions never draw.
type beaconSource struct {
	priv crypto.PrivateKey
	msg  []byte
	sig  string
	src  *lottery.HMACSource
}

func (b *beaconSource) init() {
	if b.src != nil {
		return
	}
	b.sig = crypto.Sign(b.priv, b.msg)
	key, _ := hex.DecodeString(b.sig)
	b.src = lottery.NewHMACSource(key, drawLabel)
}

func (b *beaconSource) Uint64n(n uint64) uint64 {
	b.init()
	return b.src.Uint64n(n)
}

// Proof returns the hex signature the stream was keyed with.
func (b *beaconSource) Proof() string {
	b.init()
	return b.sig
}

// Option configures an Executor.
type Option func(*Executor)

// WithRandomSource replaces the default randomness used by lottery draws.
func WithRandomSource(f RandomFactory) Option {
	return func(e *Executor) { e.random = f }
}

// Executor applies transactions to the state using the global Handler registry.
type Executor struct {
	mu      sync.RWMutex
	state   core.State
	emitter *events.Emitter
	random  RandomFactory
	log     *zap.Logger
}

// NewExecutor creates an Executor with the given state and event emitter.
// emitter may be nil.
func NewExecutor(state core.State, emitter *events.Emitter, opts ...Option) *Executor {
	e := &Executor{
		state:   state,
		emitter: emitter,
		random:  DefaultRandom,
		log:     obslog.L().Named("vm"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query runs fn against the state under the read lock. fn observes the state
// between two transactions and must not write.
func (e *Executor) Query(fn func(st core.State) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fn(e.state)
}

// Update runs fn under the write lock. Block sealing uses it to compute the
// state root and flush the write buffer without racing a transaction.
func (e *Executor) Update(fn func(st core.State) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.state)
}

// ExecuteBlock applies all transactions in block sequentially.
// A failing transaction causes the whole block to be rejected.
// EventBlockCommit is emitted by the caller (consensus) after signing so
// the event carries the correct block hash.
func (e *Executor) ExecuteBlock(block *core.Block) error {
	for _, tx := range block.Transactions {
		if err := e.ExecuteTx(block, tx); err != nil {
			return fmt.Errorf("tx %s failed: %w", tx.ID, err)
		}
	}
	return nil
}

// ExecuteTx verifies and executes a single transaction with snapshot/rollback.
// Buffered events are delivered after the write lock is released.
func (e *Executor) ExecuteTx(block *core.Block, tx *core.Transaction) error {
	if err := tx.Verify(); err != nil {
		return fmt.Errorf("signature: %w", err)
	}

	ctx := &Context{
		State: e.state,
		Block: block,
		Tx:    tx,
		rand:  e.random(block, tx),
	}
	if err := e.apply(ctx); err != nil {
		e.log.Debug("tx rejected",
			zap.String("tx_id", tx.ID),
			zap.String("type", string(tx.Type)),
			zap.Error(err),
		)
		return err
	}

	ctx.Emit(events.EventTxExecuted, map[string]any{"type": string(tx.Type), "from": tx.From})
	if e.emitter != nil {
		for _, ev := range ctx.pending {
			e.emitter.Emit(ev)
		}
	}
	return nil
}

func (e *Executor) apply(ctx *Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapID, err := e.state.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := e.applyTx(ctx); err != nil {
		if revertErr := e.state.RevertToSnapshot(snapID); revertErr != nil {
			return fmt.Errorf("revert snapshot after tx failure: %w (revert: %v)", err, revertErr)
		}
		return err
	}
	return nil
}

// applyTx increments the sender nonce, then dispatches to the handler.
func (e *Executor) applyTx(ctx *Context) error {
	tx := ctx.Tx
	acc, err := e.state.GetAccount(tx.From)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	if acc.Nonce != tx.Nonce {
		return fmt.Errorf("%w: expected %d got %d", core.ErrInvalidNonce, acc.Nonce, tx.Nonce)
	}
	if acc.Nonce == math.MaxUint64 {
		return fmt.Errorf("%w: overflow for account %s", core.ErrInvalidNonce, tx.From)
	}
	acc.Nonce++
	if err := e.state.SetAccount(acc); err != nil {
		return err
	}
	return globalRegistry.Execute(tx.Type, ctx, tx.Payload)
}
