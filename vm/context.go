package vm

import (
	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/events"
	"github.com/tolelom/scorechain/lottery"
)

// Context is passed to every Handler and provides access to the chain state,
// the pending block, the triggering transaction and the randomness source.
// Events raised through Emit are held until the transaction succeeds.
type Context struct {
	State core.State
	Block *core.Block
	Tx    *core.Transaction

	rand    lottery.RandomSource
	pending []events.Event
}

// Now is the transaction clock: the pending block's timestamp.
func (c *Context) Now() int64 { return c.Block.Header.Timestamp }

// Rand returns the randomness source seeded for this transaction.
func (c *Context) Rand() lottery.RandomSource { return c.rand }

// Emit buffers an event. It is delivered only if the transaction commits.
func (c *Context) Emit(typ events.EventType, data map[string]any) {
	c.pending = append(c.pending, events.Event{
		Type:        typ,
		TxID:        c.Tx.ID,
		BlockHeight: c.Block.Header.Height,
		Timestamp:   c.Block.Header.Timestamp,
		Data:        data,
	})
}

// Events returns the events buffered so far.
func (c *Context) Events() []events.Event { return c.pending }
