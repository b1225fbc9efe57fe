package core

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	maxMempoolSize = 10_000
	maxTxAge       = int64(time.Hour)       // reject txs older than 1 hour
	maxTxFuture    = int64(5 * time.Minute) // reject txs more than 5 min in the future
)

var errMempoolFull = errors.New("mempool full")

// Mempool is a thread-safe pool of admitted transactions awaiting sealing.
// Transactions are already applied to state when they enter; the pool only
// holds them until the proposer writes the next block.
type Mempool struct {
	mu      sync.RWMutex
	chainID string
	now     func() time.Time
	txs     map[string]*Transaction
	ord     []string // insertion-ordered IDs for deterministic block contents
}

// NewMempool creates an empty mempool that only admits transactions for chainID.
func NewMempool(chainID string) *Mempool {
	return &Mempool{
		chainID: chainID,
		now:     time.Now,
		txs:     make(map[string]*Transaction),
	}
}

// SetClock replaces the wall clock used for the timestamp window.
func (m *Mempool) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Check validates a transaction without inserting it: chain id, signature,
// timestamp window (-1 h / +5 min), duplicates and capacity.
func (m *Mempool) Check(tx *Transaction) error {
	if tx.ChainID != m.chainID {
		return fmt.Errorf("%w: wrong chain id %q", ErrTxRejected, tx.ChainID)
	}
	if err := tx.Verify(); err != nil {
		return fmt.Errorf("%w: invalid signature: %v", ErrTxRejected, err)
	}
	if tx.ID != tx.Hash() {
		return fmt.Errorf("%w: id does not match hash", ErrTxRejected)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now().UnixNano()
	if now-tx.Timestamp > maxTxAge {
		return fmt.Errorf("%w: expired", ErrTxRejected)
	}
	if tx.Timestamp-now > maxTxFuture {
		return fmt.Errorf("%w: timestamp too far in the future", ErrTxRejected)
	}
	if len(m.txs) >= maxMempoolSize {
		return errMempoolFull
	}
	if _, exists := m.txs[tx.ID]; exists {
		return fmt.Errorf("%w: already in pool", ErrTxRejected)
	}
	return nil
}

// Add validates and inserts a transaction.
func (m *Mempool) Add(tx *Transaction) error {
	if err := m.Check(tx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.txs[tx.ID]; exists {
		return fmt.Errorf("%w: already in pool", ErrTxRejected)
	}
	m.txs[tx.ID] = tx
	m.ord = append(m.ord, tx.ID)
	return nil
}

// Get returns a transaction by ID.
func (m *Mempool) Get(id string) (*Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txs[id]
	return tx, ok
}

// Pending returns up to n pending transactions in insertion order.
func (m *Mempool) Pending(n int) []*Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*Transaction, 0, n)
	for _, id := range m.ord {
		if tx, ok := m.txs[id]; ok {
			result = append(result, tx)
			if len(result) >= n {
				break
			}
		}
	}
	return result
}

// Remove deletes transactions by ID (called after block commit).
func (m *Mempool) Remove(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		delete(m.txs, id)
		removed[id] = true
	}
	filtered := m.ord[:0]
	for _, id := range m.ord {
		if !removed[id] {
			filtered = append(filtered, id)
		}
	}
	m.ord = filtered
}

// Size returns the current number of pending transactions.
func (m *Mempool) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}
