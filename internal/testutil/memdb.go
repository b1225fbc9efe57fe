// Package testutil provides in-memory implementations of storage interfaces
// and fixtures for use in tests across the module. Never import this in
// production code.
package testutil

import (
	"sort"
	"strings"
	"sync"

	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/storage"
)

// MemDB is a thread-safe in-memory storage.DB. Values are copied on the way
// in and out, so callers never alias stored bytes.
type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemDB creates an empty MemDB.
func NewMemDB() *MemDB {
	return &MemDB{data: make(map[string][]byte)}
}

func clone(b []byte) []byte { return append([]byte(nil), b...) }

func (m *MemDB) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, core.ErrNotFound
	}
	return clone(v), nil
}

func (m *MemDB) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = clone(value)
	return nil
}

func (m *MemDB) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

// NewIterator snapshots the matching keys in ascending order, like LevelDB.
func (m *MemDB) NewIterator(prefix []byte) storage.Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it := &memIter{idx: -1}
	for k := range m.data {
		if strings.HasPrefix(k, string(prefix)) {
			it.keys = append(it.keys, k)
		}
	}
	sort.Strings(it.keys)
	it.vals = make([][]byte, len(it.keys))
	for i, k := range it.keys {
		it.vals[i] = clone(m.data[k])
	}
	return it
}

// Len returns the number of stored keys.
func (m *MemDB) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *MemDB) NewBatch() storage.Batch { return &memBatch{db: m} }

func (m *MemDB) Close() error { return nil }

// memBatch replays its ops in order under one lock, so Write is atomic.
type memBatch struct {
	db  *MemDB
	ops []func(map[string][]byte)
}

func (b *memBatch) Set(key, value []byte) {
	k, v := string(key), clone(value)
	b.ops = append(b.ops, func(d map[string][]byte) { d[k] = v })
}

func (b *memBatch) Delete(key []byte) {
	k := string(key)
	b.ops = append(b.ops, func(d map[string][]byte) { delete(d, k) })
}

func (b *memBatch) Reset() { b.ops = nil }

func (b *memBatch) Write() error {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	for _, op := range b.ops {
		op(b.db.data)
	}
	return nil
}

type memIter struct {
	keys []string
	vals [][]byte
	idx  int
}

func (it *memIter) Next() bool    { it.idx++; return it.idx < len(it.keys) }
func (it *memIter) Key() []byte   { return []byte(it.keys[it.idx]) }
func (it *memIter) Value() []byte { return it.vals[it.idx] }
func (it *memIter) Release()      {}
func (it *memIter) Error() error  { return nil }

// NewMemBlockStore returns the production block store over a fresh MemDB.
func NewMemBlockStore() *storage.BlockStore {
	return storage.NewBlockStore(NewMemDB())
}

// NewStateDB returns a storage.StateDB backed by a fresh MemDB.
func NewStateDB() *storage.StateDB {
	return storage.NewStateDB(NewMemDB())
}
