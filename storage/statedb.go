package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/crypto"
)

// registerPrefix records a state-key prefix into statePrefixes so that
// ComputeRoot() always covers it.  All prefix constants must be declared
// via this function; manually editing statePrefixes is not required.
func registerPrefix(p string) string {
	statePrefixes = append(statePrefixes, p)
	return p
}

// statePrefixes is populated automatically by registerPrefix() below.
// ComputeRoot() iterates these prefixes to build the full world-state view.
var statePrefixes []string

var (
	prefixAccount     = registerPrefix("acct:")
	prefixGame        = registerPrefix("game:")
	prefixPlayer      = registerPrefix("player:")
	prefixResult      = registerPrefix("result:")
	prefixStake       = registerPrefix("stake:")
	prefixParticipant = registerPrefix("lotp:")
	prefixFaucet      = registerPrefix("faucet:")
	keySupply         = registerPrefix("supply")
	keyTokenParams    = registerPrefix("params:token")
	keyLottery        = registerPrefix("lottery")
	keyFaucetParams   = registerPrefix("params:faucet")
	keyControl        = registerPrefix("control")
)

type stateSnapshot struct {
	dirty   map[string][]byte
	deleted map[string]bool
}

// StateDB implements core.State on top of a DB with in-memory write buffer,
// snapshot/rollback, and deterministic state-root computation.
type StateDB struct {
	db        DB
	dirty     map[string][]byte
	deleted   map[string]bool
	snapshots []stateSnapshot
}

// NewStateDB creates a StateDB backed by db.
func NewStateDB(db DB) *StateDB {
	return &StateDB{
		db:      db,
		dirty:   make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

// ---- internal helpers ----

func (s *StateDB) get(key string) ([]byte, error) {
	if s.deleted[key] {
		return nil, core.ErrNotFound
	}
	if v, ok := s.dirty[key]; ok {
		return v, nil
	}
	return s.db.Get([]byte(key))
}

func (s *StateDB) set(key string, val []byte) {
	delete(s.deleted, key)
	s.dirty[key] = val
}

func (s *StateDB) del(key string) {
	delete(s.dirty, key)
	s.deleted[key] = true
}

// load decodes the record at key into a new T. A missing key yields
// core.ErrNotFound unless zero is non-nil, in which case zero() is returned.
func load[T any](s *StateDB, key string, zero func() *T) (*T, error) {
	data, err := s.get(key)
	if errors.Is(err, core.ErrNotFound) && zero != nil {
		return zero(), nil
	}
	if err != nil {
		return nil, err
	}
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

func (s *StateDB) store(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.set(key, data)
	return nil
}

// ---- Account ----

// GetAccount returns a zero-value account for unknown addresses.
func (s *StateDB) GetAccount(address string) (*core.Account, error) {
	return load(s, prefixAccount+address, func() *core.Account {
		return &core.Account{Address: address}
	})
}

func (s *StateDB) SetAccount(acc *core.Account) error {
	return s.store(prefixAccount+acc.Address, acc)
}

// ---- Game registry ----

func (s *StateDB) GetGame(id string) (*core.GameModule, error) {
	return load[core.GameModule](s, prefixGame+id, nil)
}

func (s *StateDB) SetGame(g *core.GameModule) error {
	return s.store(prefixGame+g.GameID, g)
}

// ---- Player identity ----

func (s *StateDB) GetPlayer(id string) (*core.PlayerStats, error) {
	return load[core.PlayerStats](s, prefixPlayer+id, nil)
}

func (s *StateDB) SetPlayer(p *core.PlayerStats) error {
	return s.store(prefixPlayer+p.PlayerID, p)
}

// ---- Consumed results ----

func (s *StateDB) GetResult(hash string) (*core.ResultReceipt, error) {
	return load[core.ResultReceipt](s, prefixResult+hash, nil)
}

func (s *StateDB) SetResult(r *core.ResultReceipt) error {
	return s.store(prefixResult+r.Hash, r)
}

// ---- Token ledger ----

func (s *StateDB) GetSupply() (*core.Supply, error) {
	return load(s, keySupply, func() *core.Supply { return &core.Supply{} })
}

func (s *StateDB) SetSupply(sup *core.Supply) error {
	return s.store(keySupply, sup)
}

func (s *StateDB) GetTokenParams() (*core.TokenParams, error) {
	return load(s, keyTokenParams, func() *core.TokenParams { return &core.TokenParams{} })
}

func (s *StateDB) SetTokenParams(p *core.TokenParams) error {
	return s.store(keyTokenParams, p)
}

// GetStake returns an empty position for accounts that never staked.
func (s *StateDB) GetStake(account string) (*core.StakePosition, error) {
	return load(s, prefixStake+account, func() *core.StakePosition {
		return &core.StakePosition{Account: account}
	})
}

func (s *StateDB) SetStake(p *core.StakePosition) error {
	return s.store(prefixStake+p.Account, p)
}

func (s *StateDB) DeleteStake(account string) error {
	s.del(prefixStake + account)
	return nil
}

// ---- Lottery ----

func (s *StateDB) GetLottery() (*core.LotteryState, error) {
	return load(s, keyLottery, func() *core.LotteryState { return &core.LotteryState{} })
}

func (s *StateDB) SetLottery(l *core.LotteryState) error {
	return s.store(keyLottery, l)
}

func (s *StateDB) GetParticipant(account string) (*core.LotteryParticipant, error) {
	return load[core.LotteryParticipant](s, prefixParticipant+account, nil)
}

func (s *StateDB) SetParticipant(p *core.LotteryParticipant) error {
	return s.store(prefixParticipant+p.Account, p)
}

func (s *StateDB) DeleteParticipant(account string) error {
	s.del(prefixParticipant + account)
	return nil
}

// ---- Faucet ----

func (s *StateDB) GetFaucetParams() (*core.FaucetParams, error) {
	return load(s, keyFaucetParams, func() *core.FaucetParams { return &core.FaucetParams{} })
}

func (s *StateDB) SetFaucetParams(p *core.FaucetParams) error {
	return s.store(keyFaucetParams, p)
}

func (s *StateDB) GetFaucetRecord(account string) (*core.FaucetRecord, error) {
	return load(s, prefixFaucet+account, func() *core.FaucetRecord {
		return &core.FaucetRecord{Account: account}
	})
}

func (s *StateDB) SetFaucetRecord(r *core.FaucetRecord) error {
	return s.store(prefixFaucet+r.Account, r)
}

// ---- Roles ----

func (s *StateDB) GetControl() (*core.Control, error) {
	return load(s, keyControl, func() *core.Control { return &core.Control{} })
}

func (s *StateDB) SetControl(c *core.Control) error {
	return s.store(keyControl, c)
}

// ---- Snapshot / Rollback / Commit ----

// Snapshot saves the current write buffer and returns a snapshot ID.
func (s *StateDB) Snapshot() (int, error) {
	snap := stateSnapshot{
		dirty:   make(map[string][]byte, len(s.dirty)),
		deleted: make(map[string]bool, len(s.deleted)),
	}
	for k, v := range s.dirty {
		cp := make([]byte, len(v))
		copy(cp, v)
		snap.dirty[k] = cp
	}
	for k, v := range s.deleted {
		snap.deleted[k] = v
	}
	s.snapshots = append(s.snapshots, snap)
	return len(s.snapshots) - 1, nil
}

// RevertToSnapshot restores the write buffer to a previously saved snapshot.
// The snapshot maps are deep-copied so that subsequent writes cannot corrupt them.
func (s *StateDB) RevertToSnapshot(id int) error {
	if id < 0 || id >= len(s.snapshots) {
		return fmt.Errorf("invalid snapshot id %d", id)
	}
	snap := s.snapshots[id]

	dirty := make(map[string][]byte, len(snap.dirty))
	for k, v := range snap.dirty {
		cp := make([]byte, len(v))
		copy(cp, v)
		dirty[k] = cp
	}
	deleted := make(map[string]bool, len(snap.deleted))
	for k, v := range snap.deleted {
		deleted[k] = v
	}

	s.dirty = dirty
	s.deleted = deleted
	s.snapshots = s.snapshots[:id]
	return nil
}

// ComputeRoot returns the deterministic hash of the complete world state.
// It merges all persisted state entries (scanned from DB by the known state
// prefixes) with the current write buffer, then hashes the sorted key-value
// pairs using length-prefix encoding.  It does NOT flush or modify state,
// so it is safe to call before signing a block.
func (s *StateDB) ComputeRoot() string {
	// Step 1: collect all persisted state entries from DB.
	merged := make(map[string][]byte)
	for _, prefix := range statePrefixes {
		it := s.db.NewIterator([]byte(prefix))
		for it.Next() {
			k := string(it.Key())
			v := make([]byte, len(it.Value()))
			copy(v, it.Value())
			merged[k] = v
		}
		it.Release()
	}

	// Step 2: apply in-memory write buffer (uncommitted changes this block).
	for k, v := range s.dirty {
		merged[k] = v
	}

	// Step 3: exclude deleted keys.
	for k := range s.deleted {
		delete(merged, k)
	}

	// Step 4: sort keys for determinism.
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Step 5: length-prefix encode each key-value pair and hash.
	var buf bytes.Buffer
	var lenBuf [4]byte
	for _, k := range keys {
		v := merged[k]
		kb := []byte(k)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(kb)))
		buf.Write(lenBuf[:])
		buf.Write(kb)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
		buf.Write(lenBuf[:])
		buf.Write(v)
	}
	return crypto.Hash(buf.Bytes())
}

// Commit atomically flushes the write buffer to the underlying DB via a
// WriteBatch and then clears it. Call ComputeRoot() before signing the block,
// then call Commit() after the block is safely stored.
func (s *StateDB) Commit() error {
	batch := s.db.NewBatch()
	for k, v := range s.dirty {
		batch.Set([]byte(k), v)
	}
	for k := range s.deleted {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return err
	}
	s.dirty = make(map[string][]byte)
	s.deleted = make(map[string]bool)
	s.snapshots = nil
	return nil
}
