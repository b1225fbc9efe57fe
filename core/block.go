package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tolelom/scorechain/crypto"
)

const (
	blockDomain  = "scorechain/block/v1"
	txRootDomain = "scorechain/txroot/v1"
)

// ErrInvalidBlock is returned when a block fails integrity or linkage checks.
var ErrInvalidBlock = errors.New("invalid block")

// BlockHeader contains the block metadata that is hashed and signed.
type BlockHeader struct {
	ChainID   string `json:"chain_id"`
	Height    int64  `json:"height"`
	PrevHash  string `json:"prev_hash"`
	StateRoot string `json:"state_root"` // state after applying every tx in the block
	TxRoot    string `json:"tx_root"`
	Timestamp int64  `json:"timestamp"` // unix nanoseconds; "now" for every contained tx
	Proposer  string `json:"proposer"`  // sequencer pubkey hex
}

// Block is an ordered batch of applied transactions with a signed header.
type Block struct {
	Header       BlockHeader    `json:"header"`
	Transactions []*Transaction `json:"transactions"`
	Hash         string         `json:"hash"`
	Signature    string         `json:"signature"`
}

// NewBlock opens an empty block at the given time.
func NewBlock(chainID string, height int64, prevHash, proposer string, at time.Time) *Block {
	return &Block{
		Header: BlockHeader{
			ChainID:   chainID,
			Height:    height,
			PrevHash:  prevHash,
			Timestamp: at.UnixNano(),
			Proposer:  proposer,
		},
	}
}

// Time returns the block timestamp.
func (b *Block) Time() time.Time { return time.Unix(0, b.Header.Timestamp).UTC() }

// Append adds an applied transaction to an unsealed block.
func (b *Block) Append(tx *Transaction) { b.Transactions = append(b.Transactions, tx) }

// Len returns the number of transactions in the block.
func (b *Block) Len() int { return len(b.Transactions) }

// TxIDs returns the transaction ids in block order.
func (b *Block) TxIDs() []string {
	ids := make([]string, len(b.Transactions))
	for i, tx := range b.Transactions {
		ids[i] = tx.ID
	}
	return ids
}

// ComputeHash returns the domain-tagged hash of the serialised header.
// Returns an empty string if marshalling fails (which cannot happen in practice).
func (b *Block) ComputeHash() string {
	data, err := json.Marshal(b.Header)
	if err != nil {
		return ""
	}
	return crypto.HashFields(blockDomain, data)
}

// Seal fixes the tx root and the post-state root, then signs the header.
// The block must not be modified afterwards.
func (b *Block) Seal(stateRoot string, priv crypto.PrivateKey) {
	b.Header.TxRoot = ComputeTxRoot(b.Transactions)
	b.Header.StateRoot = stateRoot
	b.Hash = b.ComputeHash()
	b.Signature = crypto.Sign(priv, []byte(b.Hash))
}

// Verify checks that pub sealed the block and that its body matches the header.
func (b *Block) Verify(pub crypto.PublicKey) error {
	if b.Header.Proposer != pub.Hex() {
		return fmt.Errorf("%w: proposer %s is not the sequencer", ErrInvalidBlock, b.Header.Proposer)
	}
	if b.Hash != b.ComputeHash() {
		return fmt.Errorf("%w: hash does not match header", ErrInvalidBlock)
	}
	if err := crypto.Verify(pub, []byte(b.Hash), b.Signature); err != nil {
		return fmt.Errorf("%w: signature: %v", ErrInvalidBlock, err)
	}
	if b.Header.TxRoot != ComputeTxRoot(b.Transactions) {
		return fmt.Errorf("%w: tx root mismatch", ErrInvalidBlock)
	}
	return nil
}

// Follows checks that b extends prev on the same chain.
func (b *Block) Follows(prev *Block) error {
	if b.Header.ChainID != prev.Header.ChainID {
		return fmt.Errorf("%w: chain id %q, tip is on %q", ErrInvalidBlock, b.Header.ChainID, prev.Header.ChainID)
	}
	if b.Header.Height != prev.Header.Height+1 {
		return fmt.Errorf("%w: height %d does not follow %d", ErrInvalidBlock, b.Header.Height, prev.Header.Height)
	}
	if b.Header.PrevHash != prev.Hash {
		return fmt.Errorf("%w: prev_hash %s, want %s", ErrInvalidBlock, b.Header.PrevHash, prev.Hash)
	}
	if b.Header.Timestamp < prev.Header.Timestamp {
		return fmt.Errorf("%w: timestamp before parent", ErrInvalidBlock)
	}
	return nil
}

// ComputeTxRoot commits to the ordered transaction ids. Ids are length
// prefixed, so no two orderings share a root.
func ComputeTxRoot(txs []*Transaction) string {
	ids := make([][]byte, len(txs))
	for i, tx := range txs {
		ids[i] = []byte(tx.ID)
	}
	return crypto.HashFields(txRootDomain, ids...)
}
