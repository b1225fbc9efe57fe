package lottery

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// RandomSource yields uniformly distributed integers in [0, n).
// Implementations must be deterministic for a given seed so that replaying a
// block reproduces the same draw.
type RandomSource interface {
	Uint64n(n uint64) uint64
}

// HMACSource is a deterministic byte stream: round i is
// HMAC-SHA256(key, label:i). It is replayable by anyone who knows the key
// and label. The key must come from data the transaction submitter cannot
// choose.
type HMACSource struct {
	key    []byte
	label  string
	round  uint64
	buf    [32]byte
	cursor int
}

// NewHMACSource creates a stream seeded by key and label.
func NewHMACSource(key []byte, label string) *HMACSource {
	s := &HMACSource{key: append([]byte(nil), key...), label: label}
	s.fill()
	return s
}

func (s *HMACSource) fill() {
	h := hmac.New(sha256.New, s.key)
	fmt.Fprintf(h, "%s:%d", s.label, s.round)
	copy(s.buf[:], h.Sum(nil))
	s.cursor = 0
}

func (s *HMACSource) next64() uint64 {
	if s.cursor+8 > len(s.buf) {
		s.round++
		s.fill()
	}
	v := binary.BigEndian.Uint64(s.buf[s.cursor:])
	s.cursor += 8
	return v
}

// Uint64n returns a value in [0, n) without modulo bias. n == 0 returns 0.
func (s *HMACSource) Uint64n(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	// Reject the top partial bucket so every residue is equally likely.
	limit := ^uint64(0) - (^uint64(0) % n)
	for {
		v := s.next64()
		if v < limit {
			return v % n
		}
	}
}
