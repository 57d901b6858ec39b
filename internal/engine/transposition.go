package engine

import (
	"sync/atomic"

	"github.com/hailam/bitchess/internal/board"
)

// NodeType is the kind of bound a transposition entry holds.
type NodeType uint8

const (
	PVNode  NodeType = iota + 1 // exact score
	CutNode                     // lower bound, failed high
	AllNode                     // upper bound, failed low
	QNode                       // stored by quiescence search
)

func (t NodeType) String() string {
	switch t {
	case PVNode:
		return "exact"
	case CutNode:
		return "lower"
	case AllNode:
		return "upper"
	case QNode:
		return "quiescence"
	}
	return "none"
}

// TTEntry is one decoded transposition table slot.
type TTEntry struct {
	Key   uint64
	Move  board.Move
	Score int16
	Depth int8
	Type  NodeType
	Age   uint8
}

// ttSlot stores key^data next to data. A torn write from two racing
// goroutines fails the key check on probe, so slots need no lock.
type ttSlot struct {
	check atomic.Uint64
	data  atomic.Uint64
}

func packEntry(move board.Move, score int, depth int, nt NodeType, age uint8) uint64 {
	return uint64(move) |
		uint64(uint16(int16(score)))<<16 |
		uint64(uint8(int8(depth)))<<32 |
		uint64(nt)<<40 |
		uint64(age)<<48
}

func unpackEntry(key, data uint64) TTEntry {
	return TTEntry{
		Key:   key,
		Move:  board.Move(data),
		Score: int16(uint16(data >> 16)),
		Depth: int8(uint8(data >> 32)),
		Type:  NodeType(data >> 40 & 0xFF),
		Age:   uint8(data >> 48),
	}
}

// TranspositionTable caches search results by Zobrist key. It is shared by
// every search goroutine of an engine and written without locks; stores
// always overwrite. An entry is a hint: callers check its depth and bound
// before trusting it.
type TranspositionTable struct {
	slots []ttSlot
	mask  uint64
	age   atomic.Uint32

	hits   atomic.Uint64
	probes atomic.Uint64
}

const ttSlotSize = 16

// NewTranspositionTable allocates a table of at most sizeMB megabytes,
// rounded down to a power-of-two number of slots.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	n := roundDownToPowerOf2(uint64(sizeMB) << 20 / ttSlotSize)
	if n == 0 {
		n = 1
	}
	return &TranspositionTable{
		slots: make([]ttSlot, n),
		mask:  n - 1,
	}
}

func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Probe returns the entry stored for hash.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	tt.probes.Add(1)
	slot := &tt.slots[hash&tt.mask]
	data := slot.data.Load()
	if data == 0 || slot.check.Load()^data != hash {
		return TTEntry{}, false
	}
	tt.hits.Add(1)
	return unpackEntry(hash, data), true
}

// Store writes an entry for hash, replacing whatever the slot held.
func (tt *TranspositionTable) Store(hash uint64, depth, score int, nt NodeType, move board.Move) {
	data := packEntry(move, score, depth, nt, uint8(tt.age.Load()))
	slot := &tt.slots[hash&tt.mask]
	slot.data.Store(data)
	slot.check.Store(hash ^ data)
}

// NewSearch starts a new generation for HashFull accounting.
func (tt *TranspositionTable) NewSearch() {
	tt.age.Add(1)
}

// Clear empties the table.
func (tt *TranspositionTable) Clear() {
	for i := range tt.slots {
		tt.slots[i].data.Store(0)
		tt.slots[i].check.Store(0)
	}
	tt.age.Store(0)
	tt.hits.Store(0)
	tt.probes.Store(0)
}

// HashFull returns the permille of sampled slots written this search.
func (tt *TranspositionTable) HashFull() int {
	sample := min(len(tt.slots), 1000)
	age := uint8(tt.age.Load())
	used := 0
	for i := 0; i < sample; i++ {
		if data := tt.slots[i].data.Load(); data != 0 && uint8(data>>48) == age {
			used++
		}
	}
	return used * 1000 / sample
}

// HitRate returns the percentage of probes that found an entry.
func (tt *TranspositionTable) HitRate() float64 {
	probes := tt.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(tt.hits.Load()) / float64(probes) * 100
}

// Size returns the number of slots.
func (tt *TranspositionTable) Size() int {
	return len(tt.slots)
}

// AdjustScoreFromTT converts a stored mate score back to the probing ply.
func AdjustScoreFromTT(score, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT makes a mate score relative to the storing node.
func AdjustScoreToTT(score, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
