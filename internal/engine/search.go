package engine

import (
	"time"

	"golang.org/x/exp/constraints"

	"github.com/hailam/bitchess/internal/board"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
	MaxQPly   = 16
)

// Pruning constants
const (
	nullMoveMinDepth = 3
	lmrMinDepth      = 3
	lmrMinMoveIndex  = 4
	futilityMaxDepth = 3
	razorMaxDepth    = 2

	aspirationWindow = 25
)

var (
	futilityMargin = [futilityMaxDepth + 1]int{0, 200, 350, 500}
	razorMargin    = [razorMaxDepth + 1]int{0, 300, 450}
)

// PVTable stores the principal variation, one triangular row per ply.
type PVTable struct {
	length [MaxPly + 1]int
	moves  [MaxPly + 1][MaxPly + 1]board.Move
}

func (pv *PVTable) update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	next := pv.length[ply+1]
	if next < ply+1 {
		next = ply + 1
	}
	copy(pv.moves[ply][ply+1:next], pv.moves[ply+1][ply+1:next])
	pv.length[ply] = next
}

// Line returns a copy of the root variation.
func (pv *PVTable) Line() []board.Move {
	return append([]board.Move(nil), pv.moves[0][:pv.length[0]]...)
}

// SearchStats counts the work done for one completed depth.
type SearchStats struct {
	Nodes           uint64
	QNodes          uint64
	TTHits          uint64
	BetaCutoffs     uint64
	NullCutoffs     uint64
	Researches      uint64
	AspirationFails uint64
	Elapsed         time.Duration
}

func (s *SearchStats) add(o SearchStats) {
	s.Nodes += o.Nodes
	s.QNodes += o.QNodes
	s.TTHits += o.TTHits
	s.BetaCutoffs += o.BetaCutoffs
	s.NullCutoffs += o.NullCutoffs
	s.Researches += o.Researches
	s.AspirationFails += o.AspirationFails
}

// NPS returns nodes per second.
func (s SearchStats) NPS() uint64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return uint64(float64(s.Nodes) / s.Elapsed.Seconds())
}

// IsMateScore reports whether score encodes a forced mate.
func IsMateScore(score int) bool {
	return abs(score) > MateScore-MaxPly
}

// MateIn converts a mate score to moves, negative when being mated.
func MateIn(score int) int {
	if score > 0 {
		return (MateScore - score + 1) / 2
	}
	return -(MateScore + score) / 2
}

func abs[T constraints.Signed](x T) T {
	if x < 0 {
		return -x
	}
	return x
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
