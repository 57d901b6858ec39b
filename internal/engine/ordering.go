package engine

import (
	"sync/atomic"

	"github.com/hailam/bitchess/internal/board"
)

// Move ordering priorities
const (
	TTMoveScore     = 10000000 // TT move gets highest priority
	GoodCaptureBase = 1000000  // Base score for good captures
	PromotionBase   = 950000
	KillerScore1    = 900000 // First killer move
	KillerScore2    = 800000 // Second killer move
	BadCaptureBase  = -100000
	historyMax      = KillerScore2 - 1
)

// MVV-LVA (Most Valuable Victim - Least Valuable Attacker) scores
// Score = victimValue * 10 - attackerValue
var mvvLva = [6][6]int{
	//       P    N    B    R    Q    K  (attacker)
	/* P */ {15, 14, 14, 13, 12, 11},
	/* N */ {25, 24, 24, 23, 22, 21},
	/* B */ {35, 34, 34, 33, 32, 31},
	/* R */ {45, 44, 44, 43, 42, 41},
	/* Q */ {55, 54, 54, 53, 52, 51},
	/* K */ {0, 0, 0, 0, 0, 0},
}

// MoveScorer assigns an ordering score to every move of a list. Higher
// scores are searched first.
type MoveScorer interface {
	ScoreMoves(pos *board.Position, moves []board.Move, scores []int, ttMove board.Move, killers [2]board.Move)
}

// OrderingScorer is the default MoveScorer: TT move, winning and equal
// captures by MVV-LVA, promotions, killers, then losing captures.
type OrderingScorer struct{}

func (OrderingScorer) ScoreMoves(pos *board.Position, moves []board.Move, scores []int, ttMove board.Move, killers [2]board.Move) {
	for i, m := range moves {
		scores[i] = scoreMove(pos, m, ttMove, killers)
	}
}

func scoreMove(pos *board.Position, m board.Move, ttMove board.Move, killers [2]board.Move) int {
	switch {
	case m == ttMove:
		return TTMoveScore
	case m.IsCapture():
		attacker := pos.PieceAt(m.From()).Type()
		victim := board.Pawn
		if m.Flag() != board.EPCapture {
			victim = pos.PieceAt(m.To()).Type()
		}
		score := mvvLva[victim][attacker]
		if m.IsPromotion() {
			score += pieceValues[m.Promotion()]
		}
		if pieceValues[victim] < pieceValues[attacker] && SEEMove(pos, m) < 0 {
			return BadCaptureBase + score
		}
		return GoodCaptureBase + score
	case m.IsPromotion():
		return PromotionBase + pieceValues[m.Promotion()]
	case m == killers[0]:
		return KillerScore1
	case m == killers[1]:
		return KillerScore2
	}
	return 0
}

// PickMove brings the highest scored move at or after index to index.
func PickMove(moves *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// Heuristics holds the killer and history tables shared by every worker of
// an engine. Races between workers only cost ordering quality.
type Heuristics struct {
	killers [MaxPly + 1][2]atomic.Uint32
	history [2][64][64]atomic.Int64
}

// Clear resets the tables for a new search.
func (h *Heuristics) Clear() {
	for i := range h.killers {
		h.killers[i][0].Store(0)
		h.killers[i][1].Store(0)
	}
	for c := range h.history {
		for from := range h.history[c] {
			for to := range h.history[c][from] {
				h.history[c][from][to].Store(0)
			}
		}
	}
}

// Killers returns the two killer moves of ply.
func (h *Heuristics) Killers(ply int) [2]board.Move {
	return [2]board.Move{
		board.Move(h.killers[ply][0].Load()),
		board.Move(h.killers[ply][1].Load()),
	}
}

// History returns the history score of a quiet move for side.
func (h *Heuristics) History(side board.Color, m board.Move) int64 {
	return h.history[side][m.From()][m.To()].Load()
}

// recordCutoff updates killers and history after a quiet move failed high.
func (h *Heuristics) recordCutoff(side board.Color, m board.Move, depth, ply int) {
	if first := board.Move(h.killers[ply][0].Load()); first != m {
		h.killers[ply][1].Store(uint32(first))
		h.killers[ply][0].Store(uint32(m))
	}
	h.history[side][m.From()][m.To()].Add(1 << min(depth, 20))
}

// addHistory lifts plain quiet moves by their history score, kept below the
// killer band.
func (h *Heuristics) addHistory(side board.Color, moves []board.Move, scores []int) {
	for i, m := range moves {
		if scores[i] != 0 || !m.IsQuiet() {
			continue
		}
		scores[i] = int(min(h.History(side, m), historyMax))
	}
}
