// Package engine implements the alpha-beta search, its shared tables and the
// default evaluation.
package engine

import (
	"github.com/hailam/bitchess/internal/board"
)

// Evaluation constants
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
	KingValue   = 20000
)

var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, KingValue, 0}

// Evaluator scores a position in centipawns from the side to move's point
// of view. Implementations are called concurrently by every search worker.
type Evaluator interface {
	Evaluate(pos *board.Position) int
}

// Passed pawn bonus by relative rank.
var passedPawnMg = [8]int{0, 5, 10, 15, 25, 40, 60, 0}
var passedPawnEg = [8]int{0, 10, 20, 40, 70, 120, 200, 0}

const (
	doubledPawnMgPenalty  = -15
	doubledPawnEgPenalty  = -20
	isolatedPawnMgPenalty = -20
	isolatedPawnEgPenalty = -25

	bishopPairMgBonus = 25
	bishopPairEgBonus = 50

	rookOpenFileMg     = 20
	rookOpenFileEg     = 25
	rookSemiOpenFileMg = 10
	rookSemiOpenFileEg = 15

	tempoBonus = 10
	maxPhase   = 24
)

var phaseWeight = [6]int{0, 1, 1, 2, 4, 0}

// Piece-square tables, written rank 8 first from White's point of view.
var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingMidgamePST = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

var kingEndgamePST = [64]int{
	-50, -40, -30, -20, -20, -30, -40, -50,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}

var psts = [...][64]int{
	pawnPST, knightPST, bishopPST, rookPST, queenPST, kingMidgamePST,
}

var (
	passedMask   [2][64]board.Bitboard // enemy pawns that stop a passer
	adjacentMask [8]board.Bitboard
)

func init() {
	for f := 0; f < 8; f++ {
		if f > 0 {
			adjacentMask[f] |= board.FileMask[f-1]
		}
		if f < 7 {
			adjacentMask[f] |= board.FileMask[f+1]
		}
	}
	for sq := board.A1; sq <= board.H8; sq++ {
		files := board.FileMask[sq.File()] | adjacentMask[sq.File()]
		for r := sq.Rank() + 1; r < 8; r++ {
			passedMask[board.White][sq] |= files & board.RankMask[r]
		}
		for r := sq.Rank() - 1; r >= 0; r-- {
			passedMask[board.Black][sq] |= files & board.RankMask[r]
		}
	}
}

// pstIndex maps a square to the table layout above.
func pstIndex(sq board.Square, c board.Color) int {
	if c == board.White {
		return int(sq) ^ 56
	}
	return int(sq)
}

// ClassicalEvaluator is a tapered material, piece-square and pawn structure
// evaluation. Pawn structure is cached by pawn key.
type ClassicalEvaluator struct {
	pawns *PawnTable
}

// NewClassicalEvaluator returns an evaluator with a pawn table of pawnMB
// megabytes; zero disables the cache.
func NewClassicalEvaluator(pawnMB int) *ClassicalEvaluator {
	e := &ClassicalEvaluator{}
	if pawnMB > 0 {
		e.pawns = NewPawnTable(pawnMB)
	}
	return e
}

// Evaluate returns the static evaluation from the side to move's view.
func (e *ClassicalEvaluator) Evaluate(pos *board.Position) int {
	var mg, eg, phase int

	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		for pt := board.Pawn; pt <= board.King; pt++ {
			for bb := pos.Pieces[c][pt]; bb != 0; {
				idx := pstIndex(bb.PopLSB(), c)
				mg += sign * pieceValues[pt]
				eg += sign * pieceValues[pt]
				if pt == board.King {
					mg += sign * kingMidgamePST[idx]
					eg += sign * kingEndgamePST[idx]
				} else {
					mg += sign * psts[pt][idx]
					eg += sign * psts[pt][idx]
				}
				phase += phaseWeight[pt]
			}
		}
	}

	psMg, psEg := e.pawnStructure(pos)
	mg += psMg
	eg += psEg

	pcMg, pcEg := evaluatePieces(pos)
	mg += pcMg
	eg += pcEg

	phase = min(phase, maxPhase)
	score := (mg*phase + eg*(maxPhase-phase)) / maxPhase

	if pos.SideToMove() == board.Black {
		score = -score
	}
	return score + tempoBonus
}

func (e *ClassicalEvaluator) pawnStructure(pos *board.Position) (mg, eg int) {
	if e.pawns == nil {
		return evaluatePawnStructure(pos)
	}
	if mg, eg, ok := e.pawns.Probe(pos.PawnKey); ok {
		return mg, eg
	}
	mg, eg = evaluatePawnStructure(pos)
	e.pawns.Store(pos.PawnKey, mg, eg)
	return mg, eg
}

// evaluatePawnStructure scores doubled, isolated and passed pawns. It only
// looks at pawns, so the result can be cached by pawn key.
func evaluatePawnStructure(pos *board.Position) (mg, eg int) {
	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		own := pos.Pieces[c][board.Pawn]
		enemy := pos.Pieces[c.Other()][board.Pawn]

		for bb := own; bb != 0; {
			sq := bb.PopLSB()
			file := sq.File()

			if (own & board.FileMask[file]).Several() {
				mg += sign * doubledPawnMgPenalty / 2
				eg += sign * doubledPawnEgPenalty / 2
			}
			if own&adjacentMask[file] == 0 {
				mg += sign * isolatedPawnMgPenalty
				eg += sign * isolatedPawnEgPenalty
			}
			if enemy&passedMask[c][sq] == 0 && own&passedMask[c][sq]&board.FileMask[file] == 0 {
				rank := sq.RelativeRank(c)
				mg += sign * passedPawnMg[rank]
				eg += sign * passedPawnEg[rank]
			}
		}
	}
	return mg, eg
}

// evaluatePieces scores the bishop pair and rooks on open files.
func evaluatePieces(pos *board.Position) (mg, eg int) {
	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		if pos.Pieces[c][board.Bishop].Several() {
			mg += sign * bishopPairMgBonus
			eg += sign * bishopPairEgBonus
		}

		own := pos.Pieces[c][board.Pawn]
		enemy := pos.Pieces[c.Other()][board.Pawn]
		for rooks := pos.Pieces[c][board.Rook]; rooks != 0; {
			file := board.FileMask[rooks.PopLSB().File()]
			if own&file != 0 {
				continue
			}
			if enemy&file == 0 {
				mg += sign * rookOpenFileMg
				eg += sign * rookOpenFileEg
			} else {
				mg += sign * rookSemiOpenFileMg
				eg += sign * rookSemiOpenFileEg
			}
		}
	}
	return mg, eg
}

// MaterialEvaluator counts material only. Useful where a deterministic,
// position-independent evaluation is wanted.
type MaterialEvaluator struct{}

func (MaterialEvaluator) Evaluate(pos *board.Position) int {
	score := 0
	for pt := board.Pawn; pt < board.King; pt++ {
		score += pos.Pieces[board.White][pt].PopCount() * pieceValues[pt]
		score -= pos.Pieces[board.Black][pt].PopCount() * pieceValues[pt]
	}
	if pos.SideToMove() == board.Black {
		return -score
	}
	return score
}
