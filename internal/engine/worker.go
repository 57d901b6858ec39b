package engine

import (
	"math"
	"sync/atomic"

	"lukechampine.com/frand"

	"github.com/hailam/bitchess/internal/board"
)

// LMR reduction table, logarithmic in depth and move index.
var lmrReductions [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			lmrReductions[d][m] = int(0.75 + math.Log(float64(d))*math.Log(float64(m))/2.25)
		}
	}
}

func lmrReduction(depth, index int) int {
	return max(lmrReductions[min(depth, 63)][min(index, 63)], 1)
}

// Worker is one lazy SMP search thread. It owns its position and PV and
// shares the transposition table, the heuristics and the stop flag with
// the other workers of the engine.
type Worker struct {
	id     int
	pos    *board.Position
	tt     *TranspositionTable // nil searches without a table
	heur   *Heuristics
	eval   Evaluator
	scorer MoveScorer
	stop   *atomic.Bool

	nodeLimit uint64
	rootHint  board.Move

	aborted bool
	stats   SearchStats
	pv      PVTable
	nullAt  [MaxPly + 2]bool
}

// depthResult is what a worker knows after completing one depth.
type depthResult struct {
	Depth int
	Score int
	Move  board.Move
	PV    []board.Move
	Stats SearchStats
}

func newWorker(id int, pos *board.Position, tt *TranspositionTable, heur *Heuristics, eval Evaluator, scorer MoveScorer, stop *atomic.Bool) *Worker {
	return &Worker{
		id:     id,
		pos:    pos.Clone(),
		tt:     tt,
		heur:   heur,
		eval:   eval,
		scorer: scorer,
		stop:   stop,
	}
}

// checkStop latches the aborted marker once the stop flag is raised or the
// node budget is spent.
func (w *Worker) checkStop() bool {
	if w.aborted {
		return true
	}
	if w.stop.Load() || (w.nodeLimit > 0 && w.stats.Nodes >= w.nodeLimit) {
		w.aborted = true
	}
	return w.aborted
}

func (w *Worker) probe() (TTEntry, bool) {
	if w.tt == nil {
		return TTEntry{}, false
	}
	e, ok := w.tt.Probe(w.pos.Hash)
	if ok {
		w.stats.TTHits++
	}
	return e, ok
}

func (w *Worker) store(depth, score, ply int, nt NodeType, m board.Move) {
	if w.tt != nil {
		w.tt.Store(w.pos.Hash, depth, AdjustScoreToTT(score, ply), nt, m)
	}
}

// isDraw covers the draws a search node can claim besides stalemate.
func (w *Worker) isDraw() bool {
	return w.pos.IsFiftyMoveDraw() || w.pos.IsRepetition() || w.pos.IsInsufficientMaterial()
}

func (w *Worker) terminalScore(ply int) int {
	if w.pos.InCheck() {
		return -MateScore + ply
	}
	return 0
}

// orderMoves fills scores for the generated moves of the current node.
func (w *Worker) orderMoves(ml *board.MoveList, scores []int, ttMove board.Move, ply int) {
	moves := ml.Slice()
	w.scorer.ScoreMoves(w.pos, moves, scores, ttMove, w.heur.Killers(ply))
	w.heur.addHistory(w.pos.SideToMove(), moves, scores)
}

// iterate runs iterative deepening. Helpers start one ply deeper on odd
// ids; report is called for every completed depth and may end the loop.
func (w *Worker) iterate(maxDepth int, report func(depthResult) bool) {
	var scores []int
	for depth := 1 + w.id%2; depth <= maxDepth; depth++ {
		score, ok := w.searchDepth(depth, scores)
		if !ok {
			return
		}
		scores = append(scores, score)
		res := depthResult{
			Depth: depth,
			Score: score,
			PV:    w.pv.Line(),
			Stats: w.stats,
		}
		if len(res.PV) > 0 {
			res.Move = res.PV[0]
			w.rootHint = res.Move
		}
		if report != nil && !report(res) {
			return
		}
	}
}

// searchDepth searches the root at depth inside an aspiration window built
// from the previous scores, widening each side independently on failure.
func (w *Worker) searchDepth(depth int, prev []int) (int, bool) {
	alpha, beta := -Infinity, Infinity
	lowDelta, highDelta := aspirationWindow, aspirationWindow
	center := 0
	windowed := depth > 2 && len(prev) >= 2
	if windowed {
		center = (prev[len(prev)-1] + prev[len(prev)-2]) / 2
	}

	for {
		if windowed {
			alpha = max(center-lowDelta, -Infinity)
			beta = min(center+highDelta, Infinity)
		}
		score := w.pvSearch(alpha, beta, depth, 0)
		if w.aborted {
			return 0, false
		}
		found := w.pv.length[0] > 0
		switch {
		case score <= alpha && alpha > -Infinity:
			lowDelta *= 2
		case score >= beta && beta < Infinity:
			highDelta *= 2
		case !found && (alpha > -Infinity || beta < Infinity):
			lowDelta *= 2
			highDelta *= 2
		default:
			return score, true
		}
		w.stats.AspirationFails++
	}
}

// pvSearch is the full window search. It is fail-hard: the result always
// lies in [alpha, beta].
func (w *Worker) pvSearch(alpha, beta, depth, ply int) int {
	if w.checkStop() {
		return 0
	}
	w.pv.length[ply] = ply
	if depth <= 0 {
		return w.quiesce(alpha, beta, ply, 0)
	}
	w.stats.Nodes++
	pos := w.pos

	var ml board.MoveList
	n := pos.GenerateLegalMoves(&ml)
	if n == 0 {
		return clamp(w.terminalScore(ply), alpha, beta)
	}
	if ply > 0 && w.isDraw() {
		return clamp(0, alpha, beta)
	}
	if ply >= MaxPly {
		return clamp(w.eval.Evaluate(pos), alpha, beta)
	}

	inCheck := pos.InCheck()
	ttMove := board.NoMove
	if e, ok := w.probe(); ok && e.Type != QNode {
		ttMove = e.Move
		if ply > 0 && int(e.Depth) >= depth {
			score := AdjustScoreFromTT(int(e.Score), ply)
			switch {
			case e.Type == PVNode:
				return clamp(score, alpha, beta)
			case e.Type == CutNode && score >= beta:
				return beta
			case e.Type == CutNode && score > alpha:
				alpha = score
			case e.Type == AllNode && score <= alpha:
				return alpha
			}
		}
	}
	if ply == 0 && ttMove == board.NoMove {
		ttMove = w.rootHint
	}

	if ply > 0 && w.tryNullMove(beta, depth, ply, inCheck) {
		return beta
	}

	if ply == 0 && w.id > 0 {
		frand.Shuffle(n, ml.Swap)
	}
	var scores [board.MaxMoves]int
	w.orderMoves(&ml, scores[:n], ttMove, ply)

	us := pos.SideToMove()
	bestMove := board.NoMove
	saved := *pos
	for i := 0; i < n; i++ {
		PickMove(&ml, scores[:n], i)
		m := ml.Get(i)
		pos.MakeMove(m)

		var score int
		if i == 0 {
			score = -w.pvSearch(-beta, -alpha, depth-1, ply+1)
		} else {
			r := 0
			if !inCheck && depth >= lmrMinDepth && i >= lmrMinMoveIndex && m.IsQuiet() && !pos.InCheck() {
				r = min(lmrReduction(depth, i), depth-1)
			}
			score = -w.zwSearch(-alpha, depth-1-r, ply+1)
			if score > alpha && r > 0 {
				score = -w.zwSearch(-alpha, depth-1, ply+1)
			}
			if score > alpha && score < beta {
				w.stats.Researches++
				score = -w.pvSearch(-beta, -alpha, depth-1, ply+1)
			}
		}
		*pos = saved
		if w.aborted {
			return 0
		}

		if score >= beta {
			w.store(depth, beta, ply, CutNode, m)
			if m.IsQuiet() {
				w.heur.recordCutoff(us, m, depth, ply)
			}
			w.stats.BetaCutoffs++
			return beta
		}
		if score > alpha {
			alpha = score
			bestMove = m
			w.pv.update(ply, m)
		}
	}

	if bestMove != board.NoMove {
		w.store(depth, alpha, ply, PVNode, bestMove)
	} else {
		w.store(depth, alpha, ply, AllNode, board.NoMove)
	}
	return alpha
}

// tryNullMove passes the turn and reports whether a reduced zero window
// search still reaches beta.
func (w *Worker) tryNullMove(beta, depth, ply int, inCheck bool) bool {
	pos := w.pos
	if inCheck || pos.Stage == board.EndGame || depth < nullMoveMinDepth || w.nullAt[ply] {
		return false
	}
	if beta >= MateScore-MaxPly {
		return false
	}
	r := 2 + depth/4
	saved := *pos
	pos.MakeNullMove()
	w.nullAt[ply+1] = true
	score := -w.zwSearch(1-beta, max(depth-1-r, 0), ply+1)
	w.nullAt[ply+1] = false
	*pos = saved
	if w.aborted || score < beta {
		return false
	}
	w.store(depth, beta, ply, CutNode, board.NoMove)
	w.stats.NullCutoffs++
	return true
}

// zwSearch tests whether the position scores at least beta. It returns
// exactly beta or beta-1.
func (w *Worker) zwSearch(beta, depth, ply int) int {
	alpha := beta - 1
	if w.checkStop() {
		return alpha
	}
	w.pv.length[ply] = ply
	if depth <= 0 {
		return w.quiesce(alpha, beta, ply, 0)
	}
	w.stats.Nodes++
	pos := w.pos

	var ml board.MoveList
	n := pos.GenerateLegalMoves(&ml)
	if n == 0 {
		return clamp(w.terminalScore(ply), alpha, beta)
	}
	if w.isDraw() {
		return clamp(0, alpha, beta)
	}
	if ply >= MaxPly {
		return clamp(w.eval.Evaluate(pos), alpha, beta)
	}

	inCheck := pos.InCheck()
	ttMove := board.NoMove
	if e, ok := w.probe(); ok && e.Type != QNode {
		ttMove = e.Move
		if int(e.Depth) >= depth {
			score := AdjustScoreFromTT(int(e.Score), ply)
			switch e.Type {
			case PVNode:
				return clamp(score, alpha, beta)
			case CutNode:
				if score >= beta {
					return beta
				}
			case AllNode:
				if score < beta {
					return alpha
				}
			}
		}
	}

	static := 0
	if !inCheck {
		static = w.eval.Evaluate(pos)
		if depth <= razorMaxDepth && static+razorMargin[depth] < beta {
			if w.quiesce(alpha, beta, ply, 0) < beta {
				return alpha
			}
		}
		if static >= beta && w.tryNullMove(beta, depth, ply, inCheck) {
			return beta
		}
	}
	futile := !inCheck && depth <= futilityMaxDepth && static+futilityMargin[depth] < beta

	var scores [board.MaxMoves]int
	w.orderMoves(&ml, scores[:n], ttMove, ply)

	us := pos.SideToMove()
	saved := *pos
	for i := 0; i < n; i++ {
		PickMove(&ml, scores[:n], i)
		m := ml.Get(i)
		pos.MakeMove(m)
		if futile && i > 0 && m.IsQuiet() && !pos.InCheck() {
			*pos = saved
			continue
		}

		r := 0
		if !inCheck && depth >= lmrMinDepth && i >= lmrMinMoveIndex && m.IsQuiet() && !pos.InCheck() {
			r = min(lmrReduction(depth, i), depth-1)
		}
		score := -w.zwSearch(1-beta, depth-1-r, ply+1)
		if score >= beta && r > 0 {
			score = -w.zwSearch(1-beta, depth-1, ply+1)
		}
		*pos = saved
		if w.aborted {
			return alpha
		}

		if score >= beta {
			w.store(depth, beta, ply, CutNode, m)
			if m.IsQuiet() {
				w.heur.recordCutoff(us, m, depth, ply)
			}
			w.stats.BetaCutoffs++
			return beta
		}
	}

	w.store(depth, alpha, ply, AllNode, board.NoMove)
	return alpha
}

// quiesce resolves captures below the horizon. The first quiescence ply
// also tries checks; deeper plies only captures and promotions.
func (w *Worker) quiesce(alpha, beta, ply, qPly int) int {
	if w.checkStop() {
		return alpha
	}
	w.pv.length[ply] = ply
	w.stats.Nodes++
	w.stats.QNodes++
	pos := w.pos
	inCheck := pos.InCheck()

	if ply >= MaxPly {
		return clamp(w.eval.Evaluate(pos), alpha, beta)
	}

	if e, ok := w.probe(); ok {
		score := AdjustScoreFromTT(int(e.Score), ply)
		switch e.Type {
		case PVNode, QNode:
			return clamp(score, alpha, beta)
		case CutNode:
			if score >= beta {
				return beta
			}
		case AllNode:
			if score <= alpha {
				return alpha
			}
		}
	}

	var ml board.MoveList
	var n int
	if !inCheck {
		stand := w.eval.Evaluate(pos)
		if stand >= beta {
			return beta
		}
		alpha = max(alpha, stand)
		if qPly >= MaxQPly {
			return alpha
		}
		if qPly == 0 {
			n = pos.GenerateThreatMoves(&ml)
		} else {
			n = tacticalMoves(pos, &ml)
		}
	} else {
		n = pos.GenerateLegalMoves(&ml)
		if n == 0 {
			return clamp(-MateScore+ply, alpha, beta)
		}
		if qPly >= MaxQPly {
			return clamp(w.eval.Evaluate(pos), alpha, beta)
		}
	}

	var scores [board.MaxMoves]int
	w.scorer.ScoreMoves(pos, ml.Slice(), scores[:n], board.NoMove, [2]board.Move{})

	origAlpha := alpha
	bestMove := board.NoMove
	saved := *pos
	for i := 0; i < n; i++ {
		PickMove(&ml, scores[:n], i)
		m := ml.Get(i)
		if !inCheck && m.IsCapture() && !m.IsPromotion() && SEEMove(pos, m) < 0 {
			continue
		}
		pos.MakeMove(m)
		score := -w.quiesce(-beta, -alpha, ply+1, qPly+1)
		*pos = saved
		if w.aborted {
			return alpha
		}
		if score >= beta {
			w.store(0, beta, ply, CutNode, m)
			return beta
		}
		if score > alpha {
			alpha = score
			bestMove = m
			w.pv.update(ply, m)
		}
	}

	if alpha > origAlpha {
		w.store(0, alpha, ply, QNode, bestMove)
	} else if !inCheck {
		w.store(0, alpha, ply, AllNode, board.NoMove)
	}
	return alpha
}

// tacticalMoves keeps the captures and queen promotions of the legal list.
func tacticalMoves(pos *board.Position, ml *board.MoveList) int {
	var all board.MoveList
	pos.GenerateLegalMoves(&all)
	ml.Clear()
	for _, m := range all.Slice() {
		if m.IsCapture() || m.Promotion() == board.Queen {
			ml.Add(m)
		}
	}
	return ml.Len()
}
