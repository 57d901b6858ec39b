package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/bitchess/internal/board"
)

var (
	// ErrInvalidHashSize is returned for a non-positive transposition table size.
	ErrInvalidHashSize = errors.New("invalid hash size")
	// ErrSearchInProgress is returned when a search is started while another runs.
	ErrSearchInProgress = errors.New("search already in progress")
)

// Store persists finished searches so later searches of the same position
// can start from the stored best move.
type Store interface {
	BestMove(pos *board.Position) (board.Move, bool)
	SaveSearch(pos *board.Position, res Result) error
}

// Config configures an Engine.
type Config struct {
	HashMB    int
	Threads   int
	Evaluator Evaluator  // nil selects the ClassicalEvaluator
	Scorer    MoveScorer // nil selects OrderingScorer
	Logger    zerolog.Logger
	Store     Store // optional
}

// DefaultConfig returns a single threaded configuration with a 64 MB table.
func DefaultConfig() Config {
	return Config{
		HashMB:  64,
		Threads: 1,
		Logger:  zerolog.Nop(),
	}
}

// Result is the outcome of a search: the best move of the deepest
// completed depth, or a legal fallback move if no depth completed.
type Result struct {
	Move  board.Move
	Score int
	Depth int
	PV    []board.Move
	Stats SearchStats
}

// Info is reported after every completed depth of the main worker.
type Info struct {
	Depth    int
	Score    int
	PV       []board.Move
	Stats    SearchStats
	HashFull int
}

// Engine searches positions with a pool of lazy SMP workers sharing one
// transposition table and one set of ordering heuristics.
type Engine struct {
	cfg    Config
	tt     *TranspositionTable
	heur   *Heuristics
	eval   Evaluator
	scorer MoveScorer
	log    zerolog.Logger

	stop atomic.Pointer[atomic.Bool] // flag of the current search
	busy atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	last   Result

	// Callbacks
	OnInfo     func(Info)
	OnBestMove func(Result)
}

// NewEngine creates an engine from cfg.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.HashMB <= 0 {
		return nil, fmt.Errorf("engine: %w: %d MB", ErrInvalidHashSize, cfg.HashMB)
	}
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	e := &Engine{
		cfg:    cfg,
		tt:     NewTranspositionTable(cfg.HashMB),
		heur:   &Heuristics{},
		eval:   cfg.Evaluator,
		scorer: cfg.Scorer,
		log:    cfg.Logger,
	}
	if e.eval == nil {
		e.eval = NewClassicalEvaluator(2)
	}
	if e.scorer == nil {
		e.scorer = OrderingScorer{}
	}
	e.log.Debug().Int("hash_mb", cfg.HashMB).Int("slots", e.tt.Size()).Int("threads", cfg.Threads).Msg("engine created")
	return e, nil
}

// SetHashSize replaces the transposition table. It must not be called while
// a search runs.
func (e *Engine) SetHashSize(mb int) error {
	if mb <= 0 {
		return fmt.Errorf("engine: %w: %d MB", ErrInvalidHashSize, mb)
	}
	e.cfg.HashMB = mb
	e.tt = NewTranspositionTable(mb)
	return nil
}

// SetThreads sets the number of search workers for the next search.
func (e *Engine) SetThreads(n int) {
	e.cfg.Threads = max(n, 1)
}

func (e *Engine) Threads() int { return e.cfg.Threads }

// SetLogger replaces the engine logger.
func (e *Engine) SetLogger(l zerolog.Logger) {
	e.log = l
}

// Clear empties the transposition table and the heuristics.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.heur.Clear()
}

// HashFull returns the permille of the table written by the last search.
func (e *Engine) HashFull() int {
	return e.tt.HashFull()
}

// Evaluate returns the static evaluation of pos.
func (e *Engine) Evaluate(pos *board.Position) int {
	return e.eval.Evaluate(pos)
}

// GetBestMove searches pos until limits are reached or ctx ends and returns
// the best move found. Cancellation is not an error.
func (e *Engine) GetBestMove(ctx context.Context, pos *board.Position, limits Limits) (Result, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return Result{}, ErrSearchInProgress
	}
	defer e.busy.Store(false)
	res := e.search(ctx, pos, limits)
	e.mu.Lock()
	e.last = res
	e.mu.Unlock()
	return res, nil
}

// StartSearch searches pos in the background. OnBestMove is called with
// the result when the search ends. An infinite search holds its result, and
// stays Searching, until StopSearch even if it runs out of depth.
func (e *Engine) StartSearch(pos *board.Position, limits Limits) error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrSearchInProgress
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.mu.Lock()
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	pos = pos.Clone()
	go func() {
		defer close(done)
		defer cancel()
		res := e.search(ctx, pos, limits)
		if limits.Infinite {
			<-ctx.Done()
		}
		e.mu.Lock()
		e.last = res
		e.mu.Unlock()
		e.busy.Store(false)
		if e.OnBestMove != nil {
			e.OnBestMove(res)
		}
	}()
	return nil
}

// StopSearch stops a running search and returns its result. Without a
// running search it returns the last result.
func (e *Engine) StopSearch() Result {
	if stop := e.stop.Load(); stop != nil {
		stop.Store(true)
	}
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return e.Wait()
}

// Wait blocks until the background search ends and returns its result.
func (e *Engine) Wait() Result {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Searching reports whether a search is running.
func (e *Engine) Searching() bool {
	return e.busy.Load()
}

func (e *Engine) search(ctx context.Context, pos *board.Position, limits Limits) Result {
	start := time.Now()
	var tm TimeManager
	tm.Init(limits, pos.SideToMove(), gamePly(pos))
	if tm.Bounded() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, tm.Deadline())
		defer cancel()
	}

	// The group context ends when Wait returns, so its AfterFunc can still
	// fire after this search; it must only touch this search's flag.
	stop := new(atomic.Bool)
	e.stop.Store(stop)
	g, gctx := errgroup.WithContext(ctx)
	stopAfter := context.AfterFunc(gctx, func() { stop.Store(true) })
	defer stopAfter()

	e.tt.NewSearch()
	e.heur.Clear()

	maxDepth := MaxPly
	if limits.Depth > 0 {
		maxDepth = min(limits.Depth, MaxPly)
	}
	hint := e.storedHint(pos)
	log := e.log.With().Str("fen", pos.FEN()).Logger()
	log.Info().Int("max_depth", maxDepth).Int("threads", e.cfg.Threads).
		Dur("budget", tm.MaximumTime()).Str("hint", hint.String()).Msg("search started")

	workers := make([]*Worker, e.cfg.Threads)
	for id := range workers {
		w := newWorker(id, pos, e.tt, e.heur, e.eval, e.scorer, stop)
		w.rootHint = hint
		workers[id] = w
	}
	main := workers[0]
	if !limits.Infinite {
		main.nodeLimit = limits.Nodes
	}

	for _, w := range workers[1:] {
		g.Go(func() error {
			w.iterate(maxDepth, nil)
			log.Debug().Int("worker", w.id).Uint64("nodes", w.stats.Nodes).Msg("helper stopped")
			return nil
		})
	}

	var best Result
	stability := 0
	g.Go(func() error {
		defer stop.Store(true)
		main.iterate(maxDepth, func(r depthResult) bool {
			if r.Move == best.Move {
				stability++
			} else {
				stability = 0
			}
			best = Result{Move: r.Move, Score: r.Score, Depth: r.Depth, PV: r.PV, Stats: r.Stats}
			best.Stats.Elapsed = time.Since(start)

			log.Debug().Int("depth", r.Depth).Int("score", r.Score).Uint64("nodes", r.Stats.Nodes).
				Str("pv", FormatPV(r.PV)).Uint64("aspiration_fails", r.Stats.AspirationFails).Msg("depth completed")
			if e.OnInfo != nil {
				e.OnInfo(Info{Depth: r.Depth, Score: r.Score, PV: r.PV, Stats: best.Stats, HashFull: e.tt.HashFull()})
			}

			tm.AdjustForStability(stability)
			if limits.Infinite {
				return true
			}
			if IsMateScore(r.Score) && r.Depth >= MateScore-abs(r.Score) {
				return false
			}
			return !tm.PastOptimum()
		})
		return nil
	})
	_ = g.Wait()

	if best.Move == board.NoMove {
		best.Move = fallbackMove(pos, hint)
		if best.Move != board.NoMove {
			best.PV = []board.Move{best.Move}
		}
	}
	best.Stats = main.stats
	for _, w := range workers[1:] {
		best.Stats.add(w.stats)
	}
	best.Stats.Elapsed = time.Since(start)

	log.Info().Str("move", best.Move.String()).Int("score", best.Score).Int("depth", best.Depth).
		Uint64("nodes", best.Stats.Nodes).Dur("elapsed", best.Stats.Elapsed).Msg("search finished")

	if e.cfg.Store != nil && best.Depth > 0 {
		if err := e.cfg.Store.SaveSearch(pos, best); err != nil {
			log.Warn().Err(err).Msg("saving search result")
		}
	}
	return best
}

func (e *Engine) storedHint(pos *board.Position) board.Move {
	if e.cfg.Store == nil {
		return board.NoMove
	}
	m, ok := e.cfg.Store.BestMove(pos)
	if !ok {
		return board.NoMove
	}
	var ml board.MoveList
	pos.GenerateLegalMoves(&ml)
	if !ml.Contains(m) {
		return board.NoMove
	}
	return m
}

// fallbackMove picks a move when the search ended before depth 1 completed.
func fallbackMove(pos *board.Position, hint board.Move) board.Move {
	var ml board.MoveList
	if pos.GenerateLegalMoves(&ml) == 0 {
		return board.NoMove
	}
	if ml.Contains(hint) {
		return hint
	}
	var scores [board.MaxMoves]int
	OrderingScorer{}.ScoreMoves(pos, ml.Slice(), scores[:ml.Len()], board.NoMove, [2]board.Move{})
	PickMove(&ml, scores[:ml.Len()], 0)
	return ml.Get(0)
}

func gamePly(pos *board.Position) int {
	return (pos.FullMoveNumber-1)*2 + int(pos.SideToMove())
}

// Perft counts leaf nodes of pos at depth without touching pos.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	return board.Perft(pos.Clone(), depth)
}

// Divide returns the perft count below each root move and their total.
func Divide(pos *board.Position, depth int) ([]board.DivideEntry, uint64) {
	entries := board.Divide(pos.Clone(), depth)
	var total uint64
	for _, en := range entries {
		total += en.Nodes
	}
	return entries, total
}

// FormatPV joins moves in long algebraic notation.
func FormatPV(pv []board.Move) string {
	parts := make([]string, len(pv))
	for i, m := range pv {
		parts[i] = m.String()
	}
	return strings.Join(parts, " ")
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if IsMateScore(score) {
		if n := MateIn(score); n > 0 {
			return fmt.Sprintf("Mate in %d", n)
		}
		return fmt.Sprintf("Mated in %d", -MateIn(score))
	}
	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	return fmt.Sprintf("%s%d.%02d", sign, score/100, score%100)
}
