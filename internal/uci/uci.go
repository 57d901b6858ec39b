// Package uci drives the engine over the Universal Chess Interface protocol.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/hailam/bitchess/internal/board"
	"github.com/hailam/bitchess/internal/engine"
	"github.com/hailam/bitchess/internal/storage"
)

const (
	engineName   = "bitchess"
	engineAuthor = "the bitchess authors"
	maxHashMB    = 4096
	maxThreads   = 256
)

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	store    *storage.Store // optional
	position *board.Position
	log      zerolog.Logger

	outMu sync.Mutex
	out   io.Writer
}

// New creates a protocol handler writing to out. store may be nil.
func New(eng *engine.Engine, store *storage.Store, out io.Writer, log zerolog.Logger) *UCI {
	u := &UCI{
		engine:   eng,
		store:    store,
		position: board.NewPosition(),
		log:      log,
		out:      out,
	}
	eng.OnInfo = u.sendInfo
	eng.OnBestMove = u.sendBestMove
	return u
}

// Run reads commands from in until "quit" or end of input.
func (u *UCI) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if !u.handle(scanner.Text()) {
			return nil
		}
	}
	u.handleStop()
	return scanner.Err()
}

// handle executes one command line and reports whether to keep reading.
func (u *UCI) handle(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd, args := parts[0], parts[1:]
	u.log.Debug().Str("cmd", cmd).Strs("args", args).Msg("uci command")

	switch cmd {
	case "uci":
		u.handleUCI()
	case "isready":
		u.send("readyok")
	case "ucinewgame":
		u.handleNewGame()
	case "position":
		u.handlePosition(args)
	case "go":
		u.handleGo(args)
	case "stop":
		u.handleStop()
	case "quit":
		u.handleStop()
		return false
	case "setoption":
		u.handleSetOption(args)
	// Debug commands
	case "d":
		u.send("%s", u.position.String())
	case "eval":
		score := u.engine.Evaluate(u.position)
		u.send("info string eval %d (%s)", score, engine.ScoreToString(score))
	case "perft":
		u.handlePerft(args)
	case "bench":
		u.handleBench(args)
	case "analysis":
		u.handleAnalysis()
	default:
		u.send("info string unknown command: %s", cmd)
	}
	return true
}

func (u *UCI) send(format string, args ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format+"\n", args...)
}

func (u *UCI) handleUCI() {
	u.send("id name %s", engineName)
	u.send("id author %s", engineAuthor)
	u.send("")
	u.send("option name Hash type spin default 64 min 1 max %d", maxHashMB)
	u.send("option name Threads type spin default 1 min 1 max %d", maxThreads)
	u.send("option name Clear Hash type button")
	u.send("option name Debug type check default false")
	u.send("uciok")
}

func (u *UCI) handleNewGame() {
	u.handleStop()
	u.engine.Clear()
	u.position = board.NewPosition()
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
//
// The null move 0000 is skipped.
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	movesAt := len(args)
	for i, arg := range args {
		if arg == "moves" {
			movesAt = i
			break
		}
	}

	var pos *board.Position
	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		var err error
		pos, err = board.ParseFEN(strings.Join(args[1:movesAt], " "))
		if err != nil {
			u.log.Warn().Err(err).Msg("position rejected")
			u.send("info string invalid fen: %v", err)
			return
		}
	default:
		u.send("info string invalid position command")
		return
	}

	if movesAt < len(args) {
		for _, s := range args[movesAt+1:] {
			if s == "0000" {
				continue
			}
			m, err := board.ParseMove(s, pos)
			if err != nil {
				u.log.Warn().Err(err).Msg("position rejected")
				u.send("info string invalid move: %s", s)
				return
			}
			pos.MakeMove(m)
		}
	}
	u.position = pos
}

// parseLimits converts "go" arguments to engine limits.
func parseLimits(args []string) (engine.Limits, error) {
	var limits engine.Limits
	for i := 0; i < len(args); i++ {
		name := args[i]
		if name == "infinite" {
			limits.Infinite = true
			continue
		}
		if name == "ponder" {
			continue
		}
		if i+1 >= len(args) {
			return limits, fmt.Errorf("go %s: missing value", name)
		}
		value, err := strconv.ParseInt(args[i+1], 10, 64)
		if err != nil {
			return limits, fmt.Errorf("go %s: %w", name, err)
		}
		i++

		ms := time.Duration(max(value, 0)) * time.Millisecond
		switch name {
		case "depth":
			limits.Depth = int(value)
		case "nodes":
			limits.Nodes = uint64(max(value, 0))
		case "movetime":
			limits.MoveTime = ms
		case "wtime":
			limits.Time[board.White] = ms
		case "btime":
			limits.Time[board.Black] = ms
		case "winc":
			limits.Inc[board.White] = ms
		case "binc":
			limits.Inc[board.Black] = ms
		case "movestogo":
			limits.MovesToGo = int(value)
		default:
			return limits, fmt.Errorf("go: unknown parameter %q", name)
		}
	}
	return limits, nil
}

func (u *UCI) handleGo(args []string) {
	limits, err := parseLimits(args)
	if err != nil {
		u.send("info string %v", err)
		return
	}
	if err := u.engine.StartSearch(u.position, limits); err != nil {
		if errors.Is(err, engine.ErrSearchInProgress) {
			u.send("info string search already running")
			return
		}
		u.send("info string %v", err)
	}
}

func (u *UCI) handleStop() {
	if u.engine.Searching() {
		u.engine.StopSearch()
	}
}

func (u *UCI) sendBestMove(res engine.Result) {
	if res.Move == board.NoMove {
		u.send("bestmove 0000")
		return
	}
	u.send("bestmove %s", res.Move)
}

// formatScore renders a score as "cp N" or "mate N".
func formatScore(score int) string {
	if engine.IsMateScore(score) {
		return fmt.Sprintf("mate %d", engine.MateIn(score))
	}
	return fmt.Sprintf("cp %d", score)
}

func (u *UCI) sendInfo(info engine.Info) {
	parts := []string{
		fmt.Sprintf("depth %d", info.Depth),
		"score " + formatScore(info.Score),
		fmt.Sprintf("nodes %d", info.Stats.Nodes),
		fmt.Sprintf("nps %d", info.Stats.NPS()),
		fmt.Sprintf("time %d", info.Stats.Elapsed.Milliseconds()),
	}
	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}
	if len(info.PV) > 0 {
		parts = append(parts, "pv "+engine.FormatPV(info.PV))
	}
	u.send("info %s", strings.Join(parts, " "))
}

// handleSetOption processes "setoption name <name> [value <value>]".
func (u *UCI) handleSetOption(args []string) {
	var name, value []string
	target := &name
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			*target = append(*target, arg)
		}
	}
	key := strings.ToLower(strings.Join(name, " "))
	val := strings.Join(value, " ")

	if u.engine.Searching() {
		u.send("info string cannot set %s while searching", key)
		return
	}

	switch key {
	case "hash":
		mb, err := strconv.Atoi(val)
		if err != nil || mb > maxHashMB {
			u.send("info string invalid hash size %q", val)
			return
		}
		if err := u.engine.SetHashSize(mb); err != nil {
			u.send("info string %v", err)
		}
	case "threads":
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 || n > maxThreads {
			u.send("info string invalid thread count %q", val)
			return
		}
		u.engine.SetThreads(n)
	case "clear hash":
		u.engine.Clear()
	case "debug":
		if strings.EqualFold(val, "true") {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	default:
		u.send("info string unknown option %q", key)
	}
}

// handlePerft prints the divide of the current position and stores the
// total. A stored total for the same position and depth is compared.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil || d < 1 {
			u.send("info string invalid perft depth %q", args[0])
			return
		}
		depth = d
	}

	start := time.Now()
	entries, nodes := engine.Divide(u.position, depth)
	elapsed := time.Since(start)

	for _, e := range entries {
		u.send("%s: %d", e.Move, e.Nodes)
	}
	u.send("")
	u.send("Nodes: %s", humanize.Comma(int64(nodes)))
	u.send("Time: %v", elapsed.Round(time.Millisecond))
	if elapsed > 0 {
		u.send("NPS: %s", humanize.SIWithDigits(float64(nodes)/elapsed.Seconds(), 2, "nps"))
	}

	if u.store == nil {
		return
	}
	fen := u.position.FEN()
	if prev, err := u.store.LoadPerft(fen, depth); err == nil && prev.Nodes != nodes {
		u.log.Error().Str("fen", fen).Int("depth", depth).Uint64("stored", prev.Nodes).Uint64("counted", nodes).Msg("perft mismatch")
		u.send("info string perft mismatch: stored %d", prev.Nodes)
	}
	if err := u.store.SavePerft(storage.PerftResult{FEN: fen, Depth: depth, Nodes: nodes, Elapsed: elapsed}); err != nil {
		u.log.Warn().Err(err).Msg("saving perft")
	}
}

// handleAnalysis prints the stored analysis of the current position.
func (u *UCI) handleAnalysis() {
	if u.store == nil {
		u.send("info string no analysis store")
		return
	}
	a, err := u.store.LoadAnalysis(u.position.FEN())
	if errors.Is(err, storage.ErrNotFound) {
		u.send("info string no stored analysis")
		return
	}
	if err != nil {
		u.send("info string %v", err)
		return
	}
	u.send("info string analysis depth %d score %s bestmove %s nodes %s searched %s pv %s",
		a.Depth, formatScore(a.Score), a.Move, humanize.Comma(int64(a.Nodes)),
		humanize.Time(a.Searched), strings.Join(a.PV, " "))
	if san := sanLine(u.position, a.PV); len(san) > 0 {
		u.send("info string san %s", strings.Join(san, " "))
	}
}

// sanLine converts a stored PV to SAN, stopping at the first move that no
// longer parses.
func sanLine(pos *board.Position, pv []string) []string {
	p := pos.Clone()
	moves := make([]board.Move, 0, len(pv))
	for _, s := range pv {
		m, err := board.ParseMove(s, p)
		if err != nil {
			break
		}
		moves = append(moves, m)
		p.MakeMove(m)
	}
	return board.FormatSAN(pos, moves)
}

var benchFENs = []string{
	board.StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
}

// handleBench searches a fixed set of positions to a fixed depth and
// prints the node total.
func (u *UCI) handleBench(args []string) {
	depth := 8
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil && d > 0 {
			depth = d
		}
	}
	if u.engine.Searching() {
		u.send("info string search already running")
		return
	}

	onInfo := u.engine.OnInfo
	u.engine.OnInfo = nil
	defer func() { u.engine.OnInfo = onInfo }()

	var nodes uint64
	var elapsed time.Duration
	for _, fen := range benchFENs {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			u.send("info string %v", err)
			return
		}
		u.engine.Clear()
		res, err := u.engine.GetBestMove(context.Background(), pos, engine.Limits{Depth: depth})
		if err != nil {
			u.send("info string %v", err)
			return
		}
		nodes += res.Stats.Nodes
		elapsed += res.Stats.Elapsed
		u.send("info string bench %s bestmove %s nodes %s", fen, res.Move, humanize.Comma(int64(res.Stats.Nodes)))
	}
	u.send("Nodes: %s", humanize.Comma(int64(nodes)))
	if elapsed > 0 {
		u.send("NPS: %s", humanize.SIWithDigits(float64(nodes)/elapsed.Seconds(), 2, "nps"))
	}
}
