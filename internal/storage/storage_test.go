package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/bitchess/internal/board"
	"github.com/hailam/bitchess/internal/engine"
	"github.com/hailam/bitchess/internal/testutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true, CacheItems: 128, Logger: zerolog.Nop()})
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPositionKeyIgnoresCounters(t *testing.T) {
	a := positionKey("8/8/8/8/8/8/8/K6k w - - 0 1")
	b := positionKey("8/8/8/8/8/8/8/K6k w - - 17 42")
	testutil.AssertEqual(t, a, b)
	testutil.AssertEqual(t, a, "8/8/8/8/8/8/8/K6k w - -")
}

func TestAnalysisRoundTrip(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadAnalysis(board.StartFEN)
	testutil.AssertErrorIs(t, err, ErrNotFound)

	want := Analysis{
		FEN:      board.StartFEN,
		Move:     "e2e4",
		Score:    31,
		Depth:    9,
		PV:       []string{"e2e4", "e7e5"},
		Nodes:    123456,
		Elapsed:  2 * time.Second,
		Searched: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	testutil.AssertNoError(t, s.SaveAnalysis(want))

	got, err := s.LoadAnalysis(board.StartFEN)
	testutil.AssertNoError(t, err)
	want.FEN = positionKey(board.StartFEN)
	testutil.AssertEqual(t, got, want)

	n, err := s.CountAnalyses()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, n, 1)
}

func TestShallowAnalysisDoesNotReplaceDeeper(t *testing.T) {
	s := openTestStore(t)
	testutil.AssertNoError(t, s.SaveAnalysis(Analysis{FEN: board.StartFEN, Move: "d2d4", Depth: 12}))
	testutil.AssertNoError(t, s.SaveAnalysis(Analysis{FEN: board.StartFEN, Move: "a2a3", Depth: 3}))

	got, err := s.LoadAnalysis(board.StartFEN)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.Move, "d2d4")

	testutil.AssertNoError(t, s.SaveAnalysis(Analysis{FEN: board.StartFEN, Move: "c2c4", Depth: 14}))
	got, err = s.LoadAnalysis(board.StartFEN)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.Move, "c2c4")
}

func TestPerftResults(t *testing.T) {
	s := openTestStore(t)
	_, err := s.LoadPerft(board.StartFEN, 4)
	testutil.AssertErrorIs(t, err, ErrNotFound)

	testutil.AssertNoError(t, s.SavePerft(PerftResult{FEN: board.StartFEN, Depth: 4, Nodes: 197281}))
	r, err := s.LoadPerft(board.StartFEN, 4)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, r.Nodes, uint64(197281))

	_, err = s.LoadPerft(board.StartFEN, 5)
	testutil.AssertErrorIs(t, err, ErrNotFound, "depth is part of the key")
}

func TestStoreAsEngineStore(t *testing.T) {
	s := openTestStore(t)
	pos := board.NewPosition()

	_, ok := s.BestMove(pos)
	testutil.AssertTrue(t, !ok, "empty store returned a move")

	m, err := board.ParseMove("g1f3", pos)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, s.SaveSearch(pos, engine.Result{Move: m, Score: 20, Depth: 7, PV: []board.Move{m}}))

	got, ok := s.BestMove(pos)
	testutil.AssertTrue(t, ok)
	testutil.AssertEqual(t, got, m)

	// A stored move that is illegal in the position is ignored.
	testutil.AssertNoError(t, s.SaveAnalysis(Analysis{FEN: pos.FEN(), Move: "e2e5", Depth: 30}))
	_, ok = s.BestMove(pos)
	testutil.AssertTrue(t, !ok, "illegal stored move returned")

	// Results without a move are not stored.
	mated, err := board.ParseFEN("R5k1/5ppp/8/8/8/8/8/6K1 b - - 0 1")
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, s.SaveSearch(mated, engine.Result{Score: -engine.MateScore, Depth: 1}))
	_, err = s.LoadAnalysis(mated.FEN())
	testutil.AssertErrorIs(t, err, ErrNotFound)
}

func TestEngineUsesStore(t *testing.T) {
	s := openTestStore(t)
	cfg := engine.DefaultConfig()
	cfg.HashMB = 4
	cfg.Store = s
	eng, err := engine.NewEngine(cfg)
	testutil.AssertNoError(t, err)

	pos, err := board.ParseFEN("4k3/8/8/3q4/8/8/8/3RK3 w - - 0 1")
	testutil.AssertNoError(t, err)
	res, err := eng.GetBestMove(context.Background(), pos, engine.Limits{Depth: 3})
	testutil.AssertNoError(t, err)

	a, err := s.LoadAnalysis(pos.FEN())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, a.Move, res.Move.String())
	testutil.AssertEqual(t, a.Depth, 3)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Options{Dir: dir, Logger: zerolog.Nop()})
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, s.SavePerft(PerftResult{FEN: board.StartFEN, Depth: 3, Nodes: 8902}))
	testutil.AssertNoError(t, s.Close())

	s, err = Open(Options{Dir: dir, Logger: zerolog.Nop()})
	testutil.AssertNoError(t, err)
	defer s.Close()
	r, err := s.LoadPerft(board.StartFEN, 3)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, r.Nodes, uint64(8902))
}

func TestDataPaths(t *testing.T) {
	t.Setenv("BITCHESS_DATA_DIR", "")
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	dataDir, err := GetDataDir()
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, dataDir != "", "empty data dir")

	_, err = os.Stat(dataDir)
	testutil.AssertNoError(t, err, "data directory was not created")

	dbDir, err := GetDatabaseDir()
	testutil.AssertNoError(t, err)
	_, err = os.Stat(dbDir)
	testutil.AssertNoError(t, err)

	override := filepath.Join(t.TempDir(), "custom")
	t.Setenv("BITCHESS_DATA_DIR", override)
	dataDir, err = GetDataDir()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, dataDir, override)
	dbDir, err = GetDatabaseDir()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, dbDir, filepath.Join(override, "analysis"))
}
