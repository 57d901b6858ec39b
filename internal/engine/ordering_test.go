package engine

import (
	"testing"

	"github.com/hailam/bitchess/internal/board"
	"github.com/hailam/bitchess/internal/testutil"
)

func TestSEE(t *testing.T) {
	cases := []struct {
		name string
		fen  string
		move string
		want int
	}{
		{"undefended pawn", "4k3/8/8/3p4/8/8/8/3RK3 w - - 0 1", "d1d5", PawnValue},
		{"queen takes defended pawn", "4k3/8/3p4/4p3/8/8/4Q3/4K3 w - - 0 1", "e2e5", PawnValue - QueenValue},
		{"hanging knight", "4k3/8/n2p4/4p3/8/8/4Q3/4K3 w - - 0 1", "e2a6", KnightValue},
		{"doubled rooks x-ray", "3rk3/3r4/8/3p4/8/8/3R4/3RK3 w - - 0 1", "d2d5", PawnValue + RookValue - 2*RookValue},
		{"bishop takes defended knight", "4k3/8/2p5/3n4/8/8/6B1/4K3 w - - 0 1", "g2d5", KnightValue - BishopValue},
		{"en passant", "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 2", "e5d6", PawnValue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pos := mustFEN(t, tc.fen)
			m, err := board.ParseMove(tc.move, pos)
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, SEEMove(pos, m), tc.want)
		})
	}
}

func TestSEEQuietMove(t *testing.T) {
	pos := board.NewPosition()
	m, err := board.ParseMove("g1f3", pos)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, SEEMove(pos, m), 0)
}

func TestScoreMovesOrder(t *testing.T) {
	pos := mustFEN(t, "4k3/8/n2p4/4p3/8/8/4Q3/4K3 w - - 0 1")
	parse := func(s string) board.Move {
		m, err := board.ParseMove(s, pos)
		testutil.AssertNoError(t, err)
		return m
	}
	good := parse("e2a6")
	bad := parse("e2e5")
	killer := parse("e1d1")
	tt := parse("e2h5")
	quiet := parse("e2d3")

	moves := []board.Move{quiet, bad, killer, good, tt}
	scores := make([]int, len(moves))
	OrderingScorer{}.ScoreMoves(pos, moves, scores, tt, [2]board.Move{killer, board.NoMove})

	ml := board.MoveList{}
	for _, m := range moves {
		ml.Add(m)
	}
	var got []board.Move
	for i := 0; i < ml.Len(); i++ {
		PickMove(&ml, scores, i)
		got = append(got, ml.Get(i))
	}
	testutil.AssertEqual(t, got, []board.Move{tt, good, killer, quiet, bad})
}

func TestScorePromotions(t *testing.T) {
	pos := mustFEN(t, "1n2k3/P7/8/8/8/8/8/4K3 w - - 0 1")
	var ml board.MoveList
	pos.GenerateLegalMoves(&ml)
	scores := make([]int, ml.Len())
	OrderingScorer{}.ScoreMoves(pos, ml.Slice(), scores, board.NoMove, [2]board.Move{})

	byMove := map[string]int{}
	for i, m := range ml.Slice() {
		byMove[m.String()] = scores[i]
	}
	testutil.AssertTrue(t, byMove["a7b8q"] > byMove["a7a8q"], "capturing promotion first")
	testutil.AssertTrue(t, byMove["a7a8q"] > byMove["a7a8n"], "queen before knight")
	testutil.AssertTrue(t, byMove["a7a8n"] > byMove["e1d2"], "promotions before quiets")
}

func TestHeuristics(t *testing.T) {
	var h Heuristics
	pos := board.NewPosition()
	m1, _ := board.ParseMove("g1f3", pos)
	m2, _ := board.ParseMove("b1c3", pos)

	h.recordCutoff(board.White, m1, 4, 3)
	h.recordCutoff(board.White, m1, 4, 3)
	testutil.AssertEqual(t, h.Killers(3), [2]board.Move{m1, board.NoMove}, "repeated killer is not duplicated")
	h.recordCutoff(board.White, m2, 2, 3)
	testutil.AssertEqual(t, h.Killers(3), [2]board.Move{m2, m1})
	testutil.AssertEqual(t, h.History(board.White, m1), int64(32))
	testutil.AssertEqual(t, h.History(board.Black, m1), int64(0))

	moves := []board.Move{m1, m2}
	scores := []int{0, KillerScore1}
	h.addHistory(board.White, moves, scores)
	testutil.AssertTrue(t, scores[0] > 0 && scores[0] < KillerScore2, "history score %d", scores[0])
	testutil.AssertEqual(t, scores[1], KillerScore1)

	h.Clear()
	testutil.AssertEqual(t, h.Killers(3), [2]board.Move{})
	testutil.AssertEqual(t, h.History(board.White, m1), int64(0))
}
