package board

import (
	"testing"

	"github.com/hailam/bitchess/internal/testutil"
)

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"rnbqkbnr/pp1ppppp/8/2p5/4P3/8/PPPP1PPP/RNBQKBNR w KQkq c6 0 2",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 b - - 12 40",
	}
	for _, fen := range fens {
		pos, err := ParseFEN(fen)
		testutil.AssertNoError(t, err, fen)
		testutil.AssertEqual(t, pos.FEN(), fen)
	}
}

func TestParseFENDefaults(t *testing.T) {
	pos, err := ParseFEN("8/8/8/8/8/8/8/K6k b - -")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, pos.HalfMoveClock, 0)
	testutil.AssertEqual(t, pos.FullMoveNumber, 1)
	testutil.AssertEqual(t, pos.SideToMove(), Black)
	testutil.AssertEqual(t, pos.Stage, EndGame)
	testutil.AssertEqual(t, pos.History.Len(), 1)
}

func TestStartPositionState(t *testing.T) {
	pos := NewPosition()
	testutil.AssertEqual(t, pos.Castling(), AllCastling)
	testutil.AssertEqual(t, pos.Stage, EarlyGame)
	testutil.AssertEqual(t, pos.Flags, FlagWhiteToMove|Flags(AllCastling)<<1)
	testutil.AssertEqual(t, pos.PieceAt(E1), WhiteKing)
	testutil.AssertEqual(t, pos.PieceAt(D8), BlackQueen)
	testutil.AssertEqual(t, pos.Attacks[White]&Rank3, Rank3)
	testutil.AssertTrue(t, !pos.InCheck(), "start position is not check")
}

func TestStageTransitions(t *testing.T) {
	mid, err := ParseFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 9")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, mid.Stage, MidGame)

	early, err := ParseFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 8")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, early.Stage, EarlyGame)
}

func TestParseFENErrors(t *testing.T) {
	bad := []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq -",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq -",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQxq -",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq e4",
		"rnbqkbnr/pppppppp/9/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQ1BNR w kq -",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - x 1",
		"4k3/8/8/8/8/8/8/4KK2 w - - 0 1",
		"4k3/4R3/8/8/8/8/8/4K3 w - - 0 1",
		// en passant target on the mover's own side
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq e3 0 1",
		"rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR b KQkq d6 0 2",
		// no pawn behind the target
		"4k3/8/8/3P4/8/8/8/4K3 w - e6 0 1",
		// pawn behind, but its start square is occupied
		"4k3/4p3/8/3Pp3/8/8/8/4K3 w - e6 0 1",
	}
	for _, fen := range bad {
		_, err := ParseFEN(fen)
		testutil.AssertErrorIs(t, err, ErrInvalidFEN, "%q", fen)
	}
}
