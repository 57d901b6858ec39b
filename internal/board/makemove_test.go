package board

import (
	"testing"

	"github.com/hailam/bitchess/internal/testutil"
)

// checkConsistency verifies that the mailbox, the bitboards and the derived
// fields agree with each other.
func checkConsistency(t *testing.T, pos *Position) {
	t.Helper()
	for sq := A1; sq <= H8; sq++ {
		pc := pos.Mailbox[sq]
		if pc == NoPiece {
			if pos.AllOccupied.IsSet(sq) {
				t.Fatalf("%s: empty mailbox square %s is occupied\n%s", pos.FEN(), sq, pos)
			}
			continue
		}
		owners := 0
		for c := White; c <= Black; c++ {
			for pt := Pawn; pt <= King; pt++ {
				if pos.Pieces[c][pt].IsSet(sq) {
					owners++
					if NewPiece(pt, c) != pc {
						t.Fatalf("%s: mailbox has %s on %s, bitboards %s", pos.FEN(), pc, sq, NewPiece(pt, c))
					}
				}
			}
		}
		if owners != 1 {
			t.Fatalf("%s: %d bitboards claim %s", pos.FEN(), owners, sq)
		}
	}
	for c := White; c <= Black; c++ {
		var union Bitboard
		for pt := Pawn; pt <= King; pt++ {
			union |= pos.Pieces[c][pt]
		}
		if union != pos.Occupied[c] {
			t.Fatalf("%s: %s occupancy out of sync", pos.FEN(), c)
		}
		if pos.Pieces[c][King].PopCount() != 1 {
			t.Fatalf("%s: %s has %d kings", pos.FEN(), c, pos.Pieces[c][King].PopCount())
		}
	}
	if pos.Occupied[White]|pos.Occupied[Black] != pos.AllOccupied {
		t.Fatalf("%s: total occupancy out of sync", pos.FEN())
	}
	if pos.Hash != pos.ComputeHash() {
		t.Fatalf("%s: incremental hash %016x, recomputed %016x", pos.FEN(), pos.Hash, pos.ComputeHash())
	}
	if pos.PawnKey != pos.ComputePawnKey() {
		t.Fatalf("%s: pawn key out of sync", pos.FEN())
	}
	if pos.Attacks[White] != pos.attackMask(White, pos.AllOccupied) ||
		pos.Attacks[Black] != pos.attackMask(Black, pos.AllOccupied) {
		t.Fatalf("%s: stale attack masks", pos.FEN())
	}
}

func TestMakeMoveKeepsPositionConsistent(t *testing.T) {
	for i, fen := range walkFENs {
		randomWalk(t, fen, 500, uint64(400+i), func(pos *Position) {
			checkConsistency(t, pos)
		})
	}
}

func TestCopyRestoreRoundTrip(t *testing.T) {
	for i, fen := range walkFENs {
		randomWalk(t, fen, 100, uint64(500+i), func(pos *Position) {
			saved := *pos
			var ml MoveList
			pos.GenerateLegalMoves(&ml)
			for _, m := range ml.Slice() {
				pos.MakeMove(m)
				*pos = saved
				if pos.Hash != saved.Hash || pos.Pieces != saved.Pieces || pos.Mailbox != saved.Mailbox {
					t.Fatalf("restore after %s did not reproduce %s", m, saved.FEN())
				}
			}
			testutil.AssertEqual(t, pos.FEN(), saved.FEN())
		})
	}
}

func play(t *testing.T, pos *Position, moves ...string) {
	t.Helper()
	for _, s := range moves {
		m, err := ParseMove(s, pos)
		testutil.AssertNoError(t, err, "move %s", s)
		pos.MakeMove(m)
	}
}

func TestCastlingRightsRevoked(t *testing.T) {
	tests := []struct {
		name  string
		moves []string
		want  CastlingRights
	}{
		{"king moves", []string{"e1f1"}, BlackKingSideCastle | BlackQueenSideCastle},
		{"rook moves", []string{"h1g1"}, WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle},
		{"rook captured", []string{"a1a8"}, WhiteKingSideCastle | BlackKingSideCastle},
		{"castles", []string{"e1g1"}, BlackKingSideCastle | BlackQueenSideCastle},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
			testutil.AssertNoError(t, err)
			play(t, pos, tc.moves...)
			testutil.AssertEqual(t, pos.Castling(), tc.want)
			checkConsistency(t, pos)
		})
	}
}

func TestCastlingMovesRook(t *testing.T) {
	pos, err := ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1")
	testutil.AssertNoError(t, err)
	play(t, pos, "e8c8")
	testutil.AssertEqual(t, pos.PieceAt(C8), BlackKing)
	testutil.AssertEqual(t, pos.PieceAt(D8), BlackRook)
	testutil.AssertEqual(t, pos.PieceAt(A8), NoPiece)
	testutil.AssertEqual(t, pos.FullMoveNumber, 2)
}

func TestCastlingThroughAttack(t *testing.T) {
	// The bishop on a6 covers f1, so only queenside castling is legal.
	pos, err := ParseFEN("4k3/8/b7/8/8/8/8/R3K2R w KQ - 0 1")
	testutil.AssertNoError(t, err)
	var ml MoveList
	pos.GenerateLegalMoves(&ml)
	testutil.AssertTrue(t, !ml.Contains(NewMove(E1, G1, KingCastle)), "kingside castle through f1")
	testutil.AssertTrue(t, ml.Contains(NewMove(E1, C1, QueenCastle)), "queenside castle missing")
}

func TestEnPassantLifecycle(t *testing.T) {
	pos := NewPosition()
	play(t, pos, "e2e4")
	testutil.AssertEqual(t, pos.EnPassantSquare(), E3)
	testutil.AssertEqual(t, pos.HalfMoveClock, 0)
	play(t, pos, "g8f6")
	testutil.AssertEqual(t, pos.EnPassantSquare(), NoSquare)
	testutil.AssertEqual(t, pos.HalfMoveClock, 1)
	play(t, pos, "e4e5", "d7d5", "e5d6")
	testutil.AssertEqual(t, pos.PieceAt(D5), NoPiece)
	testutil.AssertEqual(t, pos.PieceAt(D6), WhitePawn)
	checkConsistency(t, pos)
}

func TestPromotionCapture(t *testing.T) {
	pos, err := ParseFEN("1r2k3/P7/8/8/8/8/8/4K3 w - - 0 1")
	testutil.AssertNoError(t, err)
	play(t, pos, "a7b8q")
	testutil.AssertEqual(t, pos.PieceAt(B8), WhiteQueen)
	testutil.AssertTrue(t, pos.InCheck(), "queen on b8 checks e8")
	checkConsistency(t, pos)
}

func TestNullMove(t *testing.T) {
	pos := NewPosition()
	play(t, pos, "e2e4")
	saved := *pos
	pos.MakeNullMove()

	testutil.AssertEqual(t, pos.SideToMove(), White)
	testutil.AssertEqual(t, pos.EnPassant, Empty)
	testutil.AssertEqual(t, pos.FullMoveNumber, 2)
	testutil.AssertEqual(t, pos.HalfMoveClock, 0)
	testutil.AssertEqual(t, pos.Hash, pos.ComputeHash())
	testutil.AssertEqual(t, pos.History.Len(), saved.History.Len())

	*pos = saved
	testutil.AssertEqual(t, pos.FEN(), saved.FEN())
}

func TestNullMoveKeepsHalfMoveClock(t *testing.T) {
	pos, err := ParseFEN("4k3/8/8/8/8/8/8/R3K3 w - - 99 80")
	testutil.AssertNoError(t, err)
	pos.MakeNullMove()
	testutil.AssertEqual(t, pos.HalfMoveClock, 99)
	testutil.AssertTrue(t, !pos.IsFiftyMoveDraw(), "a pass reached the fifty-move limit")

	play(t, pos, "e8d8")
	testutil.AssertEqual(t, pos.HalfMoveClock, 100)
	testutil.AssertTrue(t, pos.IsFiftyMoveDraw())
}

func TestRepetition(t *testing.T) {
	pos := NewPosition()
	play(t, pos, "g1f3", "g8f6", "f3g1")
	testutil.AssertTrue(t, !pos.IsRepetition(), "no repetition yet")
	play(t, pos, "f6g8")
	testutil.AssertTrue(t, pos.IsRepetition(), "start position repeated")

	play(t, pos, "e2e4")
	testutil.AssertTrue(t, !pos.IsRepetition(), "pawn move resets history")
	testutil.AssertEqual(t, pos.History.LastReset(), pos.History.Len()-1)
}

func TestCloneHasIndependentHistory(t *testing.T) {
	pos := NewPosition()
	play(t, pos, "g1f3")
	clone := pos.Clone()
	play(t, clone, "g8f6")
	play(t, pos, "b8c6")
	testutil.AssertEqual(t, clone.History.hashes[2], clone.Hash)
	testutil.AssertEqual(t, pos.History.hashes[2], pos.Hash)
}

func TestCapturingKingPanics(t *testing.T) {
	pos, err := ParseFEN("4k3/8/8/8/8/8/8/4KR2 w - - 0 1")
	testutil.AssertNoError(t, err)
	// Place the rook so it attacks the king and force a king capture.
	defer func() {
		if recover() == nil {
			t.Error("capturing a king did not panic")
		}
	}()
	pos.removePiece(F1)
	pos.putPiece(WhiteRook, E2)
	pos.MakeMove(NewMove(E2, E8, Capture))
}
