package board

import "testing"

func TestTerminalPositions(t *testing.T) {
	tests := []struct {
		name      string
		fen       string
		checkmate bool
		stalemate bool
	}{
		{"back rank mate", "R6k/6pp/8/8/8/8/8/K7 b - - 0 1", true, false},
		{"king takes rook", "6Rk/8/8/8/8/8/8/K7 b - - 0 1", false, false},
		{"smothered", "6rk/5Npp/8/8/8/8/8/K7 b - - 0 1", true, false},
		{"queen stalemate", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", false, true},
		{"pawn stalemate", "8/8/8/8/8/5k2/5p2/5K2 w - - 0 1", false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := ParseFEN(tc.fen)
			if err != nil {
				t.Fatal(err)
			}
			if got := pos.IsCheckmate(); got != tc.checkmate {
				t.Errorf("IsCheckmate() = %v, want %v", got, tc.checkmate)
			}
			if got := pos.IsStalemate(); got != tc.stalemate {
				t.Errorf("IsStalemate() = %v, want %v", got, tc.stalemate)
			}
		})
	}
}

func TestDoubleCheckOnlyKingMoves(t *testing.T) {
	// Knight on f6 and rook on e1 both check the king on e8.
	pos, err := ParseFEN("4k3/8/5N2/8/8/8/8/4RK2 b - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	if !pos.InDoubleCheck() {
		t.Fatalf("expected double check, checkers:\n%s", pos.Checkers)
	}
	var ml MoveList
	pos.GenerateLegalMoves(&ml)
	for _, m := range ml.Slice() {
		if m.From() != E8 {
			t.Errorf("non-king move %s in double check", m)
		}
	}
	if ml.Len() == 0 {
		t.Error("king has escape squares")
	}
}

func TestInsufficientMaterial(t *testing.T) {
	tests := []struct {
		fen  string
		want bool
	}{
		{"8/8/4k3/8/8/3K4/8/8 w - - 0 40", true},
		{"8/8/4k3/8/8/3KN3/8/8 w - - 0 40", true},
		{"8/8/4k3/8/8/3KB3/8/8 w - - 0 40", true},
		{"8/8/4kn2/8/8/3KB3/8/8 w - - 0 40", false},
		{"8/8/4k3/8/8/3KR3/8/8 w - - 0 40", false},
		{"8/8/4k3/8/4P3/3K4/8/8 w - - 0 40", false},
	}
	for _, tc := range tests {
		pos, err := ParseFEN(tc.fen)
		if err != nil {
			t.Fatal(err)
		}
		if got := pos.IsInsufficientMaterial(); got != tc.want {
			t.Errorf("%s: IsInsufficientMaterial() = %v, want %v", tc.fen, got, tc.want)
		}
	}
}
