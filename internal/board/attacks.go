package board

var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard

	betweenBB [64][64]Bitboard
	lineBB    [64][64]Bitboard
)

func init() {
	initLeaperAttacks()
	initMagics()
	initLines()
}

func initLeaperAttacks() {
	knightSteps := [8]direction{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps := [8]direction{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}

	for sq := A1; sq <= H8; sq++ {
		f, r := sq.File(), sq.Rank()
		for i := range knightSteps {
			knightAttacks[sq] |= stepTo(f+knightSteps[i].df, r+knightSteps[i].dr)
			kingAttacks[sq] |= stepTo(f+kingSteps[i].df, r+kingSteps[i].dr)
		}
		pawnAttacks[White][sq] = PawnAttacksBB(SquareBB(sq), White)
		pawnAttacks[Black][sq] = PawnAttacksBB(SquareBB(sq), Black)
	}
}

func stepTo(f, r int) Bitboard {
	if f < 0 || f > 7 || r < 0 || r > 7 {
		return 0
	}
	return SquareBB(NewSquare(f, r))
}

func initLines() {
	for a := A1; a <= H8; a++ {
		for b := A1; b <= H8; b++ {
			if a == b {
				continue
			}
			bb := SquareBB(b)
			switch {
			case BishopAttacks(a, 0)&bb != 0:
				betweenBB[a][b] = BishopAttacks(a, bb) & BishopAttacks(b, SquareBB(a))
				lineBB[a][b] = (BishopAttacks(a, 0) & BishopAttacks(b, 0)) | SquareBB(a) | bb
			case RookAttacks(a, 0)&bb != 0:
				betweenBB[a][b] = RookAttacks(a, bb) & RookAttacks(b, SquareBB(a))
				lineBB[a][b] = (RookAttacks(a, 0) & RookAttacks(b, 0)) | SquareBB(a) | bb
			}
		}
	}
}

// KnightAttacks returns the knight attacks from sq.
func KnightAttacks(sq Square) Bitboard { return knightAttacks[sq] }

// KingAttacks returns the king attacks from sq.
func KingAttacks(sq Square) Bitboard { return kingAttacks[sq] }

// PawnAttacks returns the squares a pawn of color c on sq attacks.
func PawnAttacks(sq Square, c Color) Bitboard { return pawnAttacks[c][sq] }

// Between returns the squares strictly between a and b, or Empty when they
// do not share a rank, file or diagonal.
func Between(a, b Square) Bitboard { return betweenBB[a][b] }

// Line returns the full board line through a and b, or Empty when they are
// not aligned.
func Line(a, b Square) Bitboard { return lineBB[a][b] }

// Aligned reports whether the three squares lie on one line.
func Aligned(a, b, c Square) bool { return lineBB[a][b].IsSet(c) }

// AttackersByColor returns the pieces of color c attacking sq, with sliders
// computed against occupancy occ.
func (p *Position) AttackersByColor(sq Square, c Color, occ Bitboard) Bitboard {
	pc := &p.Pieces[c]
	return (pawnAttacks[c.Other()][sq] & pc[Pawn]) |
		(knightAttacks[sq] & pc[Knight]) |
		(kingAttacks[sq] & pc[King]) |
		(BishopAttacks(sq, occ) & (pc[Bishop] | pc[Queen])) |
		(RookAttacks(sq, occ) & (pc[Rook] | pc[Queen]))
}

// attackMask returns every square attacked by color c, with sliders computed
// against occupancy occ.
func (p *Position) attackMask(c Color, occ Bitboard) Bitboard {
	pc := &p.Pieces[c]
	att := PawnAttacksBB(pc[Pawn], c)
	for b := pc[Knight]; b != 0; {
		att |= knightAttacks[b.PopLSB()]
	}
	for b := pc[Bishop] | pc[Queen]; b != 0; {
		att |= BishopAttacks(b.PopLSB(), occ)
	}
	for b := pc[Rook] | pc[Queen]; b != 0; {
		att |= RookAttacks(b.PopLSB(), occ)
	}
	for b := pc[King]; b != 0; {
		att |= kingAttacks[b.PopLSB()]
	}
	return att
}

// IsSquareAttacked reports whether any piece of color by attacks sq.
func (p *Position) IsSquareAttacked(sq Square, by Color) bool {
	return p.AttackersByColor(sq, by, p.AllOccupied) != 0
}
