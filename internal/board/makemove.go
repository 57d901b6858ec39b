package board

import "fmt"

// castleMask[sq] holds the rights that survive a move touching sq.
var castleMask [64]CastlingRights

func init() {
	for sq := range castleMask {
		castleMask[sq] = AllCastling
	}
	castleMask[E1] &^= WhiteKingSideCastle | WhiteQueenSideCastle
	castleMask[H1] &^= WhiteKingSideCastle
	castleMask[A1] &^= WhiteQueenSideCastle
	castleMask[E8] &^= BlackKingSideCastle | BlackQueenSideCastle
	castleMask[H8] &^= BlackKingSideCastle
	castleMask[A8] &^= BlackQueenSideCastle
}

// MakeMove plays m, which must come from one of the generators, and
// recomputes every derived field. Legality is not checked.
func (p *Position) MakeMove(m Move) {
	us := p.SideToMove()
	from, to, flag := m.From(), m.To(), m.Flag()

	if p.EnPassant != 0 {
		p.Hash ^= zobristEnPassant[p.EnPassant.LSB().File()]
		p.EnPassant = 0
	}

	p.HalfMoveClock++
	if p.Mailbox[from].Type() == Pawn {
		p.HalfMoveClock = 0
	}

	switch flag {
	case EPCapture:
		p.removePiece(Square(int(to) - pawnPush(us)))
		p.movePiece(from, to)
	case KingCastle:
		p.movePiece(from, to)
		p.movePiece(to+1, to-1)
	case QueenCastle:
		p.movePiece(from, to)
		p.movePiece(to-2, to+1)
	default:
		if m.IsCapture() {
			if captured := p.removePiece(to); captured.Type() == King {
				panic(fmt.Sprintf("board: %s captures a king in %s", m, p.FEN()))
			}
			p.HalfMoveClock = 0
		}
		if m.IsPromotion() {
			p.removePiece(from)
			p.putPiece(NewPiece(m.Promotion(), us), to)
		} else {
			p.movePiece(from, to)
		}
		if flag == DoublePush {
			ep := Square((int(from) + int(to)) / 2)
			p.EnPassant = SquareBB(ep)
			p.Hash ^= zobristEnPassant[ep.File()]
		}
	}

	if old := p.Castling(); old != NoCastling {
		if rights := old & castleMask[from] & castleMask[to]; rights != old {
			p.Hash ^= zobristCastling[old] ^ zobristCastling[rights]
			p.setCastling(rights)
		}
	}

	if us == Black {
		p.FullMoveNumber++
	}
	p.Flags ^= FlagWhiteToMove
	p.Hash ^= zobristSide

	p.Refresh()
	p.History.push(p.Hash, p.HalfMoveClock == 0)
}

// MakeNullMove passes the turn. It is only used by null-move pruning and
// must not be called in check. A pass is not a ply of the fifty-move count,
// so the halfmove clock is left alone.
func (p *Position) MakeNullMove() {
	if p.SideToMove() == Black {
		p.FullMoveNumber++
	}

	hadEnPassant := p.EnPassant != 0
	if hadEnPassant {
		p.Hash ^= zobristEnPassant[p.EnPassant.LSB().File()]
		p.EnPassant = 0
	}
	p.Flags ^= FlagWhiteToMove
	p.Hash ^= zobristSide

	if hadEnPassant {
		p.Pinned = p.pinnedPieces(White) | p.pinnedPieces(Black)
	}
	p.updateCheckers()
	p.Stage = p.computeStage()

	// Positions before a pass are not repetitions of the line after it.
	p.History.lastReset = len(p.History.hashes)
}
