package board

import (
	"strings"
)

const sanPieces = "PNBRQK"

// SAN renders a legal move of pos in Standard Algebraic Notation.
func (m Move) SAN(pos *Position) string {
	if m == NoMove {
		return "-"
	}
	from, to := m.From(), m.To()
	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return m.String()
	}

	var sb strings.Builder
	switch {
	case m.Flag() == KingCastle:
		sb.WriteString("O-O")
	case m.Flag() == QueenCastle:
		sb.WriteString("O-O-O")
	default:
		pt := piece.Type()
		if pt != Pawn {
			sb.WriteByte(sanPieces[pt])
			sb.WriteString(disambiguation(pos, m, pt))
		}
		if m.IsCapture() {
			if pt == Pawn {
				sb.WriteByte('a' + byte(from.File()))
			}
			sb.WriteByte('x')
		}
		sb.WriteString(to.String())
		if m.IsPromotion() {
			sb.WriteByte('=')
			sb.WriteByte(sanPieces[m.Promotion()])
		}
	}

	next := pos.Clone()
	next.MakeMove(m)
	if next.InCheck() {
		if next.IsCheckmate() {
			sb.WriteByte('#')
		} else {
			sb.WriteByte('+')
		}
	}
	return sb.String()
}

// disambiguation returns the origin file, rank or square needed when
// another piece of the same type can reach the destination.
func disambiguation(pos *Position, m Move, pt PieceType) string {
	from, to := m.From(), m.To()
	own := pos.Pieces[pos.SideToMove()][pt]

	var ml MoveList
	pos.GenerateLegalMoves(&ml)
	sameFile, sameRank, ambiguous := false, false, false
	for _, other := range ml.Slice() {
		of := other.From()
		if other.To() != to || of == from || !own.IsSet(of) {
			continue
		}
		ambiguous = true
		sameFile = sameFile || of.File() == from.File()
		sameRank = sameRank || of.Rank() == from.Rank()
	}

	switch {
	case !ambiguous:
		return ""
	case !sameFile:
		return string(rune('a' + from.File()))
	case !sameRank:
		return string(rune('1' + from.Rank()))
	}
	return from.String()
}

// FormatSAN renders a move sequence starting at pos in SAN. It stops at
// the first move that is not legal in the position reached.
func FormatSAN(pos *Position, moves []Move) []string {
	p := pos.Clone()
	out := make([]string, 0, len(moves))
	var ml MoveList
	for _, m := range moves {
		p.GenerateLegalMoves(&ml)
		if !ml.Contains(m) {
			break
		}
		out = append(out, m.SAN(p))
		p.MakeMove(m)
	}
	return out
}
