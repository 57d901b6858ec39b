package engine

import "github.com/hailam/bitchess/internal/board"

// SEE estimates the material outcome of attacker on from capturing victim on
// target, assuming both sides keep recapturing with their least valuable
// piece. The result is from the capturing side's point of view.
func SEE(pos *board.Position, target board.Square, victim board.Piece, from board.Square, attacker board.Piece) int {
	if victim == board.NoPiece || attacker == board.NoPiece {
		return 0
	}
	var gain [32]int
	d := 0
	gain[d] = pieceValues[victim.Type()]

	occupied := pos.AllOccupied &^ board.SquareBB(from)
	attackerValue := pieceValues[attacker.Type()]
	side := attacker.Color().Other()

	for d < len(gain)-1 {
		d++
		gain[d] = attackerValue - gain[d-1]
		if max(-gain[d-1], gain[d]) < 0 {
			break
		}
		sq, pc := leastValuableAttacker(pos, target, side, occupied)
		if sq == board.NoSquare {
			break
		}
		occupied &^= board.SquareBB(sq)
		attackerValue = pieceValues[pc.Type()]
		side = side.Other()
	}

	for d--; d > 0; d-- {
		gain[d-1] = -max(-gain[d-1], gain[d])
	}
	return gain[0]
}

// SEEMove runs SEE for a generated move; quiet moves score 0.
func SEEMove(pos *board.Position, m board.Move) int {
	if !m.IsCapture() {
		return 0
	}
	attacker := pos.PieceAt(m.From())
	victim := pos.PieceAt(m.To())
	if m.Flag() == board.EPCapture {
		victim = board.NewPiece(board.Pawn, attacker.Color().Other())
	}
	return SEE(pos, m.To(), victim, m.From(), attacker)
}

// leastValuableAttacker returns the cheapest piece of side attacking target
// through occupied. Sliders behind removed pieces show up as x-rays.
func leastValuableAttacker(pos *board.Position, target board.Square, side board.Color, occupied board.Bitboard) (board.Square, board.Piece) {
	attackers := pos.AttackersByColor(target, side, occupied) & occupied
	if attackers == 0 {
		return board.NoSquare, board.NoPiece
	}
	for pt := board.Pawn; pt <= board.King; pt++ {
		if bb := attackers & pos.Pieces[side][pt]; bb != 0 {
			return bb.LSB(), board.NewPiece(pt, side)
		}
	}
	return board.NoSquare, board.NoPiece
}
