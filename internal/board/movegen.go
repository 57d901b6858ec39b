package board

// GenerateLegalMoves fills ml with exactly the legal moves of the side to
// move and returns their count. Zero means checkmate or stalemate.
func (p *Position) GenerateLegalMoves(ml *MoveList) int {
	ml.Clear()
	us := p.SideToMove()
	ksq := p.KingSquare(us)

	switch {
	case p.InDoubleCheck():
		p.appendKingMoves(ml, us, ksq)
	case p.InCheck():
		p.appendKingMoves(ml, us, ksq)
		p.appendCheckMoves(ml, us, ksq)
	default:
		pinned := p.Pinned & p.Occupied[us]
		p.appendMoves(ml, us, p.Occupied[us]&^pinned, ^p.Occupied[us])
		if pinned != 0 {
			p.appendPinnedMoves(ml, us, ksq, pinned)
		}
		p.appendEnPassant(ml, us, ksq)
		p.appendKingMoves(ml, us, ksq)
		p.appendCastling(ml, us)
	}
	return ml.Len()
}

// appendKingMoves adds king steps to squares the opponent does not attack.
// When in check the danger mask is recomputed without our king, so stepping
// back along a checking ray stays illegal.
func (p *Position) appendKingMoves(ml *MoveList, us Color, ksq Square) {
	them := us.Other()
	danger := p.Attacks[them]
	if p.InCheck() {
		danger = p.attackMask(them, p.AllOccupied&^SquareBB(ksq))
	}
	targets := kingAttacks[ksq] &^ p.Occupied[us] &^ danger
	p.appendTargets(ml, ksq, targets, p.Occupied[them])
}

// appendCheckMoves adds the non-king evasions of a single check: capturing
// the checker or interposing on the checking ray.
func (p *Position) appendCheckMoves(ml *MoveList, us Color, ksq Square) {
	checker := p.Checkers.LSB()
	target := p.Checkers | Between(ksq, checker)
	movable := p.Occupied[us] &^ p.Pinned &^ p.Pieces[us][King]
	p.appendMoves(ml, us, movable, target)
	p.appendEnPassant(ml, us, ksq)
}

// appendPinnedMoves lets each pinned piece slide along the line through its
// king and itself.
func (p *Position) appendPinnedMoves(ml *MoveList, us Color, ksq Square, pinned Bitboard) {
	for pinned != 0 {
		from := pinned.PopLSB()
		p.appendMoves(ml, us, SquareBB(from), Line(ksq, from)&^p.Occupied[us])
	}
}

// appendMoves adds the pawn, knight, bishop, rook and queen moves of the
// pieces in movable that land on target. Kings, castling and en passant are
// handled separately.
func (p *Position) appendMoves(ml *MoveList, us Color, movable, target Bitboard) {
	p.appendPawnMoves(ml, us, p.Pieces[us][Pawn]&movable, target)

	enemy := p.Occupied[us.Other()]
	occ := p.AllOccupied
	for b := p.Pieces[us][Knight] & movable; b != 0; {
		from := b.PopLSB()
		p.appendTargets(ml, from, knightAttacks[from]&target, enemy)
	}
	for b := (p.Pieces[us][Bishop] | p.Pieces[us][Queen]) & movable; b != 0; {
		from := b.PopLSB()
		p.appendTargets(ml, from, BishopAttacks(from, occ)&target, enemy)
	}
	for b := (p.Pieces[us][Rook] | p.Pieces[us][Queen]) & movable; b != 0; {
		from := b.PopLSB()
		p.appendTargets(ml, from, RookAttacks(from, occ)&target, enemy)
	}
}

func (p *Position) appendTargets(ml *MoveList, from Square, targets, enemy Bitboard) {
	for targets != 0 {
		to := targets.PopLSB()
		if enemy.IsSet(to) {
			ml.Add(NewMove(from, to, Capture))
		} else {
			ml.Add(NewMove(from, to, Quiet))
		}
	}
}

func pawnPush(c Color) int {
	if c == White {
		return 8
	}
	return -8
}

func (p *Position) appendPawnMoves(ml *MoveList, us Color, pawns, target Bitboard) {
	enemy := p.Occupied[us.Other()]
	push := pawnPush(us)
	for pawns != 0 {
		from := pawns.PopLSB()
		one := Square(int(from) + push)
		if !p.AllOccupied.IsSet(one) {
			if target.IsSet(one) {
				addPawnMove(ml, from, one, false)
			}
			if from.RelativeRank(us) == 1 {
				two := Square(int(one) + push)
				if !p.AllOccupied.IsSet(two) && target.IsSet(two) {
					ml.Add(NewMove(from, two, DoublePush))
				}
			}
		}
		for caps := pawnAttacks[us][from] & enemy & target; caps != 0; {
			addPawnMove(ml, from, caps.PopLSB(), true)
		}
	}
}

// addPawnMove adds a pawn move, expanding it into the four promotions when
// it reaches the last rank.
func addPawnMove(ml *MoveList, from, to Square, capture bool) {
	var flag MoveFlag
	if capture {
		flag = Capture
	}
	if r := to.Rank(); r == 0 || r == 7 {
		for promo := QueenPromotion; promo >= KnightPromotion; promo-- {
			ml.Add(NewMove(from, to, promo|flag))
		}
		return
	}
	ml.Add(NewMove(from, to, flag))
}

// appendEnPassant adds en passant captures that leave our king safe. Each is
// verified on the occupancy after the capture, which covers pins through
// both vanished pawns as well as checks the capture resolves.
func (p *Position) appendEnPassant(ml *MoveList, us Color, ksq Square) {
	if p.EnPassant == 0 {
		return
	}
	to := p.EnPassant.LSB()
	them := us.Other()
	victim := Square(int(to) - pawnPush(us))
	for b := pawnAttacks[them][to] & p.Pieces[us][Pawn]; b != 0; {
		from := b.PopLSB()
		occ := p.AllOccupied&^SquareBB(from)&^SquareBB(victim) | SquareBB(to)
		attackers := p.AttackersByColor(ksq, them, occ) &^ SquareBB(victim)
		if attackers == 0 {
			ml.Add(NewMove(from, to, EPCapture))
		}
	}
}

type castle struct {
	right      CastlingRights
	king, rook Square
	kingTo     Square
	empty      Bitboard
	safe       Bitboard
	flag       MoveFlag
}

var castles = [2][2]castle{
	White: {
		{WhiteKingSideCastle, E1, H1, G1, SquareBB(F1) | SquareBB(G1), SquareBB(E1) | SquareBB(F1) | SquareBB(G1), KingCastle},
		{WhiteQueenSideCastle, E1, A1, C1, SquareBB(B1) | SquareBB(C1) | SquareBB(D1), SquareBB(E1) | SquareBB(D1) | SquareBB(C1), QueenCastle},
	},
	Black: {
		{BlackKingSideCastle, E8, H8, G8, SquareBB(F8) | SquareBB(G8), SquareBB(E8) | SquareBB(F8) | SquareBB(G8), KingCastle},
		{BlackQueenSideCastle, E8, A8, C8, SquareBB(B8) | SquareBB(C8) | SquareBB(D8), SquareBB(E8) | SquareBB(D8) | SquareBB(C8), QueenCastle},
	},
}

func (p *Position) appendCastling(ml *MoveList, us Color) {
	rights := p.Castling()
	king, rook := NewPiece(King, us), NewPiece(Rook, us)
	for _, c := range castles[us] {
		if rights&c.right == 0 ||
			p.Mailbox[c.king] != king || p.Mailbox[c.rook] != rook ||
			p.AllOccupied&c.empty != 0 || p.Attacks[us.Other()]&c.safe != 0 {
			continue
		}
		ml.Add(NewMove(c.king, c.kingTo, c.flag))
	}
}
