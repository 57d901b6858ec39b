package board

// GenerateThreatMoves fills ml with the forcing moves of the side to move
// and returns their count. In check these are all evasions. Otherwise they
// are captures, promotions, en passant and moves that give direct check.
// The result is always a subset of the legal moves.
func (p *Position) GenerateThreatMoves(ml *MoveList) int {
	if p.InCheck() {
		return p.GenerateLegalMoves(ml)
	}
	ml.Clear()

	us, them := p.SideToMove(), p.SideToMove().Other()
	ksq, eksq := p.KingSquare(us), p.KingSquare(them)
	occ := p.AllOccupied
	enemy := p.Occupied[them]
	empty := ^occ
	pinned := p.Pinned & p.Occupied[us]

	bishopChecks := BishopAttacks(eksq, occ) & empty
	rookChecks := RookAttacks(eksq, occ) & empty

	targets := [King]Bitboard{
		Knight: enemy | knightAttacks[eksq]&empty,
		Bishop: enemy | bishopChecks,
		Rook:   enemy | rookChecks,
		Queen:  enemy | bishopChecks | rookChecks,
	}
	for pt := Knight; pt <= Queen; pt++ {
		for b := p.Pieces[us][pt]; b != 0; {
			from := b.PopLSB()
			dest := pieceAttacks(pt, from, occ) & targets[pt]
			if pinned.IsSet(from) {
				dest &= Line(ksq, from)
			}
			p.appendTargets(ml, from, dest, enemy)
		}
	}

	p.appendPawnThreats(ml, us, ksq, eksq, pinned)
	p.appendEnPassant(ml, us, ksq)
	p.appendTargets(ml, ksq, kingAttacks[ksq]&enemy&^p.Attacks[them], enemy)
	return ml.Len()
}

func pieceAttacks(pt PieceType, sq Square, occ Bitboard) Bitboard {
	switch pt {
	case Knight:
		return knightAttacks[sq]
	case Bishop:
		return BishopAttacks(sq, occ)
	case Rook:
		return RookAttacks(sq, occ)
	case Queen:
		return QueenAttacks(sq, occ)
	case King:
		return kingAttacks[sq]
	}
	return 0
}

// appendPawnThreats adds pawn captures, promotions and pushes that check the
// enemy king.
func (p *Position) appendPawnThreats(ml *MoveList, us Color, ksq, eksq Square, pinned Bitboard) {
	enemy := p.Occupied[us.Other()]
	push := pawnPush(us)
	checkSquares := pawnAttacks[us.Other()][eksq]

	for pawns := p.Pieces[us][Pawn]; pawns != 0; {
		from := pawns.PopLSB()
		allowed := Universe
		if pinned.IsSet(from) {
			allowed = Line(ksq, from)
		}

		for caps := pawnAttacks[us][from] & enemy & allowed; caps != 0; {
			addPawnMove(ml, from, caps.PopLSB(), true)
		}

		one := Square(int(from) + push)
		if p.AllOccupied.IsSet(one) || !allowed.IsSet(one) {
			continue
		}
		switch {
		case one.RelativeRank(us) == 7:
			addPawnMove(ml, from, one, false)
		case checkSquares.IsSet(one):
			ml.Add(NewMove(from, one, Quiet))
		}
		if from.RelativeRank(us) == 1 {
			two := Square(int(one) + push)
			if !p.AllOccupied.IsSet(two) && checkSquares.IsSet(two) {
				ml.Add(NewMove(from, two, DoublePush))
			}
		}
	}
}
