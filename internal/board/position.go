package board

import (
	"fmt"
	"strings"
)

// CastlingRights is the set of castles still available.
type CastlingRights uint8

const (
	WhiteKingSideCastle CastlingRights = 1 << iota
	WhiteQueenSideCastle
	BlackKingSideCastle
	BlackQueenSideCastle

	NoCastling  CastlingRights = 0
	AllCastling CastlingRights = 0xF
)

// String returns the FEN castling field.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	for i, c := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// Flags packs side to move, castling rights and check state into one byte.
type Flags uint8

const (
	FlagWhiteToMove Flags = 1 << 0
	FlagInCheck     Flags = 1 << 5
	FlagDoubleCheck Flags = 1 << 6

	castlingShift = 1
	flagCastling  = Flags(AllCastling) << castlingShift
)

// Stage is the phase of the game, consumed by pruning decisions.
type Stage uint8

const (
	EarlyGame Stage = iota
	MidGame
	EndGame
)

const (
	earlyGameMoves = 8
	endGamePieces  = 16
	fiftyMovePlies = 100
)

func (s Stage) String() string {
	switch s {
	case EarlyGame:
		return "early"
	case MidGame:
		return "mid"
	}
	return "end"
}

// Position is a complete board state. It is a value type: search saves a
// copy before MakeMove and restores it to unmake.
//
// Attacks, Checkers, Pinned and the check flags are only valid right after
// ParseFEN, MakeMove, MakeNullMove or Refresh.
type Position struct {
	Pieces      [2][6]Bitboard
	Occupied    [2]Bitboard
	AllOccupied Bitboard
	Attacks     [2]Bitboard
	Mailbox     [64]Piece

	EnPassant Bitboard
	Flags     Flags
	Checkers  Bitboard
	Pinned    Bitboard // both colors, each against its own king

	Hash    uint64
	PawnKey uint64
	History HashStack

	Stage          Stage
	HalfMoveClock  int
	FullMoveNumber int
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	pos, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return pos
}

// Clone returns a copy of p that shares no memory with it, so it can be
// handed to another goroutine.
func (p *Position) Clone() *Position {
	c := *p
	c.History = p.History.clone()
	return &c
}

// SideToMove returns the color whose turn it is.
func (p *Position) SideToMove() Color {
	if p.Flags&FlagWhiteToMove != 0 {
		return White
	}
	return Black
}

// Castling returns the remaining castling rights.
func (p *Position) Castling() CastlingRights {
	return CastlingRights((p.Flags & flagCastling) >> castlingShift)
}

func (p *Position) setCastling(cr CastlingRights) {
	p.Flags = p.Flags&^flagCastling | Flags(cr)<<castlingShift
}

func (p *Position) InCheck() bool       { return p.Flags&FlagInCheck != 0 }
func (p *Position) InDoubleCheck() bool { return p.Flags&FlagDoubleCheck != 0 }

// KingSquare returns the square of c's king.
func (p *Position) KingSquare(c Color) Square {
	return p.Pieces[c][King].LSB()
}

// PieceAt returns the piece on sq, NoPiece when empty.
func (p *Position) PieceAt(sq Square) Piece {
	return p.Mailbox[sq]
}

// EnPassantSquare returns the en passant target, NoSquare when there is none.
func (p *Position) EnPassantSquare() Square {
	return p.EnPassant.LSB()
}

func (p *Position) putPiece(pc Piece, sq Square) {
	c, pt := pc.Color(), pc.Type()
	bb := SquareBB(sq)
	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb
	p.Mailbox[sq] = pc
	p.Hash ^= zobristPiece[pc][sq]
	if pt == Pawn {
		p.PawnKey ^= zobristPiece[pc][sq]
	}
}

func (p *Position) removePiece(sq Square) Piece {
	pc := p.Mailbox[sq]
	if pc == NoPiece {
		panic(fmt.Sprintf("board: remove from empty square %s in %s", sq, p.FEN()))
	}
	c, pt := pc.Color(), pc.Type()
	bb := SquareBB(sq)
	p.Pieces[c][pt] &^= bb
	p.Occupied[c] &^= bb
	p.AllOccupied &^= bb
	p.Mailbox[sq] = NoPiece
	p.Hash ^= zobristPiece[pc][sq]
	if pt == Pawn {
		p.PawnKey ^= zobristPiece[pc][sq]
	}
	return pc
}

func (p *Position) movePiece(from, to Square) {
	p.putPiece(p.removePiece(from), to)
}

// Refresh recomputes every derived field: attack masks, checkers and check
// flags, pinned pieces and the game stage.
func (p *Position) Refresh() {
	p.Attacks[White] = p.attackMask(White, p.AllOccupied)
	p.Attacks[Black] = p.attackMask(Black, p.AllOccupied)
	p.updateCheckers()
	p.Pinned = p.pinnedPieces(White) | p.pinnedPieces(Black)
	p.Stage = p.computeStage()
}

func (p *Position) updateCheckers() {
	us := p.SideToMove()
	p.Checkers = p.AttackersByColor(p.KingSquare(us), us.Other(), p.AllOccupied)
	p.Flags &^= FlagInCheck | FlagDoubleCheck
	if p.Checkers != 0 {
		p.Flags |= FlagInCheck
		if p.Checkers.Several() {
			p.Flags |= FlagDoubleCheck
		}
	}
}

// pinnedPieces returns c's pieces that shield c's king from an enemy slider.
func (p *Position) pinnedPieces(c Color) Bitboard {
	ksq := p.KingSquare(c)
	them := &p.Pieces[c.Other()]
	snipers := (RookAttacks(ksq, 0) & (them[Rook] | them[Queen])) |
		(BishopAttacks(ksq, 0) & (them[Bishop] | them[Queen]))

	var pinned Bitboard
	for snipers != 0 {
		blockers := Between(ksq, snipers.PopLSB()) & p.AllOccupied
		if blockers != 0 && !blockers.Several() {
			pinned |= blockers & p.Occupied[c]
		}
	}
	return pinned
}

func (p *Position) computeStage() Stage {
	switch {
	case p.AllOccupied.PopCount() <= endGamePieces:
		return EndGame
	case p.FullMoveNumber <= earlyGameMoves:
		return EarlyGame
	}
	return MidGame
}

// IsFiftyMoveDraw reports whether the halfmove clock has reached the limit.
func (p *Position) IsFiftyMoveDraw() bool {
	return p.HalfMoveClock >= fiftyMovePlies
}

// IsInsufficientMaterial reports a dead position: bare kings, or a single
// minor piece against a bare king. Only endgames are checked.
func (p *Position) IsInsufficientMaterial() bool {
	if p.Stage != EndGame {
		return false
	}
	for c := White; c <= Black; c++ {
		if p.Pieces[c][Pawn]|p.Pieces[c][Rook]|p.Pieces[c][Queen] != 0 {
			return false
		}
	}
	minors := p.AllOccupied &^ (p.Pieces[White][King] | p.Pieces[Black][King])
	return !minors.Several()
}

// HasLegalMoves reports whether the side to move has at least one move.
func (p *Position) HasLegalMoves() bool {
	var ml MoveList
	return p.GenerateLegalMoves(&ml) > 0
}

// IsCheckmate reports whether the side to move is mated.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate reports whether the side to move has no moves and is not in check.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// String draws the board with white at the bottom.
func (p *Position) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d ", rank+1)
		for file := 0; file < 8; file++ {
			sb.WriteString(p.Mailbox[NewSquare(file, rank)].String())
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h\n")
	fmt.Fprintf(&sb, "FEN: %s\nKey: %016X  Stage: %s  Checkers: %d\n",
		p.FEN(), p.Hash, p.Stage, p.Checkers.PopCount())
	return sb.String()
}
