package board

import (
	"errors"
	"fmt"
)

// ErrIllegalMove is returned when a move string does not name a legal move
// in the given position.
var ErrIllegalMove = errors.New("illegal move")

// Move packs a move into 16 bits:
//
//	bits 0-5   from square
//	bits 6-11  to square
//	bits 12-15 MoveFlag
type Move uint16

// NoMove is the zero move; it is never generated.
const NoMove Move = 0

// MoveFlag classifies a move. Bit 2 marks captures and bit 3 promotions; the
// low two bits of a promotion select the piece.
type MoveFlag uint8

const (
	Quiet MoveFlag = iota
	DoublePush
	KingCastle
	QueenCastle
	Capture
	EPCapture
	_
	_
	KnightPromotion
	BishopPromotion
	RookPromotion
	QueenPromotion
	KnightPromoCapture
	BishopPromoCapture
	RookPromoCapture
	QueenPromoCapture
)

const (
	captureBit   MoveFlag = 0x4
	promotionBit MoveFlag = 0x8
)

// NewMove encodes a move.
func NewMove(from, to Square, flag MoveFlag) Move {
	return Move(from) | Move(to)<<6 | Move(flag)<<12
}

func (m Move) From() Square    { return Square(m & 0x3F) }
func (m Move) To() Square      { return Square(m >> 6 & 0x3F) }
func (m Move) Flag() MoveFlag  { return MoveFlag(m >> 12) }
func (m Move) IsCapture() bool { return m.Flag()&captureBit != 0 }

// IsPromotion reports whether the move promotes a pawn.
func (m Move) IsPromotion() bool {
	return m.Flag()&promotionBit != 0
}

// IsCastle reports whether the move is a king- or queenside castle.
func (m Move) IsCastle() bool {
	f := m.Flag()
	return f == KingCastle || f == QueenCastle
}

// IsQuiet reports whether the move neither captures nor promotes.
func (m Move) IsQuiet() bool {
	return m.Flag()&(captureBit|promotionBit) == 0
}

// Promotion returns the piece a promotion produces, NoPieceType otherwise.
func (m Move) Promotion() PieceType {
	if !m.IsPromotion() {
		return NoPieceType
	}
	return Knight + PieceType(m.Flag()&0x3)
}

// String returns the move in long algebraic form, e.g. "e2e4" or "e7e8q".
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(m.Promotion().Char())
	}
	return s
}

// ParseMove finds the legal move of pos written as s in long algebraic form.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return NoMove, fmt.Errorf("%w: %q", ErrIllegalMove, s)
	}
	var ml MoveList
	pos.GenerateLegalMoves(&ml)
	for _, m := range ml.Slice() {
		if m.String() == s {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("%w: %s in %s", ErrIllegalMove, s, pos.FEN())
}

// MaxMoves bounds the number of legal moves in any chess position.
const MaxMoves = 256

// MoveList is a fixed-size move buffer, filled by the generators.
type MoveList struct {
	moves [MaxMoves]Move
	count int
}

func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

func (ml *MoveList) Len() int          { return ml.count }
func (ml *MoveList) Get(i int) Move    { return ml.moves[i] }
func (ml *MoveList) Swap(i, j int)     { ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i] }
func (ml *MoveList) Clear()            { ml.count = 0 }
func (ml *MoveList) Slice() []Move     { return ml.moves[:ml.count] }
func (ml *MoveList) Set(i int, m Move) { ml.moves[i] = m }

// Contains reports whether m is in the list.
func (ml *MoveList) Contains(m Move) bool {
	for _, x := range ml.moves[:ml.count] {
		if x == m {
			return true
		}
	}
	return false
}
