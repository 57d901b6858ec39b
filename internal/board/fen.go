package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrInvalidFEN is wrapped by every ParseFEN failure.
var ErrInvalidFEN = errors.New("invalid FEN")

// ParseFEN builds a position from a FEN string. The halfmove clock and
// fullmove number are optional and default to 0 and 1.
func ParseFEN(fen string) (*Position, error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return nil, fmt.Errorf("%w: need at least 4 fields, got %d", ErrInvalidFEN, len(fields))
	}

	pos := &Position{FullMoveNumber: 1}
	for sq := range pos.Mailbox {
		pos.Mailbox[sq] = NoPiece
	}

	if err := pos.parsePlacement(fields[0]); err != nil {
		return nil, err
	}

	switch fields[1] {
	case "w":
		pos.Flags |= FlagWhiteToMove
	case "b":
	default:
		return nil, fmt.Errorf("%w: side to move %q", ErrInvalidFEN, fields[1])
	}

	var rights CastlingRights
	if fields[2] != "-" {
		for _, c := range fields[2] {
			i := strings.IndexRune("KQkq", c)
			if i < 0 {
				return nil, fmt.Errorf("%w: castling rights %q", ErrInvalidFEN, fields[2])
			}
			rights |= 1 << i
		}
	}
	pos.setCastling(rights)

	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil || !pos.validEnPassant(sq) {
			return nil, fmt.Errorf("%w: en passant square %q", ErrInvalidFEN, fields[3])
		}
		pos.EnPassant = SquareBB(sq)
	}

	if len(fields) > 4 {
		n, err := strconv.Atoi(fields[4])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: halfmove clock %q", ErrInvalidFEN, fields[4])
		}
		pos.HalfMoveClock = n
	}
	if len(fields) > 5 {
		n, err := strconv.Atoi(fields[5])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: fullmove number %q", ErrInvalidFEN, fields[5])
		}
		pos.FullMoveNumber = n
	}

	for c := White; c <= Black; c++ {
		if n := pos.Pieces[c][King].PopCount(); n != 1 {
			return nil, fmt.Errorf("%w: %s has %d kings", ErrInvalidFEN, c, n)
		}
	}

	pos.Hash = pos.ComputeHash()
	pos.PawnKey = pos.ComputePawnKey()
	pos.History = newHashStack(pos.Hash)
	pos.Refresh()

	if pos.AttackersByColor(pos.KingSquare(pos.SideToMove().Other()), pos.SideToMove(), pos.AllOccupied) != 0 {
		return nil, fmt.Errorf("%w: side not to move is in check", ErrInvalidFEN)
	}
	return pos, nil
}

func (p *Position) parsePlacement(placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: need 8 ranks, got %d", ErrInvalidFEN, len(ranks))
	}
	for i, row := range ranks {
		rank, file := 7-i, 0
		for j := 0; j < len(row); j++ {
			c := row[j]
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			pc := PieceFromChar(c)
			if pc == NoPiece || file > 7 {
				return fmt.Errorf("%w: bad rank %q", ErrInvalidFEN, row)
			}
			p.putPiece(pc, NewSquare(file, rank))
			file++
		}
		if file != 8 {
			return fmt.Errorf("%w: rank %q does not cover 8 files", ErrInvalidFEN, row)
		}
	}
	return nil
}

// validEnPassant reports whether sq can be the en passant target of the
// side to move: the enemy pawn that just double pushed stands behind it, and
// both the target and the square the pawn left are empty.
func (p *Position) validEnPassant(sq Square) bool {
	rank, push, pawn := 5, 8, BlackPawn
	if p.SideToMove() == Black {
		rank, push, pawn = 2, -8, WhitePawn
	}
	if sq.Rank() != rank {
		return false
	}
	return p.Mailbox[sq] == NoPiece &&
		p.Mailbox[int(sq)+push] == NoPiece &&
		p.Mailbox[int(sq)-push] == pawn
}

// FEN serializes the position.
func (p *Position) FEN() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			pc := p.Mailbox[NewSquare(file, rank)]
			if pc == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteString(pc.String())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	side := "w"
	if p.SideToMove() == Black {
		side = "b"
	}
	fmt.Fprintf(&sb, " %s %s %s %d %d", side, p.Castling(), p.EnPassantSquare(), p.HalfMoveClock, p.FullMoveNumber)
	return sb.String()
}
