package board

import "math/bits"

// Magic maps the relevant occupancy of one square to its slice of the
// attack table: index = ((occ & Mask) * Magic) >> Shift.
type Magic struct {
	Mask    Bitboard
	Magic   uint64
	Shift   uint8
	Attacks []Bitboard
}

func (m *Magic) index(occ Bitboard) uint64 {
	return (uint64(occ&m.Mask) * m.Magic) >> m.Shift
}

var (
	bishopMagics [64]Magic
	rookMagics   [64]Magic

	bishopTable [0x1480]Bitboard
	rookTable   [0x19000]Bitboard
)

type direction struct{ df, dr int }

var (
	bishopDirections = [4]direction{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	rookDirections   = [4]direction{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
)

// slidingAttacks walks each ray from sq until the edge or the first blocker,
// which is included.
func slidingAttacks(sq Square, occ Bitboard, dirs [4]direction) Bitboard {
	var att Bitboard
	for _, d := range dirs {
		f, r := sq.File()+d.df, sq.Rank()+d.dr
		for f >= 0 && f < 8 && r >= 0 && r < 8 {
			s := NewSquare(f, r)
			att |= SquareBB(s)
			if occ.IsSet(s) {
				break
			}
			f += d.df
			r += d.dr
		}
	}
	return att
}

// Per-rank seeds that find every magic within a few thousand candidates.
var magicSeeds = [8]uint64{728, 10316, 55013, 32803, 12281, 15100, 16645, 255}

func initMagics() {
	fillMagics(&bishopMagics, bishopTable[:], bishopDirections)
	fillMagics(&rookMagics, rookTable[:], rookDirections)
}

func fillMagics(magics *[64]Magic, table []Bitboard, dirs [4]direction) {
	var (
		occupancy [4096]Bitboard
		reference [4096]Bitboard
		epoch     [4096]int
		attempt   int
		offset    int
	)

	for sq := A1; sq <= H8; sq++ {
		edges := ((Rank1 | Rank8) &^ RankMask[sq.Rank()]) | ((FileA | FileH) &^ FileMask[sq.File()])
		m := &magics[sq]
		m.Mask = slidingAttacks(sq, 0, dirs) &^ edges
		m.Shift = uint8(64 - m.Mask.PopCount())

		// Carry-Rippler enumeration of every subset of the mask.
		size := 0
		for b := Bitboard(0); ; {
			occupancy[size] = b
			reference[size] = slidingAttacks(sq, b, dirs)
			size++
			b = (b - m.Mask) & m.Mask
			if b == 0 {
				break
			}
		}
		m.Attacks = table[offset : offset+size]
		offset += size

		rng := prng{state: magicSeeds[sq.Rank()]}
		for i := 0; i < size; {
			for m.Magic = 0; bits.OnesCount64((m.Magic*uint64(m.Mask))>>56) < 6; {
				m.Magic = rng.sparse()
			}
			attempt++
			for i = 0; i < size; i++ {
				idx := m.index(occupancy[i])
				if epoch[idx] < attempt {
					epoch[idx] = attempt
					m.Attacks[idx] = reference[i]
				} else if m.Attacks[idx] != reference[i] {
					break
				}
			}
		}
	}
}

// BishopAttacks returns the bishop attacks from sq given occupancy occ.
func BishopAttacks(sq Square, occ Bitboard) Bitboard {
	m := &bishopMagics[sq]
	return m.Attacks[m.index(occ)]
}

// RookAttacks returns the rook attacks from sq given occupancy occ.
func RookAttacks(sq Square, occ Bitboard) Bitboard {
	m := &rookMagics[sq]
	return m.Attacks[m.index(occ)]
}

// QueenAttacks is the union of rook and bishop attacks from sq.
func QueenAttacks(sq Square, occ Bitboard) Bitboard {
	return BishopAttacks(sq, occ) | RookAttacks(sq, occ)
}
