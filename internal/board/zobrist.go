package board

var (
	zobristPiece     [12][64]uint64
	zobristEnPassant [8]uint64
	zobristCastling  [16]uint64
	zobristSide      uint64 // black to move
)

const zobristSeed = 0x98F107A2BEEF1234

// xorshift64* generator; fixed seeds keep hashes and magics reproducible.
type prng struct {
	state uint64
}

func (r *prng) next() uint64 {
	r.state ^= r.state >> 12
	r.state ^= r.state << 25
	r.state ^= r.state >> 27
	return r.state * 0x2545F4914F6CDD1D
}

// sparse returns a value with roughly an eighth of its bits set.
func (r *prng) sparse() uint64 {
	return r.next() & r.next() & r.next()
}

func init() {
	rng := prng{state: zobristSeed}
	for pc := WhitePawn; pc < NoPiece; pc++ {
		for sq := A1; sq <= H8; sq++ {
			zobristPiece[pc][sq] = rng.next()
		}
	}
	for f := range zobristEnPassant {
		zobristEnPassant[f] = rng.next()
	}
	for cr := range zobristCastling {
		zobristCastling[cr] = rng.next()
	}
	zobristSide = rng.next()
}

// ComputeHash recomputes the Zobrist key of p from scratch.
func (p *Position) ComputeHash() uint64 {
	var h uint64
	for sq := A1; sq <= H8; sq++ {
		if pc := p.Mailbox[sq]; pc != NoPiece {
			h ^= zobristPiece[pc][sq]
		}
	}
	if p.EnPassant != 0 {
		h ^= zobristEnPassant[p.EnPassant.LSB().File()]
	}
	h ^= zobristCastling[p.Castling()]
	if p.SideToMove() == Black {
		h ^= zobristSide
	}
	return h
}

// ComputePawnKey recomputes the pawn-only Zobrist key of p.
func (p *Position) ComputePawnKey() uint64 {
	var h uint64
	for c := White; c <= Black; c++ {
		pawns := p.Pieces[c][Pawn]
		pc := NewPiece(Pawn, c)
		for pawns != 0 {
			h ^= zobristPiece[pc][pawns.PopLSB()]
		}
	}
	return h
}
