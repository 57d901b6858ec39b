package board

// HashStack records the hash of every position reached by a move, plus the
// index of the first position after the last irreversible move. Positions
// before that index can never repeat.
//
// A copied Position shares the backing array with its original. Restoring a
// saved copy truncates the stack implicitly and the next push overwrites the
// abandoned slots, which is what copy/restore unmake needs within one
// goroutine. Use Position.Clone to get an independent stack.
type HashStack struct {
	hashes    []uint64
	lastReset int
}

func newHashStack(hash uint64) HashStack {
	hashes := make([]uint64, 1, 256)
	hashes[0] = hash
	return HashStack{hashes: hashes}
}

func (h *HashStack) push(hash uint64, irreversible bool) {
	h.hashes = append(h.hashes, hash)
	if irreversible {
		h.lastReset = len(h.hashes) - 1
	}
}

// Len returns the number of recorded positions.
func (h HashStack) Len() int {
	return len(h.hashes)
}

// LastReset returns the index of the first position after the last
// irreversible move.
func (h HashStack) LastReset() int {
	return h.lastReset
}

func (h HashStack) clone() HashStack {
	hashes := make([]uint64, len(h.hashes), max(cap(h.hashes), 256))
	copy(hashes, h.hashes)
	return HashStack{hashes: hashes, lastReset: h.lastReset}
}

// IsRepetition reports whether the current position already occurred since
// the last irreversible move.
func (p *Position) IsRepetition() bool {
	h := p.History.hashes
	for i := len(h) - 2; i >= p.History.lastReset; i-- {
		if h[i] == p.Hash {
			return true
		}
	}
	return false
}
