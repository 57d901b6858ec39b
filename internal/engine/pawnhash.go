package engine

// PawnTable caches pawn structure scores by pawn key. Like the
// transposition table it is shared between workers and stores key^data next
// to data so a torn slot is never returned.
type PawnTable struct {
	slots []ttSlot
	mask  uint64
}

// NewPawnTable creates a pawn hash table of at most sizeMB megabytes.
func NewPawnTable(sizeMB int) *PawnTable {
	n := roundDownToPowerOf2(uint64(sizeMB) << 20 / ttSlotSize)
	if n == 0 {
		n = 1
	}
	return &PawnTable{
		slots: make([]ttSlot, n),
		mask:  n - 1,
	}
}

// Probe returns the middlegame and endgame scores cached for key.
func (pt *PawnTable) Probe(key uint64) (mg, eg int, found bool) {
	slot := &pt.slots[key&pt.mask]
	data := slot.data.Load()
	if data == 0 || slot.check.Load()^data != key {
		return 0, 0, false
	}
	return int(int16(uint16(data))), int(int16(uint16(data >> 16))), true
}

// Store caches the scores for key.
func (pt *PawnTable) Store(key uint64, mg, eg int) {
	// Bit 32 keeps an all-zero score distinguishable from an empty slot.
	data := uint64(uint16(int16(mg))) | uint64(uint16(int16(eg)))<<16 | 1<<32
	slot := &pt.slots[key&pt.mask]
	slot.data.Store(data)
	slot.check.Store(key ^ data)
}

// Clear empties the table.
func (pt *PawnTable) Clear() {
	for i := range pt.slots {
		pt.slots[i].data.Store(0)
		pt.slots[i].check.Store(0)
	}
}
