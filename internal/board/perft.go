package board

// Perft counts the leaf positions reachable in exactly depth plies.
func Perft(pos *Position, depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	var ml MoveList
	n := pos.GenerateLegalMoves(&ml)
	if depth == 1 {
		return uint64(n)
	}

	var nodes uint64
	saved := *pos
	for _, m := range ml.Slice() {
		pos.MakeMove(m)
		nodes += Perft(pos, depth-1)
		*pos = saved
	}
	return nodes
}

// DivideEntry is the perft count below one root move.
type DivideEntry struct {
	Move  Move
	Nodes uint64
}

// Divide runs perft below every root move, in generation order.
func Divide(pos *Position, depth int) []DivideEntry {
	var ml MoveList
	pos.GenerateLegalMoves(&ml)
	entries := make([]DivideEntry, 0, ml.Len())
	saved := *pos
	for _, m := range ml.Slice() {
		pos.MakeMove(m)
		entries = append(entries, DivideEntry{Move: m, Nodes: Perft(pos, depth-1)})
		*pos = saved
	}
	return entries
}
