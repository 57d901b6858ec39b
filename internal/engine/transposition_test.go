package engine

import (
	"sync"
	"testing"

	"github.com/hailam/bitchess/internal/board"
	"github.com/hailam/bitchess/internal/testutil"
)

func TestPackEntry(t *testing.T) {
	move := board.NewMove(board.E7, board.E8, board.QueenPromotion)
	cases := []struct {
		score int
		depth int
		nt    NodeType
	}{
		{0, 0, QNode},
		{-MateScore + 3, 12, AllNode},
		{MateScore - 5, 64, CutNode},
		{-1, 1, PVNode},
	}
	for _, tc := range cases {
		e := unpackEntry(42, packEntry(move, tc.score, tc.depth, tc.nt, 7))
		testutil.AssertEqual(t, e, TTEntry{
			Key:   42,
			Move:  move,
			Score: int16(tc.score),
			Depth: int8(tc.depth),
			Type:  tc.nt,
			Age:   7,
		})
	}
}

func TestTranspositionTableProbeStore(t *testing.T) {
	tt := NewTranspositionTable(1)
	testutil.AssertEqual(t, tt.Size(), 1<<20/ttSlotSize)

	const hash = 0xDEADBEEFCAFEBABE
	_, ok := tt.Probe(hash)
	testutil.AssertTrue(t, !ok, "empty table hit")

	m := board.NewMove(board.G1, board.F3, board.Quiet)
	tt.Store(hash, 5, 37, PVNode, m)
	e, ok := tt.Probe(hash)
	testutil.AssertTrue(t, ok)
	testutil.AssertEqual(t, e.Move, m)
	testutil.AssertEqual(t, int(e.Score), 37)
	testutil.AssertEqual(t, int(e.Depth), 5)
	testutil.AssertEqual(t, e.Type, PVNode)

	// Same slot, different key.
	_, ok = tt.Probe(hash ^ 1<<40)
	testutil.AssertTrue(t, !ok, "collision returned a foreign entry")

	// Stores always replace.
	tt.Store(hash, 1, -5, AllNode, board.NoMove)
	e, _ = tt.Probe(hash)
	testutil.AssertEqual(t, int(e.Depth), 1)
	testutil.AssertEqual(t, e.Type, AllNode)
	testutil.AssertEqual(t, tt.HitRate() > 0, true)

	tt.Clear()
	_, ok = tt.Probe(hash)
	testutil.AssertTrue(t, !ok, "hit after clear")
}

func TestTranspositionTableHashFull(t *testing.T) {
	tt := NewTranspositionTable(1)
	tt.NewSearch()
	testutil.AssertEqual(t, tt.HashFull(), 0)
	for i := uint64(0); i < 1000; i++ {
		tt.Store(i, 1, 0, PVNode, board.NoMove)
	}
	testutil.AssertEqual(t, tt.HashFull(), 1000)

	tt.NewSearch()
	testutil.AssertEqual(t, tt.HashFull(), 0, "entries of an older search count as free")
}

func TestTranspositionTableConcurrentAccess(t *testing.T) {
	tt := NewTranspositionTable(1)
	const writers = 8
	const keys = 4096

	// Every writer stores the same derived entry for a key, so any probe
	// that hits must decode to exactly that entry.
	entryFor := func(k uint64) (int, int, board.Move) {
		return int(k % 100), int(k%30) + 1, board.Move(k & 0xFFF)
	}

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			for i := uint64(0); i < keys*4; i++ {
				k := (i*2654435761 + seed) % keys
				hash := k*0x9E3779B97F4A7C15 | 1
				depth, score, m := entryFor(k)
				if i%3 == 0 {
					if e, ok := tt.Probe(hash); ok {
						if int(e.Depth) != depth || int(e.Score) != score || e.Move != m {
							t.Errorf("torn entry for key %d: %+v", k, e)
							return
						}
					}
					continue
				}
				tt.Store(hash, depth, score, CutNode, m)
			}
		}(uint64(w))
	}
	wg.Wait()
}

func TestAdjustMateScores(t *testing.T) {
	for _, score := range []int{0, 150, -150, MateScore - 3, -MateScore + 7} {
		for _, ply := range []int{0, 1, 9} {
			got := AdjustScoreFromTT(AdjustScoreToTT(score, ply), ply)
			testutil.AssertEqual(t, got, score, "score %d ply %d", score, ply)
		}
	}
	// A mate found at ply 4 is two plies away when read back at ply 2.
	stored := AdjustScoreToTT(MateScore-6, 4)
	testutil.AssertEqual(t, AdjustScoreFromTT(stored, 2), MateScore-4)
}

func TestPawnHashTable(t *testing.T) {
	pt := NewPawnTable(1)
	pos := board.NewPosition()

	_, _, found := pt.Probe(pos.PawnKey)
	testutil.AssertTrue(t, !found, "expected miss on first probe")

	pt.Store(pos.PawnKey, -15, -20)
	mg, eg, found := pt.Probe(pos.PawnKey)
	testutil.AssertTrue(t, found, "expected hit after store")
	testutil.AssertEqual(t, [2]int{mg, eg}, [2]int{-15, -20})

	pt.Store(pos.PawnKey, 0, 0)
	mg, eg, found = pt.Probe(pos.PawnKey)
	testutil.AssertTrue(t, found, "zero scores must still hit")
	testutil.AssertEqual(t, [2]int{mg, eg}, [2]int{0, 0})

	oldKey := pos.PawnKey
	m, err := board.ParseMove("e2e4", pos)
	testutil.AssertNoError(t, err)
	pos.MakeMove(m)
	testutil.AssertTrue(t, pos.PawnKey != oldKey, "PawnKey should change when a pawn moves")

	pt.Clear()
	_, _, found = pt.Probe(oldKey)
	testutil.AssertTrue(t, !found, "hit after clear")
}
