package engine

import (
	"time"

	"github.com/hailam/bitchess/internal/board"
)

// Limits bounds a search. The zero value searches until stopped.
type Limits struct {
	Time      [2]time.Duration // remaining clock per color
	Inc       [2]time.Duration // increment per color
	MovesToGo int              // moves until the next time control, 0 = sudden death
	MoveTime  time.Duration    // fixed time for this move
	Depth     int              // maximum depth, 0 = MaxPly
	Nodes     uint64           // maximum nodes of the main worker, 0 = unbounded
	Infinite  bool             // ignore every bound but Depth
}

// TimeManager turns clock limits into a soft and a hard budget for one move.
// Iterative deepening stops starting depths past the optimum; the maximum
// becomes the search context's deadline.
type TimeManager struct {
	optimumTime time.Duration
	maximumTime time.Duration
	baseOptimum time.Duration // zero for fixed move times
	startTime   time.Time
	bounded     bool
}

// Init prepares the budget for the side us at game ply ply.
func (tm *TimeManager) Init(limits Limits, us board.Color, ply int) {
	tm.startTime = time.Now()
	tm.bounded = false
	tm.baseOptimum = 0

	switch {
	case limits.Infinite:
		return
	case limits.MoveTime > 0:
		tm.bounded = true
		tm.optimumTime = limits.MoveTime
		tm.maximumTime = limits.MoveTime
		return
	case limits.Time[us] == 0:
		return
	}
	tm.bounded = true

	timeLeft := limits.Time[us]
	inc := limits.Inc[us]

	mtg := limits.MovesToGo
	if mtg == 0 {
		mtg = clamp(50-ply/4, 10, 50)
	}

	base := timeLeft/time.Duration(mtg) + inc*9/10
	tm.optimumTime = base
	if ply < 8 {
		tm.optimumTime = base * 85 / 100
	}

	tm.maximumTime = min(tm.optimumTime*5, timeLeft*8/10)
	tm.maximumTime = min(tm.maximumTime, timeLeft*95/100)

	tm.optimumTime = max(tm.optimumTime, 10*time.Millisecond)
	tm.maximumTime = max(tm.maximumTime, 50*time.Millisecond)
	tm.optimumTime = min(tm.optimumTime, tm.maximumTime)
	tm.baseOptimum = tm.optimumTime
}

// Bounded reports whether the clock limits the search.
func (tm *TimeManager) Bounded() bool {
	return tm.bounded
}

// Elapsed returns the time since Init.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

func (tm *TimeManager) OptimumTime() time.Duration {
	return tm.optimumTime
}

func (tm *TimeManager) MaximumTime() time.Duration {
	return tm.maximumTime
}

// Deadline is the hard stop, meaningful only when Bounded.
func (tm *TimeManager) Deadline() time.Time {
	return tm.startTime.Add(tm.maximumTime)
}

// PastOptimum reports whether another depth should not be started.
func (tm *TimeManager) PastOptimum() bool {
	return tm.bounded && tm.Elapsed() >= tm.optimumTime
}

// AdjustForStability shortens the soft budget once the best move has held
// for several consecutive depths.
func (tm *TimeManager) AdjustForStability(stability int) {
	if tm.baseOptimum == 0 {
		return
	}
	switch {
	case stability >= 6:
		tm.optimumTime = tm.baseOptimum * 40 / 100
	case stability >= 4:
		tm.optimumTime = tm.baseOptimum * 60 / 100
	default:
		tm.optimumTime = tm.baseOptimum
	}
}
