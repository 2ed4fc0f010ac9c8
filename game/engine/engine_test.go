package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when told to
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// neutralSquare is a 2x2 grid with four unconstrained nodes:
// 0=(0,0) 1=(0,1) 2=(1,0) 3=(1,1)
func neutralSquare() *Puzzle {
	return &Puzzle{
		ID:       "square",
		Topology: TopologyGraph,
		GridSize: 2,
		Nodes: []Node{
			{Row: 0, Col: 0},
			{Row: 0, Col: 1},
			{Row: 1, Col: 0},
			{Row: 1, Col: 1},
		},
	}
}

// corridor is a 3x3 sequence puzzle with three waypoints
//
//	1 . .
//	. . 2
//	3 . .
func corridor(win WinCondition) *Puzzle {
	return &Puzzle{
		ID:           "corridor",
		Topology:     TopologySequence,
		WinCondition: win,
		GridSize:     3,
		Waypoints: []Waypoint{
			{Row: 0, Col: 0, Number: 1},
			{Row: 1, Col: 2, Number: 2},
			{Row: 2, Col: 0, Number: 3},
		},
	}
}

func TestNewPathEngine(t *testing.T) {
	t.Run("graph puzzle", func(t *testing.T) {
		e, err := NewPathEngine(neutralSquare())
		require.NoError(t, err)

		snap := e.Snapshot()
		assert.Equal(t, TopologyGraph, snap.Topology)
		assert.Equal(t, WinHamiltonianPath, snap.WinCondition)
		assert.Len(t, snap.Nodes, 4)
		assert.Empty(t, snap.Edges)
		assert.False(t, e.IsComplete())
		assert.Equal(t, 0, e.Moves())
	})

	t.Run("sequence puzzle is seeded at waypoint 1", func(t *testing.T) {
		e, err := NewPathEngine(corridor(WinFullCoverage))
		require.NoError(t, err)

		snap := e.Snapshot()
		assert.Equal(t, []Cell{{Row: 0, Col: 0}}, snap.Path)
		assert.Equal(t, 2, e.NextRequiredWaypoint())
		assert.Equal(t, 9, snap.Playable)
	})

	t.Run("invalid puzzle", func(t *testing.T) {
		p := corridor(WinFullCoverage)
		p.Waypoints = p.Waypoints[1:]
		_, err := NewPathEngine(p)
		require.ErrorIs(t, err, ErrInvalidPuzzle)
		assert.Contains(t, err.Error(), "numbered 1")
	})

	t.Run("nil puzzle", func(t *testing.T) {
		_, err := NewPathEngine(nil)
		require.ErrorIs(t, err, ErrInvalidPuzzle)
	})
}

func TestLoadKeepsStateOnError(t *testing.T) {
	e, err := NewPathEngine(neutralSquare())
	require.NoError(t, err)
	require.Equal(t, ResultConnected, e.AttemptConnect(0, 1).Result)

	err = e.Load(&Puzzle{ID: "broken", Topology: TopologyGraph, GridSize: 1})
	require.Error(t, err)
	assert.Equal(t, "square", e.Snapshot().PuzzleID)
	assert.Equal(t, 1, e.Moves())
}

func TestLoadResetsState(t *testing.T) {
	e, err := NewPathEngine(neutralSquare())
	require.NoError(t, err)
	e.AttemptConnect(0, 1)

	require.NoError(t, e.Load(corridor(WinWaypointsOnly)))
	snap := e.Snapshot()
	assert.Equal(t, "corridor", snap.PuzzleID)
	assert.Empty(t, snap.Edges)
	assert.Equal(t, 0, snap.HistoryDepth)
	assert.Len(t, snap.Path, 1)
}

func TestTopologyMismatch(t *testing.T) {
	g, err := NewPathEngine(neutralSquare())
	require.NoError(t, err)
	out := g.AttemptExtend(Cell{Row: 0, Col: 1})
	assert.Equal(t, ResultRejected, out.Result)
	assert.Equal(t, ReasonWrongTopology, out.Reason)
	assert.Equal(t, 0, g.NextRequiredWaypoint())

	s, err := NewPathEngine(corridor(WinFullCoverage))
	require.NoError(t, err)
	out = s.AttemptConnect(0, 1)
	assert.Equal(t, ReasonWrongTopology, out.Reason)
	_, ok := s.NodeAt(Cell{})
	assert.False(t, ok)
}

func TestCompletionTiming(t *testing.T) {
	clock := newFakeClock()
	e, err := NewPathEngine(neutralSquare(), WithClock(clock.Now))
	require.NoError(t, err)

	clock.Advance(42 * time.Second)
	e.AttemptConnect(0, 1)
	e.AttemptConnect(1, 3)
	out := e.AttemptConnect(3, 2)

	require.NotNil(t, out.Completion)
	assert.Equal(t, 42*time.Second, out.Completion.Elapsed)
	assert.Equal(t, 42, out.Completion.ElapsedSeconds)
	assert.Equal(t, 3, out.Completion.Moves)
	assert.Equal(t, clock.Now(), out.Completion.CompletedAt)

	snap := e.Snapshot()
	assert.True(t, snap.Complete)
	require.NotNil(t, snap.Completion)
	assert.Equal(t, 42, snap.Completion.ElapsedSeconds)
}

func TestResetRestartsClock(t *testing.T) {
	clock := newFakeClock()
	e, err := NewPathEngine(neutralSquare(), WithClock(clock.Now))
	require.NoError(t, err)

	clock.Advance(time.Minute)
	e.AttemptConnect(0, 1)
	e.Reset()
	assert.Equal(t, clock.Now(), e.StartedAt())
	assert.Equal(t, 0, e.HistoryDepth())
	assert.Equal(t, 0, e.Moves())

	clock.Advance(5 * time.Second)
	e.AttemptConnect(0, 1)
	e.AttemptConnect(1, 3)
	out := e.AttemptConnect(3, 2)
	require.NotNil(t, out.Completion)
	assert.Equal(t, 5, out.Completion.ElapsedSeconds)
}

func TestMovesRejectedAfterCompletion(t *testing.T) {
	e, err := NewPathEngine(neutralSquare())
	require.NoError(t, err)
	e.AttemptConnect(0, 1)
	e.AttemptConnect(1, 3)
	e.AttemptConnect(3, 2)
	require.True(t, e.IsComplete())

	out := e.AttemptConnect(0, 1)
	assert.Equal(t, ResultRejected, out.Result)
	assert.Equal(t, ReasonPuzzleComplete, out.Reason)
	assert.Equal(t, 3, e.Moves())

	require.True(t, e.Undo())
	assert.False(t, e.IsComplete())
	assert.Nil(t, e.Completion())
	assert.Equal(t, 2, e.Moves())
}

func TestHistoryBound(t *testing.T) {
	const limit = 10

	// Walk along row 0 of a wide grid
	p := &Puzzle{
		ID:           "long",
		Topology:     TopologySequence,
		WinCondition: WinWaypointsOnly,
		GridSize:     20,
		Waypoints: []Waypoint{
			{Row: 0, Col: 0, Number: 1},
			{Row: 19, Col: 19, Number: 2},
		},
	}
	e, err := NewPathEngine(p, WithHistoryLimit(limit))
	require.NoError(t, err)

	var states [][]Cell
	states = append(states, e.Snapshot().Path)
	for col := 1; col <= limit+5; col++ {
		out := e.AttemptExtend(Cell{Row: 0, Col: col})
		require.Equal(t, ResultExtended, out.Result, "col %d", col)
		states = append(states, e.Snapshot().Path)
	}
	assert.Equal(t, limit, e.HistoryDepth())

	for i := 0; i < limit; i++ {
		require.True(t, e.Undo())
	}
	assert.Equal(t, states[5], e.Snapshot().Path)
	assert.False(t, e.Undo(), "oldest entries were evicted")
	assert.Equal(t, states[5], e.Snapshot().Path)
}

func TestDefaultHistoryLimit(t *testing.T) {
	e, err := NewPathEngine(neutralSquare(), WithHistoryLimit(0))
	require.NoError(t, err)
	for i := 0; i < DefaultHistoryLimit+20; i++ {
		e.AttemptConnect(0, 1)
	}
	assert.Equal(t, DefaultHistoryLimit, e.HistoryDepth())
}

func TestUndoOnEmptyHistory(t *testing.T) {
	e, err := NewPathEngine(corridor(WinFullCoverage))
	require.NoError(t, err)
	before := e.Snapshot()
	assert.False(t, e.Undo())
	assert.Equal(t, before.Path, e.Snapshot().Path)
}

func TestPuzzleReturnsCopy(t *testing.T) {
	e, err := NewPathEngine(neutralSquare())
	require.NoError(t, err)
	p := e.Puzzle()
	p.Nodes[0].Row = 1
	assert.Equal(t, 0, e.Puzzle().Nodes[0].Row)
}

func TestSnapshotIsIndependent(t *testing.T) {
	e, err := NewPathEngine(neutralSquare())
	require.NoError(t, err)
	e.AttemptConnect(0, 1)

	snap := e.Snapshot()
	snap.Edges[0] = Edge{A: 2, B: 3}
	snap.Nodes[0].Connections[0] = 3

	fresh := e.Snapshot()
	assert.Equal(t, []Edge{{A: 0, B: 1}}, fresh.Edges)
	assert.Equal(t, []int{1}, fresh.Nodes[0].Connections)
}
