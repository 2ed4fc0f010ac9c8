package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptConnect(t *testing.T) {
	tests := []struct {
		name   string
		puzzle func() *Puzzle
		setup  [][2]int
		a, b   int
		result Result
		reason Reason
	}{
		{
			name:   "adjacent neutral nodes",
			puzzle: neutralSquare,
			a:      0, b: 1,
			result: ResultConnected,
		},
		{
			name:   "diagonal nodes",
			puzzle: neutralSquare,
			a:      0, b: 3,
			result: ResultRejected,
			reason: ReasonNotAdjacent,
		},
		{
			name:   "same node",
			puzzle: neutralSquare,
			a:      2, b: 2,
			result: ResultRejected,
			reason: ReasonInvalidNode,
		},
		{
			name:   "unknown node",
			puzzle: neutralSquare,
			a:      0, b: 9,
			result: ResultRejected,
			reason: ReasonInvalidNode,
		},
		{
			name:   "negative node",
			puzzle: neutralSquare,
			a:      -1, b: 0,
			result: ResultRejected,
			reason: ReasonInvalidNode,
		},
		{
			name:   "existing edge toggles off",
			puzzle: neutralSquare,
			setup:  [][2]int{{0, 1}},
			a:      1, b: 0,
			result: ResultDisconnected,
		},
		{
			name:   "degree bound",
			puzzle: lineOfThreeWithBranch,
			setup:  [][2]int{{0, 1}, {1, 2}},
			a:      1, b: 3,
			result: ResultRejected,
			reason: ReasonDegreeExceeded,
		},
		{
			name:   "direction not allowed at source",
			puzzle: directedPair,
			a:      0, b: 1,
			result: ResultRejected,
			reason: ReasonDirectionBlocked,
		},
		{
			name:   "direction not allowed at target",
			puzzle: directedPair,
			a:      1, b: 0,
			result: ResultRejected,
			reason: ReasonDirectionBlocked,
		},
		{
			name:   "both directions allowed",
			puzzle: directedPair,
			a:      0, b: 2,
			result: ResultConnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewPathEngine(tt.puzzle())
			require.NoError(t, err)
			for _, pair := range tt.setup {
				require.True(t, e.AttemptConnect(pair[0], pair[1]).Accepted())
			}
			before := e.Snapshot()

			out := e.AttemptConnect(tt.a, tt.b)
			assert.Equal(t, tt.result, out.Result)
			assert.Equal(t, tt.reason, out.Reason)
			if out.Result == ResultRejected {
				assert.Equal(t, before.Edges, e.Snapshot().Edges, "rejected move must not mutate state")
				assert.Equal(t, before.HistoryDepth, e.Snapshot().HistoryDepth)
			}
		})
	}
}

// lineOfThreeWithBranch: 0=(0,0) 1=(0,1) 2=(0,2) 3=(1,1)
func lineOfThreeWithBranch() *Puzzle {
	return &Puzzle{
		ID:       "branch",
		Topology: TopologyGraph,
		GridSize: 3,
		Nodes: []Node{
			{Row: 0, Col: 0},
			{Row: 0, Col: 1},
			{Row: 0, Col: 2},
			{Row: 1, Col: 1},
		},
	}
}

// directedPair: node 0 at (1,1) may only leave down, node 1 at (1,2) is
// neutral, node 2 at (2,1) may only leave up.
func directedPair() *Puzzle {
	return &Puzzle{
		ID:       "directed",
		Topology: TopologyGraph,
		GridSize: 3,
		Nodes: []Node{
			{Row: 1, Col: 1, Directions: []Direction{Down}},
			{Row: 1, Col: 2},
			{Row: 2, Col: 1, Directions: []Direction{Up}},
			{Row: 2, Col: 2, Directions: []Direction{Up}},
		},
	}
}

func TestCheckConnectionOrder(t *testing.T) {
	// Non-adjacent and saturated: adjacency is reported first
	e, err := NewPathEngine(lineOfThreeWithBranch())
	require.NoError(t, err)
	e.AttemptConnect(0, 1)
	e.AttemptConnect(1, 2)
	assert.Equal(t, ReasonNotAdjacent, e.CheckConnection(0, 2))

	// Saturated and wrong direction: degree is reported before direction
	p := lineOfThreeWithBranch()
	p.Nodes[3].Directions = []Direction{Down}
	e, err = NewPathEngine(p)
	require.NoError(t, err)
	e.AttemptConnect(0, 1)
	e.AttemptConnect(1, 2)
	assert.Equal(t, ReasonDegreeExceeded, e.CheckConnection(1, 3))
	assert.False(t, e.IsValidConnection(1, 3))
}

func TestNeutralSquareCompletes(t *testing.T) {
	e, err := NewPathEngine(neutralSquare())
	require.NoError(t, err)

	out := e.AttemptConnect(0, 1)
	assert.Equal(t, ResultConnected, out.Result)
	assert.Nil(t, out.Completion)
	out = e.AttemptConnect(1, 3)
	assert.Nil(t, out.Completion)
	assert.False(t, e.IsComplete())

	out = e.AttemptConnect(3, 2)
	assert.Equal(t, ResultConnected, out.Result)
	require.NotNil(t, out.Completion)
	assert.Equal(t, 3, out.Completion.Moves)
	assert.True(t, e.IsComplete())

	// BFS from either endpoint reaches every node
	snap := e.Snapshot()
	var endpoints []int
	for _, n := range snap.Nodes {
		assert.True(t, n.Filled)
		if n.Endpoint {
			endpoints = append(endpoints, n.Index)
		}
	}
	require.Len(t, endpoints, 2)
	for _, start := range endpoints {
		assert.Equal(t, 4, e.graph.reachable(start))
	}
}

func TestCompletionRequiresSinglePath(t *testing.T) {
	e, err := NewPathEngine(neutralSquare())
	require.NoError(t, err)
	e.AttemptConnect(0, 1)
	e.AttemptConnect(1, 3)
	e.AttemptConnect(0, 2)
	// 0-1-3 and 0-2 already make a Hamiltonian path
	require.True(t, e.IsComplete())

	e.Reset()
	e.AttemptConnect(0, 1)
	e.AttemptConnect(2, 3)
	assert.False(t, e.IsComplete(), "two disjoint segments")
}

func TestDisjointCycleAndPathNotComplete(t *testing.T) {
	// A 4-cycle plus a separate edge passes the degree count but not the walk
	g := newGraphState(&Puzzle{
		GridSize: 3,
		Nodes: []Node{
			{Row: 0, Col: 0}, {Row: 0, Col: 1},
			{Row: 1, Col: 0}, {Row: 1, Col: 1},
			{Row: 0, Col: 2}, {Row: 1, Col: 2},
		},
	})
	// cycle 0-1-3-2-0 and separate edge 4-5
	g.add(NewEdge(0, 1))
	g.add(NewEdge(1, 3))
	g.add(NewEdge(3, 2))
	g.add(NewEdge(2, 0))
	g.add(NewEdge(4, 5))

	assert.False(t, g.satisfied())
	assert.Equal(t, 2, g.reachable(4))
}

func TestToggleOffCanComplete(t *testing.T) {
	// A 4-cycle minus one edge is a Hamiltonian path
	g := newGraphState(neutralSquare())
	g.add(NewEdge(0, 1))
	g.add(NewEdge(1, 3))
	g.add(NewEdge(2, 3))
	g.add(NewEdge(0, 2))
	assert.False(t, g.satisfied())

	g.remove(g.edgeIndex(NewEdge(0, 2)))
	assert.True(t, g.satisfied())
}

func TestGraphUndoIsInverse(t *testing.T) {
	e, err := NewPathEngine(lineOfThreeWithBranch())
	require.NoError(t, err)
	e.AttemptConnect(0, 1)

	moves := [][2]int{{1, 2}, {1, 3}, {0, 1}}
	for _, m := range moves {
		before := e.Snapshot()
		out := e.AttemptConnect(m[0], m[1])
		require.True(t, out.Accepted(), "move %v", m)
		require.True(t, e.Undo())

		after := e.Snapshot()
		assert.Equal(t, before.Edges, after.Edges, "move %v", m)
		assert.Equal(t, before.Nodes, after.Nodes, "move %v", m)
	}
}

func TestUndoRebuildsConnections(t *testing.T) {
	e, err := NewPathEngine(lineOfThreeWithBranch())
	require.NoError(t, err)
	e.AttemptConnect(0, 1)
	e.AttemptConnect(1, 2)
	e.AttemptConnect(0, 1) // toggle off

	require.True(t, e.Undo())
	snap := e.Snapshot()
	assert.Equal(t, []int{0, 2}, snap.Nodes[1].Connections)
	assert.Equal(t, 2, snap.Nodes[1].Degree)
	assert.Equal(t, []int{1}, snap.Nodes[0].Connections)
}

func TestDegreeInvariant(t *testing.T) {
	e, err := NewPathEngine(lineOfThreeWithBranch())
	require.NoError(t, err)

	pairs := [][2]int{{0, 1}, {1, 2}, {1, 3}, {2, 3}, {0, 3}, {1, 2}, {1, 3}, {0, 1}, {1, 3}}
	for _, p := range pairs {
		out := e.AttemptConnect(p[0], p[1])
		for _, n := range e.Snapshot().Nodes {
			assert.LessOrEqual(t, n.Degree, 2)
		}
		if out.Accepted() {
			a, b := e.graph.nodes[p[0]].cell, e.graph.nodes[p[1]].cell
			assert.True(t, IsAdjacent(a, b))
		}
	}
}

func TestNodeAt(t *testing.T) {
	e, err := NewPathEngine(directedPair())
	require.NoError(t, err)

	i, ok := e.NodeAt(Cell{Row: 2, Col: 1})
	require.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = e.NodeAt(Cell{Row: 0, Col: 0})
	assert.False(t, ok)
}
