package engine

import (
	"fmt"
	"time"
)

// Engine is the contract hosts use to drive a puzzle
type Engine interface {
	// Loading and lifecycle
	Load(p *Puzzle) error
	Reset()
	Undo() bool

	// Moves
	AttemptConnect(a, b int) Outcome
	AttemptExtend(cell Cell) Outcome
	ExtendPath(cells []Cell) []Outcome

	// Queries
	IsValidConnection(a, b int) bool
	NodeAt(cell Cell) (int, bool)
	NextRequiredWaypoint() int
	IsComplete() bool
	Completion() *Completion
	Moves() int
	Snapshot() *Snapshot
	Puzzle() *Puzzle
}

// topologyState is the per-variant strategy behind PathEngine
type topologyState interface {
	capture() snapshot
	restore(snapshot)
	reset()
	moves() int
	satisfied() bool
}

// PathEngine implements Engine for both topologies. It is not safe for
// concurrent use; hosts serialize calls.
type PathEngine struct {
	puzzle *Puzzle
	state  topologyState
	graph  *graphState
	seq    *pathState

	history      *history
	historyLimit int
	now          func() time.Time

	startedAt  time.Time
	complete   bool
	completion *Completion
}

// Option configures a PathEngine
type Option func(*PathEngine)

// WithClock overrides the wall clock used for elapsed time
func WithClock(now func() time.Time) Option {
	return func(e *PathEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithHistoryLimit caps the undo stack; values <= 0 select DefaultHistoryLimit
func WithHistoryLimit(limit int) Option {
	return func(e *PathEngine) {
		e.historyLimit = limit
	}
}

// NewPathEngine creates an engine and loads the given puzzle
func NewPathEngine(p *Puzzle, opts ...Option) (*PathEngine, error) {
	e := &PathEngine{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.Load(p); err != nil {
		return nil, err
	}
	return e, nil
}

// Load validates the puzzle and replaces all engine state with a fresh
// session on it. On error the previous state is kept.
func (e *PathEngine) Load(p *Puzzle) error {
	if err := ValidatePuzzle(p); err != nil {
		return err
	}
	puzzle := p.Normalized()

	e.puzzle = puzzle
	e.graph, e.seq = nil, nil
	switch puzzle.Topology {
	case TopologyGraph:
		e.graph = newGraphState(puzzle)
		e.state = e.graph
	case TopologySequence:
		e.seq = newPathState(puzzle)
		e.state = e.seq
	default:
		return fmt.Errorf("%w: unknown topology %q", ErrInvalidPuzzle, puzzle.Topology)
	}

	e.history = newHistory(e.historyLimit)
	e.startedAt = e.now()
	e.complete = false
	e.completion = nil
	return nil
}

// Puzzle returns a copy of the loaded puzzle
func (e *PathEngine) Puzzle() *Puzzle {
	return e.puzzle.Clone()
}

// CheckConnection returns the reason an edge between a and b would be
// rejected, or ReasonNone when it is valid. Existing edges are not
// considered; see AttemptConnect for toggle semantics.
func (e *PathEngine) CheckConnection(a, b int) Reason {
	if e.graph == nil {
		return ReasonWrongTopology
	}
	return e.graph.check(a, b)
}

// IsValidConnection reports whether a new edge between a and b is legal
func (e *PathEngine) IsValidConnection(a, b int) bool {
	return e.CheckConnection(a, b) == ReasonNone
}

// NodeAt returns the index of the node at cell
func (e *PathEngine) NodeAt(cell Cell) (int, bool) {
	if e.graph == nil {
		return 0, false
	}
	i, ok := e.graph.byCell[cell]
	return i, ok
}

// AttemptConnect toggles the edge between nodes a and b. An existing edge
// is removed; otherwise the candidate edge is validated and added.
func (e *PathEngine) AttemptConnect(a, b int) Outcome {
	if e.graph == nil {
		return rejected(ReasonWrongTopology)
	}
	if !e.graph.validIndex(a) || !e.graph.validIndex(b) || a == b {
		return rejected(ReasonInvalidNode)
	}
	if e.complete {
		return rejected(ReasonPuzzleComplete)
	}

	edge := NewEdge(a, b)
	if i := e.graph.edgeIndex(edge); i >= 0 {
		return e.commit(ResultDisconnected, func() { e.graph.remove(i) })
	}

	if reason := e.graph.check(a, b); reason != ReasonNone {
		return rejected(reason)
	}
	return e.commit(ResultConnected, func() { e.graph.add(edge) })
}

// AttemptExtend moves the head of the path onto cell. Re-entering the
// current head is a no-op and stepping back onto the previous cell retracts.
func (e *PathEngine) AttemptExtend(cell Cell) Outcome {
	if e.seq == nil {
		return rejected(ReasonWrongTopology)
	}
	if e.complete {
		return rejected(ReasonPuzzleComplete)
	}
	if !cell.InBounds(e.seq.size) {
		return rejected(ReasonOutOfBounds)
	}
	if cell == e.seq.last() {
		return Outcome{Result: ResultNoop}
	}
	if e.seq.isRetraction(cell) {
		return e.commit(ResultRetracted, e.seq.retract)
	}

	if reason := e.seq.check(cell); reason != ReasonNone {
		return rejected(reason)
	}
	return e.commit(ResultExtended, func() { e.seq.extend(cell) })
}

// ExtendPath applies AttemptExtend to each cell in order, stopping after the
// first rejection or once the puzzle completes.
func (e *PathEngine) ExtendPath(cells []Cell) []Outcome {
	if len(cells) > MaxPathBatch {
		cells = cells[:MaxPathBatch]
	}
	outcomes := make([]Outcome, 0, len(cells))
	for _, c := range cells {
		o := e.AttemptExtend(c)
		outcomes = append(outcomes, o)
		if o.Result == ResultRejected || o.Completion != nil {
			break
		}
	}
	return outcomes
}

// commit snapshots the current state, applies the mutation and evaluates
// completion.
func (e *PathEngine) commit(result Result, mutate func()) Outcome {
	e.history.push(e.state.capture())
	mutate()

	out := Outcome{Result: result}
	if e.state.satisfied() {
		e.complete = true
		elapsed := e.now().Sub(e.startedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		e.completion = &Completion{
			Elapsed:        elapsed,
			ElapsedSeconds: int(elapsed / time.Second),
			Moves:          e.state.moves(),
			CompletedAt:    e.startedAt.Add(elapsed),
		}
		c := *e.completion
		out.Completion = &c
	}
	return out
}

// NextRequiredWaypoint returns the number the next waypoint entered must
// carry. It is derived from the path, so undo and retraction stay
// consistent. Graph puzzles return 0.
func (e *PathEngine) NextRequiredWaypoint() int {
	if e.seq == nil {
		return 0
	}
	return e.seq.nextRequired()
}

// Undo restores the state before the most recent mutation. It returns false
// when there is nothing to undo. Undoing out of a completed state reopens
// the puzzle.
func (e *PathEngine) Undo() bool {
	s, ok := e.history.pop()
	if !ok {
		return false
	}
	e.state.restore(s)
	e.complete = false
	e.completion = nil
	return true
}

// Reset clears progress and history and restarts the clock
func (e *PathEngine) Reset() {
	e.state.reset()
	e.history.clear()
	e.complete = false
	e.completion = nil
	e.startedAt = e.now()
}

// IsComplete reports whether the puzzle is solved
func (e *PathEngine) IsComplete() bool {
	return e.complete
}

// Completion returns the completion payload, or nil while unsolved
func (e *PathEngine) Completion() *Completion {
	if e.completion == nil {
		return nil
	}
	c := *e.completion
	return &c
}

// Moves returns the edge count (graph) or path length - 1 (sequence)
func (e *PathEngine) Moves() int {
	return e.state.moves()
}

// HistoryDepth returns the number of undo entries held
func (e *PathEngine) HistoryDepth() int {
	return e.history.len()
}

// StartedAt returns the time of the last load or reset
func (e *PathEngine) StartedAt() time.Time {
	return e.startedAt
}

// Snapshot returns a read-only copy of the current state
func (e *PathEngine) Snapshot() *Snapshot {
	s := &Snapshot{
		PuzzleID:     e.puzzle.ID,
		PuzzleName:   e.puzzle.Name,
		Topology:     e.puzzle.Topology,
		WinCondition: e.puzzle.WinCondition,
		GridSize:     e.puzzle.GridSize,
		Moves:        e.state.moves(),
		HistoryDepth: e.history.len(),
		StartedAt:    e.startedAt,
		Complete:     e.complete,
		Completion:   e.Completion(),
	}

	if e.graph != nil {
		s.Nodes = e.graph.views()
		s.Edges = append([]Edge{}, e.graph.edges...)
	}
	if e.seq != nil {
		s.Path = append([]Cell{}, e.seq.path...)
		s.Waypoints = e.seq.views()
		s.Blocked = append([]Cell(nil), e.puzzle.Blocked...)
		s.NextWaypoint = e.seq.nextRequired()
		s.Playable = e.seq.playable
	}
	return s
}

var _ Engine = (*PathEngine)(nil)
