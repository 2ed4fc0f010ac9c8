package main

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"github.com/wricardo/mcp-training/zippath/game/engine"
)

var (
	// ErrNoSolution is returned when the search space is exhausted
	ErrNoSolution = errors.New("puzzle has no solution")
	// ErrSearchBudget is returned when the expansion budget runs out first
	ErrSearchBudget = errors.New("search budget exhausted")
)

// Solution is a move list that completes a puzzle from its initial state
type Solution struct {
	Topology engine.Topology
	// Cells is the path after the starting waypoint (sequence puzzles)
	Cells []engine.Cell
	// Edges is the connection order (graph puzzles)
	Edges []engine.Edge
	// Expanded counts the moves tried during the search
	Expanded int
}

// Moves returns the number of moves needed to replay the solution
func (s *Solution) Moves() int {
	if s.Topology == engine.TopologyGraph {
		return len(s.Edges)
	}
	return len(s.Cells)
}

// Solver runs a depth-first search over the engine's own move rules. Every
// candidate is applied with AttemptExtend or AttemptConnect and backed out
// with Undo, so the search can never disagree with the server on legality.
type Solver struct {
	puzzle   *engine.Puzzle
	engine   *engine.PathEngine
	budget   int
	expanded int
	logger   *slog.Logger

	// sequence search
	blocked map[engine.Cell]bool
	visited map[engine.Cell]bool
	cells   []engine.Cell
	final   engine.Cell

	// graph search
	used  []bool
	edges []engine.Edge
}

// NewSolver prepares a search for p. budget caps the number of moves tried;
// values <= 0 mean no cap.
func NewSolver(p *engine.Puzzle, budget int, logger *slog.Logger) (*Solver, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	// The undo stack must hold a full-depth line of play
	depth := p.GridSize*p.GridSize + 1
	e, err := engine.NewPathEngine(p, engine.WithHistoryLimit(depth))
	if err != nil {
		return nil, err
	}
	return &Solver{
		puzzle: e.Puzzle(),
		engine: e,
		budget: budget,
		logger: logger,
	}, nil
}

// Solve searches for a completing move list
func (s *Solver) Solve() (*Solution, error) {
	s.expanded = 0

	var (
		found bool
		err   error
	)
	switch s.puzzle.Topology {
	case engine.TopologySequence:
		found, err = s.solveSequence()
	case engine.TopologyGraph:
		found, err = s.solveGraph()
	default:
		return nil, fmt.Errorf("unsupported topology %q", s.puzzle.Topology)
	}

	s.logger.Debug("search finished",
		"puzzle", s.puzzle.ID,
		"expanded", s.expanded,
		"found", found,
	)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoSolution
	}

	sol := &Solution{Topology: s.puzzle.Topology, Expanded: s.expanded}
	if s.puzzle.Topology == engine.TopologyGraph {
		sol.Edges = append([]engine.Edge(nil), s.edges...)
	} else {
		sol.Cells = append([]engine.Cell(nil), s.cells...)
	}
	return sol, nil
}

// spend counts one expansion and reports whether the budget allows it
func (s *Solver) spend() bool {
	s.expanded++
	return s.budget <= 0 || s.expanded <= s.budget
}

func (s *Solver) solveSequence() (bool, error) {
	s.blocked = make(map[engine.Cell]bool, len(s.puzzle.Blocked))
	for _, c := range s.puzzle.Blocked {
		s.blocked[c] = true
	}
	snap := s.engine.Snapshot()
	start := snap.Path[0]
	s.final = start
	if n := len(snap.Waypoints); n > 0 {
		last := snap.Waypoints[n-1]
		s.final = engine.Cell{Row: last.Row, Col: last.Col}
	}
	s.visited = map[engine.Cell]bool{start: true}
	s.cells = nil

	if s.engine.IsComplete() {
		return true, nil
	}
	return s.extendFrom(start)
}

// extendFrom tries every legal next cell from head, fewest onward exits first
func (s *Solver) extendFrom(head engine.Cell) (bool, error) {
	// The path has to end on the final waypoint
	if head == s.final && len(s.cells) > 0 {
		return false, nil
	}
	if s.puzzle.WinCondition == engine.WinFullCoverage && !s.coverable(head) {
		return false, nil
	}

	for _, next := range s.rankedNeighbors(head) {
		if !s.spend() {
			return false, ErrSearchBudget
		}
		if s.engine.AttemptExtend(next).Result != engine.ResultExtended {
			continue
		}
		s.visited[next] = true
		s.cells = append(s.cells, next)

		if s.engine.IsComplete() {
			return true, nil
		}
		found, err := s.extendFrom(next)
		if found || err != nil {
			return found, err
		}

		s.engine.Undo()
		delete(s.visited, next)
		s.cells = s.cells[:len(s.cells)-1]
	}
	return false, nil
}

// open reports whether c is a free cell the path could still enter
func (s *Solver) open(c engine.Cell) bool {
	return c.InBounds(s.puzzle.GridSize) && !s.blocked[c] && !s.visited[c]
}

func (s *Solver) rankedNeighbors(head engine.Cell) []engine.Cell {
	type candidate struct {
		cell  engine.Cell
		exits int
	}
	var candidates []candidate
	for _, d := range engine.AllDirections {
		c := head.Neighbor(d)
		if !s.open(c) {
			continue
		}
		exits := 0
		for _, d2 := range engine.AllDirections {
			if s.open(c.Neighbor(d2)) {
				exits++
			}
		}
		candidates = append(candidates, candidate{c, exits})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].exits < candidates[j].exits
	})

	out := make([]engine.Cell, len(candidates))
	for i, c := range candidates {
		out[i] = c.cell
	}
	return out
}

// coverable reports whether every free cell is still reachable from head
// through free cells. A full-coverage path cannot recover once the free
// region splits.
func (s *Solver) coverable(head engine.Cell) bool {
	free := 0
	size := s.puzzle.GridSize
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			if s.open(engine.Cell{Row: r, Col: c}) {
				free++
			}
		}
	}
	if free == 0 {
		return true
	}

	seen := map[engine.Cell]bool{}
	queue := linkedlistqueue.New()
	queue.Enqueue(head)
	for !queue.Empty() {
		v, _ := queue.Dequeue()
		cur := v.(engine.Cell)
		for _, d := range engine.AllDirections {
			next := cur.Neighbor(d)
			if !s.open(next) || seen[next] {
				continue
			}
			seen[next] = true
			queue.Enqueue(next)
		}
	}
	return len(seen) == free
}

func (s *Solver) solveGraph() (bool, error) {
	nodes := len(s.puzzle.Nodes)
	s.edges = nil

	// Nodes with a single allowed direction must be path endpoints
	starts := make([]int, 0, nodes)
	for i, n := range s.puzzle.Nodes {
		if len(n.Directions) == 1 {
			starts = append(starts, i)
		}
	}
	if len(starts) == 0 {
		for i := 0; i < nodes; i++ {
			starts = append(starts, i)
		}
	}

	for _, start := range starts {
		s.used = make([]bool, nodes)
		s.used[start] = true
		found, err := s.connectFrom(start, 1)
		if found || err != nil {
			return found, err
		}
	}
	return false, nil
}

// connectFrom grows the path from its current end node
func (s *Solver) connectFrom(end, placed int) (bool, error) {
	if placed == len(s.puzzle.Nodes) {
		return s.engine.IsComplete(), nil
	}

	endCell := s.puzzle.Nodes[end].Cell()
	for _, d := range engine.AllDirections {
		next, ok := s.engine.NodeAt(endCell.Neighbor(d))
		if !ok || s.used[next] {
			continue
		}
		if !s.spend() {
			return false, ErrSearchBudget
		}
		if s.engine.AttemptConnect(end, next).Result != engine.ResultConnected {
			continue
		}
		s.used[next] = true
		s.edges = append(s.edges, engine.NewEdge(end, next))

		found, err := s.connectFrom(next, placed+1)
		if found || err != nil {
			return found, err
		}

		s.engine.Undo()
		s.used[next] = false
		s.edges = s.edges[:len(s.edges)-1]
	}
	return false, nil
}

// Verify replays the solution on a fresh engine and reports whether it
// completes the puzzle
func Verify(p *engine.Puzzle, sol *Solution) error {
	e, err := engine.NewPathEngine(p)
	if err != nil {
		return err
	}

	switch sol.Topology {
	case engine.TopologySequence:
		for i, c := range sol.Cells {
			if o := e.AttemptExtend(c); !o.Accepted() {
				return fmt.Errorf("move %d to %s rejected: %s", i+1, c, o.Reason)
			}
		}
	case engine.TopologyGraph:
		for i, edge := range sol.Edges {
			if o := e.AttemptConnect(edge.A, edge.B); !o.Accepted() {
				return fmt.Errorf("edge %d (%d-%d) rejected: %s", i+1, edge.A, edge.B, o.Reason)
			}
		}
	}

	if !e.IsComplete() {
		return errors.New("solution does not complete the puzzle")
	}
	return nil
}
