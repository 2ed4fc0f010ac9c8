package engine

// pathState models the cursor-path variant: an ordered simple path of cells
// seeded at waypoint 1.
type pathState struct {
	size      int
	win       WinCondition
	start     Cell
	path      []Cell
	waypoints map[Cell]int
	targets   []Cell // targets[n] is the cell of waypoint n; index 0 unused
	blocked   map[Cell]bool
	playable  int
}

func newPathState(p *Puzzle) *pathState {
	s := &pathState{
		size:      p.GridSize,
		win:       p.WinCondition,
		waypoints: make(map[Cell]int, len(p.Waypoints)),
		targets:   make([]Cell, len(p.Waypoints)+1),
		blocked:   make(map[Cell]bool, len(p.Blocked)),
		playable:  PlayableCells(p),
	}
	for _, w := range p.Waypoints {
		s.waypoints[w.Cell()] = w.Number
		s.targets[w.Number] = w.Cell()
	}
	for _, c := range p.Blocked {
		s.blocked[c] = true
	}
	s.start = s.targets[1]
	s.path = []Cell{s.start}
	return s
}

func (s *pathState) last() Cell {
	return s.path[len(s.path)-1]
}

// isRetraction reports whether cell is the second-to-last entry
func (s *pathState) isRetraction(c Cell) bool {
	return len(s.path) >= 2 && s.path[len(s.path)-2] == c
}

func (s *pathState) contains(c Cell) bool {
	for _, p := range s.path {
		if p == c {
			return true
		}
	}
	return false
}

// nextRequired is one more than the highest waypoint number on the path
func (s *pathState) nextRequired() int {
	highest := 0
	for _, c := range s.path {
		if n, ok := s.waypoints[c]; ok && n > highest {
			highest = n
		}
	}
	return highest + 1
}

// check validates a forward extension from the current end of the path
func (s *pathState) check(c Cell) Reason {
	if !c.InBounds(s.size) {
		return ReasonOutOfBounds
	}
	if !IsAdjacent(s.last(), c) {
		return ReasonNotAdjacent
	}
	if s.blocked[c] {
		return ReasonBlockedCell
	}
	if s.contains(c) {
		return ReasonRevisit
	}
	if n, ok := s.waypoints[c]; ok && n != s.nextRequired() {
		return ReasonWaypointOrder
	}
	return ReasonNone
}

func (s *pathState) extend(c Cell) {
	s.path = append(s.path, c)
}

func (s *pathState) retract() {
	s.path = s.path[:len(s.path)-1]
}

func (s *pathState) capture() snapshot {
	return snapshot{path: append([]Cell(nil), s.path...)}
}

func (s *pathState) restore(snap snapshot) {
	s.path = append([]Cell(nil), snap.path...)
}

func (s *pathState) reset() {
	s.path = []Cell{s.start}
}

func (s *pathState) moves() int {
	return len(s.path) - 1
}

// satisfied applies the configured win condition. Both policies require
// every waypoint on the path and the path ending on the final waypoint.
func (s *pathState) satisfied() bool {
	k := len(s.targets) - 1
	if k < 1 || s.last() != s.targets[k] {
		return false
	}
	if s.nextRequired() != k+1 {
		return false
	}
	if s.win == WinFullCoverage {
		return len(s.path) == s.playable
	}
	return true
}

func (s *pathState) views() []WaypointView {
	views := make([]WaypointView, 0, len(s.targets)-1)
	for n := 1; n < len(s.targets); n++ {
		c := s.targets[n]
		views = append(views, WaypointView{
			Row:     c.Row,
			Col:     c.Col,
			Number:  n,
			Visited: s.contains(c),
		})
	}
	return views
}
