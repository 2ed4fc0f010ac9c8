package engine

import (
	"fmt"
	"strings"
	"time"
)

// Topology selects how the engine models path state
type Topology string

const (
	// TopologyGraph is the connection-graph variant: an unordered edge set
	// between fixed nodes.
	TopologyGraph Topology = "graph"
	// TopologySequence is the cursor-path variant: an ordered list of cells.
	TopologySequence Topology = "sequence"
)

// WinCondition selects the completion predicate
type WinCondition string

const (
	WinHamiltonianPath WinCondition = "hamiltonian_path"
	WinFullCoverage    WinCondition = "full_coverage"
	WinWaypointsOnly   WinCondition = "waypoints_only"
)

const (
	// Validation constants
	MinGridSize         = 2
	MaxGridSize         = 20
	DefaultHistoryLimit = 100
	MaxPathBatch        = 400
)

// Direction is one of the four grid directions
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// AllDirections lists the directions in canonical order
var AllDirections = []Direction{Up, Down, Left, Right}

// ParseDirection converts a string into a Direction
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Up, Down, Left, Right:
		return d, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

func (d Direction) bit() DirectionSet {
	switch d {
	case Up:
		return 1 << 0
	case Down:
		return 1 << 1
	case Left:
		return 1 << 2
	case Right:
		return 1 << 3
	}
	return 0
}

// Opposite returns the reverse direction
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return ""
}

// DirectionSet is a set of directions. The zero value is the empty set,
// which marks a neutral node.
type DirectionSet uint8

// NewDirectionSet builds a set from a list; repeated entries collapse.
func NewDirectionSet(dirs ...Direction) DirectionSet {
	var s DirectionSet
	for _, d := range dirs {
		s |= d.bit()
	}
	return s
}

// Has reports whether d is a member of the set
func (s DirectionSet) Has(d Direction) bool {
	b := d.bit()
	return b != 0 && s&b != 0
}

// Allows reports whether a connection leaving in direction d is permitted.
// An empty set permits every direction.
func (s DirectionSet) Allows(d Direction) bool {
	return s == 0 || s.Has(d)
}

// IsNeutral reports whether the set is empty
func (s DirectionSet) IsNeutral() bool {
	return s == 0
}

// Directions returns the members in canonical order
func (s DirectionSet) Directions() []Direction {
	dirs := make([]Direction, 0, 4)
	for _, d := range AllDirections {
		if s.Has(d) {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

func (s DirectionSet) String() string {
	if s.IsNeutral() {
		return "any"
	}
	parts := make([]string, 0, 4)
	for _, d := range s.Directions() {
		parts = append(parts, string(d))
	}
	return strings.Join(parts, ",")
}

// Cell is a grid coordinate
type Cell struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// InBounds reports whether the cell lies inside a size x size grid
func (c Cell) InBounds(size int) bool {
	return c.Row >= 0 && c.Row < size && c.Col >= 0 && c.Col < size
}

// Neighbor returns the adjacent cell in direction d
func (c Cell) Neighbor(d Direction) Cell {
	switch d {
	case Up:
		return Cell{Row: c.Row - 1, Col: c.Col}
	case Down:
		return Cell{Row: c.Row + 1, Col: c.Col}
	case Left:
		return Cell{Row: c.Row, Col: c.Col - 1}
	case Right:
		return Cell{Row: c.Row, Col: c.Col + 1}
	}
	return c
}

// Node is a graph-variant puzzle node as described by the puzzle file
type Node struct {
	Row        int         `json:"row" yaml:"row" validate:"min=0"`
	Col        int         `json:"col" yaml:"col" validate:"min=0"`
	Directions []Direction `json:"directions" yaml:"directions" validate:"max=4,dive,oneof=up down left right"`
}

// Cell returns the node position
func (n Node) Cell() Cell {
	return Cell{Row: n.Row, Col: n.Col}
}

// Waypoint is a numbered cell of the sequence variant
type Waypoint struct {
	Row    int `json:"row" yaml:"row" validate:"min=0"`
	Col    int `json:"col" yaml:"col" validate:"min=0"`
	Number int `json:"number" yaml:"number" validate:"min=1"`
}

// Cell returns the waypoint position
func (w Waypoint) Cell() Cell {
	return Cell{Row: w.Row, Col: w.Col}
}

// Edge is an undirected connection between two node indices, stored with A < B
type Edge struct {
	A int `json:"a"`
	B int `json:"b"`
}

// NewEdge returns the normalized edge joining a and b
func NewEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// Puzzle is the immutable puzzle descriptor
type Puzzle struct {
	ID           string       `json:"id" yaml:"id" validate:"required"`
	Name         string       `json:"name,omitempty" yaml:"name,omitempty"`
	Description  string       `json:"description,omitempty" yaml:"description,omitempty"`
	Topology     Topology     `json:"topology" yaml:"topology" validate:"required,oneof=graph sequence"`
	WinCondition WinCondition `json:"win_condition,omitempty" yaml:"win_condition,omitempty" validate:"required,oneof=hamiltonian_path full_coverage waypoints_only"`
	GridSize     int          `json:"grid_size" yaml:"grid_size" validate:"min=2,max=20"`
	Nodes        []Node       `json:"nodes,omitempty" yaml:"nodes,omitempty" validate:"dive"`
	Waypoints    []Waypoint   `json:"waypoints,omitempty" yaml:"waypoints,omitempty" validate:"dive"`
	Blocked      []Cell       `json:"blocked,omitempty" yaml:"blocked,omitempty"`
}

// Result tags the outcome of a move attempt
type Result string

const (
	ResultConnected    Result = "connected"
	ResultDisconnected Result = "disconnected"
	ResultExtended     Result = "extended"
	ResultRetracted    Result = "retracted"
	ResultRejected     Result = "rejected"
	ResultNoop         Result = "noop"
)

// Reason explains a rejected move
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonNotAdjacent      Reason = "not_adjacent"
	ReasonDegreeExceeded   Reason = "degree_exceeded"
	ReasonDirectionBlocked Reason = "direction_blocked"
	ReasonRevisit          Reason = "revisit"
	ReasonBlockedCell      Reason = "blocked_cell"
	ReasonWaypointOrder    Reason = "waypoint_order"
	ReasonOutOfBounds      Reason = "out_of_bounds"
	ReasonInvalidNode      Reason = "invalid_node"
	ReasonPuzzleComplete   Reason = "puzzle_complete"
	ReasonWrongTopology    Reason = "wrong_topology"
)

// Outcome is returned by every move attempt
type Outcome struct {
	Result Result `json:"result"`
	Reason Reason `json:"reason,omitempty"`

	// Completion is set only on the move that completed the puzzle
	Completion *Completion `json:"completion,omitempty"`
}

// Accepted reports whether the move changed engine state
func (o Outcome) Accepted() bool {
	switch o.Result {
	case ResultConnected, ResultDisconnected, ResultExtended, ResultRetracted:
		return true
	}
	return false
}

func rejected(reason Reason) Outcome {
	return Outcome{Result: ResultRejected, Reason: reason}
}

// Completion is the payload produced on the transition into the complete state
type Completion struct {
	Elapsed        time.Duration `json:"elapsed_ns"`
	ElapsedSeconds int           `json:"elapsed_seconds"`
	Moves          int           `json:"moves"`
	CompletedAt    time.Time     `json:"completed_at"`
}

// NodeView is the render view of a graph node
type NodeView struct {
	Index       int         `json:"index"`
	Row         int         `json:"row"`
	Col         int         `json:"col"`
	Directions  []Direction `json:"directions"`
	Connections []int       `json:"connections"`
	Degree      int         `json:"degree"`
	Filled      bool        `json:"filled"`
	Endpoint    bool        `json:"endpoint"`
}

// WaypointView is the render view of a waypoint
type WaypointView struct {
	Row     int  `json:"row"`
	Col     int  `json:"col"`
	Number  int  `json:"number"`
	Visited bool `json:"visited"`
}

// Snapshot is a read-only copy of engine state sufficient to render a board
type Snapshot struct {
	PuzzleID     string         `json:"puzzle_id"`
	PuzzleName   string         `json:"puzzle_name,omitempty"`
	Topology     Topology       `json:"topology"`
	WinCondition WinCondition   `json:"win_condition"`
	GridSize     int            `json:"grid_size"`
	Nodes        []NodeView     `json:"nodes,omitempty"`
	Edges        []Edge         `json:"edges,omitempty"`
	Path         []Cell         `json:"path,omitempty"`
	Waypoints    []WaypointView `json:"waypoints,omitempty"`
	Blocked      []Cell         `json:"blocked,omitempty"`
	NextWaypoint int            `json:"next_waypoint,omitempty"`
	Playable     int            `json:"playable_cells"`
	Moves        int            `json:"moves"`
	HistoryDepth int            `json:"history_depth"`
	StartedAt    time.Time      `json:"started_at"`
	Complete     bool           `json:"complete"`
	Completion   *Completion    `json:"completion,omitempty"`
}

// Visited reports whether a cell is on the path (sequence) or belongs to a
// connected node (graph).
func (s *Snapshot) Visited(c Cell) bool {
	for _, p := range s.Path {
		if p == c {
			return true
		}
	}
	for _, n := range s.Nodes {
		if n.Row == c.Row && n.Col == c.Col {
			return n.Filled
		}
	}
	return false
}
