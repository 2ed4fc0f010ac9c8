// Package board renders puzzle snapshots as plain ASCII grids.
//
// Cells sit on even rows and columns of the drawing; the odd positions in
// between hold connectors, so an edge between (0,0) and (0,1) is drawn as
// "o-o" and a vertical one as a '|' below the upper cell.
package board

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wricardo/mcp-training/zippath/game/engine"
)

// Cell glyphs
const (
	Empty       = '.'
	Blocked     = '#'
	PathCell    = '*'
	Head        = '@'
	NodeOpen    = 'o'
	NodeEnd     = '@'
	NodeFilled  = '*'
	Horizontal  = '-'
	Vertical    = '|'
	overflowNum = '+'
)

type canvas struct {
	size  int
	cells [][]rune
}

func newCanvas(size int) *canvas {
	dim := 2*size - 1
	cells := make([][]rune, dim)
	for r := range cells {
		cells[r] = make([]rune, dim)
		for c := range cells[r] {
			cells[r][c] = ' '
			if r%2 == 0 && c%2 == 0 {
				cells[r][c] = Empty
			}
		}
	}
	return &canvas{size: size, cells: cells}
}

func (cv *canvas) set(cell engine.Cell, ch rune) {
	if !cell.InBounds(cv.size) {
		return
	}
	cv.cells[2*cell.Row][2*cell.Col] = ch
}

// join draws the connector between two orthogonally adjacent cells
func (cv *canvas) join(a, b engine.Cell) {
	if !engine.IsAdjacent(a, b) || !a.InBounds(cv.size) || !b.InBounds(cv.size) {
		return
	}
	ch := Horizontal
	if a.Col == b.Col {
		ch = Vertical
	}
	cv.cells[a.Row+b.Row][a.Col+b.Col] = ch
}

func (cv *canvas) String() string {
	var sb strings.Builder

	// Column ruler. Two-digit columns only print their last digit.
	ruler := "    "
	for c := 0; c < cv.size; c++ {
		ruler += fmt.Sprintf("%d ", c%10)
	}
	sb.WriteString(strings.TrimRight(ruler, " "))
	sb.WriteString("\n")

	for r, row := range cv.cells {
		prefix := "    "
		if r%2 == 0 {
			prefix = fmt.Sprintf("%2d  ", r/2)
		}
		sb.WriteString(strings.TrimRight(prefix+string(row), " "))
		sb.WriteString("\n")
	}
	return sb.String()
}

// WaypointGlyph returns the single character used for a waypoint number:
// 1-9, then a-z. Larger numbers render as '+'.
func WaypointGlyph(number int) rune {
	if number < 1 || number > 35 {
		return overflowNum
	}
	return rune(strconv.FormatInt(int64(number), 36)[0])
}

// Render draws the snapshot as an ASCII grid
func Render(s *engine.Snapshot) string {
	if s == nil || s.GridSize <= 0 {
		return ""
	}
	cv := newCanvas(s.GridSize)

	switch s.Topology {
	case engine.TopologyGraph:
		drawGraph(cv, s)
	default:
		drawSequence(cv, s)
	}
	return cv.String()
}

func drawGraph(cv *canvas, s *engine.Snapshot) {
	for _, n := range s.Nodes {
		ch := NodeOpen
		switch {
		case n.Endpoint:
			ch = NodeEnd
		case n.Filled:
			ch = NodeFilled
		}
		cv.set(engine.Cell{Row: n.Row, Col: n.Col}, ch)
	}
	for _, e := range s.Edges {
		if e.A < 0 || e.B < 0 || e.A >= len(s.Nodes) || e.B >= len(s.Nodes) {
			continue
		}
		a, b := s.Nodes[e.A], s.Nodes[e.B]
		cv.join(engine.Cell{Row: a.Row, Col: a.Col}, engine.Cell{Row: b.Row, Col: b.Col})
	}
}

func drawSequence(cv *canvas, s *engine.Snapshot) {
	for _, b := range s.Blocked {
		cv.set(b, Blocked)
	}
	for i, c := range s.Path {
		cv.set(c, PathCell)
		if i > 0 {
			cv.join(s.Path[i-1], c)
		}
	}
	if len(s.Path) > 0 {
		cv.set(s.Path[len(s.Path)-1], Head)
	}
	// Waypoint numbers win over path glyphs
	for _, w := range s.Waypoints {
		cv.set(engine.Cell{Row: w.Row, Col: w.Col}, WaypointGlyph(w.Number))
	}
}

// RenderPuzzle draws the starting position of a puzzle
func RenderPuzzle(p *engine.Puzzle) (string, error) {
	eng, err := engine.NewPathEngine(p)
	if err != nil {
		return "", err
	}
	return Render(eng.Snapshot()), nil
}

// Legend describes the glyphs used for a topology
func Legend(topology engine.Topology) string {
	if topology == engine.TopologyGraph {
		return "Legend: o node without connections, @ path endpoint, * node with two connections, -/| connections"
	}
	return "Legend: 1-9/a-z waypoints in order, * path, @ path head, # blocked, . free cell, -/| path steps"
}
