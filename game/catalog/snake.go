package catalog

import (
	"errors"
	"fmt"

	"github.com/wricardo/mcp-training/zippath/game/engine"
)

var (
	ErrNotSequence     = errors.New("puzzle has no waypoints")
	ErrSnakeInfeasible = errors.New("waypoints are not in snake order")
)

// SnakeOrder returns every cell of a size x size grid in row-major order,
// alternating direction on each row: left to right on even rows, right to
// left on odd rows.
func SnakeOrder(size int) []engine.Cell {
	if size <= 0 {
		return nil
	}
	cells := make([]engine.Cell, 0, size*size)
	for row := 0; row < size; row++ {
		for i := 0; i < size; i++ {
			col := i
			if row%2 == 1 {
				col = size - 1 - i
			}
			cells = append(cells, engine.Cell{Row: row, Col: col})
		}
	}
	return cells
}

// CheckSnakeFeasibility reports whether the waypoints of a sequence puzzle
// appear along the snake order in increasing number. It is a placement
// diagnostic only; the engine never enforces it.
func CheckSnakeFeasibility(p *engine.Puzzle) error {
	if len(p.Waypoints) == 0 {
		return ErrNotSequence
	}

	numbers := make(map[engine.Cell]int, len(p.Waypoints))
	for _, w := range p.Waypoints {
		numbers[w.Cell()] = w.Number
	}

	last := 0
	for _, c := range SnakeOrder(p.GridSize) {
		n, ok := numbers[c]
		if !ok {
			continue
		}
		if n < last {
			return fmt.Errorf("%w: waypoint %d at %s comes after waypoint %d", ErrSnakeInfeasible, n, c, last)
		}
		last = n
	}
	return nil
}
