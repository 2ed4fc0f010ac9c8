package engine

// ManhattanDistance calculates the Manhattan distance between two cells
func ManhattanDistance(from, to Cell) int {
	return abs(from.Row-to.Row) + abs(from.Col-to.Col)
}

// IsAdjacent reports whether two cells share an edge (no diagonals)
func IsAdjacent(a, b Cell) bool {
	return ManhattanDistance(a, b) == 1
}

// DirectionBetween returns the direction of travel from one cell to an
// adjacent one. The boolean is false when the cells are not 4-adjacent.
func DirectionBetween(from, to Cell) (Direction, bool) {
	if !IsAdjacent(from, to) {
		return "", false
	}
	switch {
	case to.Row < from.Row:
		return Up, true
	case to.Row > from.Row:
		return Down, true
	case to.Col < from.Col:
		return Left, true
	default:
		return Right, true
	}
}

// CountNeutralNodes counts nodes without directional constraints
func CountNeutralNodes(p *Puzzle) int {
	count := 0
	for _, n := range p.Nodes {
		if NewDirectionSet(n.Directions...).IsNeutral() {
			count++
		}
	}
	return count
}

// PlayableCells returns the number of grid cells a sequence path may occupy
func PlayableCells(p *Puzzle) int {
	blocked := make(map[Cell]bool, len(p.Blocked))
	for _, c := range p.Blocked {
		if c.InBounds(p.GridSize) {
			blocked[c] = true
		}
	}
	return p.GridSize*p.GridSize - len(blocked)
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
