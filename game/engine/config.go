package engine

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidPuzzle is wrapped by every puzzle validation failure
var ErrInvalidPuzzle = errors.New("puzzle validation")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report field names the way they appear in puzzle files
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Clone returns a deep copy of the puzzle
func (p *Puzzle) Clone() *Puzzle {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Nodes != nil {
		cp.Nodes = make([]Node, len(p.Nodes))
		for i, n := range p.Nodes {
			cp.Nodes[i] = n
			if n.Directions != nil {
				cp.Nodes[i].Directions = append([]Direction(nil), n.Directions...)
			}
		}
	}
	if p.Waypoints != nil {
		cp.Waypoints = append([]Waypoint(nil), p.Waypoints...)
	}
	if p.Blocked != nil {
		cp.Blocked = append([]Cell(nil), p.Blocked...)
	}
	return &cp
}

// Normalized returns a deep copy with the topology and win condition filled
// in when the descriptor leaves them implicit.
func (p *Puzzle) Normalized() *Puzzle {
	cp := p.Clone()
	if cp.Topology == "" {
		switch {
		case len(cp.Nodes) > 0:
			cp.Topology = TopologyGraph
		case len(cp.Waypoints) > 0:
			cp.Topology = TopologySequence
		}
	}
	if cp.WinCondition == "" {
		switch cp.Topology {
		case TopologyGraph:
			cp.WinCondition = WinHamiltonianPath
		case TopologySequence:
			cp.WinCondition = WinFullCoverage
		}
	}
	return cp
}

// HasDirectionalConstraints reports whether any node restricts its directions
func (p *Puzzle) HasDirectionalConstraints() bool {
	for _, n := range p.Nodes {
		if len(n.Directions) > 0 {
			return true
		}
	}
	return false
}

// ValidatePuzzle checks a descriptor for correctness before it is played.
// Implicit topology and win condition are resolved first, see Normalized.
func ValidatePuzzle(p *Puzzle) error {
	if p == nil {
		return fmt.Errorf("%w: puzzle is nil", ErrInvalidPuzzle)
	}
	return validateNormalized(p.Normalized())
}

func validateNormalized(p *Puzzle) error {
	if err := validate.Struct(p); err != nil {
		return formatValidationErrors(err)
	}

	switch p.Topology {
	case TopologyGraph:
		return validateGraphPuzzle(p)
	case TopologySequence:
		return validateSequencePuzzle(p)
	}
	return fmt.Errorf("%w: unknown topology %q", ErrInvalidPuzzle, p.Topology)
}

func validateGraphPuzzle(p *Puzzle) error {
	if p.WinCondition != WinHamiltonianPath {
		return fmt.Errorf("%w: graph puzzles require win_condition %q, got %q",
			ErrInvalidPuzzle, WinHamiltonianPath, p.WinCondition)
	}
	if len(p.Waypoints) > 0 || len(p.Blocked) > 0 {
		return fmt.Errorf("%w: graph puzzles cannot declare waypoints or blocked cells", ErrInvalidPuzzle)
	}
	if len(p.Nodes) < 2 {
		return fmt.Errorf("%w: graph puzzles need at least 2 nodes, got %d", ErrInvalidPuzzle, len(p.Nodes))
	}

	seen := make(map[Cell]int, len(p.Nodes))
	for i, n := range p.Nodes {
		c := n.Cell()
		if !c.InBounds(p.GridSize) {
			return fmt.Errorf("%w: node %d at %s is outside the %dx%d grid",
				ErrInvalidPuzzle, i, c, p.GridSize, p.GridSize)
		}
		if j, dup := seen[c]; dup {
			return fmt.Errorf("%w: nodes %d and %d share position %s", ErrInvalidPuzzle, j, i, c)
		}
		seen[c] = i

		var set DirectionSet
		for _, d := range n.Directions {
			if _, err := ParseDirection(string(d)); err != nil {
				return fmt.Errorf("%w: node %d: %v", ErrInvalidPuzzle, i, err)
			}
			if set.Has(d) {
				return fmt.Errorf("%w: node %d at %s lists direction %q more than once",
					ErrInvalidPuzzle, i, c, d)
			}
			set |= d.bit()
		}
	}
	return nil
}

func validateSequencePuzzle(p *Puzzle) error {
	if p.WinCondition != WinFullCoverage && p.WinCondition != WinWaypointsOnly {
		return fmt.Errorf("%w: sequence puzzles require win_condition %q or %q, got %q",
			ErrInvalidPuzzle, WinFullCoverage, WinWaypointsOnly, p.WinCondition)
	}
	if len(p.Nodes) > 0 {
		return fmt.Errorf("%w: sequence puzzles cannot declare nodes", ErrInvalidPuzzle)
	}
	if len(p.Waypoints) < 2 {
		return fmt.Errorf("%w: sequence puzzles need at least two waypoints, got %d", ErrInvalidPuzzle, len(p.Waypoints))
	}

	blocked := make(map[Cell]bool, len(p.Blocked))
	for _, c := range p.Blocked {
		if !c.InBounds(p.GridSize) {
			return fmt.Errorf("%w: blocked cell %s is outside the %dx%d grid",
				ErrInvalidPuzzle, c, p.GridSize, p.GridSize)
		}
		blocked[c] = true
	}

	numbers := make(map[int]Cell, len(p.Waypoints))
	cells := make(map[Cell]int, len(p.Waypoints))
	maxNumber := 0
	for _, w := range p.Waypoints {
		c := w.Cell()
		if !c.InBounds(p.GridSize) {
			return fmt.Errorf("%w: waypoint %d at %s is outside the %dx%d grid",
				ErrInvalidPuzzle, w.Number, c, p.GridSize, p.GridSize)
		}
		if blocked[c] {
			return fmt.Errorf("%w: waypoint %d sits on blocked cell %s", ErrInvalidPuzzle, w.Number, c)
		}
		if _, dup := numbers[w.Number]; dup {
			return fmt.Errorf("%w: waypoint number %d appears more than once", ErrInvalidPuzzle, w.Number)
		}
		if other, dup := cells[c]; dup {
			return fmt.Errorf("%w: waypoints %d and %d share position %s", ErrInvalidPuzzle, other, w.Number, c)
		}
		numbers[w.Number] = c
		cells[c] = w.Number
		if w.Number > maxNumber {
			maxNumber = w.Number
		}
	}

	if _, ok := numbers[1]; !ok {
		return fmt.Errorf("%w: no waypoint is numbered 1", ErrInvalidPuzzle)
	}
	for n := 1; n <= maxNumber; n++ {
		if _, ok := numbers[n]; !ok {
			return fmt.Errorf("%w: waypoint numbering has a gap at %d (highest is %d)", ErrInvalidPuzzle, n, maxNumber)
		}
	}
	return nil
}

// formatValidationErrors reports the first struct-tag violation
func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPuzzle, err)
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "Puzzle.")
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s is required", ErrInvalidPuzzle, field)
	case "min":
		return fmt.Errorf("%w: %s must be at least %s, got %v", ErrInvalidPuzzle, field, fe.Param(), fe.Value())
	case "max":
		return fmt.Errorf("%w: %s must be at most %s, got %v", ErrInvalidPuzzle, field, fe.Param(), fe.Value())
	case "oneof":
		return fmt.Errorf("%w: %s must be one of [%s], got %v", ErrInvalidPuzzle, field, fe.Param(), fe.Value())
	}
	return fmt.Errorf("%w: %s failed %s", ErrInvalidPuzzle, field, fe.Tag())
}
