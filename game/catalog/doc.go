// Package catalog provides the puzzle catalog for the Zip path puzzle.
//
// The catalog is an ordered list of puzzle descriptors. The built-in
// puzzles are embedded in the binary from the puzzles directory; an optional
// directory of extra .json, .yaml or .yml files is appended after them in
// file-name order. Every entry is validated with engine.ValidatePuzzle when
// the catalog is loaded.
//
// Selection is deterministic:
//
//	m, err := catalog.NewManager("", logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Puzzle of the day: day-of-year modulo the catalog size
//	daily := m.ForDate(time.Now())
//
//	// By position, index modulo the catalog size
//	second := m.ByIndex(1)
//
// Every accessor returns a deep copy that the caller owns.
//
// SnakeOrder and CheckSnakeFeasibility check waypoint placement against the
// boustrophedon traversal of the grid when authoring sequence puzzles.
package catalog
