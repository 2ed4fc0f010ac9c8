// Package engine provides the rules and path state of the Zip path puzzle.
//
// One PathEngine drives two puzzle families, selected by Puzzle.Topology:
//   - graph: fixed nodes with allowed-direction constraints; the player
//     toggles edges between adjacent nodes until they form a single
//     Hamiltonian path
//   - sequence: a grid with numbered waypoints and optional blocked cells;
//     the player extends or retracts one path that must pass the waypoints
//     in increasing order
//
// Both share move validation, a bounded undo history and a completion
// check. The win condition (hamiltonian_path, full_coverage or
// waypoints_only) is part of the puzzle descriptor.
//
// Usage:
//
//	e, err := engine.NewPathEngine(puzzle)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	out := e.AttemptExtend(engine.Cell{Row: 0, Col: 1})
//	if out.Result == engine.ResultRejected {
//		fmt.Println("rejected:", out.Reason)
//	}
//	if out.Completion != nil {
//		fmt.Printf("solved in %ds with %d moves\n",
//			out.Completion.ElapsedSeconds, out.Completion.Moves)
//	}
//
// Puzzles are validated at load; malformed descriptors fail with an error
// wrapping ErrInvalidPuzzle. Rejected moves are not errors: they return an
// Outcome tagged rejected with a Reason and leave state unchanged.
//
// The engine performs no I/O and starts no goroutines. It is not safe for
// concurrent use.
package engine
