// Package service provides the business logic layer for the Zip path puzzle.
//
// The service package implements:
//   - Multi-session puzzle play
//   - Puzzle catalog access, including the daily puzzle
//   - Move processing with event and metric reporting
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// PuzzleCatalog loads, lists and stores puzzle descriptors.
// MoveObserver receives every move outcome (the metrics recorder).
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the engine. Every operation runs under the service mutex, so a session's
// engine is never driven by two callers at once.
//
// Usage:
//
//	sessions := session.NewManager()
//	puzzles, _ := catalog.NewManager("puzzles", logger)
//	svc := service.NewGameService(sessions, puzzles,
//		service.WithObserver(metrics.NewRecorder()),
//		service.WithLogger(logger),
//	)
//
//	info, err := svc.CreateSession(ctx, "zip-01")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := svc.Connect(ctx, info.ID, 0, 1)
//
// Rejected moves are not errors: they come back as a MoveResult with
// Result "rejected" and a Reason code. Errors are reserved for unknown
// sessions and puzzles.
package service
