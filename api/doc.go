// Package api provides the HTTP REST API for the Zip path puzzle.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"puzzle_id": "zip-01"} or {"date": "2025-01-31"}; empty body plays today's puzzle)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session with its puzzle and state
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current board snapshot
//   - POST /api/sessions/{id}/connect - Toggle an edge: {"a": 0, "b": 1} or {"from": {"row": 0, "col": 0}, "to": {"row": 0, "col": 1}}
//   - POST /api/sessions/{id}/extend - Move the path head: {"row": 0, "col": 1}
//   - POST /api/sessions/{id}/extend-path - Replay a drag: {"cells": [{"row": 0, "col": 1}, ...]}
//   - POST /api/sessions/{id}/undo - Revert the last accepted move
//   - POST /api/sessions/{id}/reset - Clear progress and restart the clock
//
// Puzzles:
//   - GET /api/puzzles - List the catalog
//   - GET /api/puzzles/daily - Puzzle of the day (?date=YYYY-MM-DD)
//   - GET /api/puzzles/{id} - Puzzle descriptor
//   - POST /api/puzzles - Validate and store a puzzle (requires a puzzle directory)
//
// Operations:
//   - GET /healthz - Liveness
//   - GET /metrics - Prometheus metrics (when configured)
//   - GET /ws?session={id} - WebSocket state feed
//
// Moves that the engine rejects are not HTTP errors. They return 200 with
// "success": false, "result": "rejected" and a "reason" code such as
// not_adjacent, degree_exceeded or waypoint_order.
//
// Error Handling:
//
// Errors are returned as JSON with the HTTP status code echoed in the body:
//
//	{
//	  "error": "session not found: session not found",
//	  "code": 404
//	}
//
// Unknown sessions and puzzles map to 404, invalid descriptors and request
// bodies to 400, read-only puzzles to 409.
package api
