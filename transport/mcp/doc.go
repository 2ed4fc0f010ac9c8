// Package mcp exposes the puzzle REST API as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool call becomes one HTTP request
// against the REST API and the JSON reply is rendered as text for the
// agent, including an ASCII drawing of the board.
//
// MCP Tools:
//   - list_puzzles, get_puzzle, daily_puzzle: browse the catalog
//   - create_session, list_sessions, get_session, delete_session
//   - get_state: board, progress and completion for a session
//   - connect: toggle an edge between two nodes (graph puzzles)
//   - extend, extend_path: grow or retract the path (sequence puzzles)
//   - undo, reset_game
//   - game_instructions: rules, legend and rejection reasons
//
// Rejected moves are returned as normal tool results that name the reason;
// only transport and lookup failures are tool errors.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
