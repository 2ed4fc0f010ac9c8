package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
	"github.com/wricardo/mcp-training/zippath/game/engine"
	"github.com/wricardo/mcp-training/zippath/game/service"
	"github.com/wricardo/mcp-training/zippath/internal/board"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Zip Path Puzzles",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Zip Path Puzzles - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Draw a single continuous path across a square grid. Graph puzzles are solved
by connecting adjacent nodes into one chain through every node. Sequence
puzzles are solved by extending a path from waypoint 1 through the numbered
waypoints in order.

AVAILABLE TOOLS:
- list_puzzles: List the puzzle catalog
- get_puzzle: Show one puzzle's starting board
- daily_puzzle: Show the puzzle of the day
- create_session: Start a session (puzzle_id or date, default today's puzzle)
- list_sessions / get_session / delete_session: Session management
- get_state: Current board, progress and completion
- connect: Join two adjacent nodes (graph puzzles); connecting again removes the edge
- extend: Move the path head onto a cell (sequence puzzles); stepping back retracts
- extend_path: Extend through a list of cells, stopping at the first rejection
- undo / reset_game: Step back or start over
- game_instructions: Full rules and rejection reasons`),
	)

	// Register all tools
	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func cellSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": description,
		"properties": map[string]interface{}{
			"row": map[string]interface{}{"type": "integer"},
			"col": map[string]interface{}{"type": "integer"},
		},
		"required": []string{"row", "col"},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Catalog
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_puzzles",
		Description: "List every puzzle in the catalog with its topology, size and win condition",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListPuzzles)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_puzzle",
		Description: "Show a puzzle's starting board",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"puzzle_id": map[string]interface{}{
					"type":        "string",
					"description": "Puzzle ID, e.g. zip-01",
				},
			},
			Required: []string{"puzzle_id"},
		},
	}, c.handleGetPuzzle)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "daily_puzzle",
		Description: "Show the puzzle scheduled for a date",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"date": map[string]interface{}{
					"type":        "string",
					"description": "Date as YYYY-MM-DD (optional, defaults to today)",
				},
			},
		},
	}, c.handleDailyPuzzle)

	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session. Pass puzzle_id or date; with neither, today's puzzle is used.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"puzzle_id": map[string]interface{}{
					"type":        "string",
					"description": "Puzzle ID to play (optional)",
				},
				"date": map[string]interface{}{
					"type":        "string",
					"description": "Play the daily puzzle for this YYYY-MM-DD date (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_session",
		Description: "Delete a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleDeleteSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_state",
		Description: "Get the current board and progress of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "connect",
		Description: "Toggle the connection between two adjacent nodes of a graph puzzle. Identify nodes by index (a, b) or by cell (from, to).",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"a": map[string]interface{}{
					"type":        "integer",
					"description": "Index of the first node",
				},
				"b": map[string]interface{}{
					"type":        "integer",
					"description": "Index of the second node",
				},
				"from": cellSchema("Cell of the first node"),
				"to":   cellSchema("Cell of the second node"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleConnect)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "extend",
		Description: "Move the head of a sequence puzzle's path onto an adjacent cell. Moving onto the previous cell retracts the last step.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row of the target cell (0-based)",
				},
				"col": map[string]interface{}{
					"type":        "integer",
					"description": "Column of the target cell (0-based)",
				},
			},
			Required: []string{"session_id", "row", "col"},
		},
	}, c.handleExtend)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "extend_path",
		Description: fmt.Sprintf("Extend the path through several cells in order. Stops at the first rejected cell or when the puzzle completes. At most %d cells are applied.", engine.MaxPathBatch),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"cells": map[string]interface{}{
					"type":        "array",
					"items":       cellSchema("Next cell of the path"),
					"description": "Cells to visit, each {row, col}",
				},
			},
			Required: []string{"session_id", "cells"},
		},
	}, c.handleExtendPath)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "undo",
		Description: "Undo the last accepted move",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleUndo)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Clear the board and restart the clock",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(sessionID string, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// decodeArgs copies the tool arguments into out. Numbers arrive as float64
// and strings are accepted where integers are expected.
func decodeArgs(request mcp.CallToolRequest, out interface{}) error {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

type sessionArgs struct {
	SessionID string `mapstructure:"session_id"`
}

func requireSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session_id is required")
	}
	return nil
}

type connectArgs struct {
	SessionID string       `mapstructure:"session_id"`
	A         *int         `mapstructure:"a"`
	B         *int         `mapstructure:"b"`
	From      *engine.Cell `mapstructure:"from"`
	To        *engine.Cell `mapstructure:"to"`
}

type extendArgs struct {
	SessionID string `mapstructure:"session_id"`
	Row       *int   `mapstructure:"row"`
	Col       *int   `mapstructure:"col"`
}

type extendPathArgs struct {
	SessionID string        `mapstructure:"session_id"`
	Cells     []engine.Cell `mapstructure:"cells"`
}

type createSessionArgs struct {
	PuzzleID string `mapstructure:"puzzle_id"`
	Date     string `mapstructure:"date"`
}

// Tool handlers

func (c *Client) handleListPuzzles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Count   int                   `json:"count"`
		Puzzles []*service.PuzzleInfo `json:"puzzles"`
	}
	if err := c.apiCall(ctx, "GET", "/api/puzzles", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPuzzleList(resp.Puzzles)), nil
}

func (c *Client) handleGetPuzzle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		PuzzleID string `mapstructure:"puzzle_id"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if args.PuzzleID == "" {
		return mcp.NewToolResultError("puzzle_id is required"), nil
	}

	var puzzle engine.Puzzle
	if err := c.apiCall(ctx, "GET", "/api/puzzles/"+url.PathEscape(args.PuzzleID), nil, &puzzle); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPuzzle(&puzzle)), nil
}

func (c *Client) handleDailyPuzzle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Date string `mapstructure:"date"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path := "/api/puzzles/daily"
	if args.Date != "" {
		path += "?date=" + url.QueryEscape(args.Date)
	}

	var resp struct {
		Date   string         `json:"date"`
		Puzzle *engine.Puzzle `json:"puzzle"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Daily puzzle for %s\n\n%s", resp.Date, formatPuzzle(resp.Puzzle))), nil
}

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args createSessionArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]string{}
	if args.PuzzleID != "" {
		body["puzzle_id"] = args.PuzzleID
	}
	if args.Date != "" {
		body["date"] = args.Date
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Created " + formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Count    int                    `json:"count"`
		Sessions []*service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(resp.Sessions) == 0 {
		return mcp.NewToolResultText("No active sessions"), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Active sessions: %d\n", resp.Count)
	for _, s := range resp.Sessions {
		status := "in progress"
		if s.State != nil && s.State.Complete {
			status = "complete"
		}
		moves := 0
		if s.State != nil {
			moves = s.State.Moves
		}
		fmt.Fprintf(&sb, "- %s: %s, %d moves, %s (last active %s)\n",
			s.ID, s.PuzzleID, moves, status, s.LastAccessedAt.Format(time.RFC3339))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args sessionArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := requireSession(args.SessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(args.SessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args sessionArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := requireSession(args.SessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := c.apiCall(ctx, "DELETE", sessionPath(args.SessionID, ""), nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Deleted session %s", args.SessionID)), nil
}

func (c *Client) handleGetState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args sessionArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := requireSession(args.SessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.Snapshot
	if err := c.apiCall(ctx, "GET", sessionPath(args.SessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatState(&state)), nil
}

func (c *Client) handleConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args connectArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := requireSession(args.SessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{}
	switch {
	case args.From != nil && args.To != nil:
		body["from"] = args.From
		body["to"] = args.To
	case args.A != nil && args.B != nil:
		body["a"] = *args.A
		body["b"] = *args.B
	default:
		return mcp.NewToolResultError("provide node indices a and b, or cells from and to"), nil
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(args.SessionID, "/connect"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleExtend(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args extendArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := requireSession(args.SessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if args.Row == nil || args.Col == nil {
		return mcp.NewToolResultError("row and col are required"), nil
	}

	body := map[string]int{"row": *args.Row, "col": *args.Col}
	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(args.SessionID, "/extend"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleExtendPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args extendPathArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := requireSession(args.SessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(args.Cells) == 0 {
		return mcp.NewToolResultError("cells must not be empty"), nil
	}

	body := map[string][]engine.Cell{"cells": args.Cells}
	var result service.PathResult
	if err := c.apiCall(ctx, "POST", sessionPath(args.SessionID, "/extend-path"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPathResult(&result)), nil
}

func (c *Client) handleUndo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.sessionCommand(ctx, request, "/undo")
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.sessionCommand(ctx, request, "/reset")
}

// sessionCommand posts a body-less command that returns a MoveResult
func (c *Client) sessionCommand(ctx context.Context, request mcp.CallToolRequest, suffix string) (*mcp.CallToolResult, error) {
	var args sessionArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := requireSession(args.SessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(args.SessionID, suffix), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Zip Path Puzzles - Complete Instructions

GAME OBJECTIVE:
Draw one continuous, non-branching path on a square grid (2x2 up to 20x20).

GRAPH PUZZLES (topology "graph"):
• Nodes sit on grid cells. Each node lists the directions it may connect in.
• connect joins two orthogonally adjacent nodes; connecting an existing pair removes the edge.
• A node has at most two connections, and only in its allowed directions.
• Win: every node belongs to a single chain with exactly two endpoints (hamiltonian_path).

SEQUENCE PUZZLES (topology "sequence"):
• The path starts on waypoint 1 and grows from its head one adjacent cell at a time.
• Waypoints must be entered in order; entering a later number early is rejected.
• Blocked cells (#) can never be entered and the path never crosses itself.
• Stepping back onto the previous cell retracts the last step.
• Win (full_coverage): every free cell is on the path and the last waypoint is reached.
• Win (waypoints_only): all waypoints are reached in order.

BOARD LEGEND:
• Graph: o node without connections, @ path endpoint, * node with two connections
• Sequence: 1-9 then a-z waypoints, * path, @ path head, # blocked, . free cell
• - and | between cells are connections / path steps

REJECTION REASONS:
• not_adjacent: cells are not orthogonal neighbours
• degree_exceeded: a node already has two connections
• direction_blocked: the node does not allow that direction
• revisit: the cell is already on the path
• blocked_cell: the cell is blocked
• waypoint_order: a later waypoint was entered too early
• out_of_bounds / invalid_node: no such cell or node
• puzzle_complete: the puzzle is solved; undo or reset_game to keep playing
• wrong_topology: the move does not apply to this kind of puzzle

STRATEGY:
1. Use get_state to read the board before planning.
2. On sequence puzzles, plan the whole route and send it with extend_path.
3. If a move is rejected, read the reason, then undo or retract and try another route.
4. Corners and cells with a single free neighbour must be path ends or visited early.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Session: %s\n", session.ID)
	if session.PuzzleName != "" {
		fmt.Fprintf(&sb, "Puzzle: %s (%s)\n", session.PuzzleID, session.PuzzleName)
	} else {
		fmt.Fprintf(&sb, "Puzzle: %s\n", session.PuzzleID)
	}
	if session.State != nil {
		sb.WriteString("\n")
		sb.WriteString(formatState(session.State))
	}
	return sb.String()
}

func formatState(state *engine.Snapshot) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Puzzle %s: %s, %s, %dx%d\n",
		state.PuzzleID, state.Topology, state.WinCondition, state.GridSize, state.GridSize)
	fmt.Fprintf(&sb, "Moves: %d | Undo available: %d\n", state.Moves, state.HistoryDepth)

	switch state.Topology {
	case engine.TopologyGraph:
		connected := 0
		for _, n := range state.Nodes {
			if n.Filled {
				connected++
			}
		}
		fmt.Fprintf(&sb, "Nodes connected: %d/%d | Edges: %d\n", connected, len(state.Nodes), len(state.Edges))
	default:
		visited := 0
		for _, w := range state.Waypoints {
			if w.Visited {
				visited++
			}
		}
		fmt.Fprintf(&sb, "Path cells: %d/%d | Waypoints reached: %d/%d", len(state.Path), state.Playable, visited, len(state.Waypoints))
		if state.NextWaypoint > 0 {
			fmt.Fprintf(&sb, " | Next waypoint: %d", state.NextWaypoint)
		}
		sb.WriteString("\n")
		if n := len(state.Path); n > 0 {
			fmt.Fprintf(&sb, "Head: %s\n", state.Path[n-1])
		}
	}

	sb.WriteString("\n")
	sb.WriteString(board.Render(state))
	sb.WriteString(board.Legend(state.Topology))
	sb.WriteString("\n")

	if state.Topology == engine.TopologyGraph {
		sb.WriteString("\nNodes:\n")
		for _, n := range state.Nodes {
			fmt.Fprintf(&sb, "  %d (%d,%d) allows %s, connections %v\n",
				n.Index, n.Row, n.Col, formatDirections(n.Directions), n.Connections)
		}
	}

	if state.Complete && state.Completion != nil {
		fmt.Fprintf(&sb, "\n🎉 PUZZLE COMPLETE in %d moves (%ds)\n", state.Completion.Moves, state.Completion.ElapsedSeconds)
	}
	return sb.String()
}

func formatDirections(dirs []engine.Direction) string {
	if len(dirs) == 0 || len(dirs) == 4 {
		return "any direction"
	}
	names := make([]string, len(dirs))
	for i, d := range dirs {
		names[i] = string(d)
	}
	return strings.Join(names, "/")
}

func formatMoveResult(result *service.MoveResult) string {
	var sb strings.Builder

	if result.Success {
		fmt.Fprintf(&sb, "✅ %s: %s\n", result.Result, result.Message)
	} else {
		fmt.Fprintf(&sb, "❌ %s (%s): %s\n", result.Result, result.Reason, result.Message)
	}

	if result.State != nil {
		sb.WriteString("\n")
		sb.WriteString(formatState(result.State))
	}
	return sb.String()
}

func formatPathResult(result *service.PathResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Executed %d of %d cells\n", result.MovesExecuted, result.RequestedMoves)
	if result.Truncated {
		fmt.Fprintf(&sb, "⚠️ Input truncated to %d cells\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&sb, "❌ Stopped: %s\n", result.StoppedReason)
	} else if result.StopReasonCode == engine.ReasonPuzzleComplete {
		sb.WriteString("Stopped early: puzzle complete\n")
	}

	// Keep long gestures readable
	steps := result.Steps
	if len(steps) > 10 {
		fmt.Fprintf(&sb, "Last 10 of %d steps:\n", len(steps))
		steps = steps[len(steps)-10:]
	} else if len(steps) > 0 {
		sb.WriteString("Steps:\n")
	}
	for _, step := range steps {
		line := fmt.Sprintf("  %d. %s %s", step.Idx, step.Cell, step.Result)
		if step.Reason != "" {
			line += " (" + string(step.Reason) + ")"
		}
		sb.WriteString(line + "\n")
	}

	if result.State != nil {
		sb.WriteString("\n")
		sb.WriteString(formatState(result.State))
	}
	return sb.String()
}

func formatPuzzleList(puzzles []*service.PuzzleInfo) string {
	if len(puzzles) == 0 {
		return "The catalog is empty"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Puzzles: %d\n", len(puzzles))
	for _, p := range puzzles {
		detail := fmt.Sprintf("%d nodes", p.Nodes)
		if p.Topology == engine.TopologySequence {
			detail = fmt.Sprintf("%d waypoints", p.Waypoints)
			if p.Blocked > 0 {
				detail += fmt.Sprintf(", %d blocked", p.Blocked)
			}
		}
		fmt.Fprintf(&sb, "- %s: %s (%s, %s, %dx%d, %s)\n",
			p.PuzzleID, p.Name, p.Topology, p.WinCondition, p.GridSize, p.GridSize, detail)
	}
	return sb.String()
}

func formatPuzzle(p *engine.Puzzle) string {
	if p == nil {
		return "No puzzle"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Puzzle %s", p.ID)
	if p.Name != "" {
		fmt.Fprintf(&sb, ": %s", p.Name)
	}
	fmt.Fprintf(&sb, "\n%s, %s, %dx%d\n", p.Topology, p.WinCondition, p.GridSize, p.GridSize)
	if p.Description != "" {
		sb.WriteString(p.Description + "\n")
	}

	rendered, err := board.RenderPuzzle(p)
	if err != nil {
		fmt.Fprintf(&sb, "\nCannot render board: %v\n", err)
		return sb.String()
	}
	sb.WriteString("\n")
	sb.WriteString(rendered)
	sb.WriteString(board.Legend(p.Topology))
	sb.WriteString("\n")
	return sb.String()
}
