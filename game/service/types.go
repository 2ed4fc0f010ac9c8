package service

import (
	"time"

	"github.com/wricardo/mcp-training/zippath/game/engine"
)

// Event types emitted by game operations
const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
	EventExtended     = "extended"
	EventRetracted    = "retracted"
	EventRejected     = "rejected"
	EventUndo         = "undo"
	EventReset        = "reset"
	EventComplete     = "complete"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string           `json:"id"`
	PuzzleID       string           `json:"puzzle_id"`
	PuzzleName     string           `json:"puzzle_name,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	LastAccessedAt time.Time        `json:"last_accessed_at"`
	State          *engine.Snapshot `json:"state"`
	Puzzle         *engine.Puzzle   `json:"puzzle,omitempty"`
}

// MoveResult contains the result of a single mutating operation
type MoveResult struct {
	Success    bool               `json:"success"`
	Result     engine.Result      `json:"result"`
	Reason     engine.Reason      `json:"reason,omitempty"`
	Message    string             `json:"message"`
	State      *engine.Snapshot   `json:"state"`
	Events     []GameEvent        `json:"events,omitempty"`
	Completion *engine.Completion `json:"completion,omitempty"`
}

// PathResult contains the result of replaying a drag gesture
type PathResult struct {
	RequestedMoves int  `json:"requested_moves"`
	MovesExecuted  int  `json:"moves_executed"`
	Success        bool `json:"success"`
	Truncated      bool `json:"truncated,omitempty"`
	Limit          int  `json:"limit,omitempty"`

	// Set when the gesture stopped on a rejected cell
	StoppedReason  string        `json:"stopped_reason,omitempty"`
	StopReasonCode engine.Reason `json:"stop_reason_code,omitempty"`
	StoppedOnMove  int           `json:"stopped_on_move,omitempty"` // 1-based

	Steps      []StepInfo         `json:"steps,omitempty"`
	State      *engine.Snapshot   `json:"state"`
	Events     []GameEvent        `json:"events"`
	Completion *engine.Completion `json:"completion,omitempty"`
}

// StepInfo is a compact record for each cell of a gesture
type StepInfo struct {
	Idx    int           `json:"idx"`
	Cell   engine.Cell   `json:"cell"`
	Result engine.Result `json:"result"`
	Reason engine.Reason `json:"reason,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"` // see the Event* constants
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
	Cell      *engine.Cell `json:"cell,omitempty"`
	Edge      *engine.Edge `json:"edge,omitempty"`
}

// PuzzleInfo describes a catalog entry
type PuzzleInfo struct {
	Index        int                 `json:"index"`
	PuzzleID     string              `json:"puzzle_id"` // The identifier to use for session creation
	Name         string              `json:"name"`
	Description  string              `json:"description,omitempty"`
	Topology     engine.Topology     `json:"topology"`
	WinCondition engine.WinCondition `json:"win_condition"`
	GridSize     int                 `json:"grid_size"`
	Nodes        int                 `json:"nodes,omitempty"`
	Waypoints    int                 `json:"waypoints,omitempty"`
	Blocked      int                 `json:"blocked,omitempty"`
	Source       string              `json:"source"` // "builtin" or the file name
}
