package service

import (
	"context"
	"time"

	"github.com/wricardo/mcp-training/zippath/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, puzzleID string) (*SessionInfo, error)
	CreateDailySession(ctx context.Context, date time.Time) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Connect(ctx context.Context, sessionID string, a, b int) (*MoveResult, error)
	ConnectCells(ctx context.Context, sessionID string, from, to engine.Cell) (*MoveResult, error)
	Extend(ctx context.Context, sessionID string, cell engine.Cell) (*MoveResult, error)
	ExtendPath(ctx context.Context, sessionID string, cells []engine.Cell) (*PathResult, error)
	Undo(ctx context.Context, sessionID string) (*MoveResult, error)
	Reset(ctx context.Context, sessionID string) (*MoveResult, error)

	// Game State
	GetState(ctx context.Context, sessionID string) (*engine.Snapshot, error)

	// Puzzle catalog
	ListPuzzles(ctx context.Context) ([]*PuzzleInfo, error)
	GetPuzzle(ctx context.Context, puzzleID string) (*engine.Puzzle, error)
	DailyPuzzle(ctx context.Context, date time.Time) (*engine.Puzzle, error)
	SavePuzzle(ctx context.Context, puzzle *engine.Puzzle) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, puzzle *engine.Puzzle) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Count() int
}

// PuzzleCatalog handles puzzle lookup and storage
type PuzzleCatalog interface {
	Load(id string) (*engine.Puzzle, error)
	ForDate(t time.Time) *engine.Puzzle
	List() []*PuzzleInfo
	Save(puzzle *engine.Puzzle) error
}

// MoveObserver receives every operation outcome. The metrics recorder
// implements it.
type MoveObserver interface {
	ObserveOutcome(topology engine.Topology, result engine.Result, reason engine.Reason)
	ObserveCompletion(topology engine.Topology, completion *engine.Completion)
	SetActiveSessions(n int)
}

// Session represents an active game session
type Session struct {
	ID             string
	Engine         *engine.PathEngine
	Puzzle         *engine.Puzzle
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
