package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/mcp-training/zippath/game/engine"
)

// Results reported by Undo and Reset in addition to the engine results
const (
	ResultUndone engine.Result = "undone"
	ResultReset  engine.Result = "reset"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	puzzles  PuzzleCatalog
	observer MoveObserver
	logger   *slog.Logger
	now      func() time.Time
	mu       sync.RWMutex
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithObserver registers a MoveObserver for every operation outcome
func WithObserver(observer MoveObserver) Option {
	return func(s *gameServiceImpl) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithLogger sets the service logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *gameServiceImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for event timestamps
func WithClock(now func() time.Time) Option {
	return func(s *gameServiceImpl) {
		if now != nil {
			s.now = now
		}
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, puzzles PuzzleCatalog, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		puzzles:  puzzles,
		observer: nopObserver{},
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a new game session on the given puzzle. An empty
// puzzle ID selects today's puzzle.
func (s *gameServiceImpl) CreateSession(ctx context.Context, puzzleID string) (*SessionInfo, error) {
	if puzzleID == "" {
		return s.CreateDailySession(ctx, s.now())
	}

	puzzle, err := s.puzzles.Load(puzzleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load puzzle %s: %w", puzzleID, err)
	}
	return s.createSession(puzzle)
}

// CreateDailySession creates a session on the puzzle selected for date
func (s *gameServiceImpl) CreateDailySession(ctx context.Context, date time.Time) (*SessionInfo, error) {
	return s.createSession(s.puzzles.ForDate(date))
}

func (s *gameServiceImpl) createSession(puzzle *engine.Puzzle) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", puzzle)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.observer.SetActiveSessions(s.sessions.Count())
	s.logger.Debug("session ready", "session", sess.ID, "puzzle", puzzle.ID)

	return sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	// touch writes the access time, so readers take the write lock too
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		info := sessionInfo(sess)
		info.Puzzle = nil
		result = append(result, info)
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session not found: %w", err)
	}
	s.observer.SetActiveSessions(s.sessions.Count())
	return nil
}

// Connect toggles the edge between two nodes of a graph puzzle
func (s *gameServiceImpl) Connect(ctx context.Context, sessionID string, a, b int) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return s.connect(sess, a, b), nil
}

// ConnectCells resolves both cells to nodes and toggles the edge between them
func (s *gameServiceImpl) ConnectCells(ctx context.Context, sessionID string, from, to engine.Cell) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	a, okA := sess.Engine.NodeAt(from)
	b, okB := sess.Engine.NodeAt(to)
	if !okA || !okB {
		if sess.Puzzle.Topology != engine.TopologyGraph {
			return s.finish(sess, engine.Outcome{Result: engine.ResultRejected, Reason: engine.ReasonWrongTopology}, nil), nil
		}
		out := engine.Outcome{Result: engine.ResultRejected, Reason: engine.ReasonInvalidNode}
		res := s.finish(sess, out, nil)
		missing := from
		if okA {
			missing = to
		}
		res.Message = fmt.Sprintf("No node at %s", missing)
		return res, nil
	}
	return s.connect(sess, a, b), nil
}

func (s *gameServiceImpl) connect(sess *Session, a, b int) *MoveResult {
	out := sess.Engine.AttemptConnect(a, b)

	var events []GameEvent
	edge := engine.NewEdge(a, b)
	switch out.Result {
	case engine.ResultConnected:
		events = append(events, s.event(EventConnected, fmt.Sprintf("Connected node %d to node %d", edge.A, edge.B), withEdge(edge)))
	case engine.ResultDisconnected:
		events = append(events, s.event(EventDisconnected, fmt.Sprintf("Disconnected node %d from node %d", edge.A, edge.B), withEdge(edge)))
	}
	res := s.finish(sess, out, events)
	if out.Result == engine.ResultRejected {
		res.Events[0].Edge = &edge
	}
	return res
}

// Extend moves the head of a sequence puzzle path onto cell
func (s *gameServiceImpl) Extend(ctx context.Context, sessionID string, cell engine.Cell) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	out := sess.Engine.AttemptExtend(cell)
	res := s.finish(sess, out, s.extendEvents(out, cell))
	if out.Result == engine.ResultRejected {
		res.Events[0].Cell = &cell
	}
	return res, nil
}

// ExtendPath replays a drag gesture cell by cell. It stops at the first
// rejected cell or once the puzzle completes.
func (s *gameServiceImpl) ExtendPath(ctx context.Context, sessionID string, cells []engine.Cell) (*PathResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	result := &PathResult{
		RequestedMoves: len(cells),
		Success:        true,
		Events:         make([]GameEvent, 0),
	}

	// Limit moves to prevent abuse
	if len(cells) > engine.MaxPathBatch {
		result.Truncated = true
		result.Limit = engine.MaxPathBatch
		cells = cells[:engine.MaxPathBatch]
	}

	topology := sess.Puzzle.Topology
	outcomes := sess.Engine.ExtendPath(cells)
	for i, out := range outcomes {
		cell := cells[i]
		s.observer.ObserveOutcome(topology, out.Result, out.Reason)
		result.Steps = append(result.Steps, StepInfo{
			Idx:    i + 1,
			Cell:   cell,
			Result: out.Result,
			Reason: out.Reason,
		})

		if out.Result == engine.ResultRejected {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d to %s rejected: %s", i+1, cell, describeReason(out.Reason))
			result.StopReasonCode = out.Reason
			result.StoppedOnMove = i + 1
			rej := s.event(EventRejected, describeReason(out.Reason), withCell(cell))
			result.Events = append(result.Events, rej)
			break
		}
		if out.Accepted() {
			result.MovesExecuted++
		}
		result.Events = append(result.Events, s.extendEvents(out, cell)...)

		if out.Completion != nil {
			s.observer.ObserveCompletion(topology, out.Completion)
			s.logger.Info("puzzle complete", "session", sess.ID, "puzzle", sess.Puzzle.ID, "moves", out.Completion.Moves)
			result.Completion = out.Completion
			result.Events = append(result.Events, s.completeEvent(out.Completion))
			if i+1 < len(cells) {
				result.StoppedReason = fmt.Sprintf("puzzle completed on move %d", i+1)
				result.StopReasonCode = engine.ReasonPuzzleComplete
				result.StoppedOnMove = i + 1
			}
		}
	}

	result.State = sess.Engine.Snapshot()
	return result, nil
}

// Undo reverts the most recent accepted move
func (s *gameServiceImpl) Undo(ctx context.Context, sessionID string) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	if !sess.Engine.Undo() {
		return &MoveResult{
			Success: false,
			Result:  engine.ResultNoop,
			Message: "Nothing to undo",
			State:   sess.Engine.Snapshot(),
		}, nil
	}
	return &MoveResult{
		Success: true,
		Result:  ResultUndone,
		Message: "Undid last move",
		State:   sess.Engine.Snapshot(),
		Events:  []GameEvent{s.event(EventUndo, "Undid last move")},
	}, nil
}

// Reset resets a game session to its initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Engine.Reset()
	return &MoveResult{
		Success: true,
		Result:  ResultReset,
		Message: "Puzzle reset to initial state",
		State:   sess.Engine.Snapshot(),
		Events:  []GameEvent{s.event(EventReset, "Puzzle reset to initial state")},
	}, nil
}

// GetState retrieves the current board snapshot
func (s *gameServiceImpl) GetState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.Snapshot(), nil
}

// ListPuzzles returns the catalog
func (s *gameServiceImpl) ListPuzzles(ctx context.Context) ([]*PuzzleInfo, error) {
	return s.puzzles.List(), nil
}

// GetPuzzle returns a copy of the puzzle with the given ID
func (s *gameServiceImpl) GetPuzzle(ctx context.Context, puzzleID string) (*engine.Puzzle, error) {
	return s.puzzles.Load(puzzleID)
}

// DailyPuzzle returns the puzzle selected for date
func (s *gameServiceImpl) DailyPuzzle(ctx context.Context, date time.Time) (*engine.Puzzle, error) {
	return s.puzzles.ForDate(date), nil
}

// SavePuzzle validates and stores a puzzle in the catalog
func (s *gameServiceImpl) SavePuzzle(ctx context.Context, puzzle *engine.Puzzle) error {
	if err := engine.ValidatePuzzle(puzzle); err != nil {
		return err
	}
	if err := s.puzzles.Save(puzzle); err != nil {
		return fmt.Errorf("failed to save puzzle %s: %w", puzzle.ID, err)
	}
	s.logger.Info("puzzle saved", "puzzle", puzzle.ID)
	return nil
}

// touch looks up a session and refreshes its access time. Callers hold the
// write lock.
func (s *gameServiceImpl) touch(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// finish records the outcome and builds the MoveResult for a single move
func (s *gameServiceImpl) finish(sess *Session, out engine.Outcome, events []GameEvent) *MoveResult {
	topology := sess.Puzzle.Topology
	s.observer.ObserveOutcome(topology, out.Result, out.Reason)

	res := &MoveResult{
		Success:    out.Accepted() || out.Result == engine.ResultNoop,
		Result:     out.Result,
		Reason:     out.Reason,
		Message:    describeOutcome(out),
		State:      sess.Engine.Snapshot(),
		Events:     events,
		Completion: out.Completion,
	}

	if out.Result == engine.ResultRejected {
		res.Events = append(res.Events, s.event(EventRejected, describeReason(out.Reason)))
	}
	if out.Completion != nil {
		s.observer.ObserveCompletion(topology, out.Completion)
		s.logger.Info("puzzle complete", "session", sess.ID, "puzzle", sess.Puzzle.ID, "moves", out.Completion.Moves)
		res.Events = append(res.Events, s.completeEvent(out.Completion))
		res.Message = res.Events[len(res.Events)-1].Message
	}
	return res
}

func (s *gameServiceImpl) extendEvents(out engine.Outcome, cell engine.Cell) []GameEvent {
	var events []GameEvent
	switch out.Result {
	case engine.ResultExtended:
		events = append(events, s.event(EventExtended, fmt.Sprintf("Extended path to %s", cell), withCell(cell)))
	case engine.ResultRetracted:
		events = append(events, s.event(EventRetracted, fmt.Sprintf("Retracted path to %s", cell), withCell(cell)))
	}
	return events
}

func (s *gameServiceImpl) completeEvent(c *engine.Completion) GameEvent {
	return s.event(EventComplete, fmt.Sprintf("Puzzle complete in %d moves (%ds)", c.Moves, c.ElapsedSeconds))
}

type eventOption func(*GameEvent)

func withCell(c engine.Cell) eventOption {
	return func(e *GameEvent) { e.Cell = &c }
}

func withEdge(edge engine.Edge) eventOption {
	return func(e *GameEvent) { e.Edge = &edge }
}

func (s *gameServiceImpl) event(typ, message string, opts ...eventOption) GameEvent {
	ev := GameEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		Message:   message,
		Timestamp: s.now(),
	}
	for _, opt := range opts {
		opt(&ev)
	}
	return ev
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		PuzzleID:       sess.Puzzle.ID,
		PuzzleName:     sess.Puzzle.Name,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		State:          sess.Engine.Snapshot(),
		Puzzle:         sess.Engine.Puzzle(),
	}
}

func describeOutcome(out engine.Outcome) string {
	switch out.Result {
	case engine.ResultConnected:
		return "Nodes connected"
	case engine.ResultDisconnected:
		return "Connection removed"
	case engine.ResultExtended:
		return "Path extended"
	case engine.ResultRetracted:
		return "Path retracted"
	case engine.ResultNoop:
		return "Path already ends here"
	case engine.ResultRejected:
		return describeReason(out.Reason)
	}
	return string(out.Result)
}

func describeReason(reason engine.Reason) string {
	switch reason {
	case engine.ReasonNotAdjacent:
		return "Cells are not orthogonally adjacent"
	case engine.ReasonDegreeExceeded:
		return "Node already has two connections"
	case engine.ReasonDirectionBlocked:
		return "Connection direction is not allowed by the node"
	case engine.ReasonRevisit:
		return "Cell is already on the path"
	case engine.ReasonBlockedCell:
		return "Cell is blocked"
	case engine.ReasonWaypointOrder:
		return "Waypoints must be visited in order"
	case engine.ReasonOutOfBounds:
		return "Cell is outside the grid"
	case engine.ReasonInvalidNode:
		return "Unknown node"
	case engine.ReasonPuzzleComplete:
		return "Puzzle is already complete"
	case engine.ReasonWrongTopology:
		return "Move does not apply to this puzzle type"
	}
	return string(reason)
}

type nopObserver struct{}

func (nopObserver) ObserveOutcome(engine.Topology, engine.Result, engine.Reason) {}
func (nopObserver) ObserveCompletion(engine.Topology, *engine.Completion)       {}
func (nopObserver) SetActiveSessions(int)                                       {}
