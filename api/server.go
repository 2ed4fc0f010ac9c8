package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/mcp-training/zippath/game/catalog"
	"github.com/wricardo/mcp-training/zippath/game/engine"
	"github.com/wricardo/mcp-training/zippath/game/service"
	"github.com/wricardo/mcp-training/zippath/game/session"
	"github.com/wricardo/mcp-training/zippath/transport/websocket"
)

const dateLayout = "2006-01-02"

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	metrics http.Handler
	router  *mux.Router
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Server
type Option func(*Server)

// WithMetrics mounts a Prometheus handler at /metrics
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the request logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used to pick the daily puzzle
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// NewServer creates a new API server. hub may be nil.
func NewServer(gameService service.GameService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/sessions/{id}/connect", s.handleConnect).Methods("POST")
	api.HandleFunc("/sessions/{id}/extend", s.handleExtend).Methods("POST")
	api.HandleFunc("/sessions/{id}/extend-path", s.handleExtendPath).Methods("POST")
	api.HandleFunc("/sessions/{id}/undo", s.handleUndo).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")

	// Puzzle catalog (daily must be registered before {id})
	api.HandleFunc("/puzzles", s.handleListPuzzles).Methods("GET")
	api.HandleFunc("/puzzles", s.handleSavePuzzle).Methods("POST")
	api.HandleFunc("/puzzles/daily", s.handleDailyPuzzle).Methods("GET")
	api.HandleFunc("/puzzles/{id}", s.handleGetPuzzle).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods("GET")
	}
	if s.hub != nil {
		s.router.HandleFunc("/ws", s.handleWebSocket)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"error": message, "code": status})
}

// respondServiceError maps service errors to HTTP status codes
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, catalog.ErrPuzzleNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidPuzzle), errors.Is(err, session.ErrInvalidSessionID):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrReadOnly), errors.Is(err, catalog.ErrDuplicatePuzzle),
		errors.Is(err, session.ErrSessionAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrNoPuzzleDir):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// decodeBody decodes a JSON request body, rejecting unknown fields
func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) broadcast(sessionID string, state *engine.Snapshot) {
	if s.hub != nil && state != nil {
		s.hub.BroadcastToSession(sessionID, state)
	}
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PuzzleID string `json:"puzzle_id,omitempty"`
		Date     string `json:"date,omitempty"`
	}

	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	var (
		info *service.SessionInfo
		err  error
	)
	switch {
	case req.PuzzleID != "" && req.Date != "":
		respondError(w, http.StatusBadRequest, "puzzle_id and date are mutually exclusive")
		return
	case req.Date != "":
		date, perr := time.Parse(dateLayout, req.Date)
		if perr != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", req.Date))
			return
		}
		info, err = s.service.CreateDailySession(r.Context(), date)
	default:
		info, err = s.service.CreateSession(r.Context(), req.PuzzleID)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.logger.Info("session created", "session", info.ID, "puzzle", info.PuzzleID)
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort") // "created", "accessed" (default)
	order := query.Get("order") // "asc", "desc" (default)

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		A    *int         `json:"a,omitempty"`
		B    *int         `json:"b,omitempty"`
		From *engine.Cell `json:"from,omitempty"`
		To   *engine.Cell `json:"to,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var (
		result *service.MoveResult
		err    error
	)
	switch {
	case req.From != nil && req.To != nil:
		result, err = s.service.ConnectCells(r.Context(), sessionID, *req.From, *req.To)
	case req.A != nil && req.B != nil:
		result, err = s.service.Connect(r.Context(), sessionID, *req.A, *req.B)
	default:
		respondError(w, http.StatusBadRequest, "Provide node indices {a,b} or cells {from,to}")
		return
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.finishMove(w, sessionID, "connect", result)
}

func (s *Server) handleExtend(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Row *int `json:"row"`
		Col *int `json:"col"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Row == nil || req.Col == nil {
		respondError(w, http.StatusBadRequest, "row and col are required")
		return
	}

	result, err := s.service.Extend(r.Context(), sessionID, engine.Cell{Row: *req.Row, Col: *req.Col})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.finishMove(w, sessionID, "extend", result)
}

func (s *Server) handleExtendPath(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Cells []engine.Cell `json:"cells"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Cells) == 0 {
		respondError(w, http.StatusBadRequest, "cells must not be empty")
		return
	}

	result, err := s.service.ExtendPath(r.Context(), sessionID, req.Cells)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, result.State)
	s.logger.Info("extend path",
		"session", sessionID,
		"executed", result.MovesExecuted,
		"requested", result.RequestedMoves,
		"stop", result.StopReasonCode,
		"complete", result.Completion != nil,
	)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.Undo(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	s.finishMove(w, sessionID, "undo", result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	s.finishMove(w, sessionID, "reset", result)
}

// finishMove broadcasts the new state and writes the move result
func (s *Server) finishMove(w http.ResponseWriter, sessionID, op string, result *service.MoveResult) {
	if result.Success {
		s.broadcast(sessionID, result.State)
	}
	s.logger.Info(op,
		"session", sessionID,
		"result", result.Result,
		"reason", result.Reason,
		"moves", result.State.Moves,
		"complete", result.State.Complete,
	)
	respondJSON(w, http.StatusOK, result)
}

// Puzzle Handlers

func (s *Server) handleListPuzzles(w http.ResponseWriter, r *http.Request) {
	puzzles, err := s.service.ListPuzzles(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(puzzles),
		"puzzles": puzzles,
	})
}

func (s *Server) handleGetPuzzle(w http.ResponseWriter, r *http.Request) {
	puzzle, err := s.service.GetPuzzle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, puzzle)
}

func (s *Server) handleDailyPuzzle(w http.ResponseWriter, r *http.Request) {
	date := s.now()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.Parse(dateLayout, d)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", d))
			return
		}
		date = parsed
	}

	puzzle, err := s.service.DailyPuzzle(r.Context(), date)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":   date.Format(dateLayout),
		"puzzle": puzzle,
	})
}

func (s *Server) handleSavePuzzle(w http.ResponseWriter, r *http.Request) {
	var puzzle engine.Puzzle
	if err := decodeBody(r, &puzzle); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.service.SavePuzzle(r.Context(), &puzzle); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Puzzle saved successfully",
		"puzzle_id": puzzle.ID,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "session parameter required")
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
