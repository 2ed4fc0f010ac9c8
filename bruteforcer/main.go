// Command bruteforcer solves a puzzle session on a running server. It loads
// the session's puzzle, searches for a solution locally and then plays it
// back through the HTTP API, so connected viewers watch the board fill in.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/zippath/game/engine"
	"github.com/wricardo/mcp-training/zippath/game/service"
	"github.com/wricardo/mcp-training/zippath/internal/logging"
)

// Client talks to the puzzle server's REST API for a single session
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SessionID returns the session the client is bound to
func (c *Client) SessionID() string {
	return c.sessionID
}

// do sends a JSON request and decodes the JSON response into out
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s failed: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s failed: %s", method, path, resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(c.sessionID) + suffix
}

// CreateSession starts a session on puzzleID, or on the daily puzzle for
// date, or on the default puzzle when both are empty
func (c *Client) CreateSession(ctx context.Context, puzzleID, date string) (*service.SessionInfo, error) {
	req := map[string]string{}
	if puzzleID != "" {
		req["puzzle_id"] = puzzleID
	}
	if date != "" {
		req["date"] = date
	}

	var info service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", req, &info); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = info.ID
	return &info, nil
}

// Resume binds the client to an existing session
func (c *Client) Resume(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	c.sessionID = sessionID
	var info service.SessionInfo
	if err := c.do(ctx, http.MethodGet, c.sessionPath(""), nil, &info); err != nil {
		c.sessionID = ""
		return nil, fmt.Errorf("resume session: %w", err)
	}
	return &info, nil
}

func (c *Client) Reset(ctx context.Context) (*service.MoveResult, error) {
	var result service.MoveResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/reset"), nil, &result); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return &result, nil
}

func (c *Client) ExtendPath(ctx context.Context, cells []engine.Cell) (*service.PathResult, error) {
	var result service.PathResult
	body := map[string]interface{}{"cells": cells}
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/extend-path"), body, &result); err != nil {
		return nil, fmt.Errorf("extend path: %w", err)
	}
	return &result, nil
}

func (c *Client) Connect(ctx context.Context, a, b int) (*service.MoveResult, error) {
	var result service.MoveResult
	body := map[string]int{"a": a, "b": b}
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/connect"), body, &result); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return &result, nil
}

// options holds the resolved command-line settings
type options struct {
	URL         string
	PuzzleID    string
	Date        string
	Continue    string
	SessionFile string
	Budget      int
	Delay       time.Duration
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "bruteforcer",
		Usage: "solve a puzzle session on a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Value:   "http://localhost:8080",
				Usage:   "puzzle server URL",
				Sources: cli.EnvVars("ZIPPATH_API_URL"),
			},
			&cli.StringFlag{
				Name:  "puzzle",
				Usage: "puzzle id for a new session",
			},
			&cli.StringFlag{
				Name:  "date",
				Usage: "play the daily puzzle for YYYY-MM-DD",
			},
			&cli.StringFlag{
				Name:  "continue",
				Usage: "resume an existing session by id",
			},
			&cli.StringFlag{
				Name:  "session-file",
				Value: ".session",
				Usage: "file remembering the last session id (empty disables)",
			},
			&cli.IntFlag{
				Name:  "budget",
				Value: 5_000_000,
				Usage: "maximum moves tried by the search (0 = unlimited)",
			},
			&cli.DurationFlag{
				Name:  "delay",
				Usage: "pause between submitted moves",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log search progress",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			level := slog.LevelInfo
			if cmd.Bool("verbose") {
				level = slog.LevelDebug
			}
			opts := options{
				URL:         cmd.String("url"),
				PuzzleID:    cmd.String("puzzle"),
				Date:        cmd.String("date"),
				Continue:    cmd.String("continue"),
				SessionFile: cmd.String("session-file"),
				Budget:      cmd.Int("budget"),
				Delay:       cmd.Duration("delay"),
			}
			return run(ctx, cmd.Writer, opts, logging.New(level))
		},
	}
}

// openSession resumes the requested or remembered session, falling back to
// a new one
func openSession(ctx context.Context, client *Client, opts options, logger *slog.Logger) (*service.SessionInfo, error) {
	saved := opts.Continue
	if saved == "" && opts.SessionFile != "" && opts.PuzzleID == "" && opts.Date == "" {
		if data, err := os.ReadFile(opts.SessionFile); err == nil {
			saved = string(bytes.TrimSpace(data))
		}
	}

	if saved != "" {
		info, err := client.Resume(ctx, saved)
		if err == nil {
			logger.Info("session resumed", "session", info.ID, "puzzle", info.PuzzleID)
			return info, nil
		}
		if opts.Continue != "" {
			return nil, err
		}
		logger.Warn("saved session unavailable, creating a new one", "session", saved, "error", err)
	}

	info, err := client.CreateSession(ctx, opts.PuzzleID, opts.Date)
	if err != nil {
		return nil, err
	}
	logger.Info("session created", "session", info.ID, "puzzle", info.PuzzleID)

	if opts.SessionFile != "" {
		if err := os.WriteFile(opts.SessionFile, []byte(info.ID), 0644); err != nil {
			logger.Warn("failed to save session id", "error", err)
		}
	}
	return info, nil
}

func run(ctx context.Context, w io.Writer, opts options, logger *slog.Logger) error {
	if w == nil {
		w = os.Stdout
	}
	client := NewClient(opts.URL)

	info, err := openSession(ctx, client, opts, logger)
	if err != nil {
		return err
	}
	if info.Puzzle == nil {
		return errors.New("server did not return the session puzzle")
	}

	if _, err := client.Reset(ctx); err != nil {
		return err
	}

	solver, err := NewSolver(info.Puzzle, opts.Budget, logger)
	if err != nil {
		return err
	}
	started := time.Now()
	solution, err := solver.Solve()
	if err != nil {
		return fmt.Errorf("solve %s: %w", info.PuzzleID, err)
	}
	logger.Info("solution found",
		"puzzle", info.PuzzleID,
		"moves", solution.Moves(),
		"expanded", solution.Expanded,
		"took", time.Since(started).Round(time.Millisecond),
	)

	state, err := submit(ctx, client, solution, opts.Delay)
	if err != nil {
		return err
	}
	if state == nil || !state.Complete {
		return fmt.Errorf("server did not accept the solution for %s", info.PuzzleID)
	}

	fmt.Fprintf(w, "🎉 Solved %s in %d moves\n", info.PuzzleID, state.Moves)
	fmt.Fprintf(w, "Session: %s\n", client.SessionID())
	return nil
}

// submit plays the solution through the API and returns the final state
func submit(ctx context.Context, client *Client, sol *Solution, delay time.Duration) (*engine.Snapshot, error) {
	var state *engine.Snapshot

	switch sol.Topology {
	case engine.TopologySequence:
		for start := 0; start < len(sol.Cells); start += engine.MaxPathBatch {
			end := min(start+engine.MaxPathBatch, len(sol.Cells))
			result, err := client.ExtendPath(ctx, sol.Cells[start:end])
			if err != nil {
				return nil, err
			}
			state = result.State
			if !result.Success {
				return state, fmt.Errorf("server stopped the path: %s", result.StoppedReason)
			}
			pause(ctx, delay)
		}

	case engine.TopologyGraph:
		for _, edge := range sol.Edges {
			result, err := client.Connect(ctx, edge.A, edge.B)
			if err != nil {
				return nil, err
			}
			state = result.State
			if !result.Success {
				return state, fmt.Errorf("server rejected edge %d-%d: %s", edge.A, edge.B, result.Message)
			}
			pause(ctx, delay)
		}
	}
	return state, nil
}

func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
