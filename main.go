// Command zippath starts the Zip path puzzle server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing the REST API, the
//     WebSocket feed, Prometheus metrics and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if
//     none is available
//
// Flags (each with an environment fallback, also read from .env) control
// host/port, the puzzle directory, undo history, logging, session expiry
// and optional ngrok tunneling for external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/zippath/api"
	"github.com/wricardo/mcp-training/zippath/game/catalog"
	"github.com/wricardo/mcp-training/zippath/game/engine"
	"github.com/wricardo/mcp-training/zippath/game/metrics"
	"github.com/wricardo/mcp-training/zippath/game/service"
	"github.com/wricardo/mcp-training/zippath/game/session"
	"github.com/wricardo/mcp-training/zippath/internal/logging"
	"github.com/wricardo/mcp-training/zippath/transport/mcp"
	"github.com/wricardo/mcp-training/zippath/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Zip Path Puzzle Server"
)

const (
	defaultSessionTTL = 24 * time.Hour
	cleanupInterval   = time.Hour
)

// settings holds the resolved command-line and environment configuration
type settings struct {
	Host         string
	Port         int
	PuzzleDir    string
	HistoryLimit int
	LogLevel     slog.Level
	SessionTTL   time.Duration
	APIURL       string

	NgrokEnabled bool
	NgrokAuth    string
	NgrokDomain  string
}

func (s settings) addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// services bundles everything one process shares between its transports
type services struct {
	game     service.GameService
	sessions *session.Manager
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// main loads .env, parses flags, and runs the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds the root command. Its flags are shared by both modes.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "zippath",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "puzzle-dir",
				Usage:   "directory with extra puzzle files (.json, .yaml); enables saving puzzles",
				Sources: cli.EnvVars("PUZZLE_DIR"),
			},
			&cli.IntFlag{
				Name:    "history-limit",
				Value:   engine.DefaultHistoryLimit,
				Usage:   "undo steps kept per session",
				Sources: cli.EnvVars("HISTORY_LIMIT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "debug, info, warn or error",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "shorthand for --log-level debug",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Value:   defaultSessionTTL,
				Usage:   "remove sessions idle for longer than this",
				Sources: cli.EnvVars("SESSION_TTL"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "expose the server through an ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "run the HTTP server with REST API, WebSocket and MCP endpoint",
				Action:  runServer,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "run an MCP stdio server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Usage:   "REST API to proxy to; by default localhost:<port> is probed and an internal server started if it is down",
						Sources: cli.EnvVars("ZIPPATH_API_URL"),
					},
				},
				Action: runStdioMCP,
			},
		},
		Action: runServer,
	}
}

// settingsFrom reads the resolved flag values
func settingsFrom(cmd *cli.Command) settings {
	level := logging.ParseLevel(cmd.String("log-level"))
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}

	return settings{
		Host:         cmd.String("host"),
		Port:         cmd.Int("port"),
		PuzzleDir:    cmd.String("puzzle-dir"),
		HistoryLimit: cmd.Int("history-limit"),
		LogLevel:     level,
		SessionTTL:   cmd.Duration("session-ttl"),
		APIURL:       cmd.String("api-url"),
		NgrokEnabled: cmd.Bool("ngrok"),
		NgrokAuth:    cmd.String("ngrok-auth"),
		NgrokDomain:  cmd.String("ngrok-domain"),
	}
}

// initializeServices wires the puzzle catalog, session manager, metrics and
// game service.
func initializeServices(cfg settings, logger *slog.Logger) (*services, error) {
	puzzles, err := catalog.NewManager(cfg.PuzzleDir, logger.With("component", "catalog"))
	if err != nil {
		return nil, fmt.Errorf("failed to load puzzle catalog: %w", err)
	}

	sessions := session.NewManager(
		session.WithLogger(logger.With("component", "sessions")),
		session.WithEngineOptions(engine.WithHistoryLimit(cfg.HistoryLimit)),
	)
	recorder := metrics.NewRecorder()

	game := service.NewGameService(sessions, puzzles,
		service.WithObserver(recorder),
		service.WithLogger(logger.With("component", "service")),
	)

	logger.Info("services initialized",
		"puzzles", puzzles.Len(),
		"puzzle_dir", cfg.PuzzleDir,
		"history_limit", cfg.HistoryLimit,
	)
	return &services{game: game, sessions: sessions, metrics: recorder, logger: logger}, nil
}

// newHandler mounts the REST API at the root and the MCP proxy at /mcp
func newHandler(svc *services, hub *websocket.Hub, mcpClient *mcp.Client) http.Handler {
	apiServer := api.NewServer(svc.game, hub,
		api.WithMetrics(svc.metrics.Handler()),
		api.WithLogger(svc.logger.With("component", "api")),
	)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	if mcpClient != nil {
		mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "Failed to read request", http.StatusBadRequest)
				return
			}
			defer r.Body.Close()

			response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)
			if response == nil {
				// Notifications have no reply
				w.WriteHeader(http.StatusAccepted)
				return
			}

			responseData, err := json.Marshal(response)
			if err != nil {
				http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write(responseData)
		})
	}
	return mainRouter
}

// runServer starts the HTTP server and blocks until the context is cancelled.
// If ngrok is enabled it also provisions a public tunnel.
func runServer(ctx context.Context, cmd *cli.Command) error {
	cfg := settingsFrom(cmd)
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting", "app", AppName, "version", Version, "mode", "server")

	svc, err := initializeServices(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := websocket.NewHub(logger.With("component", "websocket"))
	go hub.Run(ctx)
	go sessionCleanupRoutine(ctx, svc, cfg.SessionTTL, cleanupInterval)

	addr := cfg.addr()
	mainRouter := newHandler(svc, hub, mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening",
			"addr", addr,
			"api", fmt.Sprintf("http://%s/api", addr),
			"websocket", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if cfg.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cfg, mainRouter, logger.With("component", "ngrok"))
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errCh:
		logger.Error("server stopped", "error", err)
	}
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		logger.Error("HTTP server shutdown failed", "error", serr)
	}

	wg.Wait()
	logger.Info("server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is cancelled
func runNgrok(ctx context.Context, cfg settings, handler http.Handler, logger *slog.Logger) {
	if cfg.NgrokAuth == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		logger.Info("using custom ngrok domain", "domain", cfg.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuth))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "error", err)
		return
	}

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		"url", ngrokURL,
		"api", ngrokURL+"/api",
		"websocket", ngrokURL+"/ws?session=<session_id>",
		"mcp", ngrokURL+"/mcp",
	)

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", "error", err)
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error("ngrok server error", "error", err)
	}
	logger.Info("ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within ttl and refreshes the session gauge.
func sessionCleanupRoutine(ctx context.Context, svc *services, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanupSessions(svc, ttl)
		}
	}
}

func cleanupSessions(svc *services, ttl time.Duration) int {
	removed := svc.sessions.CleanupExpiredSessions(ttl)
	svc.metrics.SetActiveSessions(svc.sessions.Count())
	if removed > 0 {
		svc.logger.Info("cleaned up expired sessions", "removed", removed, "remaining", svc.sessions.Count())
	}
	return removed
}

// apiAvailable reports whether a REST API answers its health check
func apiAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// startInternalAPI serves the REST API on a random loopback port and
// returns its base URL. The server stops when ctx is cancelled.
func startInternalAPI(ctx context.Context, svc *services) (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to get available port: %w", err)
	}

	hub := websocket.NewHub(svc.logger.With("component", "websocket"))
	go hub.Run(ctx)

	httpServer := &http.Server{Handler: newHandler(svc, hub, nil)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			svc.logger.Error("internal HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	return "http://" + listener.Addr().String(), nil
}

// runStdioMCP runs an MCP stdio server. Without --api-url it reuses a
// server on localhost:<port> when one is healthy, otherwise it starts an
// internal HTTP API on a random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	cfg := settingsFrom(cmd)
	// Stdout carries the MCP protocol, logs go to stderr
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting", "app", AppName, "version", Version, "mode", "mcp")

	baseURL := cfg.APIURL
	if baseURL == "" {
		external := fmt.Sprintf("http://localhost:%d", cfg.Port)
		if apiAvailable(external) {
			logger.Info("external API server found", "url", external)
			baseURL = external
		} else {
			svc, err := initializeServices(cfg, logger)
			if err != nil {
				return err
			}
			go sessionCleanupRoutine(ctx, svc, cfg.SessionTTL, cleanupInterval)

			baseURL, err = startInternalAPI(ctx, svc)
			if err != nil {
				return err
			}
			logger.Info("internal API server started", "url", baseURL)
		}
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", "api", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
