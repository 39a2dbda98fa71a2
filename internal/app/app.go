// Package app wires the calculator tool set, the session manager and the
// selected transport into a runnable MCP server.
package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/evalmcp/calculator-mcp/internal/config"
	"github.com/evalmcp/calculator-mcp/internal/metrics"
	"github.com/evalmcp/calculator-mcp/internal/session"
	"github.com/evalmcp/calculator-mcp/internal/tools"
)

const (
	serverName    = "calculator-mcp"
	serverVersion = "1.2.0"
)

// App owns the MCP server, the session manager and the configuration
// they were built from.
type App struct {
	cfg      config.Config
	logger   *log.Logger
	sessions *session.Manager
	srv      *server.MCPServer
}

// New builds the server: session lifecycle is bridged to the transport
// through hooks, and every calculator tool is registered.
func New(cfg config.Config, logger *log.Logger) *App {
	sessions := session.NewManager(cfg.SessionTimeout, logger)

	hooks := &server.Hooks{}
	hooks.AddOnRegisterSession(func(ctx context.Context, cs server.ClientSession) {
		s := sessions.Register(cs.SessionID())
		logger.Info("client session registered", "id", s.ID)
	})
	hooks.AddOnUnregisterSession(func(ctx context.Context, cs server.ClientSession) {
		if sessions.Remove(cs.SessionID()) {
			logger.Info("client session removed", "id", cs.SessionID())
		}
	})
	hooks.AddBeforeCallTool(func(ctx context.Context, id any, message *mcp.CallToolRequest) {
		cs := server.ClientSessionFromContext(ctx)
		if cs == nil {
			return
		}
		if err := sessions.Touch(cs.SessionID()); errors.Is(err, session.ErrNotFound) {
			// The transport still holds this id, so an evicted session
			// is recreated instead of surfacing a hard failure.
			sessions.Register(cs.SessionID())
		}
	})
	hooks.AddAfterCallTool(func(ctx context.Context, id any, message *mcp.CallToolRequest, result *mcp.CallToolResult) {
		status := "ok"
		if result != nil && result.IsError {
			status = "error"
		}
		metrics.ToolCalls.WithLabelValues(message.Params.Name, status).Inc()
	})
	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		logger.Error("request failed", "method", method, "err", err)
	})

	srv := server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithHooks(hooks),
	)
	tools.Register(srv, tools.Deps{Sessions: sessions, Logger: logger})

	return &App{cfg: cfg, logger: logger, sessions: sessions, srv: srv}
}

// Sessions exposes the session manager, mainly for tests.
func (a *App) Sessions() *session.Manager {
	return a.sessions
}

// Server exposes the underlying MCP server, mainly for tests.
func (a *App) Server() *server.MCPServer {
	return a.srv
}

// Run starts the eviction sweep, the optional metrics endpoint and the
// configured transport, and blocks until ctx is cancelled or the
// transport shuts down.
func (a *App) Run(ctx context.Context) error {
	go a.sessions.Run(ctx, a.cfg.SweepInterval)

	if a.cfg.MetricsAddr != "" {
		go a.serveMetrics(ctx)
	}

	switch a.cfg.Transport {
	case config.TransportSSE:
		return a.runSSE(ctx)
	default:
		return a.runStdio(ctx)
	}
}

func (a *App) runStdio(ctx context.Context) error {
	a.logger.Info("serving on stdio",
		"session_timeout", a.cfg.SessionTimeout,
		"sweep_interval", a.cfg.SweepInterval)

	stdio := server.NewStdioServer(a.srv)
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *App) runSSE(ctx context.Context) error {
	sse := server.NewSSEServer(a.srv)

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sse.Shutdown(shutCtx); err != nil {
			a.logger.Error("sse shutdown failed", "err", err)
		}
	}()

	a.logger.Info("serving over SSE",
		"addr", a.cfg.ListenAddr,
		"session_timeout", a.cfg.SessionTimeout,
		"sweep_interval", a.cfg.SweepInterval)

	if err := sse.Start(a.cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) serveMetrics(ctx context.Context) {
	srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: metrics.Handler()}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	a.logger.Info("metrics listening", "addr", a.cfg.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error("metrics server failed", "err", err)
	}
}
