package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"pagebuilder/internal/config"
	mcpserver "pagebuilder/internal/mcp"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx context.Context
	cfg config.Config
	log *zap.Logger

	rt       *Runtime
	approval *mcpserver.ApprovalQueue
	mcpHTTP  *server.StreamableHTTPServer

	// Release shown in the editor window
	activeReleaseID string

	emit func(ctx context.Context, event string, data ...interface{})
}

// New creates a new App.
func New(cfg config.Config, log *zap.Logger) *App {
	return &App{cfg: cfg, log: log.Named("app"), emit: wailsRuntime.EventsEmit}
}

// Emit forwards service events to the frontend. Wails only accepts its own
// lifecycle context, so the caller's ctx (a request, a watcher) is ignored.
func (a *App) Emit(_ context.Context, event string, data any) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, event, data)
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	rt, err := Build(ctx, a.cfg, a.log, a)
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to start: %v", err)
		return
	}
	a.rt = rt
	if err := rt.StartBackground(); err != nil {
		wailsRuntime.LogErrorf(ctx, "Background jobs disabled: %v", err)
	}

	size := rt.Window.LoadWindowSize()
	wailsRuntime.WindowSetSize(ctx, size.Width, size.Height)

	if a.cfg.MCP.Listen != "" {
		a.startMCP(ctx)
	}
}

// startMCP serves the MCP tools over HTTP in-process, so destructive calls
// can be confirmed in the window.
func (a *App) startMCP(ctx context.Context) {
	a.approval = mcpserver.NewApprovalQueue(ctx, a, 0)
	srv := mcpserver.New(mcpserver.Deps{
		Editor:   a.rt.Editor,
		Renderer: a.rt.Renderer,
		Approval: a.approval,
		Emitter:  a,
		Logger:   a.log,
	})
	a.mcpHTTP = server.NewStreamableHTTPServer(srv.MCP())
	go func() {
		a.log.Info("mcp http listening", zap.String("addr", a.cfg.MCP.Listen))
		if err := a.mcpHTTP.Start(a.cfg.MCP.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("mcp http server", zap.Error(err))
		}
	}()
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.mcpHTTP != nil {
		_ = a.mcpHTTP.Shutdown(ctx)
	}
	if a.rt != nil {
		a.rt.Close(ctx)
	}
	_ = a.log.Sync()
}

// SaveWindowSize is called by the frontend after the window is resized.
func (a *App) SaveWindowSize(width, height int) error {
	if a.rt == nil {
		return nil
	}
	return a.rt.Window.SaveWindowSize(width, height)
}

// LastRelease returns the release to reopen on launch, if any.
func (a *App) LastRelease() string {
	if a.rt == nil {
		return ""
	}
	return a.rt.Window.LastRelease()
}

// ApproveAction confirms a destructive MCP call.
func (a *App) ApproveAction(actionID string) {
	if a.approval != nil {
		a.approval.Approve(actionID)
	}
}

// RejectAction declines a destructive MCP call.
func (a *App) RejectAction(actionID string) {
	if a.approval != nil {
		a.approval.Reject(actionID)
	}
}
