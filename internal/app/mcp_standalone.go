package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"pagebuilder/internal/config"
	mcpserver "pagebuilder/internal/mcp"
	"pagebuilder/internal/service"
)

// ServeMCP runs the editor as a standalone MCP server on stdin/stdout with
// no GUI. Destructive tools are auto-approved since there is no window.
func ServeMCP(cfg config.Config, log *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := Build(ctx, cfg, log, service.NopEmitter{})
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())
	if err := rt.StartBackground(); err != nil {
		log.Warn("background jobs disabled", zap.Error(err))
	}

	srv := mcpserver.New(mcpserver.Deps{
		Editor:   rt.Editor,
		Renderer: rt.Renderer,
		Approval: mcpserver.AutoApprove{},
		Logger:   log,
	})
	return srv.ServeStdio()
}
