package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	ibmlogging "github.com/openbmc/ibm-logging"
	"github.com/openbmc/ibm-logging/internal/config"
	"github.com/openbmc/ibm-logging/internal/logging"
)

// MCPOptions configures the mcp command.
type MCPOptions struct {
	Config config.Config
	Logger *slog.Logger
}

// RunMCP runs the manager and serves it over MCP on the configured transport.
func RunMCP(ctx context.Context, opts MCPOptions) error {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	svc, err := ibmlogging.New(ctx, opts.Config, ibmlogging.WithLogger(opts.Logger))
	if err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	managerErrors := make(chan error, 1)
	go func() {
		managerErrors <- svc.Run(runCtx)
	}()

	srv := svc.MCPServer()
	switch opts.Config.MCP.Transport {
	case config.TransportStdio:
		opts.Logger.Info("Starting ibmlogd MCP Server (Stdio)")
		err = srv.ServeStdio()
	case config.TransportSSE:
		opts.Logger.Info("Starting ibmlogd MCP Server (SSE)", "port", opts.Config.MCP.Port)
		err = srv.ServeSSE(runCtx, opts.Config.MCP.Port)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	default:
		err = fmt.Errorf("unknown transport: %s. Supported: stdio, sse", opts.Config.MCP.Transport)
	}
	logShutdownCause(ctx, opts.Logger)

	cancel()
	if runErr := <-managerErrors; runErr != nil && err == nil {
		err = runErr
	}
	return err
}
