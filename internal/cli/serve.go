package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	ibmlogging "github.com/openbmc/ibm-logging"
	"github.com/openbmc/ibm-logging/internal/config"
	"github.com/openbmc/ibm-logging/internal/logging"
	"github.com/openbmc/ibm-logging/internal/presentation/tui"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions configures the serve command.
type ServeOptions struct {
	Config config.Config
	Logger *slog.Logger
	Out    io.Writer
	Quiet  bool
}

// Serve runs the manager and its HTTP API until ctx is cancelled or one of
// them fails.
func Serve(ctx context.Context, opts ServeOptions) error {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	svc, err := ibmlogging.New(ctx, opts.Config, ibmlogging.WithLogger(opts.Logger))
	if err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Close()

	listener, err := net.Listen("tcp", opts.Config.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", opts.Config.HTTP.Addr, err)
	}

	if !opts.Quiet && opts.Out != nil {
		tui.PrintBanner(opts.Out, ibmlogging.Version)
		printSystemMessage(opts.Out, "Policy table: %s (%s)", opts.Config.Policy.Path,
			tui.Status(loadedWord(svc.Table.IsLoaded()), svc.Table.IsLoaded()))
		printSystemMessage(opts.Out, "Transport: %s", opts.Config.Transport.Backend)
		printSystemMessage(opts.Out, "Persisting callouts in %s", opts.Config.PersistDir)
		printSystemMessage(opts.Out, "Listening on %s", listener.Addr())
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	managerErrors := make(chan error, 1)
	go func() {
		managerErrors <- svc.Run(runCtx)
	}()

	srv := &http.Server{Handler: svc.Handler()}
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Serve(listener)
	}()

	var runErr error
	managerDone := false
	select {
	case <-ctx.Done():
		logShutdownCause(ctx, opts.Logger)
	case err := <-managerErrors:
		managerDone = true
		runErr = err
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		opts.Logger.Warn("Graceful shutdown did not complete", "error", err)
		_ = srv.Close()
	}
	if !managerDone {
		if err := <-managerErrors; err != nil && runErr == nil {
			runErr = err
		}
	}

	opts.Logger.Info("ibmlogd stopped")
	return runErr
}

func loadedWord(loaded bool) string {
	if loaded {
		return "loaded"
	}
	return "not loaded"
}
