package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/livereload"
)

const shutdownTimeout = 5 * time.Second

// healthHandler answers liveness probes.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// routes builds the development server's handler: the output tree as static
// files plus the live reload, health and metrics endpoints.
func (a *App) routes(sockets *livereload.SocketServer) http.Handler {
	lib := a.cfg.Server.ClientLibrary
	if lib == "" {
		lib = livereload.DefaultClientLibrary
	}

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", sockets.Handler())
	mux.Handle("/livereload.js", livereload.ScriptHandler(lib))
	mux.HandleFunc("/health", a.healthHandler)
	mux.Handle("/metrics", a.metrics.Handler())
	mux.Handle("/", http.FileServer(http.Dir(a.cfg.Output)))
	return mux
}

// serve runs the development server on ln until ctx is cancelled, then shuts
// it down gracefully.
func (a *App) serve(ctx context.Context, ln net.Listener) error {
	logger := ctxlog.FromContext(ctx)
	sockets := livereload.NewSocketServer(ctx, a.broadcaster)
	srv := &http.Server{
		Handler:           a.routes(sockets),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🌐 Development server starting", "address", fmt.Sprintf("http://%s/", ln.Addr()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("Development server failed unexpectedly", "error", err)
		return fmt.Errorf("development server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("🌐 Shutting down development server...")
	if err := sockets.Close(); err != nil {
		logger.Warn("Live reload endpoint did not close cleanly.", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Development server shutdown failed", "error", err)
		return err
	}
	logger.Debug("Development server shut down gracefully.")
	return nil
}
