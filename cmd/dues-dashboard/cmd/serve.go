package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/society-dues/internal/dashboard"
	"github.com/shunichi-ikebuchi/society-dues/pkg/recordstore"
	"github.com/shunichi-ikebuchi/society-dues/pkg/session"
	"github.com/shunichi-ikebuchi/society-dues/pkg/sessionstore"
)

var servePort int

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dues dashboard web server",
	Long: `Start the dues dashboard web server.

The record store is chosen with DUES_BACKEND (sheets, sqlite or xlsx).
Pending edits are kept per browser session in a local bbolt file until
they are saved or discarded.

Example:
  dues-dashboard serve
  dues-dashboard serve --port 9000`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from PORT or 8501)")
}

func runServe(cmd *cobra.Command, args []string) {
	rt := loadSetup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open record store
	store, err := recordstore.Open(ctx, rt.cfg, rt.paths)
	exitOnError(err, "failed to open record store")
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("failed to close record store", "error", err)
		}
	}()
	slog.Info("record store ready", "backend", store.Describe())

	// Open session store
	sessions, err := sessionstore.New(rt.paths.GetSessionDBPath(), rt.cfg.Session.TTL)
	exitOnError(err, "failed to open session store")
	defer func() {
		if err := sessions.Close(); err != nil {
			slog.Error("failed to close session store", "error", err)
		}
	}()
	slog.Info("session store initialized", "db_path", rt.paths.GetSessionDBPath(), "ttl", rt.cfg.Session.TTL)

	go purgeSessions(ctx, sessions, time.Hour)

	manager := session.NewManager(sessions, store, rt.layout.DuesColumns())
	handler := dashboard.NewHandler(manager, dashboard.Options{
		Title:     rt.cfg.Server.Title,
		Backend:   store.Describe(),
		Worksheet: rt.cfg.Sheets.WorksheetName,
		Layout:    rt.layout,
	})

	port := rt.cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}
	addr := fmt.Sprintf(":%d", port)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		<-ctx.Done()

		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("starting dues dashboard", "addr", addr, "port", port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		exitOnError(err, "server error")
	}

	slog.Info("server stopped")
}

// purgeSessions drops expired sessions every interval until ctx is done.
func purgeSessions(ctx context.Context, sessions *sessionstore.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.Purge()
			if err != nil {
				slog.Warn("session purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired sessions purged", "count", n)
			}
		}
	}
}
