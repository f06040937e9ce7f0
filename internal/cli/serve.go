package cli

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

	"github.com/evcraddock/churchdesk/internal/auth"
	"github.com/evcraddock/churchdesk/internal/logging"
	"github.com/evcraddock/churchdesk/internal/web"
)

const (
	sessionCleanupInterval = time.Hour
	shutdownTimeout        = 10 * time.Second
)

type serveOptions struct {
	addr     string
	timezone string
	dev      bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI",
		Long:  "Start the HTTP server for the web UI and the /api routes. Stops cleanly on SIGINT or SIGTERM.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default: from config, :8080)")
	cmd.Flags().StringVar(&opts.timezone, "timezone", "", "IANA zone that decides what today is (default: from config)")
	cmd.Flags().BoolVar(&opts.dev, "dev", false, "development mode: text logs, insecure cookies")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := loadServerConfig()
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Addr = opts.addr
	}
	if opts.timezone != "" {
		if err := cfg.SetTimezone(opts.timezone); err != nil {
			return err
		}
	}
	if opts.dev {
		cfg.DevMode = true
	}

	logging.Setup(cfg.DevMode)

	d, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(d)

	created, err := auth.NewUserStore(d).EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}
	if created {
		slog.Info("created admin user", "email", cfg.AdminEmail)
	}

	srv, err := web.NewServer(d, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go cleanupSessions(ctx, auth.NewSessionStore(d, cfg.SessionTTL, !cfg.DevMode))

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.Addr, "db", cfg.DBPath, "timezone", cfg.Location().String())
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// cleanupSessions deletes expired sessions until ctx is done.
func cleanupSessions(ctx context.Context, sessions *auth.SessionStore) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		if err := sessions.Cleanup(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("session cleanup failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
