package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"bilancio/internal/auth"
	apphttp "bilancio/internal/http"
	"bilancio/internal/log"
)

var (
	servePort      string
	serveRateLimit int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ledger over HTTP",
	Long: `Starts the JSON API for the logged in user's ledger. Unless auth is
disabled every /api request must carry HTTP basic credentials of the same
user. Unsaved changes are persisted on shutdown.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (default from config)")
	serveCmd.Flags().IntVar(&serveRateLimit, "rate-limit", 0, "API requests per minute per client IP (0 uses the default)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := SignalContext(cmd.Context())
	defer stop()
	logger := state.logger.WithComponent(log.ComponentApp)

	var svc *auth.Service
	if !state.cfg.AuthDisabled {
		var closeDB func() error
		var err error
		svc, closeDB, err = UserService(state.cfg, state.logger)
		if err != nil {
			return err
		}
		defer closeDB()
	}
	p, err := login(ctx, svc)
	if err != nil {
		return err
	}
	s, cleanup, err := openSessionAs(ctx, p)
	if err != nil {
		return err
	}
	defer cleanup()

	port := servePort
	if port == "" {
		port = state.cfg.Port
	}
	srv := apphttp.NewServer(":"+port, apphttp.Deps{
		Session:           s,
		Auth:              svc,
		Logger:            state.logger,
		RequestsPerMinute: serveRateLimit,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting bilancio server",
			"port", port,
			log.FieldBackend, state.cfg.DataBackend,
			log.FieldUser, p.Email)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	err = g.Wait()

	if s.Dirty() {
		saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if perr := s.Persist(saveCtx); perr != nil {
			logger.Error("Failed to persist ledger on shutdown", log.FieldError, perr)
			return errors.Join(err, perr)
		}
	}
	logger.Info("Server stopped gracefully")
	return err
}
