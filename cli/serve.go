package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"babelbeam/config"
	"babelbeam/handlers"
	"babelbeam/middleware"
)

func newServeCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(flags)
		},
	}
	cmd.Flags().StringVar(&flags.Addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func runServe(flags *Flags) error {
	cfg, logger, cleanup, err := setup(flags)
	if err != nil {
		return err
	}
	defer cleanup()

	if flags.Addr != "" {
		cfg.Server.Addr = flags.Addr
	}

	app, err := Build(cfg, logger)
	if err != nil {
		return err
	}

	store, err := newSessionStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	router, err := NewRouter(app, store)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("BabelBeam server starting", zap.String("addr", cfg.Server.Addr), zap.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}

type sessionStore interface {
	middleware.SessionStore
	io.Closer
}

func newSessionStore(cfg *config.Config, logger *zap.Logger) (sessionStore, error) {
	switch cfg.Session.Store {
	case "redis":
		store, err := middleware.NewRedisStore(middleware.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Session.TTL, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return middleware.NewMemoryStore(cfg.Session.TTL, time.Hour), nil
	}
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(app *App, store middleware.SessionStore) (*gin.Engine, error) {
	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(app.Logger))
	r.Use(middleware.SessionMiddleware(store, app.Config.Session.TTL, app.Logger))

	h := handlers.NewHandler(app.Pipeline, app.Logger, app.Config.Server.RequestTimeout)
	if err := h.Register(r); err != nil {
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}
	return r, nil
}
