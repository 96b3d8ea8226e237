package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intentlink/internal/api"
	"intentlink/internal/config"
	"intentlink/internal/intent"
	"intentlink/internal/logging"
	"intentlink/internal/middleware"
	"intentlink/internal/storage"
	"intentlink/internal/view"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "intentlink-server",
		Short:        "Serve intention share links",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default config/config.<INTENTLINK_ENV>.json)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(path string) (*config.Config, string, error) {
	explicit := path != ""
	if !explicit {
		path = config.Path()
	}

	cfg, err := config.Load(path)
	if err != nil {
		if !explicit && stderrors.Is(err, os.ErrNotExist) {
			return config.Default(), "", nil
		}
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, path, nil
}

func run(ctx context.Context, configPath string) error {
	// Load configuration
	cfg, configPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Initialize logger
	logger, err := logging.NewLogger(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	if configPath == "" {
		logger.Info("no config file found, using defaults", zap.String("looked_for", config.Path()))
	}

	// Initialize BadgerDB
	db, err := storage.Open(cfg.Database.Path, cfg.Database.InMemory)
	if err != nil {
		return err
	}
	defer db.Close()

	loc, err := cfg.Display.Location()
	if err != nil {
		return err
	}

	decoder, err := intent.NewDecodeCache(cfg.Cache.Size)
	if err != nil {
		return fmt.Errorf("failed to initialize decode cache: %w", err)
	}

	svc := view.NewService(decoder, storage.NewBadgerKV(db), view.Options{
		BaseURL:     cfg.Share.BaseURL,
		RoutePrefix: cfg.Share.RoutePrefix,
		Location:    loc,
		Limits: intent.Limits{
			ActivityMax: cfg.Limits.ActivityMax,
			PlaceMax:    cfg.Limits.PlaceMax,
			NoteMax:     cfg.Limits.NoteMax,
		},
	}, logger.Named("view"))

	// Set up router
	mux := http.NewServeMux()
	api.NewIntentionHandler(svc, logger.Named("api")).Routes(mux)

	// Apply middleware
	handler := middleware.Chain(
		mux,
		middleware.Compress,
		middleware.Recover(logger),
		middleware.Logger(logger),
		middleware.Viewer,
		middleware.RequestID,
	)

	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, logger.Logger, func(next *config.Config) {
				if err := logger.SetLevel(next.LogLevel); err != nil {
					logger.Warn("ignoring log level", zap.String("level", next.LogLevel), zap.Error(err))
					return
				}
				logger.Info("log level changed", zap.Stringer("level", logger.Level()))
			})
			if err != nil {
				logger.Warn("config watch stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("address", srv.Addr),
			zap.String("environment", cfg.Environment),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
