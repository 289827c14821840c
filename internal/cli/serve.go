package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vbonduro/sintaxia/internal/analysis"
	"github.com/vbonduro/sintaxia/internal/asset"
	"github.com/vbonduro/sintaxia/internal/chat"
	"github.com/vbonduro/sintaxia/internal/config"
	"github.com/vbonduro/sintaxia/internal/db"
	"github.com/vbonduro/sintaxia/internal/library"
	"github.com/vbonduro/sintaxia/internal/photostore/local"
	"github.com/vbonduro/sintaxia/internal/service"
	"github.com/vbonduro/sintaxia/internal/store"
	"github.com/vbonduro/sintaxia/internal/web"
	"github.com/vbonduro/sintaxia/internal/web/templates"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat server and the 3D viewer",
		Example: `  # Listen on the configured address (LISTEN_ADDR, default :5000)
  sintaxia serve

  # Override settings from a YAML file
  sintaxia serve --config sintaxia.yaml --addr :8080`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.ListenAddr = addr
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return runServer(cmd.Context(), a.cfg, a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides LISTEN_ADDR)")
	return cmd
}

// runServer wires every component and serves until ctx is cancelled.
func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	for _, dir := range []string{cfg.ModelsDir, filepath.Dir(cfg.DBPath)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeDB(database, logger)

	uploads, err := local.NewLocalPhotoStore(cfg.UploadsDir)
	if err != nil {
		return err
	}

	detectors := newDetectorService(cfg, logger)
	defer func() {
		if err := detectors.Close(); err != nil {
			logger.Error("failed to close detector", "error", err)
		}
	}()

	lib := library.New(cfg.LibraryRoot, logger)
	analyzer := analysis.NewAnalyzer(
		detectors,
		lib,
		asset.NewCopier(logger),
		newGenerator(cfg, logger),
		cfg.ModelsDir,
		logger,
	)
	responder := chat.NewResponder(newChatClient(cfg, logger), cfg.LLMModel, cfg.LLMFallbacks, logger)

	chatService := service.NewChatService(
		store.NewAnalysisStore(database),
		store.NewMessageStore(database),
		store.NewModelingRequestStore(database),
		analyzer,
		responder,
		uploads,
		logger,
	)

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	hub := web.NewHub(logger)
	go hub.Run(hubCtx)
	chatService.SetNotifier(hub)

	server := web.NewServer(chatService, hub, templates.FS, uploads, cfg.ModelsDir, logger).HTTPServer(cfg.ListenAddr)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.ListenAddr, "models", responder.Models())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		logger.Info("server stopped")
		return nil
	case err := <-serverErr:
		return err
	}
}

func closeDB(database *sql.DB, logger *slog.Logger) {
	if err := database.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
}
