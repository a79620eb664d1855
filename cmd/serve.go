package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ngram-go/internal/controller"
	"ngram-go/internal/handler"
	"ngram-go/internal/metrics"
	"ngram-go/internal/service/ngram"
	"ngram-go/pkg/mcp"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Train the configured corpora and serve the HTTP and MCP APIs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Server port (default from config)")

	return cmd
}

func runServe(parent context.Context, port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.App.Port = port
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully", zap.Any("config", cfg))

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector(cfg.App.MetricsNamespace, logger)
	ngramService := ngram.NewNGramServiceFromConfig(cfg, collector, logger)

	if len(cfg.Corpora) > 0 {
		trained := ngramService.TrainCorpora(ctx, cfg.Corpora)
		logger.Info("Configured corpora trained",
			zap.Int("trained", trained),
			zap.Int("configured", len(cfg.Corpora)))
	}

	var mcpServer *mcp.NGramServer
	if cfg.App.MCPEnabled {
		mcpServer = mcp.NewNGramServer(ngramService, logger)
	}

	ngramController := controller.NewNGramController(ngramService, logger)
	router := handler.SetupRouter(ngramController, mcpServer, collector, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server", zap.Int("port", cfg.App.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
