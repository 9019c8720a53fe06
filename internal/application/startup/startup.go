// Package startup prepares the application server
package startup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/application/container"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/leadtrack-go/internal/presentation/http/server"
	"github.com/AtRiskMedia/leadtrack-go/pkg/config"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// Initialize performs the complete startup sequence and blocks until a
// shutdown signal arrives or the server fails.
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	log.Printf("leadtrack %s starting...", config.Version)

	// Step 1: Build the channeled logger
	phaseStart := time.Now()
	broadcaster := logging.NewLogBroadcaster(config.LogStreamBuffer)
	logger, err := NewLogger(broadcaster)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()
	logger.LogStartupPhase("logging", time.Since(phaseStart), true)

	// Step 2: Open the lead archive, if one is configured
	phaseStart = time.Now()
	db, err := openArchive(logger)
	if err != nil {
		logger.LogStartupPhase("archive", time.Since(phaseStart), false)
		return err
	}
	logger.LogStartupPhase("archive", time.Since(phaseStart), true)

	// Step 3: Create dependency injection container
	phaseStart = time.Now()
	appContainer := container.NewContainer(logger, db)
	logger.LogStartupPhase("container", time.Since(phaseStart), true)

	if config.SheetsWebhookURL == "" {
		logger.Startup().Warn("GOOGLE_SHEETS_WEBHOOK is not set - every lead submission will fail")
	}

	// Step 4: Run the HTTP server and the cleanup worker until a signal arrives
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := server.New(config.Port, appContainer)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.System().Info("Starting HTTP server", "address", httpServer.Addr())
		if err := httpServer.Start(); err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return appContainer.Sweeper.Start(gctx)
	})

	g.Go(func() error {
		return broadcaster.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
		return shutdown(logger, httpServer, appContainer)
	})

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", config.Port,
		"archive", archiveLabel(db),
		"version", config.Version)

	err = g.Wait()

	logger.Shutdown().Info("Application shutdown complete", "totalUptime", time.Since(start))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// NewLogger builds the channeled logger from pkg/config. broadcaster may be
// nil, which disables the admin log stream.
func NewLogger(broadcaster *logging.LogBroadcaster) (*logging.ChanneledLogger, error) {
	cfg := logging.DefaultLoggerConfig()
	cfg.Broadcaster = broadcaster
	cfg.JSONFormat = config.LogJSON
	cfg.OutputToFile = config.LogToFile
	cfg.LogDirectory = config.LogDirectory
	cfg.DefaultLevel = logging.ParseLevel(config.LogLevel)
	if config.DevMode {
		cfg.IncludeSource = true
	}
	return logging.NewChanneledLogger(cfg)
}

func openArchive(logger *logging.ChanneledLogger) (*database.DB, error) {
	cfg := database.ConfigFromEnv()
	if cfg.SQLitePath == "" && cfg.TursoDatabaseURL == "" {
		logger.Startup().Info("Lead archive disabled")
		return nil, nil
	}

	db, err := database.NewConnectionWithLogger(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open lead archive: %w", err)
	}
	if err := database.NewTableCreator().CreateSchema(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create lead archive schema: %w", err)
	}
	logger.Startup().Info("Lead archive ready", "backend", db.ConnectionInfo())
	return db, nil
}

func shutdown(logger *logging.ChanneledLogger, httpServer *server.Server, c *container.Container) error {
	shutdownStart := time.Now()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	// Notification emails already accepted should still go out.
	if err := c.LeadService.Wait(shutdownCtx); err != nil {
		logger.Shutdown().Warn("Pending notifications abandoned", "error", err.Error())
	}

	if err := c.Close(); err != nil {
		logger.Shutdown().Error("Error closing container", "error", err.Error())
	}

	logger.Shutdown().Info("Shutdown finished", "shutdownDuration", time.Since(shutdownStart))
	return nil
}

func archiveLabel(db *database.DB) string {
	if db == nil {
		return "disabled"
	}
	return db.ConnectionInfo()
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
