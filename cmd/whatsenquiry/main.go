package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whatsenquiry/internal/config"
	"whatsenquiry/internal/constants"
	"whatsenquiry/internal/database"
	"whatsenquiry/internal/features"
	"whatsenquiry/internal/notify"
	"whatsenquiry/internal/retry"
	"whatsenquiry/internal/service"
	"whatsenquiry/internal/tracing"
	"whatsenquiry/pkg/greenapi"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes sensitive information)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("whatsenquiry %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting whatsenquiry")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - sensitive information will be logged")
	} else if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			if level > logrus.InfoLevel {
				level = logrus.InfoLevel
			}
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	tracingManager := tracing.NewTracingManager(tracing.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
		UseStdout:      cfg.Tracing.UseStdout,
	}, logger)

	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Bring the store up with exponential backoff; sqlite on a slow or
	// contended volume can need a few attempts at boot.
	var db *database.Database
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  cfg.Retry.MaxAttempts,
		Jitter:       true,
	})

	err = backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(cfg.Database.Path)
		if initErr != nil {
			logger.Warnf("Failed to initialize database: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	defer db.Close()

	flags := features.NewFlagManager()
	if cfg.GreenAPI.SendReplies {
		flags.SetEnabled(features.FlagReplyResponses, true)
	}
	if cfg.Server.WebhookSecret != "" {
		flags.SetEnabled(features.FlagWebhookSignature, true)
	}

	hub := notify.NewHub(logger)
	defer hub.Close()

	var replier greenapi.Client
	if cfg.GreenAPI.SendReplies {
		apiToken := os.Getenv("GREENAPI_API_TOKEN")
		if apiToken == "" {
			return fmt.Errorf("GREENAPI_API_TOKEN environment variable is required when reply sending is enabled")
		}
		replier = greenapi.NewClient(greenapi.Config{
			BaseURL:         cfg.GreenAPI.APIBaseURL,
			InstanceID:      cfg.GreenAPI.InstanceID,
			APIToken:        apiToken,
			Timeout:         time.Duration(cfg.GreenAPI.TimeoutSec) * time.Second,
			BreakerFailures: uint32(cfg.GreenAPI.BreakerFailures),
			BreakerReset:    time.Duration(cfg.GreenAPI.BreakerResetSec) * time.Second,
		}, logger)
		logger.WithField("instance_id", cfg.GreenAPI.InstanceID).Info("Outbound Green API client initialized")
	} else {
		logger.Info("Reply sending disabled, no outbound provider client")
	}

	enquiryService := service.NewEnquiryService(db, hub, replier, flags, logger)

	server := NewServer(cfg, enquiryService, replier, hub, flags, logger)
	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}
