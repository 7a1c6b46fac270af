package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/iwvelando/demand-dashboard/internal/assistant"
	"github.com/iwvelando/demand-dashboard/internal/auth"
	"github.com/iwvelando/demand-dashboard/internal/completion"
	"github.com/iwvelando/demand-dashboard/internal/config"
	"github.com/iwvelando/demand-dashboard/internal/dashboard"
	"github.com/iwvelando/demand-dashboard/internal/predict"
	"github.com/iwvelando/demand-dashboard/internal/server"
	"github.com/iwvelando/demand-dashboard/internal/store"
	"github.com/iwvelando/demand-dashboard/pkg/constants"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = constants.LogFormatJSON
	}

	var zapConfig zap.Config
	switch format {
	case constants.LogFormatConsole:
		zapConfig = zap.NewDevelopmentConfig()
	case constants.LogFormatJSON:
		zapConfig = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		// Test if we can create/write to the file
		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		}
		_ = file.Close()

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

// newCompleter picks the completion provider named in the configuration.
func newCompleter(logger *zap.Logger, conf config.CompletionConfig) completion.Completer {
	if conf.Provider == constants.ProviderGemini {
		return completion.NewGemini(logger, completion.GeminiConfig{
			APIKey: conf.GeminiAPIKey,
			Model:  conf.GeminiModel,
		})
	}
	return completion.NewOpenRouter(logger, completion.OpenRouterConfig{
		URL:      conf.URL,
		APIKey:   conf.APIKey,
		Model:    conf.Model,
		SiteURL:  conf.SiteURL,
		AppTitle: conf.AppTitle,
		Timeout:  conf.Timeout,
	})
}

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	envFile := flag.String("env-file", constants.DefaultEnvFile, "path to a dotenv file loaded before the environment")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load env file\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := conf.Validate(); err != nil {
		logger.Fatal("invalid configuration",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	for _, warning := range conf.Warnings() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}
	if redacted, err := conf.Redacted(); err == nil {
		logger.Debug("effective configuration",
			zap.String("op", "main"),
			zap.ByteString("config", redacted),
		)
	}

	ctx := context.Background()
	cache, err := store.Open(ctx, logger, store.Options{
		Driver:      conf.Store.Driver,
		Dir:         conf.Store.Dir,
		Key:         conf.Store.Key,
		DatabaseURL: conf.Store.DatabaseURL,
	})
	if err != nil {
		logger.Fatal("failed to open forecast cache",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	if closer, ok := cache.(interface{ Close() }); ok {
		defer closer.Close()
	}

	predictor := predict.NewClient(logger, predict.Config{
		BaseURL: conf.Predict.BaseURL,
		Timeout: conf.Predict.Timeout,
	})
	dash := dashboard.NewService(logger, predictor, cache)
	dash.Restore(ctx)

	assist := assistant.NewService(logger, newCompleter(logger, conf.Completion), cache)

	gate := auth.NewGate(logger, auth.Config{
		Disabled:     conf.Auth.Disabled,
		Secret:       conf.Auth.JWTSecret,
		CookieName:   conf.Auth.CookieName,
		SignInURL:    conf.Auth.SignInURL,
		SecureCookie: conf.Auth.SecureCookie,
	}, func(ctx context.Context) error {
		assist.Reset()
		_, err := dash.Clear(ctx)
		return err
	})

	var handler http.Handler = server.NewHandler(logger, server.Dependencies{
		Dashboard: dash,
		Assistant: assist,
		Gate:      gate,
	}, conf.Server.UploadSizeBytes(), version)
	handler = server.LoggingMiddleware(logger)(handler)
	handler = server.RecoveryMiddleware(logger)(handler)

	srv := &http.Server{
		Addr:              conf.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening",
			zap.String("op", "main"),
			zap.String("address", srv.Addr),
			zap.String("predict_endpoint", predictor.Endpoint()),
			zap.String("version", version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server", zap.String("op", "main"))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}
