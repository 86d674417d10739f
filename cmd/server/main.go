package main

import (
	"challenge-chat/api/chat"
	"challenge-chat/auth"
	"challenge-chat/contract"
	"challenge-chat/infrastructure/grpc/server"
	"challenge-chat/infrastructure/index"
	"challenge-chat/infrastructure/push"
	"challenge-chat/infrastructure/ws"
	"challenge-chat/internal"
	"challenge-chat/repositories"
	"challenge-chat/runtime"
	"challenge-chat/runtime/workers"
	"challenge-chat/services"
	"challenge-chat/sink"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	grpc3 "github.com/mama165/sdk-go/grpc"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component, serves gRPC and HTTP until a signal arrives,
// and lets the deferred closes release the stores.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Stores (BadgerDB, Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		database.StartDebugServer(db, config.DebugPort, endpoint, internal.InspectMapper)
	}

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	messageRepository := repositories.NewMessageRepository(db, logger)
	rosterRepository := repositories.NewRosterRepository(db)
	readMarkerRepository := repositories.NewReadMarkerRepository(db)
	credentialRepository := repositories.NewCredentialRepository(db)
	messageIndex := index.NewMessageIndex(blugeWriter, logger)

	// 3. Supervision & Orchestration
	registry := runtime.NewRegistry(logger)
	orchestrator := runtime.NewOrchestrator(logger, workers.NewSupervisor(logger), registry,
		messageRepository, rosterRepository, runtime.OrchestratorConfig{
			SessionBufferSize:   config.ConnectionBufferSize,
			PersistedBufferSize: config.BufferSize,
			MaxContentLength:    config.MaxContentLength,
			CensoredChar:        charReplacement,
			SinkTimeout:         config.SinkTimeout,
			MetricInterval:      config.MetricInterval,
		})
	orchestrator.Add(
		sink.NewNotificationSink(rosterRepository, buildNotifier(config, logger),
			config.NotificationConcurrency, config.NotificationTimeout, logger),
		sink.NewSearchSink(messageIndex, logger),
	)
	hub, err := orchestrator.Prepare()
	if err != nil {
		return exitRuntime, fmt.Errorf("orchestrator preparation failed: %w", err)
	}

	chatService := services.NewChatService(messageRepository, rosterRepository, messageIndex, logger)
	readStateService := services.NewReadStateService(messageRepository, readMarkerRepository, rosterRepository)
	gateway := auth.NewGateway(auth.NewIssuer([]byte(config.JwtSecret), config.TokenIssuer), credentialRepository, logger)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 3)

	go func() {
		logger.Info("Starting orchestrator...")
		if err := orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator error: %w", err)
		}
	}()

	// 5. gRPC Server
	grpcAddress := fmt.Sprintf("%s:%d", config.Host, config.GrpcPort)
	listener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc3.UnaryLoggingInterceptor(logger),
			auth.UnaryInterceptor(gateway, healthpb.Health_Check_FullMethodName),
		),
		grpc.StreamInterceptor(auth.StreamInterceptor(gateway)),
	)
	chat.RegisterChatServiceServer(s, server.NewChatServer(logger, hub, chatService, readStateService, config.InboundBufferSize))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)

	go func() {
		logger.Info("Starting gRPC server", "address", grpcAddress, "at", time.Now().UTC())
		for serviceName := range s.GetServiceInfo() {
			logger.Debug("gRPC exposed services", "name", serviceName)
		}
		if err := s.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 6. HTTP Server (WebSocket + JSON routes)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.HttpPort),
		Handler:           ws.NewHandler(hub, gateway, chatService, readStateService, config.InboundBufferSize, logger).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 8. Graceful Shutdown
	// Sessions are closed first so open streams return and GracefulStop does not wait on them.
	logger.Info("Shutting down gracefully...")
	healthServer.Shutdown()
	orchestrator.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown incomplete", "error", err)
	}
	s.GracefulStop()
	logger.Info("Program stopped cleanly")

	return code, runErr
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}

func buildNotifier(config internal.Config, logger *slog.Logger) contract.INotifier {
	if config.PushWebhookURL == "" {
		logger.Info("No push webhook configured, notifications are only logged")
		return push.NewLogNotifier(logger)
	}
	return push.NewWebhookNotifier(config.PushWebhookURL, config.PushWebhookToken,
		&http.Client{Timeout: config.NotificationTimeout})
}
