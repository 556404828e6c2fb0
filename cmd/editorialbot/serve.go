package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/knoguchi/editorialbot/internal/auth"
	"github.com/knoguchi/editorialbot/internal/config"
	"github.com/knoguchi/editorialbot/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAllowedOrigins string
	serveWarm           bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC server and HTTP gateway",
	Long: `Starts the EditorialService gRPC server and the HTTP/JSON gateway in
front of it. The editorial corpus is loaded on the first question unless
--warm is set; the health service reports SERVING once it has loaded.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAllowedOrigins, "allowed-origins", "*", "Comma-separated CORS origins for the HTTP gateway")
	serveCmd.Flags().BoolVar(&serveWarm, "warm", true, "Load the corpus before accepting requests")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, logFile := setupLogger(os.Stdout, cfg.LogLevel, cfg.LogFile)
	defer logFile.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("starting editorial bot",
		"grpc_port", cfg.GRPCPort,
		"http_port", cfg.HTTPPort,
	)

	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var jwtManager *auth.JWTManager
	if cfg.JWTSecret != "" {
		jwtManager = auth.NewJWTManager(&auth.JWTConfig{
			Secret: cfg.JWTSecret,
			Expiry: cfg.JWTExpiry,
			Issuer: cfg.JWTIssuer,
		})
	}

	grpcServer, err := server.NewGRPCServer(server.GRPCServerConfig{
		Port:   cfg.GRPCPort,
		Logger: logger,
		Auth:   auth.NewInterceptor(cfg.APIKey, jwtManager),
	}, a.qa)
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}

	httpServer, err := server.NewHTTPServer(server.HTTPServerConfig{
		Port:           cfg.HTTPPort,
		GRPCAddr:       fmt.Sprintf("localhost:%d", cfg.GRPCPort),
		Logger:         logger,
		AllowedOrigins: strings.Split(serveAllowedOrigins, ","),
		Ready:          a.qa.Ready,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	errCh := make(chan error, 2)

	go func() {
		if err := grpcServer.Start(); err != nil {
			errCh <- err
		}
	}()

	go func() {
		if err := httpServer.RegisterHandlers(ctx); err != nil {
			errCh <- fmt.Errorf("failed to register HTTP handlers: %w", err)
			return
		}
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	if serveWarm {
		go func() {
			if _, err := a.corpus.Get(ctx); err != nil {
				logger.Error("corpus failed to load", "error", err)
				return
			}
			grpcServer.SetServing(true)
		}()
	} else {
		grpcServer.SetServing(true)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	}

	logger.Info("shutting down servers")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown gRPC server", "error", err)
	}

	logger.Info("servers stopped")
	return nil
}
