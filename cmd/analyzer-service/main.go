package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/app"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/config"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/handler"
	"github.com/umanagarjuna/tweet-analyzer/pkg/requestid"
)

func main() {
	// A missing .env file is fine
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	logger, err := app.NewLogger(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	// Initialize dependencies
	analyzer, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize analyzer", zap.Error(err))
	}
	defer analyzer.Close()

	limiter := handler.NewRateLimiter(cfg.Service.RateLimit, cfg.Service.RateLimitWindow)
	defer limiter.Close()

	// Start servers
	errChan := make(chan error, 2)

	// Start HTTP server
	httpHandler := handler.NewHTTPHandler(analyzer.Service, analyzer.Metrics, limiter, logger,
		handler.WithNews(analyzer.Service))
	srv := &http.Server{
		Addr:              cfg.Server.HTTPPort,
		Handler:           setupHTTPRouter(httpHandler, cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start gRPC server
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(handler.UnaryLogger(logger, requestid.NewSequenceGenerator(int64(os.Getpid())))),
	)
	handler.RegisterAnalyzerServer(grpcServer, handler.NewGRPCHandler(analyzer.Service, logger))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(handler.AnalyzerServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	go func() {
		lis, err := net.Listen("tcp", cfg.Server.GRPCPort)
		if err != nil {
			errChan <- fmt.Errorf("failed to listen: %w", err)
			return
		}

		logger.Info("Starting gRPC server", zap.String("port", cfg.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Error("Server error", zap.Error(err))
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	healthServer.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	grpcServer.GracefulStop()

	logger.Info("Server stopped")
}

func setupHTTPRouter(h *handler.HTTPHandler, cfg *config.Config, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		handler.RequestID(requestid.NewRandomGenerator()),
		handler.RequestLogger(logger),
		handler.CORS(cfg.Server.AllowedOrigins),
	)

	// Register routes
	h.RegisterRoutes(router)

	return router
}
