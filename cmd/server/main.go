package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/freight-clearing-api/internal/allocation"
	"github.com/ksred/freight-clearing-api/internal/auth"
	"github.com/ksred/freight-clearing-api/internal/clearing"
	"github.com/ksred/freight-clearing-api/internal/config"
	"github.com/ksred/freight-clearing-api/internal/database"
	"github.com/ksred/freight-clearing-api/internal/execution"
	"github.com/ksred/freight-clearing-api/internal/netting"
	"github.com/ksred/freight-clearing-api/internal/routing"
	"github.com/ksred/freight-clearing-api/pkg/middleware"
)

// configureLogging sets up zerolog based on the environment. In
// development it enables pretty printing with timestamps; DEBUG=true
// lowers the level further.
func configureLogging(cfg *config.Config) {
	if cfg.App.Env != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the clearing API server with graceful
// shutdown support.
func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	configureLogging(cfg)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(cfg.JWT.Secret)
	authHandlers := auth.NewGinHandlers(authService)
	// Register test credentials
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)

	allocationService := allocation.NewService(db)
	allocationHandlers := allocation.NewGinHandlers(allocationService)

	clearingService := clearing.NewService(db, allocationService)
	clearingHandlers := clearing.NewGinHandlers(clearingService)

	routingService := routing.NewService(db)
	routingHandlers := routing.NewGinHandlers(routingService)

	nettingService := netting.NewService(db, cfg.Engine.SuppressNettedOriginals)
	nettingHandlers := netting.NewGinHandlers(nettingService)

	adapter := execution.NewSimulatedAdapter(cfg.Engine.FailureRate, time.Now().UnixNano())
	executor := execution.NewExecutor(db, adapter, cfg.Engine.BatchWorkers)
	executionHandlers := execution.NewGinHandlers(executor)

	router.Use(middleware.RateLimit())

	setupRoutes(router, cfg.JWT.Secret,
		authHandlers, allocationHandlers, clearingHandlers,
		routingHandlers, nettingHandlers, executionHandlers)

	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers.
// Read endpoints require JWT authentication; the pipeline's mutating
// endpoints sit behind internal authentication.
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	allocationHandlers *allocation.GinHandlers,
	clearingHandlers *clearing.GinHandlers,
	routingHandlers *routing.GinHandlers,
	nettingHandlers *netting.GinHandlers,
	executionHandlers *execution.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Read routes
		reads := v1.Group("")
		reads.Use(middleware.JWTAuth(jwtSecret))
		{
			reads.GET("/clearing/:instruction_id", clearingHandlers.GetInstructionHandler())
			reads.GET("/orders/:order_id/clearing", clearingHandlers.GetOrderInstructionsHandler())
			reads.GET("/passthrough/:instruction_id", routingHandlers.GetPassthroughHandler())
			reads.GET("/routing/rules", routingHandlers.ListRulesHandler())
			reads.GET("/netting/results/:batch_id", nettingHandlers.GetResultsHandler())
			reads.GET("/allocations/:order_id/:calculation_id", allocationHandlers.GetAllocationsHandler())
		}

		// Internal routes (should be protected by internal network)
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(jwtSecret))
		{
			internal.POST("/allocations", allocationHandlers.IngestHandler())
			internal.POST("/clearing/:order_id/:calculation_id", clearingHandlers.BuildInstructionHandler())
			internal.POST("/passthrough/:instruction_id", routingHandlers.GeneratePassthroughHandler())
			internal.POST("/passthrough/:instruction_id/replace", routingHandlers.ReplaceInstructionHandler())
			internal.POST("/routing/rules", routingHandlers.CreateRuleHandler())
			internal.POST("/netting/rules", nettingHandlers.CreateRuleHandler())
			internal.POST("/netting/run/:batch_id", nettingHandlers.RunBatchHandler())
			internal.POST("/execution/clearing/:instruction_id", executionHandlers.ExecuteClearingHandler())
			internal.POST("/execution/passthrough/:instruction_id", executionHandlers.ExecutePassthroughHandler())
			internal.POST("/execution/batch", executionHandlers.ExecuteBatchHandler())
		}
	}
}
