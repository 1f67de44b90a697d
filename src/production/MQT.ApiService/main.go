package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.ApiService/controllers"
	"gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.ApiService/middleware"
	config "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Config"
	container "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Container"
	logger "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Logger"
	implementation "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Repository/Implementation"
	interfaces "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Repository/Interfaces"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

// run owns every resource it opens so the deferred cleanups always execute
func run() error {
	// Initialize dependency injection container
	ctr, err := container.NewApiContainer()
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer ctr.Shutdown(context.Background())

	logger := ctr.GetLogger()
	logger.Info("Starting API Service")

	// Get database connection
	db, err := ctr.GetDatabase()
	if err != nil {
		return err
	}
	dialect, err := ctr.GetDialect()
	if err != nil {
		return fmt.Errorf("failed to resolve SQL dialect: %w", err)
	}
	healthChecker, err := ctr.GetHealthChecker()
	if err != nil {
		return err
	}

	sensorRepo := implementation.NewSQLSensorQueryRepository(db, dialect)

	config := ctr.GetConfig()
	router := NewRouter(config, sensorRepo, healthChecker, logger)

	port := config.Server.Port

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  config.Server.IdleTimeout,
	}

	// Start HTTP server in a goroutine; a listen failure ends run like a signal
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting on port " + port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}()

	logger.Info("API service running... press Ctrl+C to stop")

	// Wait for shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-serveErr:
		logger.ErrorWithError(err, "HTTP server stopped")
		return err
	}

	logger.Info("Shutting down...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "Server forced to shutdown")
	}
	return nil
}

// NewRouter wires middleware and controllers
func NewRouter(cfg *config.ApiConfig, sensorRepo interfaces.SensorQueryRepository, status controllers.StatusReporter, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.Recovery(log))

	// Configure CORS from config
	corsConfig := cors.Config{
		AllowMethods: cfg.CORS.AllowedMethods,
		AllowHeaders: cfg.CORS.AllowedHeaders,
		MaxAge:       time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	origins := cfg.CORS.AllowedOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	router.Use(cors.New(corsConfig))
	router.Use(middleware.NoCache())
	router.Use(middleware.ErrorHandler(log))

	controllers.NewSensorController(sensorRepo, log).RegisterRoutes(router)
	controllers.NewHealthController(sensorRepo, status, log).RegisterRoutes(router)

	return router
}
