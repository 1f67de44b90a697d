package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtbridge "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.BridgeService/bridge"
	container "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Container"
	implementation "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Repository/Implementation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bridge: %v\n", err)
		os.Exit(1)
	}
}

// run owns every resource it opens so the deferred cleanups always execute
func run() error {
	// Initialize dependency injection container
	ctr, err := container.NewBridgeContainer()
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer ctr.Shutdown(context.Background())

	logger := ctr.GetLogger()
	logger.Info("Starting MQTT bridge service")

	config := ctr.GetConfig()

	db, err := ctr.GetDatabase()
	if err != nil {
		return err
	}
	dialect, err := ctr.GetDialect()
	if err != nil {
		return fmt.Errorf("failed to resolve SQL dialect: %w", err)
	}

	schema := implementation.NewSQLSchemaBootstrapper(db, dialect, logger)
	writer := implementation.NewSQLSensorWriter(db, dialect, implementation.WriterOptions{
		ProbeBeforeWrite: config.Database.ProbeBeforeWrite,
		ProbeTimeout:     config.Database.ProbeTimeout,
	}, logger)

	metrics, err := mqtbridge.NewMetrics(ctr.GetRegistry())
	if err != nil {
		return err
	}

	bridge := mqtbridge.New(config.MQTT, schema, writer, metrics, logger)
	defer func() {
		if err := bridge.Shutdown(); err != nil {
			logger.ErrorWithError(err, "Bridge teardown reported errors")
		}
	}()

	// Start health server before connecting so /health reports while paho retries
	srv := &http.Server{
		Addr:         ":" + config.Server.Port,
		Handler:      mqtbridge.NewHealthMux(bridge, writer, ctr.GetRegistry()),
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  config.Server.IdleTimeout,
	}
	go func() {
		logger.Info("Health server starting on port " + config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorWithError(err, "Health server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.ErrorWithError(err, "Health server forced to shutdown")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bridge.Start(ctx); err != nil && ctx.Err() == nil {
		logger.ErrorWithError(err, "Failed to start MQTT bridge")
		return err
	}

	logger.Info("MQTT bridge running... press Ctrl+C to stop")
	<-ctx.Done()

	logger.Info("Shutting down...")
	return nil
}
