package container

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.ApiService/health"
	config "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Config"
	logger "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Logger"
	implementation "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Repository/Implementation"
)

const connectTimeout = 20 * time.Second

// Container manages the dependencies shared by both services
type Container struct {
	dbConfig *config.DatabaseConfig
	logger   *logger.Logger
	db       *sql.DB

	healthChecker *health.HealthChecker

	// Mutex for thread-safe access
	mu sync.RWMutex

	// Cleanup functions
	cleanupFuncs []func() error
}

// BridgeContainer manages dependencies for the MQTT bridge service
type BridgeContainer struct {
	*Container
	config   *config.BridgeConfig
	registry *prometheus.Registry
}

// ApiContainer manages dependencies for the API service
type ApiContainer struct {
	*Container
	config *config.ApiConfig
}

func newContainer(dbCfg *config.DatabaseConfig, logCfg *config.LoggingConfig, service string) *Container {
	return &Container{
		dbConfig: dbCfg,
		logger:   logger.NewLogger(logCfg).WithService(service),
	}
}

// NewBridgeContainer creates a new container for the bridge service
func NewBridgeContainer() (*BridgeContainer, error) {
	cfg, err := config.LoadBridgeConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load bridge configuration: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &BridgeContainer{
		Container: newContainer(&cfg.Database, &cfg.Logging, "bridge"),
		config:    cfg,
		registry:  registry,
	}, nil
}

// NewApiContainer creates a new container for the API service
func NewApiContainer() (*ApiContainer, error) {
	cfg, err := config.LoadApiConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load API configuration: %w", err)
	}

	return &ApiContainer{
		Container: newContainer(&cfg.Database, &cfg.Logging, "api"),
		config:    cfg,
	}, nil
}

// GetConfig returns the bridge configuration
func (c *BridgeContainer) GetConfig() *config.BridgeConfig {
	return c.config
}

// GetRegistry returns the registry behind the bridge /metrics endpoint
func (c *BridgeContainer) GetRegistry() *prometheus.Registry {
	return c.registry
}

// GetConfig returns the API configuration
func (c *ApiContainer) GetConfig() *config.ApiConfig {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.logger
}

// GetDatabase returns the database connection, opening it on first use
func (c *Container) GetDatabase() (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		db, err := health.ConnectDatabaseWithTimeout(c.dbConfig, connectTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		c.db = db
	}

	return c.db, nil
}

// GetDialect returns the SQL dialect for the configured driver
func (c *Container) GetDialect() (implementation.Dialect, error) {
	return implementation.DialectFor(c.dbConfig.Driver)
}

// GetHealthChecker returns the health checker
func (c *Container) GetHealthChecker() (*health.HealthChecker, error) {
	c.mu.RLock()
	if c.healthChecker != nil {
		c.mu.RUnlock()
		return c.healthChecker, nil
	}
	c.mu.RUnlock()

	// Get database without holding the lock to avoid deadlock
	db, err := c.GetDatabase()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for health checker: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.healthChecker == nil {
		c.healthChecker = health.NewHealthChecker(db)
	}

	return c.healthChecker, nil
}

// HealthCheck performs a database health check
func (c *Container) HealthCheck(ctx context.Context) map[string]interface{} {
	healthChecker, err := c.GetHealthChecker()
	if err != nil {
		return map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	return healthChecker.GetHealthStatus(ctx)
}

// Shutdown runs cleanup functions in reverse order, then closes the database.
// Closing a database the bridge writer already closed is a no-op.
func (c *Container) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down container...")

	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	db := c.db
	c.mu.Unlock()

	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](); err != nil {
			c.logger.ErrorWithError(err, "Error during cleanup")
		}
	}

	if db != nil {
		if err := db.Close(); err != nil {
			c.logger.ErrorWithError(err, "Error closing database connection")
		}
	}

	c.logger.Info("Container shutdown complete")
	return nil
}

// AddCleanupFunc adds a cleanup function
func (c *Container) AddCleanupFunc(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
