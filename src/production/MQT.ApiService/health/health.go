package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	config "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Config"
)

// HealthChecker provides health check functionality
type HealthChecker struct {
	db *sql.DB
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(db *sql.DB) *HealthChecker {
	return &HealthChecker{db: db}
}

// Ping checks if the database connection is alive
func (h *HealthChecker) Ping(ctx context.Context) error {
	if h.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return h.db.PingContext(ctx)
}

// CheckDatabaseHealth pings and runs a trivial query
func (h *HealthChecker) CheckDatabaseHealth(ctx context.Context) error {
	if err := h.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var result int
	if err := h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query failed: %w", err)
	}

	return nil
}

// GetHealthStatus returns the current health status
func (h *HealthChecker) GetHealthStatus(ctx context.Context) map[string]interface{} {
	checks := make(map[string]interface{})
	status := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
		"status":    "ok",
	}

	if err := h.CheckDatabaseHealth(ctx); err != nil {
		checks["database"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
		status["status"] = "degraded"
	} else {
		checks["database"] = map[string]interface{}{
			"status": "ok",
		}
	}

	return status
}

// ConnectDatabaseWithTimeout opens the configured database and pings it within timeout
func ConnectDatabaseWithTimeout(cfg *config.DatabaseConfig, timeout time.Duration) (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := sql.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to open %s connection: %w", cfg.Driver, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping %s: %w", cfg.Driver, err)
	}

	maxConns, minConns := cfg.MaxConns, cfg.MinConns
	if cfg.Driver == config.DriverSQLite && cfg.Path == ":memory:" {
		// each pooled connection would get its own empty database
		maxConns, minConns = 1, 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(minConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
