package implementation

import (
	"context"
	"database/sql"
	"fmt"

	logger "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Logger"
)

// SQLSchemaBootstrapper creates data_sensor and its timestamp index when missing.
// It only ever issues CREATE statements.
type SQLSchemaBootstrapper struct {
	db      *sql.DB
	dialect Dialect
	logger  *logger.Logger
}

func NewSQLSchemaBootstrapper(db *sql.DB, dialect Dialect, log *logger.Logger) *SQLSchemaBootstrapper {
	return &SQLSchemaBootstrapper{db: db, dialect: dialect, logger: log.WithComponent("schema")}
}

// EnsureSchema is safe to run on every startup, including from several
// instances at once.
func (b *SQLSchemaBootstrapper) EnsureSchema(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, b.dialect.createTable); err != nil {
		return fmt.Errorf("failed to create table %s: %w", SensorTable, err)
	}

	exists, err := b.indexExists(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect index %s: %w", TimestampIndex, err)
	}
	if exists {
		b.logger.Logger.Debug().Str("index", TimestampIndex).Msg("Timestamp index already present")
		return nil
	}

	if err := b.createIndex(ctx); err != nil {
		return err
	}

	b.logger.Logger.Info().Str("table", SensorTable).Str("index", TimestampIndex).Msg("Schema ready")
	return nil
}

func (b *SQLSchemaBootstrapper) indexExists(ctx context.Context) (bool, error) {
	var count int
	if err := b.db.QueryRowContext(ctx, b.dialect.indexExists, SensorTable, TimestampIndex).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// createIndex treats losing the check-then-create race as success
func (b *SQLSchemaBootstrapper) createIndex(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, b.dialect.createIndex)
	if err == nil {
		return nil
	}
	if b.dialect.IsDuplicateIndex(err) {
		b.logger.WithField("index", TimestampIndex).WithError(err).Warn("Index created concurrently, continuing")
		return nil
	}
	return fmt.Errorf("failed to create index %s: %w", TimestampIndex, err)
}
