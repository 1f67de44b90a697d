package implementation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	logger "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Logger"
)

// WriterOptions tunes the pre-insert connection probe
type WriterOptions struct {
	ProbeBeforeWrite bool
	ProbeTimeout     time.Duration
}

// SQLSensorWriter appends readings to data_sensor. It owns the *sql.DB and
// closes it in Close.
type SQLSensorWriter struct {
	db      *sql.DB
	dialect Dialect
	opts    WriterOptions
	logger  *logger.Logger
}

func NewSQLSensorWriter(db *sql.DB, dialect Dialect, opts WriterOptions, log *logger.Logger) *SQLSensorWriter {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 2 * time.Second
	}
	return &SQLSensorWriter{db: db, dialect: dialect, opts: opts, logger: log.WithComponent("writer")}
}

// Save inserts one reading. A failed probe is not an error in itself; the
// insert that follows decides.
func (w *SQLSensorWriter) Save(ctx context.Context, suhu, humidity, lux float64) error {
	if w.opts.ProbeBeforeWrite {
		w.probe(ctx)
	}

	if _, err := w.db.ExecContext(ctx, w.dialect.insertRow, suhu, humidity, lux); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", SensorTable, err)
	}
	return nil
}

// probe makes a single ping so the pool can replace a dead connection
func (w *SQLSensorWriter) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, w.opts.ProbeTimeout)
	defer cancel()
	if err := w.db.PingContext(pctx); err != nil {
		w.logger.Logger.Debug().Err(err).Msg("Database probe failed before insert")
	}
}

// Ping reports database reachability for health checks
func (w *SQLSensorWriter) Ping(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

func (w *SQLSensorWriter) Close() error {
	return w.db.Close()
}
