package interfaces

import (
	"context"

	mqtmodels "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Models"
)

// SortOrder is the timestamp ordering requested by a query
type SortOrder string

const (
	OrderAsc  SortOrder = "ASC"
	OrderDesc SortOrder = "DESC"
)

// SchemaBootstrapper prepares the sensor table before ingestion starts
type SchemaBootstrapper interface {
	EnsureSchema(ctx context.Context) error
}

// SensorWriter appends readings to the sensor table
type SensorWriter interface {
	// Save inserts one row; the timestamp is assigned by the database.
	Save(ctx context.Context, suhu, humidity, lux float64) error
	Close() error
}

// SensorQueryRepository is the read-only side used by the API service
type SensorQueryRepository interface {
	Count(ctx context.Context) (int64, error)
	Summary(ctx context.Context) (mqtmodels.SensorSummary, error)
	// DebugSummary aggregates over rows where either suhu or humidity is valid.
	DebugSummary(ctx context.Context) (mqtmodels.SensorSummary, error)

	// Recent returns the newest rows by id.
	Recent(ctx context.Context, limit int) ([]mqtmodels.SensorRow, error)
	// Feed returns rows with a timestamp ordered by it.
	Feed(ctx context.Context, limit int, order SortOrder) ([]mqtmodels.SensorRow, error)
	// TopRows returns rows whose suhu equals suhuMax or humidity equals humidMax.
	// With both nil it behaves like Feed.
	TopRows(ctx context.Context, suhuMax, humidMax *float64, limit int, order SortOrder) ([]mqtmodels.SensorRow, error)
	// MonthsWithSuhu lists "MM-YYYY" months in which suhu hit the given value,
	// ordered by the first occurrence in each month.
	MonthsWithSuhu(ctx context.Context, suhu float64) ([]string, error)
}
