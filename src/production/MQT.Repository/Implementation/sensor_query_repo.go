package implementation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	mqtmodels "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Models"
	interfaces "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Repository/Interfaces"
)

// SQLSensorQueryRepository runs the read-only projections over data_sensor.
// Aggregates skip NULL and non-positive values, which the bridge writes for
// absent fields.
type SQLSensorQueryRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLSensorQueryRepository(db *sql.DB, dialect Dialect) *SQLSensorQueryRepository {
	return &SQLSensorQueryRepository{db: db, dialect: dialect}
}

const rowColumns = `id, suhu, humidity, lux, {ts}`

func (r *SQLSensorQueryRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM data_sensor").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}

func (r *SQLSensorQueryRepository) Summary(ctx context.Context) (mqtmodels.SensorSummary, error) {
	var summary mqtmodels.SensorSummary
	var suhuMax, suhuMin, suhuAvg, humidMax sql.NullFloat64

	err := r.db.QueryRowContext(ctx, `
		SELECT MAX(suhu), MIN(suhu), AVG(suhu)
		FROM data_sensor
		WHERE suhu IS NOT NULL AND suhu > 0`).Scan(&suhuMax, &suhuMin, &suhuAvg)
	if err != nil {
		return summary, fmt.Errorf("failed to aggregate suhu: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT MAX(humidity)
		FROM data_sensor
		WHERE humidity IS NOT NULL AND humidity > 0`).Scan(&humidMax)
	if err != nil {
		return summary, fmt.Errorf("failed to aggregate humidity: %w", err)
	}

	summary.SuhuMax = nullableFloat(suhuMax)
	summary.SuhuMin = nullableFloat(suhuMin)
	summary.SuhuAvg = nullableFloat(suhuAvg)
	summary.HumidMax = nullableFloat(humidMax)
	return summary, nil
}

func (r *SQLSensorQueryRepository) DebugSummary(ctx context.Context) (mqtmodels.SensorSummary, error) {
	var suhuMax, suhuMin, suhuAvg, humidMax sql.NullFloat64

	err := r.db.QueryRowContext(ctx, `
		SELECT MAX(suhu), MIN(suhu), AVG(suhu), MAX(humidity)
		FROM data_sensor
		WHERE (suhu IS NOT NULL AND suhu > 0) OR (humidity IS NOT NULL AND humidity > 0)`).
		Scan(&suhuMax, &suhuMin, &suhuAvg, &humidMax)
	if err != nil {
		return mqtmodels.SensorSummary{}, fmt.Errorf("failed to aggregate debug summary: %w", err)
	}

	return mqtmodels.SensorSummary{
		SuhuMax:  nullableFloat(suhuMax),
		SuhuMin:  nullableFloat(suhuMin),
		SuhuAvg:  nullableFloat(suhuAvg),
		HumidMax: nullableFloat(humidMax),
	}, nil
}

func (r *SQLSensorQueryRepository) Recent(ctx context.Context, limit int) ([]mqtmodels.SensorRow, error) {
	query := r.dialect.Bind(`SELECT ` + rowColumns + ` FROM data_sensor ORDER BY id DESC LIMIT ?`)
	return r.queryRows(ctx, query, limit)
}

func (r *SQLSensorQueryRepository) Feed(ctx context.Context, limit int, order interfaces.SortOrder) ([]mqtmodels.SensorRow, error) {
	query := r.dialect.Bind(fmt.Sprintf(`
		SELECT `+rowColumns+`
		FROM data_sensor
		WHERE {ts} IS NOT NULL
		ORDER BY {ts} %s, id %s
		LIMIT ?`, sqlOrder(order), sqlOrder(order)))
	return r.queryRows(ctx, query, limit)
}

func (r *SQLSensorQueryRepository) TopRows(ctx context.Context, suhuMax, humidMax *float64, limit int, order interfaces.SortOrder) ([]mqtmodels.SensorRow, error) {
	var conds []string
	var args []interface{}
	if suhuMax != nil {
		conds = append(conds, "suhu = ?")
		args = append(args, *suhuMax)
	}
	if humidMax != nil {
		conds = append(conds, "humidity = ?")
		args = append(args, *humidMax)
	}
	if len(conds) == 0 {
		return r.Feed(ctx, limit, order)
	}
	args = append(args, limit)

	query := r.dialect.Bind(fmt.Sprintf(`
		SELECT `+rowColumns+`
		FROM data_sensor
		WHERE (%s) AND {ts} IS NOT NULL
		ORDER BY {ts} %s, id %s
		LIMIT ?`, strings.Join(conds, " OR "), sqlOrder(order), sqlOrder(order)))
	return r.queryRows(ctx, query, args...)
}

func (r *SQLSensorQueryRepository) MonthsWithSuhu(ctx context.Context, suhu float64) ([]string, error) {
	query := r.dialect.Bind(`
		SELECT {ts}
		FROM data_sensor
		WHERE {ts} IS NOT NULL AND suhu = ?
		ORDER BY {ts} ASC`)

	rows, err := r.db.QueryContext(ctx, query, suhu)
	if err != nil {
		return nil, fmt.Errorf("failed to query months: %w", err)
	}
	defer rows.Close()

	months := make([]string, 0)
	seen := make(map[string]struct{})
	for rows.Next() {
		var ts dbTime
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("failed to scan timestamp: %w", err)
		}
		if ts.Time == nil {
			continue
		}
		key := ts.Time.Format("01-2006")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		months = append(months, key)
	}
	return months, rows.Err()
}

func (r *SQLSensorQueryRepository) queryRows(ctx context.Context, query string, args ...interface{}) ([]mqtmodels.SensorRow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", SensorTable, err)
	}
	defer rows.Close()

	out := make([]mqtmodels.SensorRow, 0)
	for rows.Next() {
		var row mqtmodels.SensorRow
		var suhu, humidity, lux sql.NullFloat64
		var ts dbTime
		if err := rows.Scan(&row.ID, &suhu, &humidity, &lux, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row.Suhu = nullableFloat(suhu)
		row.Humidity = nullableFloat(humidity)
		row.Lux = nullableFloat(lux)
		row.Timestamp = ts.Time
		out = append(out, row)
	}
	return out, rows.Err()
}

func sqlOrder(o interfaces.SortOrder) string {
	if o == interfaces.OrderDesc {
		return "DESC"
	}
	return "ASC"
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// dbTime scans DATETIME values whichever way the driver hands them over:
// time.Time (mysql parseTime, pq, sqlite decltype) or text.
type dbTime struct {
	Time *time.Time
}

var dbTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
}

func (t *dbTime) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		t.Time = nil
		return nil
	case time.Time:
		t.Time = &v
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	}
	return fmt.Errorf("unsupported timestamp type %T", value)
}

func (t *dbTime) parse(s string) error {
	for _, layout := range dbTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = &parsed
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}
