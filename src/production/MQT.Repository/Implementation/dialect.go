package implementation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	config "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Config"
)

const (
	// SensorTable is the table shared by the bridge and the query API
	SensorTable = "data_sensor"
	// TimestampIndex is the secondary index on SensorTable.timestamp
	TimestampIndex = "idx_ts"
)

// mysqlErrDupKeyName is ER_DUP_KEYNAME
const mysqlErrDupKeyName = 1061

// pgDuplicateTable is the SQLSTATE Postgres raises for an existing relation, indexes included
const pgDuplicateTable = "42P07"

// Dialect carries the statements that differ between the supported databases.
// Shared queries are written with `?` placeholders and a {ts} marker for the
// quoted timestamp column, then rendered through Bind.
type Dialect struct {
	Driver string

	createTable string
	indexExists string
	createIndex string
	insertRow   string

	quotedTS         string
	numbered         bool
	isDuplicateIndex func(error) bool
}

// DialectFor returns the dialect for a configured driver name
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverMySQL:
		return mysqlDialect(), nil
	case config.DriverPostgres:
		return postgresDialect(), nil
	case config.DriverSQLite:
		return sqliteDialect(), nil
	}
	return Dialect{}, fmt.Errorf("no SQL dialect for driver %q", driver)
}

func mysqlDialect() Dialect {
	return Dialect{
		Driver: config.DriverMySQL,
		createTable: `
			CREATE TABLE IF NOT EXISTS data_sensor (
				id INT AUTO_INCREMENT PRIMARY KEY,
				suhu FLOAT NULL,
				humidity FLOAT NULL,
				lux FLOAT NULL,
				` + "`timestamp`" + ` DATETIME NULL
			)`,
		indexExists: `
			SELECT COUNT(1)
			FROM INFORMATION_SCHEMA.STATISTICS
			WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND INDEX_NAME = ?`,
		createIndex: "CREATE INDEX idx_ts ON data_sensor (`timestamp`)",
		insertRow:   "INSERT INTO data_sensor (suhu, humidity, lux, `timestamp`) VALUES (?, ?, ?, NOW())",
		quotedTS:    "`timestamp`",
		isDuplicateIndex: func(err error) bool {
			var myErr *mysql.MySQLError
			return errors.As(err, &myErr) && myErr.Number == mysqlErrDupKeyName
		},
	}
}

func postgresDialect() Dialect {
	return Dialect{
		Driver: config.DriverPostgres,
		createTable: `
			CREATE TABLE IF NOT EXISTS data_sensor (
				id SERIAL PRIMARY KEY,
				suhu DOUBLE PRECISION,
				humidity DOUBLE PRECISION,
				lux DOUBLE PRECISION,
				"timestamp" TIMESTAMP
			)`,
		indexExists: `
			SELECT COUNT(1)
			FROM pg_indexes
			WHERE schemaname = current_schema() AND tablename = $1 AND indexname = $2`,
		createIndex: `CREATE INDEX idx_ts ON data_sensor ("timestamp")`,
		insertRow:   `INSERT INTO data_sensor (suhu, humidity, lux, "timestamp") VALUES ($1, $2, $3, NOW())`,
		quotedTS:    `"timestamp"`,
		numbered:    true,
		isDuplicateIndex: func(err error) bool {
			var pqErr *pq.Error
			return errors.As(err, &pqErr) && string(pqErr.Code) == pgDuplicateTable
		},
	}
}

func sqliteDialect() Dialect {
	return Dialect{
		Driver: config.DriverSQLite,
		createTable: `
			CREATE TABLE IF NOT EXISTS data_sensor (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				suhu REAL,
				humidity REAL,
				lux REAL,
				"timestamp" DATETIME
			)`,
		indexExists: `
			SELECT COUNT(1)
			FROM sqlite_master
			WHERE type = 'index' AND tbl_name = ? AND name = ?`,
		createIndex: `CREATE INDEX idx_ts ON data_sensor ("timestamp")`,
		// millisecond precision keeps same-second inserts distinguishable
		insertRow: `INSERT INTO data_sensor (suhu, humidity, lux, "timestamp") VALUES (?, ?, ?, strftime('%Y-%m-%d %H:%M:%f', 'now'))`,
		quotedTS:  `"timestamp"`,
		isDuplicateIndex: func(err error) bool {
			return strings.Contains(err.Error(), "already exists")
		},
	}
}

// Bind renders a shared query for this dialect
func (d Dialect) Bind(query string) string {
	query = strings.ReplaceAll(query, "{ts}", d.quotedTS)
	if !d.numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsDuplicateIndex reports whether err means the index was created concurrently
func (d Dialect) IsDuplicateIndex(err error) bool {
	return err != nil && d.isDuplicateIndex != nil && d.isDuplicateIndex(err)
}
