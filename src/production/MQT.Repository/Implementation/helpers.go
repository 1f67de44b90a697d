package implementation

import (
	interfaces "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Repository/Interfaces"
)

// Schema (DDL, CREATE only)
// ├── EnsureSchema() - table, then idx_ts if missing
// └── createIndex() - duplicate index counts as success

// Sensor Writer (append only)
// ├── Save() - optional probe, then one INSERT with server NOW()
// ├── Ping() - reachability for /health
// └── Close() - releases the pool

// Sensor Query Repository (read only)
// ├── Count() - total rows
// ├── Summary() - suhu max/min/avg, humidity max, positives only
// ├── DebugSummary() - same aggregates in one pass
// ├── Recent() - newest rows by id
// ├── Feed() - rows with a timestamp, ordered by it
// ├── TopRows() - rows matching the suhu or humidity maximum
// └── MonthsWithSuhu() - distinct MM-YYYY for a suhu value

var (
	_ interfaces.SchemaBootstrapper    = (*SQLSchemaBootstrapper)(nil)
	_ interfaces.SensorWriter          = (*SQLSensorWriter)(nil)
	_ interfaces.SensorQueryRepository = (*SQLSensorQueryRepository)(nil)
)
