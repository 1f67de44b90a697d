package mqtmodels

import "time"

// TimestampLayout is the wire format used by the query API for row timestamps
const TimestampLayout = "2006-01-02 15:04:05"

// SensorRow is one persisted row of data_sensor. Columns are nullable in the
// schema, so every value is a pointer.
type SensorRow struct {
	ID        int64
	Suhu      *float64
	Humidity  *float64
	Lux       *float64
	Timestamp *time.Time
}

// SensorRowView is the projection the dashboard consumes
type SensorRowView struct {
	Idx       int64    `json:"idx"`
	Suhun     *float64 `json:"suhun"`
	Humid     *float64 `json:"humid"`
	Kecerahan *float64 `json:"kecerahan"`
	Timestamp *string  `json:"timestamp"`
}

// View projects the row into its dashboard representation
func (r SensorRow) View() SensorRowView {
	v := SensorRowView{
		Idx:       r.ID,
		Suhun:     r.Suhu,
		Humid:     r.Humidity,
		Kecerahan: r.Lux,
	}
	if r.Timestamp != nil {
		ts := r.Timestamp.Format(TimestampLayout)
		v.Timestamp = &ts
	}
	return v
}

// SensorDebugRow is the raw column view served by the debug endpoint
type SensorDebugRow struct {
	ID       int64    `json:"id"`
	Suhu     *float64 `json:"suhu"`
	Humidity *float64 `json:"humidity"`
	Lux      *float64 `json:"lux"`
	TS       *string  `json:"ts"`
}

func (r SensorRow) DebugView() SensorDebugRow {
	v := SensorDebugRow{ID: r.ID, Suhu: r.Suhu, Humidity: r.Humidity, Lux: r.Lux}
	if r.Timestamp != nil {
		ts := r.Timestamp.Format(TimestampLayout)
		v.TS = &ts
	}
	return v
}

// Views projects a slice of rows, never returning nil
func Views(rows []SensorRow) []SensorRowView {
	out := make([]SensorRowView, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.View())
	}
	return out
}

// SensorSummary holds the aggregates over valid (> 0) readings. A nil field
// means the table holds no valid value for that column.
type SensorSummary struct {
	SuhuMax  *float64
	SuhuMin  *float64
	SuhuAvg  *float64
	HumidMax *float64
}
