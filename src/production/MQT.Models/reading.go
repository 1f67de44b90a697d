package mqtmodels

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidPayload is returned for inbound payloads that cannot become a reading
var ErrInvalidPayload = errors.New("invalid sensor payload")

// SensorReading is the payload an ESP32 node publishes on the sensor topic.
// Missing, null or falsy fields decode as 0.
type SensorReading struct {
	Temperature Metric `json:"temperature"`
	Humidity    Metric `json:"humidity"`
	Lux         Metric `json:"lux"`
}

// Metric is a numeric reading that also accepts null, booleans and numeric strings.
type Metric float64

// UnmarshalJSON implements json.Unmarshaler
func (m *Metric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*m = 0
		return nil
	}

	switch data[0] {
	case 'n':
		*m = 0
		return nil
	case 't':
		*m = 1
		return nil
	case 'f':
		*m = 0
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*m = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("value %q is not a number", s)
		}
		return m.set(v)
	case '{', '[':
		return fmt.Errorf("value %s is not a number", data)
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return m.set(v)
}

func (m *Metric) set(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("value %v is not finite", v)
	}
	*m = Metric(v)
	return nil
}

// ParseReading decodes a raw broker payload. Anything other than a JSON object
// with numeric-compatible fields yields an error wrapping ErrInvalidPayload.
func ParseReading(payload []byte) (SensorReading, error) {
	var reading SensorReading
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return reading, fmt.Errorf("%w: not a JSON object", ErrInvalidPayload)
	}
	if err := json.Unmarshal(trimmed, &reading); err != nil {
		return SensorReading{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return reading, nil
}

// Values returns suhu, humidity and lux in table column order
func (r SensorReading) Values() (float64, float64, float64) {
	return float64(r.Temperature), float64(r.Humidity), float64(r.Lux)
}
