package controllers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.ApiService/middleware"
	config "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Config"
	logger "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Logger"
	implementation "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Repository/Implementation"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubStatus struct{ status string }

func (s stubStatus) GetHealthStatus(context.Context) map[string]interface{} {
	return map[string]interface{}{"status": s.status}
}

func newTestDB(t *testing.T) (*sql.DB, implementation.Dialect) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	dialect, err := implementation.DialectFor(config.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, implementation.NewSQLSchemaBootstrapper(db, dialect, logger.Nop()).EnsureSchema(context.Background()))
	return db, dialect
}

func seed(t *testing.T, db *sql.DB) {
	t.Helper()
	rows := []struct {
		ts                  interface{}
		suhu, humidity, lux float64
	}{
		{"2025-01-05 10:00:00", 35.456, 40, 1},
		{"2025-01-20 10:00:00", 35.456, 41, 2},
		{"2025-02-01 08:00:00", 22, 90, 3},
		{"2025-03-09 12:00:00", 35.456, 50, 4},
		{"2025-03-10 12:00:00", 0, 0, 5},
		{nil, 10, 10, 6},
	}
	for _, r := range rows {
		_, err := db.Exec(`INSERT INTO data_sensor (suhu, humidity, lux, "timestamp") VALUES (?, ?, ?, ?)`, r.suhu, r.humidity, r.lux, r.ts)
		require.NoError(t, err)
	}
}

func newTestRouter(db *sql.DB, dialect implementation.Dialect, status StatusReporter) *gin.Engine {
	repo := implementation.NewSQLSensorQueryRepository(db, dialect)
	router := gin.New()
	router.Use(middleware.NoCache(), middleware.ErrorHandler(logger.Nop()))
	NewSensorController(repo, logger.Nop()).RegisterRoutes(router)
	NewHealthController(repo, status, logger.Nop()).RegisterRoutes(router)
	return router
}

func get(t *testing.T, router *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func idxs(t *testing.T, v interface{}) []float64 {
	t.Helper()
	rows, ok := v.([]interface{})
	require.True(t, ok, "expected array, got %T", v)
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.(map[string]interface{})["idx"].(float64))
	}
	return out
}

func TestSummary(t *testing.T) {
	db, d := newTestDB(t)
	seed(t, db)

	rec, body := get(t, newTestRouter(db, d, stubStatus{"ok"}), "/summary")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 35.46, body["suhumax"])
	assert.Equal(t, 10.0, body["suhumin"])
	assert.Equal(t, 27.67, body["suhurata"])
	assert.Equal(t, 90.0, body["humidmax"])
	assert.Equal(t, "no-store, no-cache, must-revalidate, max-age=0", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
}

func TestSummary_EmptyTableIsZero(t *testing.T) {
	db, d := newTestDB(t)

	_, body := get(t, newTestRouter(db, d, stubStatus{"ok"}), "/summary")

	for _, key := range []string{"suhumax", "suhumin", "suhurata", "humidmax"} {
		assert.Equal(t, 0.0, body[key], key)
	}
}

func TestDataSensor(t *testing.T) {
	db, d := newTestDB(t)
	seed(t, db)
	router := newTestRouter(db, d, stubStatus{"ok"})

	rec, body := get(t, router, "/data_sensor")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 35.46, body["suhumax"])
	assert.Equal(t, []float64{1, 2, 3, 4}, idxs(t, body["nilai_suhu_max_humid_max"]))
	assert.Equal(t, []interface{}{"01-2025", "03-2025"}, body["month_year_max"])

	first := body["nilai_suhu_max_humid_max"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "2025-01-05 10:00:00", first["timestamp"])
	assert.Equal(t, 35.456, first["suhun"])
	assert.Equal(t, 40.0, first["humid"])
	assert.Equal(t, 1.0, first["kecerahan"])

	_, body = get(t, router, "/data_sensor?order=desc&limit=2")
	assert.Equal(t, []float64{4, 3}, idxs(t, body["nilai_suhu_max_humid_max"]))
}

func TestDataSensor_EmptyTable(t *testing.T) {
	db, d := newTestDB(t)

	_, body := get(t, newTestRouter(db, d, stubStatus{"ok"}), "/data_sensor")

	assert.Equal(t, []interface{}{}, body["nilai_suhu_max_humid_max"])
	assert.Equal(t, []interface{}{}, body["month_year_max"])
	assert.Equal(t, 0.0, body["suhumax"])
}

func TestFeed(t *testing.T) {
	db, d := newTestDB(t)
	seed(t, db)
	router := newTestRouter(db, d, stubStatus{"ok"})

	tests := []struct {
		path  string
		limit float64
		order string
		idx   []float64
	}{
		{"/feed", 20, "DESC", []float64{5, 4, 3, 2, 1}},
		{"/feed?order=ASC&limit=abc", 20, "ASC", []float64{1, 2, 3, 4, 5}},
		{"/feed?order=sideways", 20, "DESC", []float64{5, 4, 3, 2, 1}},
		{"/feed?limit=0", 1, "DESC", []float64{5}},
		{"/feed?limit=999&order=asc", 200, "ASC", []float64{1, 2, 3, 4, 5}},
		{"/feed?limit=2", 2, "DESC", []float64{5, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec, body := get(t, router, tt.path)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.limit, body["limit"])
			assert.Equal(t, tt.order, body["order"])
			assert.Equal(t, tt.idx, idxs(t, body["rows"]))
		})
	}
}

func TestDebug(t *testing.T) {
	db, d := newTestDB(t)
	seed(t, db)

	_, body := get(t, newTestRouter(db, d, stubStatus{"ok"}), "/_debug")

	sample := body["sample"].([]interface{})
	require.Len(t, sample, debugSampleSize)
	newest := sample[0].(map[string]interface{})
	assert.Equal(t, 6.0, newest["id"])
	assert.Nil(t, newest["ts"])
	assert.Equal(t, "2025-03-10 12:00:00", sample[1].(map[string]interface{})["ts"])

	agg := body["agg"].(map[string]interface{})
	assert.Equal(t, 35.456, agg["suhumax"])
	assert.Equal(t, 10.0, agg["suhumin"])
	assert.Equal(t, agg["suhumin"], agg["suhummin"])
	assert.Equal(t, 90.0, agg["max_humid"])
}

func TestRowCount(t *testing.T) {
	db, d := newTestDB(t)
	seed(t, db)

	_, body := get(t, newTestRouter(db, d, stubStatus{"ok"}), "/_health")

	assert.Equal(t, true, body["ok"])
	assert.Equal(t, 6.0, body["count"])
}

func TestErrorsBecomeJSON(t *testing.T) {
	db, d := newTestDB(t)
	router := newTestRouter(db, d, stubStatus{"ok"})
	require.NoError(t, db.Close())

	for _, path := range []string{"/summary", "/data_sensor", "/feed", "/_debug", "/_health"} {
		t.Run(path, func(t *testing.T) {
			rec, body := get(t, router, path)
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, false, body["ok"])
			assert.NotEmpty(t, body["error"])
			assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
		})
	}
}

func TestHealthReady(t *testing.T) {
	db, d := newTestDB(t)

	rec, _ := get(t, newTestRouter(db, d, stubStatus{"ok"}), "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := get(t, newTestRouter(db, d, stubStatus{"degraded"}), "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])

	rec, _ = get(t, newTestRouter(db, d, stubStatus{"degraded"}), "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 10, parseLimit("", 10, 100))
	assert.Equal(t, 10, parseLimit("ten", 10, 100))
	assert.Equal(t, 1, parseLimit("-4", 10, 100))
	assert.Equal(t, 100, parseLimit("1000", 10, 100))
	assert.Equal(t, 42, parseLimit(" 42 ", 10, 100))
}
