package main

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.ApiService/health"
	config "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Config"
	logger "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Logger"
	implementation "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Repository/Implementation"
)

func testRouter(t *testing.T, origins []string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	dialect, err := implementation.DialectFor(config.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, implementation.NewSQLSchemaBootstrapper(db, dialect, logger.Nop()).EnsureSchema(context.Background()))

	cfg := &config.ApiConfig{CORS: config.CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:         600,
	}}
	return NewRouter(cfg, implementation.NewSQLSensorQueryRepository(db, dialect), health.NewHealthChecker(db), logger.Nop())
}

func TestNewRouter_AllowsAnyOriginByDefault(t *testing.T) {
	router := testRouter(t, []string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/summary", nil)
	req.Header.Set("Origin", "http://127.0.0.1:5500")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
}

func TestNewRouter_RestrictsConfiguredOrigins(t *testing.T) {
	router := testRouter(t, []string{"http://localhost:5500"})

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNewRouter_ReadyChecksDatabase(t *testing.T) {
	router := testRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
