package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	logger "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Logger"
	interfaces "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Repository/Interfaces"
)

// StatusReporter reports database health
type StatusReporter interface {
	GetHealthStatus(ctx context.Context) map[string]interface{}
}

// HealthController handles health requests
type HealthController struct {
	sensorRepo interfaces.SensorQueryRepository
	status     StatusReporter
	logger     *logger.Logger
}

// NewHealthController creates a new health controller
func NewHealthController(sensorRepo interfaces.SensorQueryRepository, status StatusReporter, logger *logger.Logger) *HealthController {
	return &HealthController{
		sensorRepo: sensorRepo,
		status:     status,
		logger:     logger,
	}
}

// RegisterRoutes registers the health routes with Gin
func (c *HealthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/_health", c.RowCount)
	router.GET("/health/live", c.HealthLive)
	router.GET("/health/ready", c.HealthReady)
}

// RowCount reports whether data_sensor is readable and how many rows it holds
func (c *HealthController) RowCount(ctx *gin.Context) {
	n, err := c.sensorRepo.Count(ctx)
	if err != nil {
		_ = ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"ok": true, "count": n})
}

func (c *HealthController) HealthLive(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func (c *HealthController) HealthReady(ctx *gin.Context) {
	status := c.status.GetHealthStatus(ctx)
	code := http.StatusOK
	if status["status"] != "ok" {
		code = http.StatusServiceUnavailable
	}
	ctx.JSON(code, status)
}
