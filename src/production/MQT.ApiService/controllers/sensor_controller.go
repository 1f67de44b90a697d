package controllers

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	logger "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Logger"
	mqtmodels "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Models"
	interfaces "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Repository/Interfaces"
)

const (
	topRowsDefaultLimit = 10
	topRowsMaxLimit     = 100
	feedDefaultLimit    = 20
	feedMaxLimit        = 200
	debugSampleSize     = 5
)

// SensorController serves the read-only data_sensor projections
type SensorController struct {
	sensorRepo interfaces.SensorQueryRepository
	logger     *logger.Logger
}

// NewSensorController creates a new sensor controller
func NewSensorController(sensorRepo interfaces.SensorQueryRepository, logger *logger.Logger) *SensorController {
	return &SensorController{
		sensorRepo: sensorRepo,
		logger:     logger,
	}
}

// RegisterRoutes registers the sensor routes with Gin
func (c *SensorController) RegisterRoutes(router *gin.Engine) {
	router.GET("/summary", c.GetSummary)
	router.GET("/data_sensor", c.GetTopRows)
	router.GET("/feed", c.GetFeed)
	router.GET("/_debug", c.GetDebug)
}

// GetSummary returns suhu max/min/avg and humidity max, rounded to 2 decimals
func (c *SensorController) GetSummary(ctx *gin.Context) {
	s, err := c.sensorRepo.Summary(ctx)
	if err != nil {
		_ = ctx.Error(err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"suhumax":  round2(s.SuhuMax),
		"suhumin":  round2(s.SuhuMin),
		"suhurata": round2(s.SuhuAvg),
		"humidmax": round2(s.HumidMax),
	})
}

// GetTopRows returns the summary plus the rows that hit the suhu or
// humidity maximum, and the months in which suhu peaked.
func (c *SensorController) GetTopRows(ctx *gin.Context) {
	limit := parseLimit(ctx.Query("limit"), topRowsDefaultLimit, topRowsMaxLimit)
	order := parseOrder(ctx.DefaultQuery("order", "asc"))

	s, err := c.sensorRepo.Summary(ctx)
	if err != nil {
		_ = ctx.Error(err)
		return
	}

	rows, err := c.sensorRepo.TopRows(ctx, s.SuhuMax, s.HumidMax, limit, order)
	if err != nil {
		_ = ctx.Error(err)
		return
	}

	months := make([]string, 0)
	if s.SuhuMax != nil {
		months, err = c.sensorRepo.MonthsWithSuhu(ctx, *s.SuhuMax)
		if err != nil {
			_ = ctx.Error(err)
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"suhumax":                  round2(s.SuhuMax),
		"suhumin":                  round2(s.SuhuMin),
		"suhurata":                 round2(s.SuhuAvg),
		"nilai_suhu_max_humid_max": mqtmodels.Views(rows),
		"month_year_max":           months,
	})
}

// GetFeed returns the newest rows with a timestamp, newest first by default
func (c *SensorController) GetFeed(ctx *gin.Context) {
	limit := parseLimit(ctx.Query("limit"), feedDefaultLimit, feedMaxLimit)
	order := parseOrder(ctx.DefaultQuery("order", "desc"))

	rows, err := c.sensorRepo.Feed(ctx, limit, order)
	if err != nil {
		_ = ctx.Error(err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"rows":  mqtmodels.Views(rows),
		"limit": limit,
		"order": string(order),
	})
}

// GetDebug returns the last few rows and unrounded aggregates. suhummin is
// kept next to suhumin for dashboards built against the old key.
func (c *SensorController) GetDebug(ctx *gin.Context) {
	rows, err := c.sensorRepo.Recent(ctx, debugSampleSize)
	if err != nil {
		_ = ctx.Error(err)
		return
	}

	agg, err := c.sensorRepo.DebugSummary(ctx)
	if err != nil {
		_ = ctx.Error(err)
		return
	}

	sample := make([]mqtmodels.SensorDebugRow, 0, len(rows))
	for _, r := range rows {
		sample = append(sample, r.DebugView())
	}

	ctx.JSON(http.StatusOK, gin.H{
		"sample": sample,
		"agg": gin.H{
			"suhumax":   agg.SuhuMax,
			"suhumin":   agg.SuhuMin,
			"suhummin":  agg.SuhuMin,
			"suhurata":  agg.SuhuAvg,
			"max_humid": agg.HumidMax,
		},
	})
}

// parseLimit clamps to [1, upper]; a missing or non-integer value gives def
func parseLimit(raw string, def, upper int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	if n < 1 {
		return 1
	}
	if n > upper {
		return upper
	}
	return n
}

// parseOrder maps "asc" (any case) to ascending and everything else to descending
func parseOrder(raw string) interfaces.SortOrder {
	if strings.EqualFold(strings.TrimSpace(raw), "asc") {
		return interfaces.OrderAsc
	}
	return interfaces.OrderDesc
}

func round2(v *float64) float64 {
	if v == nil {
		return 0.0
	}
	return math.Round(*v*100) / 100
}
