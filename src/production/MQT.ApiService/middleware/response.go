package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	logger "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Logger"
)

// NoCache marks every response as uncacheable; dashboards poll these endpoints
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}

// ErrorHandler renders errors attached with c.Error as {"ok": false, "error": msg}
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		log.Logger.Error().Err(err).Str("method", c.Request.Method).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, ErrorBody(err))
	}
}

// Recovery turns a panic into the same JSON error body
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		err := fmt.Errorf("%v", recovered)
		log.Logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody(err))
	})
}

// ErrorBody is the JSON shape of a failed request
func ErrorBody(err error) gin.H {
	return gin.H{"ok": false, "error": err.Error()}
}
