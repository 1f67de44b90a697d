package mqtbridge

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports database reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	State     string            `json:"state"`
}

// NewHealthMux serves /health and /metrics for the bridge process
func NewHealthMux(b *Bridge, db Pinger, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		mqttStatus := "disconnected"
		if b.IsConnected() {
			mqttStatus = "connected"
		}

		dbStatus := "disconnected"
		if err := db.Ping(ctx); err == nil {
			dbStatus = "connected"
		}

		resp := HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Services: map[string]string{
				"mqtt":     mqttStatus,
				"database": dbStatus,
			},
			State: b.State().String(),
		}

		code := http.StatusOK
		if mqttStatus != "connected" || dbStatus != "connected" {
			resp.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			b.logger.WarnWithError(err, "Failed to write health response")
		}
	})
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
