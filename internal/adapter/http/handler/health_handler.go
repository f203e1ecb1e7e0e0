package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"nfc-wallet/internal/core/ports"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 3 * time.Second

type dependencyStatus struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// HealthCheck handles GET /health. Dependencies are pinged in parallel and
// any failure turns the whole report into 503 degraded.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		var (
			mu      sync.Mutex
			wg      sync.WaitGroup
			deps    = make(map[string]dependencyStatus, len(checkers))
			healthy = true
		)
		for _, checker := range checkers {
			wg.Add(1)
			go func(checker ports.HealthChecker) {
				defer wg.Done()
				start := time.Now()
				err := checker.Ping(ctx)
				st := dependencyStatus{Status: "healthy", LatencyMs: time.Since(start).Milliseconds()}
				if err != nil {
					st.Status, st.Error = "unhealthy", err.Error()
				}

				mu.Lock()
				defer mu.Unlock()
				deps[checker.Name()] = st
				if err != nil {
					healthy = false
				}
			}(checker)
		}
		wg.Wait()

		status, code := "healthy", http.StatusOK
		if !healthy {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
