package server

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mpdriver/mpdriver/pkg/logger"
)

const healthCheckTimeout = 2 * time.Second

// HealthChecker is a dependency that can report its own health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CreateHealthHandler reports 200 when every dependency answers and 503
// otherwise.
func CreateHealthHandler(checks map[string]HealthChecker, version string) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		healthy := true
		components := gin.H{}
		for _, name := range names {
			if err := checks[name].HealthCheck(ctx); err != nil {
				logger.FromContext(ctx).Warn("Health check failed", "component", name, "error", err)
				components[name] = gin.H{"healthy": false, "error": err.Error()}
				healthy = false
				continue
			}
			components[name] = gin.H{"healthy": true}
		}
		status := "healthy"
		code := http.StatusOK
		if !healthy {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":     status,
			"version":    version,
			"components": components,
		})
	}
}
