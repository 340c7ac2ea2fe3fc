package gin

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus represents the status of a health check.
type HealthStatus string

const (
	// HealthStatusHealthy indicates the service is healthy.
	HealthStatusHealthy HealthStatus = "healthy"
	// HealthStatusDegraded indicates the service is degraded but functional.
	HealthStatusDegraded HealthStatus = "degraded"
	// HealthStatusUnhealthy indicates the service is unhealthy.
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResponse is the health check response format.
type HealthResponse struct {
	Status  HealthStatus           `json:"status"`
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Uptime  string                 `json:"uptime,omitempty"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult represents the result of an individual health check.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// HealthChecker performs a health check and returns the result.
type HealthChecker func() CheckResult

// RegisterHealthRoutes adds GET and HEAD /health. The overall status is the
// worst status reported by any check.
func RegisterHealthRoutes(router *gin.Engine, cfg *Config, checks map[string]HealthChecker) {
	started := time.Now()

	router.GET("/health", func(c *gin.Context) {
		response := HealthResponse{
			Status:  HealthStatusHealthy,
			Service: cfg.ServiceName,
			Version: cfg.ServiceVersion,
			Uptime:  formatUptime(time.Since(started)),
		}

		if len(checks) > 0 {
			response.Checks = make(map[string]CheckResult, len(checks))
			for name, checker := range checks {
				result := checker()
				response.Checks[name] = result
				response.Status = worse(response.Status, result.Status)
			}
		}

		statusCode := http.StatusOK
		if response.Status == HealthStatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, response)
	})
	router.HEAD("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
}

func worse(a, b HealthStatus) HealthStatus {
	rank := map[HealthStatus]int{HealthStatusHealthy: 0, HealthStatusDegraded: 1, HealthStatusUnhealthy: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func formatUptime(d time.Duration) string {
	const hoursPerDay = 24

	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// PingChecker wraps a ping function. Failures report failStatus so optional
// dependencies can degrade instead of failing the whole service.
func PingChecker(name string, failStatus HealthStatus, ping func() error) HealthChecker {
	return func() CheckResult {
		start := time.Now()
		err := ping()
		latency := time.Since(start).String()

		if err != nil {
			return CheckResult{
				Status:  failStatus,
				Message: fmt.Sprintf("%s check failed: %v", name, err),
				Latency: latency,
			}
		}
		return CheckResult{Status: HealthStatusHealthy, Message: name + " OK", Latency: latency}
	}
}
