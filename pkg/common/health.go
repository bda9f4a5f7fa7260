package common

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Health statuses reported by the probe endpoints.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthResponse is the body of every probe endpoint
type HealthResponse struct {
	Status  string                 `json:"status"`
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one dependency check
type CheckResult struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthCheck reports liveness only.
func HealthCheck(serviceName, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{Status: StatusHealthy, Service: serviceName, Version: version})
	}
}

// ReadinessCheck runs checks concurrently and answers 503 if any fails.
// Use it for dependencies the service cannot serve traffic without.
func ReadinessCheck(serviceName, version string, checks map[string]func() error) gin.HandlerFunc {
	return probe(serviceName, version, checks, StatusUnhealthy, http.StatusServiceUnavailable)
}

// DependencyReport runs checks concurrently and always answers 200, marking
// the service degraded when one fails. Use it for dependencies the service
// keeps running without.
func DependencyReport(serviceName, version string, checks map[string]func() error) gin.HandlerFunc {
	return probe(serviceName, version, checks, StatusDegraded, http.StatusOK)
}

func probe(serviceName, version string, checks map[string]func() error, failedStatus string, failedCode int) gin.HandlerFunc {
	return func(c *gin.Context) {
		results := runChecks(checks)

		status, code := StatusHealthy, http.StatusOK
		for _, r := range results {
			if r.Status != StatusHealthy {
				status, code = failedStatus, failedCode
				break
			}
		}

		c.JSON(code, HealthResponse{Status: status, Service: serviceName, Version: version, Checks: results})
	}
}

func runChecks(checks map[string]func() error) map[string]CheckResult {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]CheckResult, len(checks))
	)
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check func() error) {
			defer wg.Done()
			start := time.Now()
			err := check()
			r := CheckResult{Status: StatusHealthy, LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				r.Status = StatusUnhealthy
				r.Error = err.Error()
			}
			mu.Lock()
			results[name] = r
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()
	return results
}
