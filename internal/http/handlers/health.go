package handlers

import (
	"context"
	"maps"
	"net/http"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/SINTT/TODO/internal/logger"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *pgxpool.Pool, repository.SQLitePinger and
// middleware.RedisPinger.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes for the storage
// backend and the rate limiter store.
type HealthHandler struct {
	checks  map[string]Pinger
	started time.Time
	version string
}

// NewHealthHandler - checks may be nil for the in-memory store
func NewHealthHandler(version string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		checks:  maps.Clone(checks),
		started: time.Now(),
		version: version,
	}
}

type CheckResult struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

type HealthReport struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp string                 `json:"timestamp"`
	MemoryMB  float64                `json:"memoryAllocMb,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// probe pings every dependency in parallel
func (h *HealthHandler) probe(ctx context.Context, timeout time.Duration) (map[string]CheckResult, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		healthy = true
		results = make(map[string]CheckResult, len(h.checks))
	)
	for _, name := range slices.Sorted(maps.Keys(h.checks)) {
		wg.Add(1)
		go func(name string, p Pinger) {
			defer wg.Done()
			start := time.Now()
			err := p.Ping(ctx)

			res := CheckResult{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				res.Status = "unhealthy"
				res.Error = err.Error()
				logger.WithContext(ctx).Warn("health check failed", "check", name, "error", err)
			}

			mu.Lock()
			results[name] = res
			if err != nil {
				healthy = false
			}
			mu.Unlock()
		}(name, h.checks[name])
	}
	wg.Wait()
	return results, healthy
}

// Liveness only says the process is up (k8s liveness probe)
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness reports every dependency with latency (k8s readiness probe)
func (h *HealthHandler) Readiness(c *gin.Context) {
	results, healthy := h.probe(c.Request.Context(), 5*time.Second)

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	report := HealthReport{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		MemoryMB:  float64(m.Alloc/1024) / 1024,
		Checks:    results,
	}
	status := http.StatusOK
	if !healthy {
		report.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

// Health is the short form used by the load balancer
func (h *HealthHandler) Health(c *gin.Context) {
	results, healthy := h.probe(c.Request.Context(), 3*time.Second)
	if !healthy {
		var failed []string
		for name, res := range results {
			if res.Status != "healthy" {
				failed = append(failed, name)
			}
		}
		slices.Sort(failed)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}
