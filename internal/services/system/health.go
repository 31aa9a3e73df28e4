// Package system provides system-level services for monitoring.
package system

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"norelock.dev/mediagrab/backend/internal/utils"
)

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	// StatusUp indicates the component is healthy.
	StatusUp HealthStatus = "up"
	// StatusDown indicates the component is unhealthy.
	StatusDown HealthStatus = "down"
	// StatusDegraded indicates the component is functioning but with issues.
	StatusDegraded HealthStatus = "degraded"
)

// ComponentHealth represents the health of a system component.
type ComponentHealth struct {
	Name        string       `json:"name"`
	Status      HealthStatus `json:"status"`
	Description string       `json:"description,omitempty"`
	Latency     int64        `json:"latency_ms,omitempty"` // Response time in milliseconds
	LastChecked time.Time    `json:"last_checked"`
}

// SystemHealth represents the overall health of the system.
type SystemHealth struct {
	Status      HealthStatus      `json:"status"`
	Components  []ComponentHealth `json:"components"`
	Version     string            `json:"version"`
	Environment string            `json:"environment"`
	Uptime      int64             `json:"uptime_seconds"`
	StartTime   time.Time         `json:"start_time"`
	GoVersion   string            `json:"go_version"`
	GoRoutines  int               `json:"go_routines"`
	MemStats    MemoryStats       `json:"memory_stats"`
}

// MemoryStats represents memory usage statistics.
type MemoryStats struct {
	Alloc     uint64 `json:"alloc_bytes"`      // Bytes allocated and still in use
	Sys       uint64 `json:"sys_bytes"`        // Bytes obtained from system
	NumGC     uint32 `json:"num_gc"`           // Number of completed GC cycles
	HeapAlloc uint64 `json:"heap_alloc_bytes"` // Bytes allocated and still in use
}

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService provides health checking functionality.
type HealthService struct {
	components     map[string]Pinger
	logger         *utils.Logger
	startTime      time.Time
	version        string
	environment    string
	componentCache map[string]ComponentHealth
	cacheMutex     sync.RWMutex
	checkInterval  time.Duration
	pingTimeout    time.Duration
}

// HealthServiceConfig contains configuration for the health service.
type HealthServiceConfig struct {
	Version     string
	Environment string
}

// NewHealthService creates a new health service.
// Components may be empty when the service runs without Redis.
func NewHealthService(components map[string]Pinger, logger *utils.Logger, config HealthServiceConfig) *HealthService {
	if components == nil {
		components = map[string]Pinger{}
	}
	return &HealthService{
		components:     components,
		logger:         logger.Named("health_service"),
		startTime:      time.Now(),
		version:        config.Version,
		environment:    config.Environment,
		componentCache: make(map[string]ComponentHealth),
		checkInterval:  30 * time.Second, // Check components every 30 seconds
		pingTimeout:    5 * time.Second,
	}
}

// Start begins periodic health checks.
func (s *HealthService) Start(ctx context.Context) {
	s.logger.Info("Starting health service", "components", len(s.components))

	// Perform initial health check
	s.CheckHealth(ctx)

	go func() {
		ticker := time.NewTicker(s.checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Stopping health service")
				return
			case <-ticker.C:
				s.CheckHealth(ctx)
			}
		}
	}()
}

// CheckHealth pings every component and caches the result.
func (s *HealthService) CheckHealth(ctx context.Context) {
	s.logger.Debug("Performing health check")

	for name, component := range s.components {
		s.checkComponent(ctx, name, component)
	}
}

// GetHealth returns the current health status of the system.
func (s *HealthService) GetHealth(_ context.Context) SystemHealth {
	s.cacheMutex.RLock()
	components := make([]ComponentHealth, 0, len(s.componentCache))
	for _, component := range s.componentCache {
		components = append(components, component)
	}
	s.cacheMutex.RUnlock()

	sort.Slice(components, func(i, j int) bool {
		return components[i].Name < components[j].Name
	})

	// Determine overall status
	status := StatusUp
	for _, component := range components {
		if component.Status == StatusDown {
			status = StatusDown
			break
		} else if component.Status == StatusDegraded {
			status = StatusDegraded
		}
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return SystemHealth{
		Status:      status,
		Components:  components,
		Version:     s.version,
		Environment: s.environment,
		Uptime:      int64(time.Since(s.startTime).Seconds()),
		StartTime:   s.startTime,
		GoVersion:   runtime.Version(),
		GoRoutines:  runtime.NumGoroutine(),
		MemStats: MemoryStats{
			Alloc:     memStats.Alloc,
			Sys:       memStats.Sys,
			NumGC:     memStats.NumGC,
			HeapAlloc: memStats.HeapAlloc,
		},
	}
}

// checkComponent pings one component under the ping timeout.
func (s *HealthService) checkComponent(ctx context.Context, name string, component Pinger) {
	start := time.Now()

	pingCtx, cancel := context.WithTimeout(ctx, s.pingTimeout)
	defer cancel()

	err := component.Ping(pingCtx)
	latency := time.Since(start).Milliseconds()

	status := StatusUp
	description := name + " connection is healthy"

	if err != nil {
		status = StatusDown
		description = "Failed to reach " + name + ": " + err.Error()
		s.logger.Error("Health check failed", err, "component", name)
	}

	s.updateComponentHealth(name, status, description, latency)
}

// updateComponentHealth updates the health status of a component in the cache.
func (s *HealthService) updateComponentHealth(name string, status HealthStatus, description string, latency int64) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	s.componentCache[name] = ComponentHealth{
		Name:        name,
		Status:      status,
		Description: description,
		Latency:     latency,
		LastChecked: time.Now(),
	}
}
