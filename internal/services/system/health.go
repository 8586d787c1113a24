// Package system provides system-level services for monitoring and health checks.
package system

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/transport"
	"norelock.dev/listenify/gateway/internal/utils"
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

// checkTimeout bounds a single component check
const checkTimeout = 5 * time.Second

// maxConcurrentChecks bounds the probes in flight during one round
const maxConcurrentChecks = 4

// ComponentHealth represents the health of a system component.
type ComponentHealth struct {
	Name        string       `json:"name"`
	Status      HealthStatus `json:"status"`
	Critical    bool         `json:"critical"`
	Description string       `json:"description,omitempty"`
	Latency     int64        `json:"latency_ms"` // Response time in milliseconds
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
}

// Pinger is anything that can be pinged, such as the Redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is one named health probe.
type Check struct {
	Name string
	// Critical components take the whole gateway down when they fail
	Critical bool
	Probe    func(ctx context.Context) error
}

// PingCheck wraps a Pinger into a Check.
func PingCheck(name string, critical bool, p Pinger) Check {
	return Check{Name: name, Critical: critical, Probe: p.Ping}
}

// UpstreamCheck probes url through doer. Any response below 500 counts as
// up, a 429 included.
func UpstreamCheck(name, url string, doer transport.Doer) Check {
	return Check{
		Name:     name,
		Critical: true,
		Probe: func(ctx context.Context) error {
			res, err := doer.Execute(ctx, transport.Get(url, nil))
			if errors.Is(err, models.ErrRateLimited) {
				return nil
			}
			if err != nil {
				return err
			}
			if res.StatusCode >= 500 {
				return fmt.Errorf("upstream responded with status %d", res.StatusCode)
			}
			return nil
		},
	}
}

// HealthService provides health checking functionality.
type HealthService struct {
	checks         []Check
	logger         *utils.Logger
	startTime      time.Time
	version        string
	environment    string
	componentCache map[string]ComponentHealth
	cacheMutex     sync.RWMutex
	checkInterval  time.Duration
}

// HealthServiceConfig contains configuration for the health service.
type HealthServiceConfig struct {
	Version       string
	Environment   string
	CheckInterval time.Duration
}

// NewHealthService creates a new health service.
func NewHealthService(logger *utils.Logger, config HealthServiceConfig, checks ...Check) *HealthService {
	if logger == nil {
		logger = utils.GetLogger()
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = 30 * time.Second
	}

	return &HealthService{
		checks:         checks,
		logger:         logger.Named("health_service"),
		startTime:      time.Now(),
		version:        config.Version,
		environment:    config.Environment,
		componentCache: make(map[string]ComponentHealth),
		checkInterval:  config.CheckInterval,
	}
}

// Start begins periodic health checks.
func (s *HealthService) Start(ctx context.Context) {
	s.logger.Info("Starting health service", "checks", len(s.checks))

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

// CheckHealth runs the checks, at most maxConcurrentChecks at a time, and
// caches the results. A failed check never cancels the others; it is
// recorded as a down component instead.
func (s *HealthService) CheckHealth(ctx context.Context) {
	s.logger.Debug("Performing health check")

	var g errgroup.Group
	g.SetLimit(maxConcurrentChecks)
	for _, check := range s.checks {
		check := check
		g.Go(func() error {
			s.run(ctx, check)
			return nil
		})
	}
	// run records failures itself, Wait only joins the round
	_ = g.Wait()
}

// GetHealth returns the current health status of the system.
func (s *HealthService) GetHealth(_ context.Context) SystemHealth {
	s.cacheMutex.RLock()
	components := make([]ComponentHealth, 0, len(s.componentCache))
	for _, component := range s.componentCache {
		components = append(components, component)
	}
	s.cacheMutex.RUnlock()

	slices.SortFunc(components, func(a, b ComponentHealth) int {
		return strings.Compare(a.Name, b.Name)
	})

	return SystemHealth{
		Status:      overallStatus(components),
		Components:  components,
		Version:     s.version,
		Environment: s.environment,
		Uptime:      int64(time.Since(s.startTime).Seconds()),
		StartTime:   s.startTime,
		GoVersion:   runtime.Version(),
		GoRoutines:  runtime.NumGoroutine(),
	}
}

// overallStatus is down when a critical component is down and degraded when
// any other component is not up.
func overallStatus(components []ComponentHealth) HealthStatus {
	status := StatusUp
	for _, component := range components {
		switch {
		case component.Status == StatusDown && component.Critical:
			return StatusDown
		case component.Status != StatusUp:
			status = StatusDegraded
		}
	}
	return status
}

func (s *HealthService) run(ctx context.Context, check Check) {
	start := time.Now()

	probeCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	err := check.Probe(probeCtx)
	latency := time.Since(start).Milliseconds()

	status := StatusUp
	description := check.Name + " is healthy"

	if err != nil {
		status = StatusDown
		description = check.Name + " check failed: " + err.Error()
		s.logger.Error("Health check failed", err, "component", check.Name)
	}

	s.updateComponentHealth(ComponentHealth{
		Name:        check.Name,
		Status:      status,
		Critical:    check.Critical,
		Description: description,
		Latency:     latency,
		LastChecked: time.Now(),
	})
}

// updateComponentHealth updates the health status of a component in the cache.
func (s *HealthService) updateComponentHealth(component ComponentHealth) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	s.componentCache[component.Name] = component
}
