package resilience

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "HEALTHY"
	HealthStatusDegraded  HealthStatus = "DEGRADED"
	HealthStatusUnhealthy HealthStatus = "UNHEALTHY"
)

// ComponentHealth represents the health of a single component.
type ComponentHealth struct {
	Name      string        `json:"name"`
	Status    HealthStatus  `json:"status"`
	Message   string        `json:"message"`
	LastCheck time.Time     `json:"last_check"`
	Latency   time.Duration `json:"latency"`
}

// HealthCheck represents a health check function.
type HealthCheck func(ctx context.Context) ComponentHealth

// SystemHealth is the result of one round of checks.
type SystemHealth struct {
	Status     HealthStatus      `json:"status"`
	Components []ComponentHealth `json:"components"`
}

// Checker runs registered health checks on demand.
type Checker struct {
	mu         sync.Mutex
	components map[string]HealthCheck
	timeout    time.Duration
}

// NewChecker creates a checker whose round of checks is bounded by timeout.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Checker{components: make(map[string]HealthCheck), timeout: timeout}
}

// Register adds or replaces a component check.
func (c *Checker) Register(name string, check HealthCheck) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components[name] = check
}

// Run executes every check concurrently. The overall status is the worst
// component status; no components is healthy.
func (c *Checker) Run(ctx context.Context) SystemHealth {
	c.mu.Lock()
	components := make(map[string]HealthCheck, len(c.components))
	for k, v := range c.components {
		components[k] = v
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var wg sync.WaitGroup
	results := make(chan ComponentHealth, len(components))
	for name, check := range components {
		wg.Add(1)
		go func(n string, check HealthCheck) {
			defer wg.Done()
			start := time.Now()
			health := check(ctx)
			health.Name = n
			health.LastCheck = time.Now()
			if health.Latency == 0 {
				health.Latency = time.Since(start)
			}
			results <- health
		}(name, check)
	}
	wg.Wait()
	close(results)

	out := SystemHealth{Status: HealthStatusHealthy}
	for h := range results {
		out.Components = append(out.Components, h)
		switch h.Status {
		case HealthStatusUnhealthy:
			out.Status = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if out.Status == HealthStatusHealthy {
				out.Status = HealthStatusDegraded
			}
		}
	}
	sort.Slice(out.Components, func(i, j int) bool {
		return out.Components[i].Name < out.Components[j].Name
	})
	return out
}

// PingHealthCheck checks a dependency by pinging it. Replies slower than
// slow are reported as degraded.
func PingHealthCheck(ping func(ctx context.Context) error, slow time.Duration) HealthCheck {
	return func(ctx context.Context) ComponentHealth {
		start := time.Now()
		err := ping(ctx)
		health := ComponentHealth{Latency: time.Since(start)}

		switch {
		case err != nil:
			health.Status = HealthStatusUnhealthy
			health.Message = fmt.Sprintf("ping failed: %v", err)
		case health.Latency > slow:
			health.Status = HealthStatusDegraded
			health.Message = fmt.Sprintf("slow: %v", health.Latency)
		default:
			health.Status = HealthStatusHealthy
			health.Message = "ok"
		}
		return health
	}
}

// BreakerHealthCheck reports an open breaker as degraded: callers still get
// an answer from the fallback path.
func BreakerHealthCheck(b *Breaker) HealthCheck {
	return func(ctx context.Context) ComponentHealth {
		health := ComponentHealth{Status: HealthStatusHealthy, Message: string(b.State())}
		if b.State() != StateClosed {
			health.Status = HealthStatusDegraded
			health.Message = fmt.Sprintf("circuit %s", b.State())
		}
		return health
	}
}
