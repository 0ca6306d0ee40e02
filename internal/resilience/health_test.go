package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCheckerRun(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]HealthCheck
		want   HealthStatus
	}{
		{"no components", nil, HealthStatusHealthy},
		{
			"all healthy",
			map[string]HealthCheck{
				"journal": PingHealthCheck(func(context.Context) error { return nil }, time.Second),
			},
			HealthStatusHealthy,
		},
		{
			"slow is degraded",
			map[string]HealthCheck{
				"journal": PingHealthCheck(func(context.Context) error { time.Sleep(5 * time.Millisecond); return nil }, time.Millisecond),
			},
			HealthStatusDegraded,
		},
		{
			"worst wins",
			map[string]HealthCheck{
				"journal": PingHealthCheck(func(context.Context) error { return nil }, time.Second),
				"quotes":  PingHealthCheck(func(context.Context) error { return errors.New("refused") }, time.Second),
			},
			HealthStatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(time.Second)
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			got := c.Run(context.Background())
			if got.Status != tt.want {
				t.Errorf("Status = %s, want %s (%+v)", got.Status, tt.want, got.Components)
			}
			if len(got.Components) != len(tt.checks) {
				t.Errorf("components = %d, want %d", len(got.Components), len(tt.checks))
			}
		})
	}
}

func TestCheckerSortsAndNamesComponents(t *testing.T) {
	c := NewChecker(time.Second)
	ok := PingHealthCheck(func(context.Context) error { return nil }, time.Second)
	c.Register("zeta", ok)
	c.Register("alpha", ok)

	got := c.Run(context.Background())
	if got.Components[0].Name != "alpha" || got.Components[1].Name != "zeta" {
		t.Errorf("components = %+v", got.Components)
	}
	if got.Components[0].LastCheck.IsZero() {
		t.Error("LastCheck should be set")
	}
}

func TestBreakerHealthCheck(t *testing.T) {
	b := New("quotes", Config{FailureThreshold: 1, Cooldown: time.Hour})
	check := BreakerHealthCheck(b)

	if got := check(context.Background()); got.Status != HealthStatusHealthy {
		t.Errorf("closed breaker status = %s", got.Status)
	}
	_ = b.Execute(context.Background(), func(context.Context) error { return errors.New("down") })
	if got := check(context.Background()); got.Status != HealthStatusDegraded {
		t.Errorf("open breaker status = %s", got.Status)
	}
}
