// Package status: 구성 요소 헬스 프로브와 시스템 리소스 상태 수집
package status

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
)

const probeTimeout = 2 * time.Second

// Probe: 구성 요소 하나의 헬스 체크
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// ComponentStatus: 구성 요소 상태
type ComponentStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// AggregatedStatus: /api/status 응답
type AggregatedStatus struct {
	Version    string `json:"version"`
	Uptime     string `json:"uptime"`
	StartedAt  int64  `json:"startedAt"`
	Goroutines int    `json:"goroutines"`

	Components          []ComponentStatus `json:"components"`
	AvailableComponents int               `json:"availableComponents"`
	TotalComponents     int               `json:"totalComponents"`

	System *SystemStats `json:"system,omitempty"`
}

// Healthy: 모든 구성 요소가 응답하는지
func (s *AggregatedStatus) Healthy() bool {
	return s.AvailableComponents == s.TotalComponents
}

// Collector: 프로브를 병렬 실행해 상태를 모읍니다.
type Collector struct {
	probes    []Probe
	logger    *slog.Logger
	startTime time.Time
	version   string
}

// NewCollector: 상태 수집기 생성
func NewCollector(version string, logger *slog.Logger, probes ...Probe) *Collector {
	return &Collector{
		probes:    probes,
		logger:    logger,
		startTime: time.Now(),
		version:   version,
	}
}

// GetAggregatedStatus: 모든 프로브 결과와 시스템 통계
func (c *Collector) GetAggregatedStatus(ctx context.Context) *AggregatedStatus {
	components := c.runProbes(ctx)

	available := 0
	for _, comp := range components {
		if comp.Available {
			available++
		}
	}

	out := &AggregatedStatus{
		Version:             c.version,
		Uptime:              time.Since(c.startTime).Round(time.Second).String(),
		StartedAt:           c.startTime.Unix(),
		Goroutines:          runtime.NumGoroutine(),
		Components:          components,
		AvailableComponents: available,
		TotalComponents:     len(components),
	}

	stats, err := GetSystemStats(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "system_stats_failed", slog.Any("error", err))
	} else {
		out.System = stats
	}
	return out
}

func (c *Collector) runProbes(ctx context.Context) []ComponentStatus {
	results := make([]ComponentStatus, len(c.probes))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(max(len(c.probes), 1))
	for i, probe := range c.probes {
		p.Go(func() {
			status := runProbe(ctx, probe)
			if !status.Available {
				c.logger.WarnContext(ctx, "component_unavailable",
					slog.String("component", probe.Name),
					slog.String("error", status.Error),
				)
			}
			mu.Lock()
			results[i] = status
			mu.Unlock()
		})
	}
	p.Wait()
	return results
}

func runProbe(ctx context.Context, probe Probe) ComponentStatus {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	err := probe.Check(probeCtx)
	status := ComponentStatus{
		Name:      probe.Name,
		Available: err == nil,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		status.Error = err.Error()
	}
	return status
}
