package status

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStats: 호스트 리소스 통계
type SystemStats struct {
	CPUUsage    float64 `json:"cpuUsage"`    // CPU 사용률 (%)
	MemoryUsage float64 `json:"memoryUsage"` // 메모리 사용률 (%)
	MemoryTotal uint64  `json:"memoryTotal"` // 전체 메모리 (Bytes)
	MemoryUsed  uint64  `json:"memoryUsed"`  // 사용 중인 메모리 (Bytes)
	HeapAlloc   uint64  `json:"heapAlloc"`   // 프로세스 힙 (Bytes)
	NumCPU      int     `json:"numCpu"`
}

// GetSystemStats: 현재 시스템 리소스 상태를 반환합니다.
func GetSystemStats(ctx context.Context) (*SystemStats, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("read memory stats: %w", err)
	}

	// interval 0: 직전 호출 대비 사용률을 즉시 반환
	cpus, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, fmt.Errorf("read cpu stats: %w", err)
	}
	var cpuUsage float64
	if len(cpus) > 0 {
		cpuUsage = cpus[0]
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return &SystemStats{
		CPUUsage:    cpuUsage,
		MemoryUsage: v.UsedPercent,
		MemoryTotal: v.Total,
		MemoryUsed:  v.Used,
		HeapAlloc:   ms.HeapAlloc,
		NumCPU:      runtime.NumCPU(),
	}, nil
}
