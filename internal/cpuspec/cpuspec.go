// Package cpuspec inspects the host CPU to pick a sensible default worker
// count for chunk processing.
package cpuspec

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// CPUSpec contains information about CPU specifications
type CPUSpec struct {
	BrandName     string
	PhysicalCores int
	LogicalCores  int
}

// GetCPUSpec returns CPU specifications of the host.
func GetCPUSpec() CPUSpec {
	return CPUSpec{
		BrandName:     cpuid.CPU.BrandName,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
	}
}

// GetOptimalWorkerCount returns the recommended number of chunk workers.
// Physical cores are preferred over logical cores since chunk processing is
// CPU-bound, and the count is capped by the schedulable CPUs (important for
// VMs and containers with CPU limits).
func (c CPUSpec) GetOptimalWorkerCount() int {
	availableCPUs := runtime.NumCPU()

	workers := c.PhysicalCores
	if workers <= 0 {
		workers = c.LogicalCores
	}
	if workers <= 0 || workers > availableCPUs {
		workers = availableCPUs
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
