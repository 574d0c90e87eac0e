package utils

import (
	"strconv"

	"github.com/shirou/gopsutil/v3/cpu"
	log "github.com/sirupsen/logrus"
)

// GetOptimalWorkerCount determines the number of workers based on config and system resources.
func GetOptimalWorkerCount(configValue string) int {
	// 1. Check for manual override
	if manualWorkers, err := strconv.Atoi(configValue); err == nil && manualWorkers > 0 {
		log.WithField("workers", manualWorkers).Info("Using manually configured number of workers")
		return manualWorkers
	}

	// 2. If set to "auto" or invalid, calculate automatically
	if configValue != "auto" {
		log.WithField("value", configValue).Warn("Invalid workers value, defaulting to 'auto' mode")
	}

	// Logical cores (true) because scraping is mostly I/O bound and
	// hyper-threading can be beneficial.
	cpuCores, err := cpu.Counts(true)
	if err != nil {
		log.Warn("Could not detect CPU cores, falling back to 2 workers")
		return 2
	}

	// Half of the available cores: each worker runs a full browser instance,
	// so more would starve the system.
	optimalCount := cpuCores / 2
	if optimalCount < 1 {
		optimalCount = 1
	}
	if optimalCount > 16 {
		optimalCount = 16
	}

	log.WithFields(log.Fields{"cores": cpuCores, "workers": optimalCount}).Info("Worker count set automatically")
	return optimalCount
}
