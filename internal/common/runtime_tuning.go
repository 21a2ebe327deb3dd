package common

import (
	"os"
	"runtime"
	"runtime/debug"

	"github.com/rs/zerolog/log"
)

// Runtime profiles for different server configurations
const (
	// Small server: 2 vCPU, 4GB RAM (test/dev environment)
	SmallServerGOGC     = 500
	SmallServerMemLimit = 2.5 * 1024 * 1024 * 1024
	SmallServerMaxProcs = 1

	// Large server: 8+ vCPU, 16GB+ RAM (production)
	LargeServerGOGC     = 1000
	LargeServerMemLimit = 8 * 1024 * 1024 * 1024
)

func detectServerProfile() (gogc int, memLimit int64, maxProcs int) {
	totalCPU := runtime.NumCPU()
	if totalCPU <= 2 {
		return SmallServerGOGC, int64(SmallServerMemLimit), SmallServerMaxProcs
	}
	return LargeServerGOGC, int64(LargeServerMemLimit), totalCPU / 2
}

// InitRuntimeForCopyEngine configures the Go runtime for the latency-sensitive
// detection/forge/submit path. Forged instruction slices and account lists are
// short-lived; a high GOGC keeps GC off the hot path and GOMEMLIMIT acts as
// the safety net. Override with GOGC, GOMAXPROCS, GOMEMLIMIT env vars.
func InitRuntimeForCopyEngine() {
	defaultGOGC, defaultMemLimit, defaultMaxProcs := detectServerProfile()

	if gcPercent := os.Getenv("GOGC"); gcPercent == "" {
		debug.SetGCPercent(defaultGOGC)
		log.Info().Int("GOGC", defaultGOGC).Msg("[runtime] Set GOGC")
	}

	if maxProcs := os.Getenv("GOMAXPROCS"); maxProcs == "" {
		if defaultMaxProcs < 1 {
			defaultMaxProcs = 1
		}
		runtime.GOMAXPROCS(defaultMaxProcs)
		log.Info().
			Int("GOMAXPROCS", defaultMaxProcs).
			Int("total_cpu", runtime.NumCPU()).
			Msg("[runtime] Set GOMAXPROCS")
	}

	if memLimit := os.Getenv("GOMEMLIMIT"); memLimit == "" {
		debug.SetMemoryLimit(defaultMemLimit)
		log.Info().
			Int64("GOMEMLIMIT_bytes", defaultMemLimit).
			Msg("[runtime] Set memory limit")
	}

	log.Info().
		Int("num_cpu", runtime.NumCPU()).
		Int("gomaxprocs", runtime.GOMAXPROCS(0)).
		Str("go_version", runtime.Version()).
		Msg("[runtime] Current runtime settings")
}
