package common

import (
	"os"
	"runtime"
	"runtime/debug"

	"github.com/rs/zerolog/log"
)

// Runtime defaults. The engine spends most of its time waiting on RPC, so the
// profile favours a modest heap over throughput.
const (
	DefaultGOGC     = 200
	DefaultMemLimit = 1 * 1024 * 1024 * 1024 // 1GB
)

// InitRuntime applies GC and memory defaults unless GOGC / GOMEMLIMIT / GOMAXPROCS
// are already set in the environment.
func InitRuntime() {
	if os.Getenv("GOGC") == "" {
		debug.SetGCPercent(DefaultGOGC)
	}
	if os.Getenv("GOMEMLIMIT") == "" {
		debug.SetMemoryLimit(DefaultMemLimit)
	}
	if os.Getenv("GOMAXPROCS") == "" && runtime.NumCPU() > 4 {
		runtime.GOMAXPROCS(runtime.NumCPU() / 2)
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	log.Info().
		Int("num_cpu", runtime.NumCPU()).
		Int("gomaxprocs", runtime.GOMAXPROCS(0)).
		Uint64("heap_alloc_mb", memStats.HeapAlloc/1024/1024).
		Str("go_version", runtime.Version()).
		Msg("[runtime] current runtime settings")
}
