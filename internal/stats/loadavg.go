package stats

import (
	"os"
	"runtime"
	"strconv"
	"strings"
)

// systemLoad reads the 1-minute load average from /proc/loadavg and
// scales it by core count into a 0-100 load figure — the closest
// stdlib-only equivalent to the original's `sysinfo::System::global_cpu_usage()`
// read, since no sysinfo-equivalent library appears anywhere in the
// pack (the same reasoning SPEC_FULL.md already applies to the memory
// and CPU-core counts above). Returns 0 on platforms without
// /proc/loadavg rather than guessing at a value.
func systemLoad() float64 {
	raw, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return 0
	}

	fields := strings.Fields(string(raw))
	if len(fields) == 0 {
		return 0
	}

	loadAvg1, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}

	cores := float64(runtime.NumCPU())
	if cores <= 0 {
		cores = 1
	}

	pct := (loadAvg1 / cores) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
