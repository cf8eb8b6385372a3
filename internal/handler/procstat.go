package handler

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// hostStats samples OS gauges from /proc. Every reader tolerates
// missing or malformed files, so on non-Linux development machines the
// dashboard shows zeros instead of erroring.
type hostStats struct {
	cpuModel string

	// previous aggregate CPU ticks, for utilization deltas
	lastIdle  uint64
	lastTotal uint64
}

func newHostStats() *hostStats {
	s := &hostStats{cpuModel: cpuModelName()}
	// Seed the counters so the first sample reports a real delta.
	s.lastIdle, s.lastTotal = cpuTicks()
	return s
}

// cpuPercent returns aggregate CPU utilization since the previous call.
func (s *hostStats) cpuPercent() float64 {
	idle, total := cpuTicks()
	if total <= s.lastTotal {
		return 0
	}
	idleDelta := float64(idle - s.lastIdle)
	totalDelta := float64(total - s.lastTotal)
	s.lastIdle, s.lastTotal = idle, total
	return (1 - idleDelta/totalDelta) * 100
}

// cpuTicks reads the aggregate line of /proc/stat. The fourth value
// after the "cpu" label is idle time; every value counts toward total.
func cpuTicks() (idle, total uint64) {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return 0, 0
	}
	fields := strings.Fields(strings.SplitN(string(data), "\n", 2)[0])
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0, 0
	}
	for i, f := range fields[1:] {
		v, _ := strconv.ParseUint(f, 10, 64)
		total += v
		if i == 3 {
			idle = v
		}
	}
	return idle, total
}

func cpuModelName() string {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return "unknown"
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if rest, ok := strings.CutPrefix(sc.Text(), "model name"); ok {
			return strings.TrimSpace(strings.TrimLeft(rest, " \t:"))
		}
	}
	return "unknown"
}

// memoryUsage reports total and used bytes from /proc/meminfo. Used is
// derived from MemAvailable, which accounts for reclaimable caches.
func memoryUsage() (total, used uint64) {
	values := procKBValues("/proc/meminfo", "MemTotal:", "MemAvailable:")
	total = values["MemTotal:"]
	if avail, ok := values["MemAvailable:"]; ok && total >= avail {
		used = total - avail
	}
	return total, used
}

// processRSS reports this process's resident set size in bytes.
func processRSS() uint64 {
	return procKBValues("/proc/self/status", "VmRSS:")["VmRSS:"]
}

// procKBValues scans a /proc file of "Label:  N kB" lines and returns
// the requested entries converted to bytes.
func procKBValues(path string, labels ...string) map[string]uint64 {
	out := make(map[string]uint64, len(labels))
	f, err := os.Open(path)
	if err != nil {
		return out
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() && len(out) < len(labels) {
		line := sc.Text()
		for _, label := range labels {
			if !strings.HasPrefix(line, label) {
				continue
			}
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				kb, _ := strconv.ParseUint(fields[1], 10, 64)
				out[label] = kb * 1024
			}
		}
	}
	return out
}

// diskUsage reports total and used bytes for the filesystem at path.
func diskUsage(path string) (total, used uint64) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return 0, 0
	}
	total = st.Blocks * uint64(st.Bsize)
	free := st.Bavail * uint64(st.Bsize)
	if total >= free {
		used = total - free
	}
	return total, used
}

// loadAverages reads the 1, 5, and 15 minute load averages.
func loadAverages() (one, five, fifteen float64) {
	data, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return 0, 0, 0
	}
	fields := strings.Fields(string(data))
	if len(fields) < 3 {
		return 0, 0, 0
	}
	one, _ = strconv.ParseFloat(fields[0], 64)
	five, _ = strconv.ParseFloat(fields[1], 64)
	fifteen, _ = strconv.ParseFloat(fields[2], 64)
	return one, five, fifteen
}
