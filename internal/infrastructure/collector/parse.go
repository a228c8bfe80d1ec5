package collector

import (
	"regexp"
	"strconv"
	"strings"
)

// Parsers for raw command output from remote nodes. Kept as pure
// functions so they are testable without an SSH connection.
// Unparseable output yields zero values, not errors: a node that
// answers over SSH is reachable even if one command misbehaves.

var (
	darwinLoadRe = regexp.MustCompile(`\{\s*([\d.]+)\s+([\d.]+)\s+([\d.]+)`)
	darwinPageRe = regexp.MustCompile(`page size of (\d+) bytes`)
	windowsKVRe  = regexp.MustCompile(`(\w+)=(\d+)`)
	leadingNumRe = regexp.MustCompile(`\d+`)
)

const bytesPerGB = 1 << 30

// parseCPUCount parses the output of nproc / sysctl hw.ncpu / wmic.
func parseCPUCount(out string) int {
	s := strings.TrimSpace(out)
	if i := strings.LastIndex(s, "="); i >= 0 {
		s = s[i+1:]
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// parseCPUPercent parses a CPU usage percentage, tolerating a decimal
// comma (non-English locales) and wmic Key=Value form.
func parseCPUPercent(out string) float64 {
	s := strings.TrimSpace(out)
	if i := strings.LastIndex(s, "="); i >= 0 {
		s = s[i+1:]
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseLoadLinux parses /proc/loadavg: "0.52 0.58 0.59 1/234 5678".
func parseLoadLinux(out string) [3]float64 {
	parts := strings.Fields(out)
	if len(parts) < 3 {
		return [3]float64{}
	}
	var load [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return [3]float64{}
		}
		load[i] = v
	}
	return load
}

// parseLoadDarwin parses sysctl vm.loadavg: "{ 1.23 1.45 1.67 }".
func parseLoadDarwin(out string) [3]float64 {
	m := darwinLoadRe.FindStringSubmatch(out)
	if m == nil {
		return [3]float64{}
	}
	var load [3]float64
	for i := 0; i < 3; i++ {
		load[i], _ = strconv.ParseFloat(m[i+1], 64)
	}
	return load
}

// loadFromCPUPercent approximates a load average for platforms without
// one (Windows). A fully loaded 4-core box reports roughly 4.0.
func loadFromCPUPercent(cpuPercent float64) [3]float64 {
	approx := cpuPercent / 25
	return [3]float64{approx, approx, approx}
}

// parseMemoryLinux parses "free -b | grep Mem":
// "Mem: 16724721664 8123456789 ...". Returns total GB, used GB, percent.
func parseMemoryLinux(out string) (float64, float64, float64) {
	parts := strings.Fields(out)
	if len(parts) < 3 {
		return 0, 0, 0
	}
	total, err1 := strconv.ParseFloat(parts[1], 64)
	used, err2 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || total <= 0 {
		return 0, 0, 0
	}
	return total / bytesPerGB, used / bytesPerGB, used / total * 100
}

// parseMemoryDarwin parses "vm_stat && sysctl -n hw.memsize" output.
// Free is approximated as free+inactive pages. The page size comes from
// the vm_stat header (16K on Apple Silicon, 4K on Intel); 4K is only a
// fallback for output with the header stripped.
func parseMemoryDarwin(out string) (float64, float64, float64) {
	pageSize := 4096.0
	if m := darwinPageRe.FindStringSubmatch(out); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
			pageSize = v
		}
	}

	var totalBytes, freePages float64
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Pages free:"), strings.HasPrefix(trimmed, "Pages inactive:"):
			if m := leadingNumRe.FindString(trimmed); m != "" {
				v, _ := strconv.ParseFloat(m, 64)
				freePages += v
			}
		default:
			// hw.memsize печатается голым числом отдельной строкой
			if v, err := strconv.ParseFloat(trimmed, 64); err == nil && v > totalBytes {
				totalBytes = v
			}
		}
	}

	if totalBytes <= 0 {
		return 0, 0, 0
	}
	total := totalBytes / bytesPerGB
	free := freePages * pageSize / bytesPerGB
	used := total - free
	return total, used, used / total * 100
}

// parseMemoryWindows parses wmic OS get FreePhysicalMemory,TotalVisibleMemorySize.
// Values are in KB.
func parseMemoryWindows(out string) (float64, float64, float64) {
	kv := parseWindowsKV(out)
	total := kv["TotalVisibleMemorySize"] * 1024 / bytesPerGB
	free := kv["FreePhysicalMemory"] * 1024 / bytesPerGB
	if total <= 0 {
		return 0, 0, 0
	}
	used := total - free
	return total, used, used / total * 100
}

// parseDiskDF parses "df -B1 / | tail -1":
// "/dev/sda1 105089261568 54687500288 45016492032 55% /".
func parseDiskDF(out string) (float64, float64, float64) {
	parts := strings.Fields(out)
	if len(parts) < 4 {
		return 0, 0, 0
	}
	total, err1 := strconv.ParseFloat(parts[1], 64)
	used, err2 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || total <= 0 {
		return 0, 0, 0
	}
	return total / bytesPerGB, used / bytesPerGB, used / total * 100
}

// parseDiskWindows parses wmic logicaldisk get Size,FreeSpace output.
func parseDiskWindows(out string) (float64, float64, float64) {
	kv := parseWindowsKV(out)
	total := kv["Size"] / bytesPerGB
	free := kv["FreeSpace"] / bytesPerGB
	if total <= 0 {
		return 0, 0, 0
	}
	used := total - free
	return total, used, used / total * 100
}

// parseWindowsKV parses wmic /Value output ("Key=123" per line).
func parseWindowsKV(out string) map[string]float64 {
	kv := make(map[string]float64)
	for _, m := range windowsKVRe.FindAllStringSubmatch(out, -1) {
		v, err := strconv.ParseFloat(m[2], 64)
		if err == nil {
			kv[m[1]] = v
		}
	}
	return kv
}

// parseServicePgrep interprets pgrep output: exit 0 plus a PID means running.
func parseServicePgrep(exitCode int, stdout string) (bool, int) {
	if exitCode != 0 {
		return false, 0
	}
	fields := strings.Fields(stdout)
	if len(fields) == 0 {
		return false, 0
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return true, 0
	}
	return true, pid
}

// parseServiceTasklist interprets Windows tasklist output for a service.
func parseServiceTasklist(service, stdout string) (bool, int) {
	lower := strings.ToLower(stdout)
	if strings.Contains(lower, "no tasks") || !strings.Contains(lower, strings.ToLower(service)) {
		return false, 0
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(service) + `\S*\s+(\d+)`)
	if m := re.FindStringSubmatch(stdout); m != nil {
		pid, _ := strconv.Atoi(m[1])
		return true, pid
	}
	return true, 0
}
