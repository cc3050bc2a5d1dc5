package proc

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// descendants walks /proc for every process below root.
func descendants(root int) []int {
	if root <= 0 {
		return nil
	}
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil
	}
	parents := make(map[int][]int)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid <= 0 {
			continue
		}
		ppid, err := readPPid(pid)
		if err != nil {
			continue
		}
		parents[ppid] = append(parents[ppid], pid)
	}
	var out []int
	queue := []int{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range parents[cur] {
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

func readPPid(pid int) (int, error) {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "status"))
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "PPid:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, errors.New("ppid missing")
		}
		return strconv.Atoi(fields[1])
	}
	return 0, errors.New("ppid not found")
}
