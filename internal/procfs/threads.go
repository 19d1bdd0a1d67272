package procfs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Thread is a snapshot of one entry under /proc/<pid>/task.
type Thread struct {
	Pid int32
	Tid int32
}

// Threads lists the thread ids of pid by reading /proc/<pid>/task.
func Threads(pid int) ([]Thread, error) {
	entries, err := os.ReadDir(fmt.Sprintf("/proc/%d/task", pid))
	if err != nil {
		return nil, err
	}

	threads := make([]Thread, 0, len(entries))
	for _, e := range entries {
		tid, err := strconv.ParseInt(e.Name(), 10, 32)
		if err != nil {
			continue
		}
		threads = append(threads, Thread{Pid: int32(pid), Tid: int32(tid)})
	}
	return threads, nil
}

// Name reads the comm field of /proc/<pid>/task/<tid>/stat. It returns
// ("", false) on any failure - a thread that exited between Threads and
// Name, or a short read - rather than an error: a vanished thread is
// expected churn, not a caller-visible failure.
func Name(pid int32, tid int32) (string, bool) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/task/%d/stat", pid, tid))
	if err != nil {
		return "", false
	}

	s := string(data)
	// comm is the whitespace-separated second field, parenthesized, and
	// may itself contain spaces or parens - so scan from the last ')'
	// backward rather than splitting naively on the first '('.
	open := strings.IndexByte(s, '(')
	closeIdx := strings.LastIndexByte(s, ')')
	if open < 0 || closeIdx < 0 || closeIdx <= open {
		return "", false
	}
	return s[open+1 : closeIdx], true
}
