package tracekit

import "github.com/tracekit/tracekit/internal/procfs"

// ThreadHandle is a value snapshot of one thread listed under
// /proc/<pid>/task at the moment Threads was called.
type ThreadHandle struct {
	pid int32
	tid int32
}

// Pid returns the thread group id (the process id) the thread belongs to.
func (h ThreadHandle) Pid() int32 { return h.pid }

// Tid returns the thread's own id.
func (h ThreadHandle) Tid() int32 { return h.tid }

// Name reads the thread's comm field from /proc/<pid>/task/<tid>/stat.
// It returns ("", false) rather than an error if the thread has since
// exited or the read otherwise fails.
func (h ThreadHandle) Name() (string, bool) {
	return procfs.Name(h.pid, h.tid)
}

// Threads returns a snapshot of the tracee's current threads.
func (t *Target) Threads() ([]ThreadHandle, error) {
	threads, err := procfs.Threads(t.pid)
	if err != nil {
		return nil, NewPidError("Threads", t.pid, CodeParseFailed, err.Error())
	}

	out := make([]ThreadHandle, len(threads))
	for i, th := range threads {
		out[i] = ThreadHandle{pid: th.Pid, tid: th.Tid}
	}
	return out, nil
}
