// Package tracekit is a native-code primitive layer for Linux/x86-64
// process debugging built on ptrace(2). It gives a controller process
// (the tracer) attach/launch, cross-page memory read/write, hardware
// breakpoints, thread enumeration, and remote syscall injection over a
// debuggee (the tracee). It is not a debugger UI, expression
// evaluator, or stack unwinder.
package tracekit

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/tracekit/tracekit/internal/hwbreak"
	"github.com/tracekit/tracekit/internal/logging"
	"github.com/tracekit/tracekit/internal/memio"
	"github.com/tracekit/tracekit/internal/tracer"
)

// Target is a handle to a single tracee. It is not goroutine-safe and
// is thread-affine: ptrace requires every request for a given tracee
// to come from the same OS thread that attached it, so callers of
// Launch/Attach should runtime.LockOSThread() the calling goroutine
// before and for the lifetime of their use of the returned Target -
// tracekit documents this requirement rather than running its own
// request-proxy goroutine, since a Target here is synchronous and
// caller-serialized by design.
//
// ReadOp and WriteOp hold a *Target and must not outlive it; Go cannot
// enforce that borrow at compile time the way a lifetime-checked
// language would, so Apply defensively re-checks the target hasn't
// been Detached.
type Target struct {
	pid         int
	detached    bool
	killOnExit  bool
	breakpoints *hwbreak.Manager
	logger      *logging.Logger
}

// AttachOptions configures Attach.
type AttachOptions struct {
	// KillOnExit arms PTRACE_O_EXITKILL: the kernel kills the tracee if
	// the tracer exits without detaching first.
	KillOnExit bool
}

func newTarget(pid int, killOnExit bool) *Target {
	t := &Target{
		pid:         pid,
		killOnExit:  killOnExit,
		breakpoints: hwbreak.NewManager(pid),
		logger:      logging.Default().WithPid(pid),
	}
	memio.SetLogger(t.logger)
	return t
}

// Launch starts path under ptrace and waits for its initial stop.
// kill_on_exit is armed unconditionally, matching the launch-owns-its-
// child semantics of the original.
//
// The child is traced via exec.Cmd's SysProcAttr.Ptrace rather than a
// raw fork()+PTRACE_TRACEME: Go's runtime cannot safely fork without
// immediately exec'ing (goroutines and the scheduler don't survive a
// bare fork), so the standard library's cooperating fork+exec is the
// idiomatic path here, same as ks888/tgo's rawClient.LaunchProcess.
func Launch(path string, args []string) (*Target, unix.WaitStatus, error) {
	cmd := exec.Command(path, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		return nil, 0, WrapError("Launch", err)
	}

	status, err := tracer.Wait(cmd.Process.Pid)
	if err != nil {
		return nil, 0, WrapError("Launch", err)
	}

	t := newTarget(cmd.Process.Pid, true)
	if err := tracer.SetOptions(t.pid, unix.PTRACE_O_EXITKILL); err != nil {
		return nil, status, WrapError("Launch", err)
	}

	t.logger.Info("launched", "path", path, "status", fmt.Sprintf("%#v", status))
	return t, status, nil
}

// Attach starts tracing an already-running process via PTRACE_ATTACH.
func Attach(pid int, opts AttachOptions) (*Target, unix.WaitStatus, error) {
	if err := tracer.Attach(pid); err != nil {
		return nil, 0, NewPidError("Attach", pid, mapErrnoToCode(toErrno(err)), err.Error())
	}

	status, err := tracer.Wait(pid)
	if err != nil {
		return nil, 0, NewPidError("Attach", pid, CodeProcessGone, err.Error())
	}
	if !status.Stopped() {
		return nil, status, NewPidError("Attach", pid, CodeNotTraced, fmt.Sprintf("process did not stop after attach: %#v", status))
	}

	t := newTarget(pid, opts.KillOnExit)
	if opts.KillOnExit {
		if err := tracer.SetOptions(pid, unix.PTRACE_O_EXITKILL); err != nil {
			return nil, status, NewPidError("Attach", pid, CodeNotTraced, err.Error())
		}
	}

	t.logger.Info("attached")
	return t, status, nil
}

// Me returns a Target wrapping the calling process itself, with no
// tracing relationship established - useful for introspection APIs
// (MemoryMaps, Threads) that don't require ptrace.
func Me() *Target {
	return newTarget(os.Getpid(), false)
}

// Pid returns the tracee's process id.
func (t *Target) Pid() int {
	return t.pid
}

// KillOnExit reports whether kill-on-exit is armed for this tracee; it
// is always armed by Launch, and only on request by Attach.
func (t *Target) KillOnExit() bool {
	return t.killOnExit
}

// Detach stops tracing the tracee, letting it run freely again.
func (t *Target) Detach() error {
	if t.detached {
		return nil
	}
	if err := tracer.Detach(t.pid); err != nil {
		return WrapError("Detach", err)
	}
	t.detached = true
	t.logger.Info("detached")
	return nil
}

func toErrno(err error) syscall.Errno {
	if errno, ok := err.(syscall.Errno); ok {
		return errno
	}
	return 0
}
