package tracekit

import "github.com/tracekit/tracekit/internal/syscallinj"

// Syscall injects a single remote syscall into the tracee: it
// overwrites the tracee's registers and current instruction with a
// syscall opcode, single-steps it once, and restores the original
// instruction and registers before returning - on every exit path,
// error or success.
//
// The tracee must already be stopped (e.g. from a wait status just
// received); there is no portable, race-free way to verify that from
// here, so none is attempted.
func (t *Target) Syscall(nr uintptr, a1, a2, a3, a4, a5, a6 uintptr) (uintptr, error) {
	result, err := syscallinj.Syscall(t.pid, nr, a1, a2, a3, a4, a5, a6)
	if err != nil {
		return 0, NewPidError("Syscall", t.pid, CodeSyscallFailed, err.Error())
	}
	return result, nil
}

// Mmap asks the tracee to map memory on its own behalf via a remote
// mmap(2) syscall, argument order matching the kernel ABI.
func (t *Target) Mmap(addr, length uintptr, prot, flags int32, fd int32, offset int64) (uintptr, error) {
	result, err := syscallinj.Mmap(t.pid, addr, length, prot, flags, fd, offset)
	if err != nil {
		return 0, NewPidError("Mmap", t.pid, CodeSyscallFailed, err.Error())
	}
	return result, nil
}
