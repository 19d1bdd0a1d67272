// Package tracer provides typed, minimal wrappers over the ptrace(2)
// requests tracekit needs. It owns no policy (retry, batching, error
// mapping) beyond translating Go types to and from the kernel ABI -
// that belongs to the callers in the top-level package and
// internal/memio, internal/hwbreak, internal/syscallinj.
//
// ptrace is thread-affine: every request for a given tracee must be
// issued from the same OS thread that attached it. tracer does not
// enforce this itself (it has no goroutine of its own, unlike
// ks888/tgo's Client proxy) - callers are expected to pin the calling
// goroutine with runtime.LockOSThread, as documented on Target.
package tracer

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// Attach starts tracing pid via PTRACE_ATTACH.
func Attach(pid int) error {
	return unix.PtraceAttach(pid)
}

// Detach stops tracing pid via PTRACE_DETACH.
func Detach(pid int) error {
	return unix.PtraceDetach(pid)
}

// Cont resumes a stopped tracee, optionally delivering signal sig.
func Cont(pid int, sig int) error {
	return unix.PtraceCont(pid, sig)
}

// SingleStep resumes a stopped tracee for exactly one instruction.
func SingleStep(pid int) error {
	return unix.PtraceSingleStep(pid)
}

// SetOptions sets ptrace options (e.g. PTRACE_O_EXITKILL) on pid.
func SetOptions(pid int, options int) error {
	return unix.PtraceSetOptions(pid, options)
}

// GetRegs reads the general-purpose registers of pid.
func GetRegs(pid int) (*unix.PtraceRegs, error) {
	var regs unix.PtraceRegs
	if err := unix.PtraceGetRegs(pid, &regs); err != nil {
		return nil, err
	}
	return &regs, nil
}

// SetRegs writes the general-purpose registers of pid.
func SetRegs(pid int, regs *unix.PtraceRegs) error {
	return unix.PtraceSetRegs(pid, regs)
}

// PeekData reads len(out) bytes from the tracee's address space at addr
// via PTRACE_PEEKDATA (word-granular, one syscall per word under the hood
// in the x/sys/unix implementation).
func PeekData(pid int, addr uintptr, out []byte) (int, error) {
	return unix.PtracePeekData(pid, addr, out)
}

// PokeData writes data into the tracee's address space at addr via
// PTRACE_POKEDATA.
func PokeData(pid int, addr uintptr, data []byte) (int, error) {
	return unix.PtracePokeData(pid, addr, data)
}

// Wait blocks until pid changes state, matching the teacher's use of
// Wait4 for both the initial attach/launch stop and subsequent steps.
func Wait(pid int) (unix.WaitStatus, error) {
	var status unix.WaitStatus
	_, err := unix.Wait4(pid, &status, 0, nil)
	return status, err
}

// PeekUser reads one word from the tracee's struct user at addr via
// PTRACE_PEEKUSER, used to program and inspect DR0-DR3/DR6/DR7. Like
// PeekData, PTRACE_PEEKUSER hands back its result through the
// userspace pointer given as the request's data argument rather than
// as the syscall return value, so this goes through x/sys/unix's
// PtracePeekUser rather than a raw PTRACE_PEEKUSR syscall.
func PeekUser(pid int, addr uintptr) (uintptr, error) {
	var buf [8]byte
	if _, err := unix.PtracePeekUser(pid, addr, buf[:]); err != nil {
		return 0, err
	}
	return uintptr(binary.LittleEndian.Uint64(buf[:])), nil
}

// PokeUser writes one word into the tracee's struct user at addr via
// PTRACE_POKEUSR.
func PokeUser(pid int, addr uintptr, data uintptr) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(data))
	_, err := unix.PtracePokeUser(pid, addr, buf[:])
	return err
}
