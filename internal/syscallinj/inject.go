// Package syscallinj injects a single remote syscall into a stopped
// tracee by overwriting its instruction pointer with a syscall opcode,
// single-stepping once, and restoring the original code and registers
// afterward.
//
// The caller must have already stopped the tracee (e.g. by waiting on
// a ptrace event); there is no portable, race-free way to check
// "stopped" from here, so none is attempted.
package syscallinj

import (
	"golang.org/x/sys/unix"

	"github.com/tracekit/tracekit/internal/tracer"
)

// syscallOpcode is the x86-64 `syscall` instruction, 0f 05, stored
// little-endian as the low two bytes of the word tracekit pokes over
// the tracee's current instruction.
const syscallOpcode = 0x050f

// Syscall overwrites pid's registers and the instruction at its current
// rip to execute syscall nr with up to six arguments, single-steps it,
// and restores the original instruction word and registers before
// returning - including on error, via defer, unlike the hazard in the
// implementation this is grounded on where a mid-sequence failure left
// the tracee's code and registers clobbered.
func Syscall(pid int, nr uintptr, a1, a2, a3, a4, a5, a6 uintptr) (uintptr, error) {
	origRegs, err := tracer.GetRegs(pid)
	if err != nil {
		return 0, err
	}

	newRegs := *origRegs
	newRegs.Rax = uint64(nr)
	newRegs.Rdi = uint64(a1)
	newRegs.Rsi = uint64(a2)
	newRegs.Rdx = uint64(a3)
	newRegs.R10 = uint64(a4)
	newRegs.R8 = uint64(a5)
	newRegs.R9 = uint64(a6)

	if err := tracer.SetRegs(pid, &newRegs); err != nil {
		return 0, err
	}

	origInst := make([]byte, 8)
	if _, err := tracer.PeekData(pid, uintptr(newRegs.Rip), origInst); err != nil {
		tracer.SetRegs(pid, origRegs)
		return 0, err
	}

	patched := make([]byte, 8)
	copy(patched, origInst)
	patched[0] = byte(syscallOpcode)
	patched[1] = byte(syscallOpcode >> 8)
	if _, err := tracer.PokeData(pid, uintptr(newRegs.Rip), patched); err != nil {
		tracer.SetRegs(pid, origRegs)
		return 0, err
	}

	restored := false
	defer func() {
		if !restored {
			tracer.PokeData(pid, uintptr(newRegs.Rip), origInst)
			tracer.SetRegs(pid, origRegs)
		}
	}()

	if err := tracer.SingleStep(pid); err != nil {
		return 0, err
	}
	if _, err := tracer.Wait(pid); err != nil {
		return 0, err
	}

	resultRegs, err := tracer.GetRegs(pid)
	if err != nil {
		return 0, err
	}
	result := uintptr(resultRegs.Rax)

	if _, err := tracer.PokeData(pid, uintptr(newRegs.Rip), origInst); err != nil {
		return result, err
	}
	if err := tracer.SetRegs(pid, origRegs); err != nil {
		return result, err
	}
	restored = true

	return result, nil
}

// Mmap asks pid to map memory on its own behalf via a remote mmap(2)
// syscall, argument order matching the kernel ABI exactly.
func Mmap(pid int, addr, length uintptr, prot, flags int32, fd int32, offset int64) (uintptr, error) {
	return Syscall(pid, unix.SYS_MMAP, addr, length, uintptr(prot), uintptr(flags), uintptr(fd), uintptr(offset))
}
