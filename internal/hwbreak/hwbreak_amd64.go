//go:build amd64

package hwbreak

import (
	"unsafe"

	"github.com/tracekit/tracekit/internal/constants"
	"github.com/tracekit/tracekit/internal/tracer"
)

// Slots is the number of hardware breakpoint registers on amd64: DR0-DR3.
const Slots = 4

// amd64User mirrors the tail of the kernel's struct user (sys/user.h) far
// enough to locate u_debugreg - x/sys/unix does not expose struct user,
// only the narrower PtraceRegs view of the general-purpose registers, so
// tracekit hand-declares the ABI layout the way the teacher's
// internal/uapi/structs.go mirrors ublk's kernel structs, with the same
// compile-time size assertion discipline.
type amd64User struct {
	Regs       [27]uint64 // struct user_regs_struct
	UFPValid   int32
	_          [4]byte   // padding to realign the following field
	I387       [512]byte // struct user_fpregs_struct (FXSAVE layout)
	Tsize      uint64
	Dsize      uint64
	Ssize      uint64
	StartCode  uint64
	StartStack uint64
	Signal     int64
	Reserved   int32
	_          [4]byte
	UAr0       uint64 // struct user_regs_struct *
	UFPState   uint64 // struct user_fpregs_struct *
	Magic      uint64
	UComm      [32]byte
	UDebugreg  [constants.DebugRegisterCount]uint64
}

// expectedUserSize and expectedDebugRegOffset are the well-known
// x86-64 Linux struct user layout: 912 bytes total, with u_debugreg at
// offset 848. The two opposite-sign array-length declarations below
// assert amd64User matches them at compile time - if a field's size
// or padding drifts, one of the two arrays gets a negative length and
// the build fails, unlike a tautological `[unsafe.Sizeof(T{})]byte =
// [unsafe.Sizeof(T{})]byte{}` assertion, which always holds regardless
// of the struct's actual layout.
const (
	expectedUserSize       = 912
	expectedDebugRegOffset = 848
)

var _ [expectedUserSize - unsafe.Sizeof(amd64User{})]byte
var _ [unsafe.Sizeof(amd64User{}) - expectedUserSize]byte
var _ [expectedDebugRegOffset - unsafe.Offsetof(amd64User{}.UDebugreg)]byte
var _ [unsafe.Offsetof(amd64User{}.UDebugreg) - expectedDebugRegOffset]byte

// debugRegOffset is the byte offset of u_debugreg within struct user,
// computed once at init() rather than hard-coded, matching the
// original's lazy_static DEBUG_REG_OFFSET - safer against libc/kernel
// struct layout drift than a literal constant, with the compile-time
// assertions above as a backstop against drift in amd64User itself.
var debugRegOffset = unsafe.Offsetof(amd64User{}.UDebugreg)

func drOffset(n int) uintptr {
	return debugRegOffset + uintptr(n)*8
}

func peekDR(pid int, n int) (uint64, error) {
	v, err := tracer.PeekUser(pid, drOffset(n))
	return uint64(v), err
}

func pokeDR(pid int, n int, v uint64) error {
	return tracer.PokeUser(pid, drOffset(n), uintptr(v))
}

// rwBits returns the 2-bit R/W condition field for the given type,
// positioned at its slot's location within DR7.
func rwBits(t Type, index int) uint64 {
	var bits uint64
	switch t {
	case Execute:
		bits = 0b00
	case Write:
		bits = 0b01
	case ReadWrite:
		bits = 0b11
	}
	return bits << (16 + 4*index)
}

// sizeBits returns the 2-bit LEN field for the given size, positioned at
// its slot's location within DR7.
func sizeBits(s Size, index int) uint64 {
	var bits uint64
	switch s {
	case Size1:
		bits = 0b00
	case Size2:
		bits = 0b01
	case Size8:
		bits = 0b10
	case Size4:
		bits = 0b11
	}
	return bits << (18 + 4*index)
}

// bitMask covers the local-enable bit plus the 4-bit R/W+LEN field for
// one slot, the portion of DR7 set_hardware_breakpoint/
// clear_hardware_breakpoint rewrite as a unit.
func bitMask(index int) uint64 {
	return (uint64(1) << (2 * index)) | (uint64(0xF) << (16 + 4*index))
}

func setHardwareBreakpoint(pid int, index int, bp Breakpoint) error {
	enableBit := uint64(1) << (2 * index)
	fields := enableBit | rwBits(bp.Type, index) | sizeBits(bp.Size, index)

	dr7, err := peekDR(pid, 7)
	if err != nil {
		return err
	}
	if dr7&(uint64(1)<<(2*index)) != 0 {
		panic(CorruptionError{Slot: index})
	}
	dr7 = (dr7 &^ bitMask(index)) | fields

	if err := pokeDR(pid, index, bp.Addr); err != nil {
		return err
	}
	if err := pokeDR(pid, 7, dr7); err != nil {
		return err
	}
	return pokeDR(pid, 6, 0)
}

func clearHardwareBreakpoint(pid int, index int) error {
	dr7, err := peekDR(pid, 7)
	if err != nil {
		return err
	}
	dr6, err := peekDR(pid, 6)
	if err != nil {
		return err
	}

	dr7 &^= bitMask(index)
	dr6 &^= uint64(1) << index

	if err := pokeDR(pid, 7, dr7); err != nil {
		return err
	}
	return pokeDR(pid, 6, dr6)
}

// isTriggered reads DR6 exclusively - never DR7 - for both the trigger
// check and the write-back that clears the bit. The upstream source
// names its local variable "dr7" here despite reading and writing the
// DR6 offset throughout; tracekit reads DR6 only, under that name.
func isTriggered(pid int, slots *[Slots]*Breakpoint) (int, bool, error) {
	dr6, err := peekDR(pid, 6)
	if err != nil {
		return 0, false, err
	}

	for i := 0; i < Slots; i++ {
		if dr6&(uint64(1)<<i) != 0 && slots[i] != nil {
			dr6 &^= uint64(1) << i
			if err := pokeDR(pid, 6, dr6); err != nil {
				return 0, false, err
			}
			return i, true, nil
		}
	}
	return 0, false, nil
}
