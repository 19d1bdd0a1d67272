package tracekit

import (
	"errors"
	"fmt"
	"syscall"
)

// Error represents a structured tracekit error with context and errno mapping.
type Error struct {
	Op     string // Operation that failed (e.g., "Attach", "ReadMemory", "SetHardwareBreakpoint")
	Pid    int    // Target process id (0 if not applicable)
	Slot   int    // Hardware breakpoint slot (-1 if not applicable)
	Region string // Memory region or address description (empty if not applicable)
	Code   Code   // High-level error category
	Errno  syscall.Errno
	Msg    string
	Inner  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Pid != 0 {
		parts = append(parts, fmt.Sprintf("pid=%d", e.Pid))
	}
	if e.Slot >= 0 {
		parts = append(parts, fmt.Sprintf("slot=%d", e.Slot))
	}
	if e.Region != "" {
		parts = append(parts, fmt.Sprintf("region=%s", e.Region))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("tracekit: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("tracekit: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support, comparing by Code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// Code represents high-level error categories.
type Code string

const (
	CodeNotTraced           Code = "target is not being traced"
	CodePermissionDenied    Code = "permission denied"
	CodeProcessGone         Code = "process no longer exists"
	CodeIOFailed            Code = "I/O error"
	CodeParseFailed         Code = "failed to parse kernel data"
	CodeNoEmptyWatchpoint   Code = "no empty hardware breakpoint slot"
	CodeBreakpointNotFound  Code = "hardware breakpoint slot is empty"
	CodeUnsupportedPlatform Code = "hardware breakpoints unsupported on this platform"
	CodeRegionUnreadable    Code = "memory region is not readable"
	CodeRegionUnwritable    Code = "memory region is not writable"
	CodeSyscallFailed       Code = "remote syscall injection failed"
)

// NewError creates a new structured error.
func NewError(op string, code Code, msg string) *Error {
	return &Error{Op: op, Slot: -1, Code: code, Msg: msg}
}

// NewErrorWithErrno creates a new structured error carrying a kernel errno.
func NewErrorWithErrno(op string, code Code, errno syscall.Errno) *Error {
	return &Error{Op: op, Slot: -1, Code: code, Errno: errno, Msg: errno.Error()}
}

// NewPidError creates a new process-specific error.
func NewPidError(op string, pid int, code Code, msg string) *Error {
	return &Error{Op: op, Pid: pid, Slot: -1, Code: code, Msg: msg}
}

// NewSlotError creates a new hardware-breakpoint-slot-specific error.
func NewSlotError(op string, pid int, slot int, code Code, msg string) *Error {
	return &Error{Op: op, Pid: pid, Slot: slot, Code: code, Msg: msg}
}

// NewRegionError creates a new memory-region-specific error.
func NewRegionError(op string, pid int, region string, code Code, msg string) *Error {
	return &Error{Op: op, Pid: pid, Slot: -1, Region: region, Code: code, Msg: msg}
}

// WrapError wraps an existing error with tracekit context, mapping syscall
// errnos to a Code where possible.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	if te, ok := inner.(*Error); ok {
		return &Error{
			Op:     op,
			Pid:    te.Pid,
			Slot:   te.Slot,
			Region: te.Region,
			Code:   te.Code,
			Errno:  te.Errno,
			Msg:    te.Msg,
			Inner:  te.Inner,
		}
	}

	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{
			Op:    op,
			Slot:  -1,
			Code:  mapErrnoToCode(errno),
			Errno: errno,
			Msg:   errno.Error(),
			Inner: inner,
		}
	}

	return &Error{Op: op, Slot: -1, Code: CodeIOFailed, Msg: inner.Error(), Inner: inner}
}

// mapErrnoToCode maps a ptrace/procfs syscall errno to a tracekit error code.
func mapErrnoToCode(errno syscall.Errno) Code {
	switch errno {
	case syscall.ESRCH:
		return CodeProcessGone
	case syscall.EPERM, syscall.EACCES:
		return CodePermissionDenied
	case syscall.EFAULT:
		return CodeRegionUnreadable
	case syscall.EIO:
		return CodeNotTraced
	case syscall.EINVAL:
		return CodeSyscallFailed
	case syscall.ENOMEM:
		return CodeIOFailed
	default:
		return CodeIOFailed
	}
}

// IsCode reports whether err (or one it wraps) matches code.
func IsCode(err error, code Code) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// IsErrno reports whether err (or one it wraps) carries errno.
func IsErrno(err error, errno syscall.Errno) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Errno == errno
	}
	return false
}
