package tracekit

import "github.com/tracekit/tracekit/internal/hwbreak"

// BreakpointType is the access a hardware breakpoint traps on.
type BreakpointType int

const (
	BreakpointExecute BreakpointType = iota
	BreakpointWrite
	BreakpointReadWrite
)

// BreakpointSize is the width in bytes of memory a breakpoint covers.
type BreakpointSize int

const (
	BreakpointSize1 BreakpointSize = iota
	BreakpointSize2
	BreakpointSize4
	BreakpointSize8
)

// HardwareBreakpoint describes one watchpoint request.
type HardwareBreakpoint struct {
	Addr uint64
	Type BreakpointType
	Size BreakpointSize
}

func toInternal(bp HardwareBreakpoint) hwbreak.Breakpoint {
	var t hwbreak.Type
	switch bp.Type {
	case BreakpointExecute:
		t = hwbreak.Execute
	case BreakpointWrite:
		t = hwbreak.Write
	case BreakpointReadWrite:
		t = hwbreak.ReadWrite
	}

	var s hwbreak.Size
	switch bp.Size {
	case BreakpointSize1:
		s = hwbreak.Size1
	case BreakpointSize2:
		s = hwbreak.Size2
	case BreakpointSize4:
		s = hwbreak.Size4
	case BreakpointSize8:
		s = hwbreak.Size8
	}

	return hwbreak.Breakpoint{Addr: bp.Addr, Type: t, Size: s}
}

func fromInternal(bp hwbreak.Breakpoint) HardwareBreakpoint {
	var t BreakpointType
	switch bp.Type {
	case hwbreak.Execute:
		t = BreakpointExecute
	case hwbreak.Write:
		t = BreakpointWrite
	case hwbreak.ReadWrite:
		t = BreakpointReadWrite
	}

	var s BreakpointSize
	switch bp.Size {
	case hwbreak.Size1:
		s = BreakpointSize1
	case hwbreak.Size2:
		s = BreakpointSize2
	case hwbreak.Size4:
		s = BreakpointSize4
	case hwbreak.Size8:
		s = BreakpointSize8
	}

	return HardwareBreakpoint{Addr: bp.Addr, Type: t, Size: s}
}

// SetHardwareBreakpoint programs the first empty hardware breakpoint
// slot with bp and returns its index.
func (t *Target) SetHardwareBreakpoint(bp HardwareBreakpoint) (int, error) {
	slot, err := t.breakpoints.Set(toInternal(bp))
	if err != nil {
		return 0, hwErrToTracekit("SetHardwareBreakpoint", t.pid, -1, err)
	}
	return slot, nil
}

// ClearHardwareBreakpoint disarms the breakpoint at slot and returns
// what had been set there.
func (t *Target) ClearHardwareBreakpoint(slot int) (HardwareBreakpoint, error) {
	bp, err := t.breakpoints.Clear(slot)
	if err != nil {
		return HardwareBreakpoint{}, hwErrToTracekit("ClearHardwareBreakpoint", t.pid, slot, err)
	}
	return fromInternal(bp), nil
}

// ClearAllHardwareBreakpoints disarms every occupied slot.
func (t *Target) ClearAllHardwareBreakpoints() error {
	if err := t.breakpoints.ClearAll(); err != nil {
		return hwErrToTracekit("ClearAllHardwareBreakpoints", t.pid, -1, err)
	}
	return nil
}

// IsHardwareBreakpointTriggered reports the lowest-indexed occupied
// slot whose DR6 trigger bit is set, clearing that bit as it reports
// it. ok is false if no tracked slot is currently triggered.
func (t *Target) IsHardwareBreakpointTriggered() (slot int, ok bool, err error) {
	slot, ok, rawErr := t.breakpoints.IsTriggered()
	if rawErr != nil {
		return 0, false, hwErrToTracekit("IsHardwareBreakpointTriggered", t.pid, -1, rawErr)
	}
	return slot, ok, nil
}

func hwErrToTracekit(op string, pid int, slot int, err error) *Error {
	switch err {
	case hwbreak.ErrUnsupportedPlatform:
		return NewSlotError(op, pid, slot, CodeUnsupportedPlatform, err.Error())
	case hwbreak.ErrNoEmptySlot:
		return NewSlotError(op, pid, slot, CodeNoEmptyWatchpoint, err.Error())
	case hwbreak.ErrSlotEmpty:
		return NewSlotError(op, pid, slot, CodeBreakpointNotFound, err.Error())
	default:
		return NewSlotError(op, pid, slot, CodeSyscallFailed, err.Error())
	}
}
