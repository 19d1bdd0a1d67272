package tracekit

import (
	"github.com/tracekit/tracekit/internal/constants"
	"github.com/tracekit/tracekit/internal/hwbreak"
)

// Re-exported constants for public API consumers.
const (
	// PageSize is the assumed page size used to classify a memory access
	// as single-page or cross-page.
	PageSize = constants.PageSize

	// HardwareBreakpointSlots is the number of hardware breakpoint
	// registers available on the current platform (4 on amd64, 0 elsewhere).
	HardwareBreakpointSlots = hwbreak.Slots

	// MaxThreadNameLength is the maximum length of a thread's comm name
	// as reported by the kernel.
	MaxThreadNameLength = constants.MaxCommLength
)
