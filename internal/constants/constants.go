// Package constants holds the small numeric constants shared across
// tracekit's internal packages.
package constants

const (
	// WordSize is the size in bytes of a single PTRACE_PEEKDATA/POKEDATA
	// transfer unit on amd64.
	WordSize = 8

	// PageSize is the assumed MMU page size used to classify memory
	// accesses as single-page or cross-page. Linux/amd64 never varies this.
	PageSize = 4096

	// HardwareBreakpointSlots is the number of hardware breakpoint
	// registers (DR0-DR3) available on amd64. This value does not vary by
	// platform; hwbreak.Slots is the per-platform count (0 off amd64).
	HardwareBreakpointSlots = 4

	// DebugRegisterCount is the number of DRn registers mirrored in the
	// kernel's struct user, DR0-DR7 inclusive.
	DebugRegisterCount = 8

	// MaxCommLength is the maximum length of the comm field in
	// /proc/<pid>/task/<tid>/stat, matching the kernel's TASK_COMM_LEN-1.
	MaxCommLength = 15

	// VMReadvIovMax bounds how many ReadOp/WriteOp fragments are batched
	// into a single process_vm_readv/writev call before tracekit falls
	// back to issuing another syscall, matching the kernel's IOV_MAX.
	VMReadvIovMax = 1024
)
