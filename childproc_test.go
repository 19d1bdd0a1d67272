package tracekit

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"
)

// The scenarios in spec.md that need a genuinely separate tracee
// (mprotect'd memory, a cross-page array) fork a child inside the test
// binary itself in the original; Go's runtime can't safely fork without
// exec, so the equivalent here is a self-reexec: the test binary,
// invoked again with a mode env var set, runs childMain instead of the
// test suite and never returns to testing.M.
const childModeEnv = "TRACEKIT_TEST_CHILD_MODE"

func init() {
	if mode := os.Getenv(childModeEnv); mode != "" {
		childMain(mode)
		os.Exit(0)
	}
}

// childMain performs one scenario's memory setup, prints the base
// address it mapped (so the parent can compute targets), then raises
// SIGSTOP on itself so the parent can safely inspect its memory while
// it isn't running.
func childMain(mode string) {
	switch mode {
	case "protected-byte":
		pageSize := unix.Getpagesize()
		page, err := unix.Mmap(-1, 0, 2*pageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
		if err != nil {
			fmt.Println("mmap error:", err)
			os.Exit(1)
		}
		// An unprotected usize at the start of the second page, value 2 -
		// read alongside the protected byte in the same batch.
		word := uint64(2)
		wb := (*[8]byte)(wordBytes(&word))
		copy(page[pageSize:pageSize+8], wb[:])

		page[0] = 1
		if err := unix.Mprotect(page[:pageSize], unix.PROT_WRITE); err != nil {
			fmt.Println("mprotect error:", err)
			os.Exit(1)
		}

		fmt.Printf("base=%d\n", addrOf(page))

	case "cross-page":
		pageSize := unix.Getpagesize()
		length := pageSize + 2
		// Six pages: allocate enough room to place a (length*4)-byte
		// array starting 4 bytes before a page boundary; it then ends 4
		// bytes into the sixth page.
		region, err := unix.Mmap(-1, 0, 6*pageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
		if err != nil {
			fmt.Println("mmap error:", err)
			os.Exit(1)
		}
		start := pageSize - 4
		arr := region[start : start+length*4]

		putU32(arr, 0, 321)
		for i := 1; i < length-1; i++ {
			putU32(arr, i, 123)
		}
		putU32(arr, length-1, 234)

		// The array's second page is write-protected.
		if err := unix.Mprotect(region[pageSize:2*pageSize], unix.PROT_READ); err != nil {
			fmt.Println("mprotect error:", err)
			os.Exit(1)
		}

		fmt.Printf("base=%d\n", addrOf(arr))

	case "named-thread":
		// This goroutine's OS thread is never unlocked or unparked: it
		// needs to stay alive and named for as long as the parent is
		// inspecting /proc/<pid>/task, which outlives this function.
		go func() {
			runtime.LockOSThread()
			setThreadName("thread_name")
			select {}
		}()
		fmt.Println("base=0")

	default:
		fmt.Println("unknown child mode:", mode)
		os.Exit(1)
	}

	if err := unix.Kill(os.Getpid(), syscall.SIGSTOP); err != nil {
		os.Exit(1)
	}
	select {} // the parent kills us when it's done
}

func wordBytes(p *uint64) unsafe.Pointer {
	return unsafe.Pointer(p)
}

func addrOf(buf []byte) uint64 {
	if len(buf) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&buf[0])))
}

func setThreadName(name string) error {
	b := append([]byte(name), 0)
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&b[0])), 0, 0, 0)
}

func putU32(buf []byte, index int, v uint32) {
	i := index * 4
	buf[i] = byte(v)
	buf[i+1] = byte(v >> 8)
	buf[i+2] = byte(v >> 16)
	buf[i+3] = byte(v >> 24)
}

// childTracee is a running, ptrace-stopped child process plus the base
// address it reported back over stdout.
type childTracee struct {
	target *Target
	cmd    *exec.Cmd
	base   uint64
}

func launchChildMode(t *testing.T, mode string) *childTracee {
	t.Helper()
	runtime.LockOSThread()

	self, err := os.Executable()
	if err != nil {
		t.Skipf("cannot resolve test binary path: %v", err)
	}

	cmd := exec.Command(self, "-test.run=^$")
	cmd.Env = append(os.Environ(), childModeEnv+"="+mode)
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatalf("StdoutPipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot launch child tracee: %v", err)
	}
	t.Cleanup(func() { cmd.Process.Kill() })

	pid := cmd.Process.Pid

	// Initial execve-trap stop.
	if _, err := unix.Wait4(pid, nil, 0, nil); err != nil {
		t.Fatalf("initial wait: %v", err)
	}

	if err := unix.PtraceCont(pid, 0); err != nil {
		t.Fatalf("cont: %v", err)
	}

	line, err := bufio.NewReader(stdout).ReadString('\n')
	if err != nil {
		t.Fatalf("reading child base address: %v", err)
	}
	base := parseBaseLine(t, line)

	// The child raises SIGSTOP on itself once set up; wait for that.
	var status unix.WaitStatus
	if _, err := unix.Wait4(pid, &status, 0, nil); err != nil {
		t.Fatalf("wait for child stop: %v", err)
	}
	if !status.Stopped() {
		t.Fatalf("expected child to be ptrace-stopped, got %#v", status)
	}
	if err := unix.PtraceSetOptions(pid, unix.PTRACE_O_EXITKILL); err != nil {
		t.Fatalf("arming kill-on-exit: %v", err)
	}

	target := newTarget(pid, true)
	return &childTracee{target: target, cmd: cmd, base: base}
}

func parseBaseLine(t *testing.T, line string) uint64 {
	t.Helper()
	line = strings.TrimSpace(line)
	const prefix = "base="
	if !strings.HasPrefix(line, prefix) {
		t.Fatalf("unexpected child output: %q", line)
	}
	n, err := strconv.ParseUint(line[len(prefix):], 10, 64)
	if err != nil {
		t.Fatalf("parsing child base address %q: %v", line, err)
	}
	return n
}
