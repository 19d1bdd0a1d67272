// +build integration

// Package integration holds slower tests that launch real tracees and
// drive actual ptrace(2) round-trips; they're gated behind the
// integration build tag so a plain `go test ./...` stays fast and
// doesn't depend on ptrace being permitted in the current environment
// (containers and CI runners sometimes restrict it via yama).
package integration

import (
	"os"
	"runtime"
	"testing"

	"github.com/tracekit/tracekit"
)

func requirePtrace(t *testing.T) {
	if os.Getuid() < 0 {
		t.Skip("no usable uid")
	}
}

func TestIntegrationLaunchDetach(t *testing.T) {
	requirePtrace(t)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	target, status, err := tracekit.Launch("/bin/sleep", []string{"5"})
	if err != nil {
		t.Skipf("cannot launch tracee in this environment: %v", err)
	}
	defer target.Detach()

	if !status.Stopped() {
		t.Fatalf("expected tracee to stop after launch, got %#v", status)
	}
	if !target.KillOnExit() {
		t.Error("Launch should arm kill-on-exit unconditionally")
	}

	if err := target.Detach(); err != nil {
		t.Fatalf("Detach: %v", err)
	}
}

func TestIntegrationMemoryMapsNonEmpty(t *testing.T) {
	requirePtrace(t)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	target, _, err := tracekit.Launch("/bin/sleep", []string{"5"})
	if err != nil {
		t.Skipf("cannot launch tracee in this environment: %v", err)
	}
	defer target.Detach()

	maps, err := target.MemoryMaps()
	if err != nil {
		t.Fatalf("MemoryMaps: %v", err)
	}
	if len(maps) == 0 {
		t.Fatal("expected at least one memory map entry for a live process")
	}
}

func TestIntegrationThreadsNonEmpty(t *testing.T) {
	requirePtrace(t)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	target, _, err := tracekit.Launch("/bin/sleep", []string{"5"})
	if err != nil {
		t.Skipf("cannot launch tracee in this environment: %v", err)
	}
	defer target.Detach()

	threads, err := target.Threads()
	if err != nil {
		t.Fatalf("Threads: %v", err)
	}
	if len(threads) == 0 {
		t.Fatal("expected at least one thread for a live process")
	}
}
