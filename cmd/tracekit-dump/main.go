// Command tracekit-dump launches or attaches to a process and prints
// its memory map and thread listing, matching the diagnostic shape of
// the library's own debug tooling.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/tracekit/tracekit"
	"github.com/tracekit/tracekit/internal/logging"
)

func main() {
	var (
		pidFlag    = flag.Int("pid", 0, "Attach to an already-running process by pid")
		launchPath = flag.String("launch", "", "Launch and trace a new process instead of attaching")
		verbose    = flag.Bool("v", false, "Verbose output")
		killOnExit = flag.Bool("kill-on-exit", true, "Kill the tracee if this process exits without detaching")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	if *pidFlag == 0 && *launchPath == "" {
		log.Fatal("one of -pid or -launch is required")
	}
	if *pidFlag != 0 && *launchPath != "" {
		log.Fatal("-pid and -launch are mutually exclusive")
	}

	// ptrace requires every request for a tracee to come from the same
	// OS thread that attached it.
	runtime.LockOSThread()

	var target *tracekit.Target
	if *launchPath != "" {
		t, _, err := tracekit.Launch(*launchPath, flag.Args())
		if err != nil {
			logger.Error("failed to launch target", "path", *launchPath, "error", err)
			os.Exit(1)
		}
		target = t
		logger.Info("launched target", "pid", target.Pid())
	} else {
		t, _, err := tracekit.Attach(*pidFlag, tracekit.AttachOptions{KillOnExit: *killOnExit})
		if err != nil {
			logger.Error("failed to attach to target", "pid", *pidFlag, "error", err)
			os.Exit(1)
		}
		target = t
		logger.Info("attached to target", "pid", target.Pid())
	}

	defer func() {
		if err := target.Detach(); err != nil {
			logger.Error("error detaching", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		target.Detach()
		os.Exit(0)
	}()

	dumpThreads(target)
	dumpMaps(target)
}

func dumpThreads(target *tracekit.Target) {
	threads, err := target.Threads()
	if err != nil {
		fmt.Fprintf(os.Stderr, "threads: %v\n", err)
		return
	}
	fmt.Printf("THREADS (%d)\n", len(threads))
	for _, th := range threads {
		name, ok := th.Name()
		if !ok {
			name = "?"
		}
		fmt.Printf("  tid=%-8s name=%s\n", strconv.Itoa(int(th.Tid())), name)
	}
}

func dumpMaps(target *tracekit.Target) {
	maps, err := target.MemoryMaps()
	if err != nil {
		fmt.Fprintf(os.Stderr, "maps: %v\n", err)
		return
	}
	fmt.Printf("\nMEMORY MAPS (%d)\n", len(maps))
	for _, m := range maps {
		perms := permString(m)
		path := ""
		if m.BackingFile != nil {
			path = m.BackingFile.Path
		}
		fmt.Printf("  %016x-%016x %s %s\n", m.Start, m.End, perms, path)
	}
}

func permString(m tracekit.MemoryMap) string {
	b := []byte("----")
	if m.Readable {
		b[0] = 'r'
	}
	if m.Writable {
		b[1] = 'w'
	}
	if m.Executable {
		b[2] = 'x'
	}
	if m.Private {
		b[3] = 'p'
	} else {
		b[3] = 's'
	}
	return string(b)
}
