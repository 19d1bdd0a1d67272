// Package memio implements tracekit's batched cross-page memory
// read/write transport: a fast path over unix.ProcessVMReadv/Writev for
// ordinarily-mapped memory, and a word-at-a-time unix.PtracePeekData/
// PokeData fallback (with read-modify-write on unaligned edges) for
// memory process_vm_readv/writev cannot reach - pages mapped without
// the matching read/write permission, which ptrace can still touch
// because PTRACE_PEEKDATA/POKEDATA force the access.
package memio

import (
	"fmt"
	"sort"

	"golang.org/x/sys/unix"

	"github.com/tracekit/tracekit/internal/constants"
	"github.com/tracekit/tracekit/internal/interfaces"
	"github.com/tracekit/tracekit/internal/procfs"
	"github.com/tracekit/tracekit/internal/tracer"
)

// logger receives optional debug tracing of the fast/slow split Apply
// computes for each batch; nil (the default) means no logging. tracekit
// wires the owning Target's logger in here the same way the teacher's
// queue runner accepted an interfaces.Logger field rather than importing
// a concrete logging package directly.
var logger interfaces.Logger

// SetLogger installs l as the destination for memio's debug tracing, or
// clears it if l is nil.
func SetLogger(l interfaces.Logger) {
	logger = l
}

// Request pairs a local buffer with the remote address it corresponds
// to. For a read, Buf is the destination to fill; for a write, Buf is
// the source to send.
type Request struct {
	Buf  []byte
	Addr uint64
}

// segment is one contiguous run of a Request's bytes that share a
// fast-path eligibility classification.
type segment struct {
	reqIndex  int
	reqOffset int
	addr      uint64
	length    int
	fastPath  bool
}

// Apply transfers every request's bytes to or from pid's address space,
// preferring the vectored fast path and falling back to ptrace word
// transfers for memory the fast path can't reach. write selects the
// direction: false reads pid's memory into each Request.Buf, true
// writes each Request.Buf into pid's memory.
//
// Failures name the region that failed; fast-path transfers that
// already completed earlier in the same call are not rolled back.
func Apply(pid int, reqs []Request, write bool) error {
	if len(reqs) == 0 {
		return nil
	}

	maps, err := procfs.Maps(pid)
	if err != nil {
		return fmt.Errorf("memio: reading memory maps: %w", err)
	}

	var segments []segment
	for i, req := range reqs {
		segments = append(segments, classify(maps, i, req, write)...)
	}

	fast := make([]segment, 0, len(segments))
	slow := make([]segment, 0, len(segments))
	for _, s := range segments {
		if s.fastPath {
			fast = append(fast, s)
		} else {
			slow = append(slow, s)
		}
	}

	if logger != nil {
		logger.Debugf("memio: apply pid=%d write=%v requests=%d fast_segments=%d slow_segments=%d", pid, write, len(reqs), len(fast), len(slow))
	}

	if len(fast) > 0 {
		if err := applyFast(pid, reqs, fast, write); err != nil {
			return fmt.Errorf("memio: fast-path transfer at 0x%x: %w", fast[0].addr, err)
		}
	}
	for _, s := range slow {
		if err := applySlow(pid, reqs, s, write); err != nil {
			return fmt.Errorf("memio: ptrace transfer at 0x%x (%d bytes): %w", s.addr, s.length, err)
		}
	}
	return nil
}

// classify splits one request into segments of contiguous fast-path or
// slow-path bytes, walking the memory map in address order.
func classify(maps []procfs.MemoryMap, reqIndex int, req Request, write bool) []segment {
	length := len(req.Buf)
	if length == 0 {
		return nil
	}

	var out []segment
	addr := req.Addr
	end := req.Addr + uint64(length)
	offset := 0

	for addr < end {
		region := findRegion(maps, addr)
		fast := region != nil && fastEligible(*region, write)

		var regionEnd uint64
		if region != nil {
			regionEnd = region.End
		} else {
			regionEnd = end
		}
		stop := regionEnd
		if stop > end {
			stop = end
		}
		if stop <= addr {
			// No covering map and nothing ahead; treat remainder as one
			// slow segment so the resulting ptrace error names it.
			stop = end
		}

		segLen := int(stop - addr)
		if n := len(out); n > 0 && out[n-1].fastPath == fast && out[n-1].reqIndex == reqIndex {
			out[n-1].length += segLen
		} else {
			out = append(out, segment{reqIndex: reqIndex, reqOffset: offset, addr: addr, length: segLen, fastPath: fast})
		}

		offset += segLen
		addr = stop
	}
	return out
}

func findRegion(maps []procfs.MemoryMap, addr uint64) *procfs.MemoryMap {
	i := sort.Search(len(maps), func(i int) bool { return maps[i].End > addr })
	if i < len(maps) && maps[i].Start <= addr {
		return &maps[i]
	}
	return nil
}

func fastEligible(region procfs.MemoryMap, write bool) bool {
	if write {
		return region.Writable
	}
	return region.Readable
}

// applyFast issues one unix.ProcessVMReadv/Writev call per
// constants.VMReadvIovMax fast-path segments, regardless of whether they're
// contiguous in memory - the syscall takes an arbitrary iovec list, so
// "coalescing" means as few calls as the iovec cap allows, not one memcpy.
func applyFast(pid int, reqs []Request, segments []segment, write bool) error {
	// The kernel caps a single process_vm_readv/writev call at IOV_MAX
	// iovecs; a batch with more fast-path fragments than that is issued
	// as multiple syscalls rather than failing with E2BIG.
	for len(segments) > 0 {
		n := len(segments)
		if n > constants.VMReadvIovMax {
			n = constants.VMReadvIovMax
		}
		if err := applyFastChunk(pid, reqs, segments[:n], write); err != nil {
			return err
		}
		segments = segments[n:]
	}
	return nil
}

func applyFastChunk(pid int, reqs []Request, segments []segment, write bool) error {
	local := make([]unix.Iovec, len(segments))
	remote := make([]unix.RemoteIovec, len(segments))

	for i, s := range segments {
		buf := reqs[s.reqIndex].Buf[s.reqOffset : s.reqOffset+s.length]
		local[i] = unix.Iovec{Base: &buf[0]}
		local[i].SetLen(s.length)
		remote[i] = unix.RemoteIovec{Base: uintptr(s.addr), Len: s.length}
	}

	var n int
	var err error
	if write {
		n, err = unix.ProcessVMWritev(pid, local, remote, 0)
	} else {
		n, err = unix.ProcessVMReadv(pid, local, remote, 0)
	}
	if err != nil {
		return err
	}

	want := 0
	for _, s := range segments {
		want += s.length
	}
	if n != want {
		return fmt.Errorf("short transfer: got %d of %d bytes", n, want)
	}
	return nil
}

// applySlow transfers one segment a word at a time via PTRACE_PEEKDATA/
// POKEDATA, read-modify-writing the first and last words when the
// segment isn't word-aligned.
func applySlow(pid int, reqs []Request, s segment, write bool) error {
	buf := reqs[s.reqIndex].Buf[s.reqOffset : s.reqOffset+s.length]
	if write {
		return pokeRange(pid, s.addr, buf)
	}
	return peekRange(pid, s.addr, buf)
}

func peekRange(pid int, addr uint64, out []byte) error {
	const w = constants.WordSize
	start := addr &^ (w - 1)
	prefix := int(addr - start)
	total := prefix + len(out)
	words := (total + w - 1) / w

	scratch := getWord()
	defer putWord(scratch)

	pos := start
	written := 0
	for i := 0; i < words; i++ {
		if _, err := tracer.PeekData(pid, uintptr(pos), *scratch); err != nil {
			return err
		}
		lo := 0
		if i == 0 {
			lo = prefix
		}
		hi := w
		if remaining := len(out) - written + lo; remaining < hi {
			hi = remaining
		}
		n := copy(out[written:], (*scratch)[lo:hi])
		written += n
		pos += w
	}
	return nil
}

func pokeRange(pid int, addr uint64, data []byte) error {
	const w = constants.WordSize
	start := addr &^ (w - 1)
	prefix := int(addr - start)
	total := prefix + len(data)
	words := (total + w - 1) / w

	scratch := getWord()
	defer putWord(scratch)

	pos := start
	read := 0
	for i := 0; i < words; i++ {
		lo := 0
		if i == 0 {
			lo = prefix
		}
		hi := w
		if remaining := len(data) - read + lo; remaining < hi {
			hi = remaining
		}

		if lo != 0 || hi != w {
			// Partial word: must read the existing contents first so we
			// don't clobber the bytes outside [lo, hi).
			if _, err := tracer.PeekData(pid, uintptr(pos), *scratch); err != nil {
				return err
			}
		}
		n := copy((*scratch)[lo:hi], data[read:])
		read += n

		if _, err := tracer.PokeData(pid, uintptr(pos), *scratch); err != nil {
			return err
		}
		pos += w
	}
	return nil
}
