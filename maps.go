package tracekit

import "github.com/tracekit/tracekit/internal/procfs"

// MemoryMap describes one mapped region of the tracee's address space,
// read from /proc/<pid>/maps.
type MemoryMap struct {
	Start, End  uint64
	BackingFile *BackingFile // nil if the mapping is anonymous
	Readable    bool
	Writable    bool
	Executable  bool
	Private     bool
}

// BackingFile is the file backing a mapping, if any.
type BackingFile struct {
	Path   string
	Offset uint64
}

// MemoryMaps returns the tracee's current memory mappings in kernel
// order (address-ascending). Permission characters are read
// positionally as rwxp; an unrecognized character at a position yields
// false, never an error.
func (t *Target) MemoryMaps() ([]MemoryMap, error) {
	maps, err := procfs.Maps(t.pid)
	if err != nil {
		return nil, NewPidError("MemoryMaps", t.pid, CodeParseFailed, err.Error())
	}

	out := make([]MemoryMap, len(maps))
	for i, m := range maps {
		out[i] = MemoryMap{
			Start:      m.Start,
			End:        m.End,
			Readable:   m.Readable,
			Writable:   m.Writable,
			Executable: m.Executable,
			Private:    m.Private,
		}
		if m.BackingFile != nil {
			out[i].BackingFile = &BackingFile{Path: m.BackingFile.Path, Offset: m.BackingFile.Offset}
		}
	}
	return out, nil
}

// GetAddrRange reads the first line of /proc/<pid>/maps and returns the
// start address of the first mapping.
func GetAddrRange(pid int) (uint64, error) {
	addr, err := procfs.AddrRange(pid)
	if err != nil {
		return 0, NewPidError("GetAddrRange", pid, CodeParseFailed, err.Error())
	}
	return addr, nil
}
