package procfs

import (
	"os"
	"testing"
)

func TestParseMapsLine(t *testing.T) {
	tests := []struct {
		line string
		want MemoryMap
		ok   bool
	}{
		{
			line: "00400000-00452000 r-xp 00000000 08:02 173521   /usr/bin/cat",
			want: MemoryMap{
				Start: 0x400000, End: 0x452000,
				Readable: true, Writable: false, Executable: true, Private: true,
				BackingFile: &BackingFile{Path: "/usr/bin/cat", Offset: 0},
			},
			ok: true,
		},
		{
			line: "7ffd12345000-7ffd12366000 rw-p 00000000 00:00 0        [stack]",
			want: MemoryMap{
				Start: 0x7ffd12345000, End: 0x7ffd12366000,
				Readable: true, Writable: true, Executable: false, Private: true,
			},
			ok: true,
		},
		{
			line: "not a maps line",
			ok:   false,
		},
	}

	for _, tt := range tests {
		got, ok := parseMapsLine(tt.line)
		if ok != tt.ok {
			t.Fatalf("parseMapsLine(%q) ok = %v, want %v", tt.line, ok, tt.ok)
		}
		if !ok {
			continue
		}
		if got.Start != tt.want.Start || got.End != tt.want.End {
			t.Errorf("parseMapsLine(%q) range = %x-%x, want %x-%x", tt.line, got.Start, got.End, tt.want.Start, tt.want.End)
		}
		if got.Readable != tt.want.Readable || got.Writable != tt.want.Writable ||
			got.Executable != tt.want.Executable || got.Private != tt.want.Private {
			t.Errorf("parseMapsLine(%q) perms = %+v, want %+v", tt.line, got, tt.want)
		}
		if (got.BackingFile == nil) != (tt.want.BackingFile == nil) {
			t.Errorf("parseMapsLine(%q) backing file presence mismatch", tt.line)
		}
		if got.BackingFile != nil && tt.want.BackingFile != nil && *got.BackingFile != *tt.want.BackingFile {
			t.Errorf("parseMapsLine(%q) backing file = %+v, want %+v", tt.line, *got.BackingFile, *tt.want.BackingFile)
		}
	}
}

func TestMapsSelf(t *testing.T) {
	maps, err := Maps(os.Getpid())
	if err != nil {
		t.Fatalf("Maps: %v", err)
	}
	if len(maps) == 0 {
		t.Fatal("expected at least one mapping for the current process")
	}
}

func TestAddrRangeSelf(t *testing.T) {
	addr, err := AddrRange(os.Getpid())
	if err != nil {
		t.Fatalf("AddrRange: %v", err)
	}
	if addr == 0 {
		t.Error("expected a non-zero start address")
	}
}
