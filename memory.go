package tracekit

import "github.com/tracekit/tracekit/internal/memio"

// ReadOp accumulates a batch of reads against one Target, applied
// together in a single call to Apply so the transport can coalesce the
// fast-path-eligible fragments into one vectored syscall.
//
// A []byte destination already carries its own length, so this
// collapses what a borrow-checked language might split into separate
// "read a fixed-size value" and "read a slice" entry points into one
// Read method: a slice of any length is simply the uniform byte
// capability.
type ReadOp struct {
	target *Target
	reqs   []memio.Request
}

// Read starts an empty batch of reads against t. Queue reads with Add
// (which returns the ReadOp so calls can be chained) and run them with
// Apply.
func (t *Target) Read() *ReadOp {
	return &ReadOp{target: t}
}

// Add queues one more read into the batch.
func (r *ReadOp) Add(dst []byte, remoteAddr uint64) *ReadOp {
	r.reqs = append(r.reqs, memio.Request{Buf: dst, Addr: remoteAddr})
	return r
}

// Apply executes every queued read. Each destination buffer is filled
// in place; an error names the region that failed. Fast-path transfers
// that already completed earlier in this call are not rolled back.
func (r *ReadOp) Apply() error {
	if r.target.detached {
		return NewPidError("ReadOp.Apply", r.target.pid, CodeNotTraced, "target has been detached")
	}
	if err := memio.Apply(r.target.pid, r.reqs, false); err != nil {
		return NewRegionError("ReadOp.Apply", r.target.pid, "", CodeRegionUnreadable, err.Error())
	}
	return nil
}

// WriteOp accumulates a batch of writes against one Target; see ReadOp
// for the batching rationale.
type WriteOp struct {
	target *Target
	reqs   []memio.Request
}

// Write starts an empty batch of writes against t. Queue writes with Add
// and run them with Apply.
func (t *Target) Write() *WriteOp {
	return &WriteOp{target: t}
}

// Add queues one more write into the batch.
func (w *WriteOp) Add(src []byte, remoteAddr uint64) *WriteOp {
	w.reqs = append(w.reqs, memio.Request{Buf: src, Addr: remoteAddr})
	return w
}

// Apply executes every queued write. An error names the region that
// failed; earlier writes that already succeeded within this call are
// not rolled back - tracekit does not buffer a pre-image of the
// destination memory, so there is nothing to restore even if it
// wanted to.
func (w *WriteOp) Apply() error {
	if w.target.detached {
		return NewPidError("WriteOp.Apply", w.target.pid, CodeNotTraced, "target has been detached")
	}
	if err := memio.Apply(w.target.pid, w.reqs, true); err != nil {
		return NewRegionError("WriteOp.Apply", w.target.pid, "", CodeRegionUnwritable, err.Error())
	}
	return nil
}
