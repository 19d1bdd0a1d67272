package memio

import (
	"sync"

	"github.com/tracekit/tracekit/internal/constants"
)

// wordPool recycles the small scratch buffers used by the word-at-a-time
// PEEKDATA/POKEDATA fallback path, the same size-bucketed sync.Pool
// approach the teacher uses for its I/O buffers, scaled down from
// 64KB-1MB buckets to the single 8-byte bucket this domain actually
// needs.
var wordPool = sync.Pool{
	New: func() any {
		buf := make([]byte, constants.WordSize)
		return &buf
	},
}

// getWord returns a zeroed word-sized scratch buffer.
func getWord() *[]byte {
	buf := wordPool.Get().(*[]byte)
	for i := range *buf {
		(*buf)[i] = 0
	}
	return buf
}

// putWord returns a scratch buffer to the pool.
func putWord(buf *[]byte) {
	wordPool.Put(buf)
}
