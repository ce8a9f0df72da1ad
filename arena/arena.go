// Package arena is a chunked bump allocator for the text of one nodeset
// import.
//
// Strings handed to the arena are copied into large byte chunks so the
// front end may reuse its buffers immediately; the arena hands back a
// Handle (chunk, offset, length) or a string backed by the chunk. Equal
// strings are stored once. Release drops every chunk in one step.
package arena

import (
	"unsafe"

	"github.com/minio/highwayhash"
)

// DefaultChunkSize is the chunk size used when New is given a size <= 0
const DefaultChunkSize = 64 * 1024

var key = []byte("0123456789ABCDEF0123456789ABCDEF")

// Handle locates a string within an Arena. The zero Handle is the empty
// string.
type Handle struct {
	chunk uint32
	off   uint32
	n     uint32
}

// Len returns the length in bytes of the string h refers to
func (h Handle) Len() int { return int(h.n) }

// Arena is a bump allocator for strings. An Arena is not safe for
// concurrent use.
type Arena struct {
	chunkSize int
	chunks    [][]byte
	index     map[uint64][]Handle
	bytes     int
	count     int
}

// New returns an Arena allocating chunks of chunkSize bytes
func New(chunkSize int) *Arena {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Arena{chunkSize: chunkSize, index: make(map[uint64][]Handle)}
}

// Alloc copies s into the arena, returning the handle of an existing
// copy when one exists.
func (a *Arena) Alloc(s string) Handle {
	if len(s) == 0 {
		return Handle{}
	}
	sum := highwayhash.Sum64([]byte(s), key)
	for _, h := range a.index[sum] {
		if a.String(h) == s {
			return h
		}
	}
	h := a.copy(s)
	a.index[sum] = append(a.index[sum], h)
	a.count++
	return h
}

func (a *Arena) copy(s string) Handle {
	n := len(s)
	cur := len(a.chunks) - 1
	if cur < 0 || cap(a.chunks[cur])-len(a.chunks[cur]) < n {
		size := a.chunkSize
		if n > size {
			size = n
		}
		a.chunks = append(a.chunks, make([]byte, 0, size))
		cur++
	}
	off := len(a.chunks[cur])
	a.chunks[cur] = append(a.chunks[cur], s...)
	a.bytes += n
	return Handle{chunk: uint32(cur), off: uint32(off), n: uint32(n)}
}

// String returns the string h refers to. The result shares memory with
// the arena chunk and stays valid after Release.
func (a *Arena) String(h Handle) string {
	if h.n == 0 {
		return ""
	}
	c := a.chunks[h.chunk]
	return unsafe.String(&c[h.off], int(h.n))
}

// Intern is Alloc followed by String
func (a *Arena) Intern(s string) string { return a.String(a.Alloc(s)) }

// Len returns the number of bytes held by the arena
func (a *Arena) Len() int { return a.bytes }

// Count returns the number of distinct strings held by the arena
func (a *Arena) Count() int { return a.count }

// Chunks returns the number of chunks allocated
func (a *Arena) Chunks() int { return len(a.chunks) }

// Release drops every chunk and the interning index. Handles obtained
// before Release must not be used afterwards.
func (a *Arena) Release() {
	a.chunks = nil
	a.index = make(map[uint64][]Handle)
	a.bytes, a.count = 0, 0
}
