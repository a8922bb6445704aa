package resumable

import (
	"context"
	"net/url"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// File owns a ChunkSource plus the ordered set of Chunks derived from it,
// and aggregates chunk completion into file completion (spec.md §4.3).
type File struct {
	path       string
	source     ChunkSource
	chunkSize  int64
	totalSize  int64
	mimeType   string
	identifier string

	chunks []*Chunk

	bus *Bus

	closeOnce     sync.Once
	completedOnce sync.Once
}

// newFile derives a File's Chunk list from source and subscribes to each
// chunk's completion, per spec.md §4.3: "On construction, the File
// subscribes to each Chunk's CHUNK_COMPLETED... tests the completion
// predicate and, if satisfied, emits FILE_COMPLETED and closes itself."
func newFile(path string, source ChunkSource, identifierFunc IdentifierFunc, mimeType string) *File {
	f := &File{
		path:       path,
		source:     source,
		chunkSize:  source.ChunkSize(),
		totalSize:  source.Size(),
		mimeType:   mimeType,
		identifier: identifierFunc(path, source.Size()),
		bus:        NewBus(),
	}

	numChunks := source.NumChunks()
	chunks := make([]*Chunk, numChunks)

	for i := range numChunks {
		size := f.chunkByteSize(i, numChunks)
		chunk := newChunk(f, i, size)
		chunk.bus.ProxyTo(f.bus)
		chunk.bus.Register(ChunkCompleted, f.handleChunkCompletion)
		chunks[i] = chunk
	}

	f.chunks = chunks

	return f
}

// chunkByteSize mirrors the source's own last-chunk-is-shorter rule without
// re-deriving it from Size()/ChunkSize() elsewhere, in case a custom
// ChunkSource rounds differently.
func (f *File) chunkByteSize(index, numChunks int) int64 {
	if index < numChunks-1 {
		return f.chunkSize
	}

	return f.totalSize - int64(index)*f.chunkSize
}

// DefaultIdentifierFunc generates a fresh random UUIDv4 per File instance,
// faithful to the source library: re-running the client against the same
// file does not let the server correlate a prior partial upload (spec.md
// §9). Callers wanting deterministic cross-run identifiers supply their own
// IdentifierFunc via WithIdentifierFunc.
func DefaultIdentifierFunc(_ string, _ int64) string {
	return uuid.NewString()
}

// IdentifierFunc derives a File's resumableIdentifier from its path and
// size.
type IdentifierFunc func(path string, size int64) string

// Path returns the path the caller supplied when adding the file.
func (f *File) Path() string { return f.path }

// Identifier returns this File instance's resumableIdentifier.
func (f *File) Identifier() string { return f.identifier }

// Chunks returns the File's ordered chunk list. The slice itself is fixed
// at construction (spec.md §3); callers must not mutate it.
func (f *File) Chunks() []*Chunk { return f.chunks }

// Completed reports whether every chunk has reached StateDone.
func (f *File) Completed() bool {
	for _, c := range f.chunks {
		if c.State() != StateDone {
			return false
		}
	}

	return true
}

func (f *File) fileName() string {
	return filepath.Base(f.path)
}

// Query returns the seven File-level fields of spec.md §4.3's query table,
// stable for the File's lifetime.
func (f *File) Query() url.Values {
	q := make(url.Values, 7)
	q.Set("resumableChunkSize", strconv.FormatInt(f.chunkSize, 10))
	q.Set("resumableTotalSize", strconv.FormatInt(f.totalSize, 10))
	q.Set("resumableType", f.mimeType)
	q.Set("resumableIdentifier", f.identifier)
	q.Set("resumableFileName", f.fileName())
	q.Set("resumableRelativePath", f.path)
	q.Set("resumableTotalChunks", strconv.Itoa(len(f.chunks)))

	return q
}

// handleChunkCompletion is registered on every chunk's bus for
// ChunkCompleted. After each chunk completion it tests the completion
// predicate and, if satisfied, emits FileCompleted exactly once and closes
// the File.
func (f *File) handleChunkCompletion(Signal) {
	if !f.Completed() {
		return
	}

	f.completedOnce.Do(func() {
		f.bus.Emit(FileCompleted)
		f.Close()
	})
}

// readChunkBytes fetches a chunk's raw bytes from the underlying
// ChunkSource, lazily, at task-execution time.
func (f *File) readChunkBytes(ctx context.Context, index int) ([]byte, error) {
	return f.source.ReadChunk(ctx, index)
}

// Close releases the underlying ChunkSource. Idempotent.
func (f *File) Close() error {
	var err error

	f.closeOnce.Do(func() {
		err = f.source.Close()
	})

	return err
}
