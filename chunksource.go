package resumable

import "context"

// ChunkSource opens a local file and exposes an ordered, lazily-materialized
// sequence of fixed-size chunks. The last chunk may be shorter than
// ChunkSize. Implementations must support concurrent calls to ReadChunk —
// the Scheduler may have multiple workers reading different chunks of the
// same File at once.
//
// The default implementation (chunksource.FileSource, constructed for every
// AddFile call) opens the file once and reads each chunk lazily
// with io.ReaderAt at task-execution time, never holding the whole file in
// memory. Callers needing a different source (network-backed, encrypted,
// already in memory) can supply one via WithChunkSourceFunc.
type ChunkSource interface {
	// Path returns the path the caller supplied when adding the file.
	Path() string
	// Size returns the total file size in bytes.
	Size() int64
	// ChunkSize returns the configured chunk size in bytes.
	ChunkSize() int64
	// NumChunks returns the number of chunks this source exposes. Always
	// at least 1, even for an empty file (spec.md §9).
	NumChunks() int
	// ReadChunk returns the raw bytes of the chunk at index. index is
	// 0-based and must be < NumChunks().
	ReadChunk(ctx context.Context, index int) ([]byte, error)
	// Close releases any resources (e.g. the open file descriptor).
	// Idempotent.
	Close() error
}

// ChunkSourceFunc opens path with the given chunk size and returns a
// ChunkSource over it.
type ChunkSourceFunc func(path string, chunkSize int64) (ChunkSource, error)
