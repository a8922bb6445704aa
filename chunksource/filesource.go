// Package chunksource provides the default, file-backed ChunkSource
// implementation: a lazy, random-access reader over a local file, and a
// mime-type inference helper used to populate a File's resumableType field.
//
// Chunk bytes are never preloaded — ReadChunk opens a fresh io.SectionReader
// over the already-open file descriptor per call, the same way the teacher
// (internal/graph/upload.go) sections an io.ReaderAt per chunk/attempt
// instead of buffering the whole file.
package chunksource

import (
	"context"
	"fmt"
	"io"
	stdmime "mime"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// sniffSampleSize is how many leading bytes of the first chunk are handed to
// the content-based mime sniffer when the extension alone isn't recognized.
const sniffSampleSize = 512

// FileSource is the default ChunkSource: a single open file descriptor,
// sliced into fixed-size, lazily-read chunks.
type FileSource struct {
	path      string
	file      *os.File
	size      int64
	chunkSize int64
	numChunks int
}

// Open opens path and derives its chunk layout from chunkSize. An empty
// file still produces exactly one (zero-length) chunk, so FILE_COMPLETED
// always has a CHUNK_COMPLETED to follow (spec.md §9).
func Open(path string, chunkSize int64) (*FileSource, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunksource: chunk size must be positive, got %d", chunkSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("chunksource: opening %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()

		return nil, fmt.Errorf("chunksource: stat %s: %w", path, err)
	}

	size := info.Size()

	numChunks := int(size / chunkSize)
	if size%chunkSize != 0 || numChunks == 0 {
		numChunks++
	}

	return &FileSource{
		path:      path,
		file:      f,
		size:      size,
		chunkSize: chunkSize,
		numChunks: numChunks,
	}, nil
}

func (s *FileSource) Path() string     { return s.path }
func (s *FileSource) Size() int64      { return s.size }
func (s *FileSource) ChunkSize() int64 { return s.chunkSize }
func (s *FileSource) NumChunks() int   { return s.numChunks }

// chunkByteSize returns the number of bytes in the chunk at index: the
// configured chunk size for every chunk except the last, which absorbs the
// remainder (zero for an empty file's single synthesized chunk).
func (s *FileSource) chunkByteSize(index int) int64 {
	if index < s.numChunks-1 {
		return s.chunkSize
	}

	return s.size - int64(index)*s.chunkSize
}

// ReadChunk reads the bytes for the chunk at index via a fresh
// io.SectionReader, so concurrent reads of different chunks never share
// mutable read state.
func (s *FileSource) ReadChunk(ctx context.Context, index int) ([]byte, error) {
	if index < 0 || index >= s.numChunks {
		return nil, fmt.Errorf("chunksource: chunk index %d out of range [0,%d)", index, s.numChunks)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	length := s.chunkByteSize(index)
	if length == 0 {
		return []byte{}, nil
	}

	offset := int64(index) * s.chunkSize
	buf := make([]byte, length)

	if _, err := io.ReadFull(io.NewSectionReader(s.file, offset, length), buf); err != nil {
		return nil, fmt.Errorf("chunksource: reading chunk %d of %s: %w", index, s.path, err)
	}

	return buf, nil
}

// Close closes the underlying file descriptor. Safe to call more than once.
func (s *FileSource) Close() error {
	if s.file == nil {
		return nil
	}

	err := s.file.Close()
	s.file = nil

	return err
}

// InferMimeType resolves a mime type the way a browser's File.type would:
// extension first (stdlib mime.TypeByExtension, which has a built-in table
// independent of the host's /etc/mime.types), falling back to content
// sniffing via mimetype.Detect on sample when the extension is unknown or
// absent. Returns "" when neither source yields a match, matching
// resumable.js's File.type semantics for unrecognized files.
func InferMimeType(path string, sample []byte) string {
	if ext := filepath.Ext(path); ext != "" {
		if t := stdmime.TypeByExtension(ext); t != "" {
			return stripParameters(t)
		}
	}

	if len(sample) == 0 {
		return ""
	}

	detected := mimetype.Detect(sample)
	if detected == nil || detected.Is("application/octet-stream") {
		return ""
	}

	return detected.String()
}

// stripParameters drops any ";charset=..."-style parameters stdlib's
// TypeByExtension sometimes appends, so resumableType matches the bare
// mime type a browser would report.
func stripParameters(mimeType string) string {
	for i, c := range mimeType {
		if c == ';' {
			return mimeType[:i]
		}
	}

	return mimeType
}

// Sample reads up to sniffSampleSize bytes from the start of the file for
// content-based mime sniffing, without disturbing later ReadChunk calls
// (ReadAt leaves the file offset alone, and ReadChunk sections at explicit
// per-chunk offsets via io.SectionReader).
func (s *FileSource) Sample() []byte {
	buf := make([]byte, sniffSampleSize)

	n, err := s.file.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil
	}

	return buf[:n]
}
